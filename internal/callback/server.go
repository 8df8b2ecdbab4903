package callback

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/openlark/userauth/internal/tokenstore"
)

// Callback requests are user clicks, not API traffic. The limiter exists to
// keep a misdirected crawler from burning upstream exchange calls.
const (
	defaultRateLimit = rate.Limit(5)
	defaultRateBurst = 10
)

// NewRouter assembles the callback server: the OAuth redirect endpoint at
// callbackPath, a health probe, and Prometheus metrics exporting the token
// store's classification counts.
func NewRouter(h http.Handler, callbackPath string, store *tokenstore.Store) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(rateLimit(rate.NewLimiter(defaultRateLimit, defaultRateBurst)))

	r.Get(callbackPath, h.ServeHTTP)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(newStatsCollector(store))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

// rateLimit rejects requests beyond the limiter's sustained rate with 429.
func rateLimit(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statsCollector exports token store stats as gauges, computed at scrape
// time so the values always reflect the live classification.
type statsCollector struct {
	store *tokenstore.Store

	total        *prometheus.Desc
	valid        *prometheus.Desc
	needsRefresh *prometheus.Desc
	expired      *prometheus.Desc
}

func newStatsCollector(store *tokenstore.Store) *statsCollector {
	return &statsCollector{
		store: store,
		total: prometheus.NewDesc("userauth_tokens_total",
			"Number of stored user token records.", nil, nil),
		valid: prometheus.NewDesc("userauth_tokens_valid",
			"Stored tokens outside the refresh window.", nil, nil),
		needsRefresh: prometheus.NewDesc("userauth_tokens_needs_refresh",
			"Stored tokens inside the refresh window.", nil, nil),
		expired: prometheus.NewDesc("userauth_tokens_expired",
			"Stored tokens whose refresh token has expired.", nil, nil),
	}
}

func (c *statsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.valid
	ch <- c.needsRefresh
	ch <- c.expired
}

func (c *statsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.store.Stats()

	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(st.Total))
	ch <- prometheus.MustNewConstMetric(c.valid, prometheus.GaugeValue, float64(st.Valid))
	ch <- prometheus.MustNewConstMetric(c.needsRefresh, prometheus.GaugeValue, float64(st.NeedsRefresh))
	ch <- prometheus.MustNewConstMetric(c.expired, prometheus.GaugeValue, float64(st.Expired))
}
