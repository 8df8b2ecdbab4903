package oauth

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlark/userauth/internal/larkapi"
)

func TestAuthCard_EmbedsAuthorizeURL(t *testing.T) {
	cfg := testConfig(larkapi.DomainFeishu)

	card := AuthCard(cfg, "ou_abc123", "en")

	require.Len(t, card.Elements, 3)
	require.Len(t, card.Elements[1].Actions, 1)

	button := card.Elements[1].Actions[0]
	assert.Equal(t, "button", button.Tag)
	assert.Equal(t, AuthorizeURL(cfg, "ou_abc123"), button.URL)
	assert.Contains(t, button.URL, "state=ou_abc123")
}

func TestAuthCard_EnglishDefault(t *testing.T) {
	card := AuthCard(testConfig(larkapi.DomainFeishu), "ou_x", "en")

	assert.Contains(t, card.Header.Title.Content, "Authorization Required")
}

func TestAuthCard_ChineseVariants(t *testing.T) {
	for _, locale := range []string{"zh", "zh-CN", "zh-Hans"} {
		card := AuthCard(testConfig(larkapi.DomainFeishu), "ou_x", locale)
		assert.Contains(t, card.Header.Title.Content, "需要用户授权", "locale %s", locale)
	}
}

func TestAuthCard_UnknownLocaleFallsBackToEnglish(t *testing.T) {
	card := AuthCard(testConfig(larkapi.DomainFeishu), "ou_x", "fi-FI")

	assert.Contains(t, card.Header.Title.Content, "Authorization Required")
}

func TestAuthCard_MarshalsToInteractiveCardShape(t *testing.T) {
	card := AuthCard(testConfig(larkapi.DomainFeishu), "ou_x", "en")

	data, err := json.Marshal(card)
	require.NoError(t, err)

	body := string(data)
	assert.True(t, strings.Contains(body, `"wide_screen_mode":true`))
	assert.True(t, strings.Contains(body, `"template":"blue"`))
	assert.True(t, strings.Contains(body, `"tag":"lark_md"`))
	assert.True(t, strings.Contains(body, `"tag":"note"`))

	// Empty action/text lists never leak into div or note elements.
	assert.False(t, strings.Contains(body, `"actions":[]`))
}

func TestAuthCard_Deterministic(t *testing.T) {
	cfg := testConfig(larkapi.DomainLark)

	assert.Equal(t, AuthCard(cfg, "ou_x", "en"), AuthCard(cfg, "ou_x", "en"))
}
