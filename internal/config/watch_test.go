package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen = "127.0.0.1:8089"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	holder := NewHolder(cfg, path)

	var reloads atomic.Int64

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, holder, slog.New(slog.NewTextHandler(io.Discard, nil)), func(_, _ *Config) {
			reloads.Add(1)
		})
	}()

	// Give the watcher a moment to register before mutating the file.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen = "127.0.0.1:9999"
`), 0o600))

	assert.Eventually(t, func() bool {
		return holder.Current().Server.Listen == "127.0.0.1:9999"
	}, 3*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int64(1))

	cancel()
	<-done
}

func TestWatch_BrokenRewriteKeepsPreviousConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen = "127.0.0.1:8089"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	holder := NewHolder(cfg, path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, holder, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	}()

	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`[server`), 0o600))

	// The broken file must not displace the active config.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, "127.0.0.1:8089", holder.Current().Server.Listen)

	cancel()
	<-done
}
