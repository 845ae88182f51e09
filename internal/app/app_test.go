package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mensabot/internal/config"
	"github.com/vbonduro/mensabot/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("MENSABOT_TEST_MODE", "1")
	dir := t.TempDir()
	t.Setenv("SESSION_PATH", filepath.Join(dir, "sessions"))
	t.Setenv("LOG_FILE", filepath.Join(dir, "mensabot.log"))
	t.Setenv("CLOUD_OCR", "none")
	cfg, err := config.Load(filepath.Join("testdata", "config.yaml"))
	require.NoError(t, err)
	return cfg
}

func TestRunDemoServesPlaceholders(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	a, err := New(testConfig(t), Options{Demo: true, NoConsole: true, ConsoleOnly: true})
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.State().DemoMode())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		return a.Menus().Snapshot() != nil
	}, 5*time.Second, 10*time.Millisecond)

	table := a.Menus().Snapshot()
	assert.True(t, table.Complete())
	text, ok := table.Get(domain.Perrone, domain.Cena)
	require.True(t, ok)
	assert.Contains(t, text, "PERRONE")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewRejectsBadTimezone(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cfg := testConfig(t)
	cfg.Timezone = "Nowhere/Land"
	_, err := New(cfg, Options{NoConsole: true})
	assert.Error(t, err)
}
