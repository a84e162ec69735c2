package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, "local", cfg.AuthProvider)
	assert.Equal(t, "partial", cfg.ReportMode)
	assert.Equal(t, "maroto", cfg.PDFRenderer)
	assert.Equal(t, 15*time.Second, cfg.StoreTimeout)
	assert.Equal(t, int32(8), cfg.PGMaxConns)
	assert.Zero(t, cfg.RedisDB)
	assert.True(t, cfg.NeedsPostgres())
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsInconsistentBackends(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown backend":        {"STORE_BACKEND": "mongo"},
		"supabase without key":   {"STORE_BACKEND": "supabase", "SUPABASE_URL": "https://x.supabase.co"},
		"local auth over memory": {"STORE_BACKEND": "memory", "AUTH_PROVIDER": "local"},
		"gotrue without url":     {"STORE_BACKEND": "postgres", "AUTH_PROVIDER": "gotrue"},
		"unknown report mode":    {"REPORT_MODE": "lenient"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestLoadConfigSupabaseOnly(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "supabase")
	t.Setenv("AUTH_PROVIDER", "gotrue")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.NeedsPostgres())
}

func TestLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogLevel: "warn", LogFormat: "json"})
	logger.Info("hidden")
	logger.Warn("shown", slog.String("table", "modal"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"table":"modal"`)
}
