package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PACTLY_HTTP_ADDR", ":9999")
	t.Setenv("PACTLY_ACCESS_TTL", "5m")
	t.Setenv("PACTLY_OPENAI_MODEL", "gpt-4o")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.HTTPAddr)
	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, "gpt-4o", cfg.OpenAIModel)
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	t.Setenv("PACTLY_ACCESS_TTL", "0s")
	_, err := Load()
	require.Error(t, err)
}
