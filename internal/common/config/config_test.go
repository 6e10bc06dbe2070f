package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://proj.supabase.co", cfg.Supabase.ProjectURL)
	assert.Equal(t, 10*time.Second, cfg.Supabase.HTTPTimeout)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 5*time.Minute, cfg.Redis.ProfileTTL)
	assert.Equal(t, 5, cfg.Session.FetchMaxAttempts)
	assert.Equal(t, 750*time.Millisecond, cfg.Session.FetchBaseDelay)
	assert.Equal(t, 5*time.Second, cfg.Session.LoadingTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_KEY", "anon-key")
	t.Setenv("PORT", "9090")
	t.Setenv("PROFILE_FETCH_MAX_ATTEMPTS", "2")
	t.Setenv("PROFILE_FETCH_BASE_DELAY", "100ms")
	t.Setenv("SESSION_LOADING_TIMEOUT", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Session.FetchMaxAttempts)
	assert.Equal(t, 100*time.Millisecond, cfg.Session.FetchBaseDelay)
	assert.Equal(t, time.Second, cfg.Session.LoadingTimeout)
}

func TestLoadRequiresSupabaseSettings(t *testing.T) {
	// Setenv registers cleanup; Unsetenv makes the variable truly absent.
	t.Setenv("SUPABASE_URL", "x")
	t.Setenv("SUPABASE_KEY", "x")
	os.Unsetenv("SUPABASE_URL")
	os.Unsetenv("SUPABASE_KEY")

	_, err := Load()
	require.Error(t, err)
}
