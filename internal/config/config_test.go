package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "secret")
	t.Setenv("MODERATION_PROVIDER", "none")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite://murmur.db", cfg.DatabaseURL)
	assert.Equal(t, 3, cfg.DailyPostQuota)
	assert.Equal(t, 5*time.Second, cfg.ModerationTimeout)
	assert.False(t, cfg.AutoPublish)
	assert.False(t, cfg.IsProduction())
}

func TestLoadRequiresAdminToken(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "")
	t.Setenv("MODERATION_PROVIDER", "none")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresClassifierKey(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "secret")
	t.Setenv("MODERATION_PROVIDER", "http")
	t.Setenv("MODERATION_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("MODERATION_API_KEY", "sk-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.ModerationAPIKey)
}

func TestLoadParsesValues(t *testing.T) {
	t.Setenv("ADMIN_API_TOKEN", "secret")
	t.Setenv("MODERATION_PROVIDER", "none")
	t.Setenv("AUTO_PUBLISH", "true")
	t.Setenv("DAILY_POST_QUOTA", "0")
	t.Setenv("MODERATION_TIMEOUT", "750ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AutoPublish)
	assert.Equal(t, 0, cfg.DailyPostQuota)
	assert.Equal(t, 750*time.Millisecond, cfg.ModerationTimeout)

	t.Setenv("DAILY_POST_QUOTA", "-1")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DAILY_POST_QUOTA", "3")
	t.Setenv("AUTO_PUBLISH", "maybe")
	_, err = Load()
	assert.Error(t, err)
}
