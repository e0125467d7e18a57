package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sujalbistaa/murmur/internal/config"
	"github.com/sujalbistaa/murmur/internal/moderation"
	"github.com/sujalbistaa/murmur/internal/quota"
)

func TestEngineWithRulesFile(t *testing.T) {
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.json")
	require.NoError(t, os.WriteFile(rules, []byte(`{"denylist": ["boludo"]}`), 0o600))

	e, err := Engine(&config.Config{ModerationProvider: "none", ModerationRulesFile: rules})
	require.NoError(t, err)

	d := e.Classify(context.Background(), moderation.KindReply, "sos un boludo")
	assert.Equal(t, moderation.ReasonDenylist, d.Reason)

	d = e.Classify(context.Background(), moderation.KindReply, "gracias por contarlo")
	assert.Equal(t, moderation.ReasonOK, d.Reason)
}

func TestEngineErrors(t *testing.T) {
	_, err := Engine(&config.Config{ModerationProvider: "magic"})
	assert.Error(t, err)

	_, err = Engine(&config.Config{ModerationProvider: "none", ModerationRulesFile: "/does/not/exist.json"})
	assert.Error(t, err)
}

func TestBuildSqlite(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:        "sqlite://" + filepath.Join(t.TempDir(), "murmur.db"),
		ModerationProvider: "none",
		DailyPostQuota:     3,
	}
	s, err := Build(cfg)
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &quota.MemStore{}, s.Content.Quota)
	assert.Equal(t, 3, s.Content.Config.DailyPostQuota)
	assert.Same(t, s.Content, s.Reports.Content)
}
