// Package app wires configuration into the services shared by the server
// and the operator CLI.
package app

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/sujalbistaa/murmur/internal/config"
	"github.com/sujalbistaa/murmur/internal/content"
	"github.com/sujalbistaa/murmur/internal/db"
	"github.com/sujalbistaa/murmur/internal/engagement"
	. "github.com/sujalbistaa/murmur/internal/log"
	"github.com/sujalbistaa/murmur/internal/moderation"
	"github.com/sujalbistaa/murmur/internal/quota"
	"github.com/sujalbistaa/murmur/internal/reports"
)

type Services struct {
	DB         *gorm.DB
	Engine     *moderation.Engine
	Content    *content.Manager
	Engagement *engagement.Service
	Reports    *reports.Manager

	closers []func() error
}

// Build opens the database, runs migrations and assembles every service.
func Build(cfg *config.Config) (*Services, error) {
	gdb, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	s := &Services{DB: gdb}
	if sqlDB, err := gdb.DB(); err == nil {
		s.closers = append(s.closers, sqlDB.Close)
	}

	engine, err := Engine(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Engine = engine

	var store quota.Store
	if cfg.RedisURL != "" {
		rs, err := quota.NewRedisStore(cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "connect to redis")
		}
		s.closers = append(s.closers, rs.Client.Close)
		store = rs
		Log.Info("using redis quota store")
	} else {
		store = quota.NewMemStore()
		Log.Info("using in-memory quota store")
	}

	s.Content = &content.Manager{
		DB:        gdb,
		Moderator: engine,
		Quota:     store,
		Config: content.Config{
			AutoPublish:    cfg.AutoPublish,
			DailyPostQuota: cfg.DailyPostQuota,
		},
	}
	s.Engagement = &engagement.Service{DB: gdb}
	s.Reports = &reports.Manager{DB: gdb, Content: s.Content}
	return s, nil
}

// Engine builds the moderation engine from the rules file and classifier
// settings.
func Engine(cfg *config.Config) (*moderation.Engine, error) {
	rules := moderation.DefaultRules()
	if cfg.ModerationRulesFile != "" {
		if err := rules.LoadFile(cfg.ModerationRulesFile); err != nil {
			return nil, err
		}
		Log.WithField("path", cfg.ModerationRulesFile).Info("loaded extra moderation rules")
	}

	var classifier moderation.Classifier
	switch cfg.ModerationProvider {
	case "http":
		classifier = moderation.NewHTTPClassifier(cfg.ModerationURL, cfg.ModerationAPIKey, cfg.ModerationModel, cfg.ModerationTimeout)
	case "none":
		Log.Warn("MODERATION_PROVIDER=none: texts are only checked by local rules")
		classifier = moderation.PassthroughClassifier{}
	default:
		return nil, errors.Errorf("unknown moderation provider %q", cfg.ModerationProvider)
	}
	return moderation.NewEngine(rules, classifier), nil
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			Log.WithError(err).Warn("error closing resource")
		}
	}
}
