package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSetDefaultValues(t *testing.T) {
	var cfg Config
	setDefaultValues(&cfg)

	assert.Equal(t, "engine", cfg.Server.Type)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 2*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 75, cfg.Moderation.CrisisThreshold)
	assert.Equal(t, 40, cfg.Moderation.ReviewThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Moderation.RecencyWindow)
	assert.Equal(t, 5*time.Minute, cfg.Crisis.SLA)
	assert.Equal(t, 50, cfg.Feedback.CrisisWeightFloor)
	assert.Equal(t, 7*24*time.Hour, cfg.Feedback.Window)
	assert.Equal(t, "@every 30s", cfg.Dictionary.RefreshSpec)
}

func TestSetDefaultValues_KeepsExplicit(t *testing.T) {
	cfg := Config{
		Store:      StoreConfig{Driver: "memory"},
		Moderation: ModerationConfig{CrisisThreshold: 80},
	}
	setDefaultValues(&cfg)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 80, cfg.Moderation.CrisisThreshold)
}
