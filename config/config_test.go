package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetModerationConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := GetModerationConfig()
		assert.Equal(t, 50.0, cfg.MinConfidence)
		assert.Equal(t, 3, cfg.LabelAttempts)
		assert.Equal(t, 1, cfg.IndeterminateRetries)
		assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	})

	t.Run("FromEnv", func(t *testing.T) {
		t.Setenv("MODERATION_MIN_CONFIDENCE", "72.5")
		t.Setenv("MODERATION_LABEL_ATTEMPTS", "5")
		t.Setenv("MODERATION_CALL_TIMEOUT", "3s")
		cfg := GetModerationConfig()
		assert.Equal(t, 72.5, cfg.MinConfidence)
		assert.Equal(t, 5, cfg.LabelAttempts)
		assert.Equal(t, 3*time.Second, cfg.CallTimeout)
	})

	t.Run("InvalidValueFallsBack", func(t *testing.T) {
		t.Setenv("MODERATION_LABEL_ATTEMPTS", "many")
		t.Setenv("MODERATION_BACKOFF_BASE", "soon")
		cfg := GetModerationConfig()
		assert.Equal(t, 3, cfg.LabelAttempts)
		assert.Equal(t, 200*time.Millisecond, cfg.BackoffBase)
	})
}

func TestGetStoreConfig(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	cfg := GetStoreConfig()
	assert.Equal(t, "redis", cfg.Backend)
	assert.Equal(t, 3, cfg.AdmissionRetries)
}
