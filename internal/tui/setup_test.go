package tui

import (
	"testing"

	"github.com/theirongolddev/bopt/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestValidateBaseURL(t *testing.T) {
	assert.NoError(t, validateBaseURL("http://localhost:8000"))
	assert.NoError(t, validateBaseURL("https://ml.example.com/"))
	assert.Error(t, validateBaseURL("localhost:8000"))
	assert.Error(t, validateBaseURL("ftp://x"))
	assert.Error(t, validateBaseURL(""))
}

func TestValidateOwner(t *testing.T) {
	assert.NoError(t, validateOwner("u1"))
	assert.Error(t, validateOwner("  "))
}

func TestApplySetup(t *testing.T) {
	cfg := config.DefaultConfig()
	applySetup(&cfg, setupValues{
		Owner:      " u1 ",
		MLBaseURL:  "http://ml:8000/",
		MLAPIKey:   " key ",
		Theme:      "tokyo-night",
		AutoRevert: false,
	})
	assert.Equal(t, "u1", cfg.General.OwnerID)
	assert.Equal(t, "http://ml:8000", cfg.ML.BaseURL)
	assert.Equal(t, "key", cfg.ML.APIKey)
	assert.Equal(t, "tokyo-night", cfg.Appearance.Theme)
	assert.False(t, cfg.Engine.AutoRevertExceeded)
}

func TestDefaultSetupValuesRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.General.OwnerID = "u9"
	vals := defaultSetupValues(cfg)

	out := config.DefaultConfig()
	applySetup(&out, vals)
	assert.Equal(t, cfg, out)
}

func TestSetupFormBuilds(t *testing.T) {
	vals := defaultSetupValues(config.DefaultConfig())
	form := newSetupForm(3, "/tmp/bopt.db", &vals)
	assert.NotNil(t, form)
}
