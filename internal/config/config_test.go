package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Simulation(t *testing.T) {
	cfg := Config{APIKey: "k", SecretKey: "s"}
	assert.NoError(t, cfg.Validate(true))
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate(true)
	assert.Error(t, err)

	var cfgErr *Error
	assert.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "API_KEY")
}

func TestValidate_RealModeRequiresCA(t *testing.T) {
	cfg := Config{APIKey: "k", SecretKey: "s"}
	err := cfg.Validate(false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "CA_CERT_PATH")

	cfg.CACertPath = "/tmp/ca.pfx"
	cfg.CAPassword = "pw"
	assert.NoError(t, cfg.Validate(false))
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("API_KEY", "k")
	t.Setenv("SECRET_KEY", "s")

	cfg, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "k", cfg.APIKey)
}
