package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/bankfeed/internal/config"
)

func TestInitializeConfigDefaults(t *testing.T) {
	cfg, err := config.InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "spending", cfg.Mongo.Database)
	assert.Equal(t, "https://api.enablebanking.com", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSeconds)
	assert.Equal(t, 100, cfg.API.MaxPages)
	assert.Equal(t, 365, cfg.Fetch.MaxLookbackDays)
	assert.Equal(t, 7, cfg.Fetch.OverlapDays)
	assert.Equal(t, "banks.yaml", cfg.Banks.File)
}

func TestInitializeConfigEnvOverride(t *testing.T) {
	t.Setenv("BANKFEED_FETCH_OVERLAP_DAYS", "14")
	t.Setenv("MONGO_DB_NAME", "spending_test")

	cfg, err := config.InitializeConfig()
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Fetch.OverlapDays)
	assert.Equal(t, "spending_test", cfg.Mongo.Database)
}

func TestInitializeConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{name: "invalid log level", env: "BANKFEED_LOG_LEVEL", value: "verbose"},
		{name: "zero timeout", env: "BANKFEED_API_TIMEOUT_SECONDS", value: "0"},
		{name: "zero max pages", env: "BANKFEED_API_MAX_PAGES", value: "0"},
		{name: "zero lookback", env: "BANKFEED_FETCH_MAX_LOOKBACK_DAYS", value: "0"},
		{name: "negative overlap", env: "BANKFEED_FETCH_OVERLAP_DAYS", value: "-1"},
		{name: "overlap exceeds lookback", env: "BANKFEED_FETCH_OVERLAP_DAYS", value: "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			_, err := config.InitializeConfig()
			assert.Error(t, err)
		})
	}
}
