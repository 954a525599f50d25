package taapi

import (
	"time"

	"github.com/rs/zerolog"

	"momentum-signal-engine/config"
)

// NewFromConfig returns the live HTTP client, or the simulated provider when
// mock mode is explicitly enabled in configuration
func NewFromConfig(cfg config.TaapiConfig, logger zerolog.Logger) Client {
	if cfg.MockMode {
		logger.Warn().Msg("Mock mode enabled - using simulated indicator data")
		return NewMockClient()
	}

	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	return NewHTTPClient(cfg.APIKey, cfg.BaseURL, timeout, logger)
}
