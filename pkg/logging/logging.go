// Package logging builds the process logger and scrubs sensitive values
// before they reach it. Data source configs carry database credentials, and
// session material carries bearer tokens; neither may appear in log output.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger builds the process logger. The local environment gets a
// development config with debug output; everything else logs structured JSON
// at info.
func NewLogger(env string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
