package cmd

import (
	"fmt"

	"github.com/berrythewa/gpsio-bridge/internal/common"
	"github.com/berrythewa/gpsio-bridge/internal/config"
	"go.uber.org/zap"
)

// SetupLogger builds the command logger from the config and global flags.
// --verbose and --quiet win over log.level.
func SetupLogger(cfg *config.Config) (*zap.Logger, error) {
	logCfg := *cfg
	switch {
	case verbose:
		logCfg.Log.Level = "debug"
	case quiet:
		logCfg.Log.Level = "error"
	case logLevel != "":
		logCfg.Log.Level = logLevel
	}
	return common.NewLogger(&logCfg)
}

// GetLogger returns the configured logger, creating it if necessary
func GetLogger() (*zap.Logger, error) {
	if zapLogger != nil {
		return zapLogger, nil
	}

	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	logger, err := SetupLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	zapLogger = logger
	return logger, nil
}
