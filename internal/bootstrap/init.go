// Package bootstrap wires the application's dependency graph together:
// configuration, the recognizer registry/factory, the session manager,
// the dispatcher, and the rate limiter, returning one container the
// router and main() share.
package bootstrap

import (
	"fmt"

	"sttstream/config"
	"sttstream/internal/dispatcher"
	"sttstream/internal/logger"
	"sttstream/internal/middleware"
	"sttstream/internal/recognizer"
	"sttstream/internal/session"
)

// AppDependencies holds all application dependencies.
// This is the root dependency container for the application.
type AppDependencies struct {
	Config         *config.Config
	SessionManager *session.Manager
	Factory        *recognizer.Factory
	Dispatcher     *dispatcher.Dispatcher
	RateLimiter    *middleware.RateLimiter
	HotReloadMgr   *config.HotReloadManager
}

// recognizerConfigFromApp maps the public config tree to the
// recognizer package's construction parameters.
func recognizerConfigFromApp(cfg *config.Config) recognizer.Config {
	var rc recognizer.Config
	rc.Priority = cfg.Recognition.Priority
	rc.Kaldi.ModelDir = cfg.Recognition.Kaldi.ModelDir
	rc.Kaldi.TokensPath = cfg.Recognition.Kaldi.TokensPath
	rc.Kaldi.NumThreads = cfg.Recognition.Kaldi.NumThreads
	rc.Whisper.ModelPath = cfg.Recognition.Whisper.ModelPath
	rc.Whisper.SilenceThresholdMs = cfg.Recognition.Whisper.SilenceThresholdMs
	rc.Whisper.MaxBufferDurationMs = cfg.Recognition.Whisper.MaxBufferDurationMs
	rc.CloudHTTP.Endpoint = cfg.Recognition.Cloud.Endpoint
	rc.CloudHTTP.APIKey = cfg.Recognition.Cloud.APIKey
	rc.CloudHTTP.TimeoutSec = cfg.Recognition.Cloud.TimeoutSec
	return rc
}

// InitApp initializes all core components and returns the dependency container.
// All dependencies are explicitly created with the provided configuration.
func InitApp(cfg *config.Config, configPath string) (*AppDependencies, error) {
	logger.Info("initializing_components")

	logger.Info("initializing_hot_reload_manager")
	hotReloadMgr := config.NewHotReloadManager(cfg, configPath)
	hotReloadMgr.OnChange(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Logging.Level)
		logger.Info("configuration_reloaded",
			"log_level", newCfg.Logging.Level,
			"recognition_priority", newCfg.Recognition.Priority,
			"rate_limit_enabled", newCfg.RateLimit.Enabled,
		)
	})
	if err := hotReloadMgr.StartWatching(); err != nil {
		logger.Warn("failed_to_start_config_file_watching", "error", err)
	}

	logger.Info("initializing_recognizer_registry")
	registry := recognizer.NewRegistryFromConfig(recognizerConfigFromApp(cfg))
	factory := recognizer.NewFactory(registry)

	available := factory.AvailableEngines()
	anyAvailable := false
	for _, ok := range available {
		if ok {
			anyAvailable = true
			break
		}
	}
	if !anyAvailable {
		return nil, fmt.Errorf("no recognition engine is available: checked %v", cfg.Recognition.Priority)
	}
	logger.Info("recognition_engines_available", "engines", available)

	logger.Info("initializing_session_manager")
	sessionManager := session.NewManager(factory)

	disp := dispatcher.New()

	logger.Info("initializing_rate_limiter",
		"requests_per_second", cfg.RateLimit.RequestsPerSecond,
		"max_connections", cfg.RateLimit.MaxConnections,
	)
	rateLimiter := middleware.NewRateLimiter(
		cfg.RateLimit.Enabled,
		cfg.RateLimit.RequestsPerSecond,
		cfg.RateLimit.BurstSize,
		cfg.RateLimit.MaxConnections,
	)

	logger.Info("all_components_initialized_successfully")
	return &AppDependencies{
		Config:         cfg,
		SessionManager: sessionManager,
		Factory:        factory,
		Dispatcher:     disp,
		RateLimiter:    rateLimiter,
		HotReloadMgr:   hotReloadMgr,
	}, nil
}
