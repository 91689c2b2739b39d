package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/followthefloww9/gold-digger/config"
	"github.com/followthefloww9/gold-digger/internal/ai"
	"github.com/followthefloww9/gold-digger/internal/bar"
	"github.com/followthefloww9/gold-digger/internal/broker"
	"github.com/followthefloww9/gold-digger/internal/events"
	"github.com/followthefloww9/gold-digger/internal/httpapi"
	"github.com/followthefloww9/gold-digger/internal/logging"
	"github.com/followthefloww9/gold-digger/internal/marketdata"
	"github.com/followthefloww9/gold-digger/internal/persistence"
	"github.com/followthefloww9/gold-digger/internal/risk"
	"github.com/followthefloww9/gold-digger/internal/secrets"
	"github.com/followthefloww9/gold-digger/internal/supervisor"
)

// main wires the control plane: market data feed, SMC analysis and
// signal engine, AI validator, risk gate, broker executor, and the
// supervisor loop, all behind the HTTP control surface. It runs until
// an OS signal asks it to stop.
func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrapLogger := zerolog.New(os.Stderr)
		bootstrapLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(logging.Config{
		Level:         cfg.LoggingConfig.Level,
		Output:        cfg.LoggingConfig.Output,
		Pretty:        !cfg.LoggingConfig.JSONFormat,
		IncludeCaller: cfg.LoggingConfig.IncludeFile,
	})

	ctx := context.Background()

	db, err := persistence.Open(ctx, postgresConfig(config.LoadPostgresConfig()))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Msg("database migrations complete")

	bus := events.NewBus(256)
	defer bus.Close()

	// Every published event also lands in the append-only
	// system_events table; a write failure is logged, never fatal.
	bus.Subscribe(func(ev events.Event) {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.InsertSystemEvent(writeCtx, ev); err != nil {
			logger.Error().Err(err).Str("kind", string(ev.Kind)).Msg("persist system event")
		}
	})

	var store *secrets.Client
	if cfg.VaultConfig.Enabled {
		store, err = secrets.NewClient(cfg.VaultConfig)
		if err != nil {
			logger.Warn().Err(err).Msg("vault client unavailable, continuing with config-supplied credentials")
			store = nil
		} else {
			logger.Info().Msg("vault client initialized")
		}
	}

	symbol := bar.XAUUSD
	timeframe := bar.Timeframe(cfg.TradingConfig.Timeframe)

	source := marketdata.NewMemorySource()
	startBalance := cfg.TradingConfig.StartBalance
	if startBalance <= 0 {
		startBalance = 10000
	}

	port := broker.NewPaperBroker(source, startBalance)
	executor := broker.NewExecutor(port, cfg.TradingConfig.MaxPositions)

	riskCfg := risk.DefaultConfig()
	riskCfg.MaxRiskPerTrade = cfg.TradingConfig.MaxRiskPerTrade
	riskCfg.MaxDailyLoss = cfg.TradingConfig.MaxDailyLoss
	riskCfg.MaxTradesPerDay = cfg.TradingConfig.MaxTradesPerDay
	riskCfg.MaxTradesPerHour = cfg.TradingConfig.MaxTradesPerHour
	gate := risk.NewGate(riskCfg, time.Now().UTC())

	validator := buildValidator(ctx, cfg, store, logger)

	supCfg := supervisor.DefaultConfig()
	supCfg.Symbol = symbol
	supCfg.Timeframe = timeframe
	supCfg.RiskPercentage = cfg.TradingConfig.RiskPercentage
	supCfg.MaxRiskAmount = cfg.TradingConfig.MaxRiskAmount
	supCfg.MaxRiskPerTrade = cfg.TradingConfig.MaxRiskPerTrade
	supCfg.MaxDailyLoss = cfg.TradingConfig.MaxDailyLoss
	supCfg.MaxPositions = cfg.TradingConfig.MaxPositions
	supCfg.MaxTradesPerDay = cfg.TradingConfig.MaxTradesPerDay
	supCfg.MinConfidence = cfg.TradingConfig.MinConfidence
	if cfg.TradingConfig.ShutdownPolicy != "" {
		supCfg.ShutdownPolicy = supervisor.ShutdownPolicy(cfg.TradingConfig.ShutdownPolicy)
	}
	if cfg.TradingConfig.AnalysisIntervalSeconds > 0 {
		supCfg.AnalysisInterval = time.Duration(cfg.TradingConfig.AnalysisIntervalSeconds) * time.Second
	}
	if cfg.TradingConfig.HeartbeatIntervalSeconds > 0 {
		supCfg.HeartbeatInterval = time.Duration(cfg.TradingConfig.HeartbeatIntervalSeconds) * time.Second
	}
	if cfg.AIConfig.Enabled {
		supCfg.AITimeout = time.Duration(cfg.AIConfig.TimeoutSeconds) * time.Second
		supCfg.AICacheTTL = time.Duration(cfg.AIConfig.CacheTTLSeconds) * time.Second
		supCfg.AIRequestsPerMinute = cfg.AIConfig.RequestsPerMinute
	}

	sup := supervisor.New(db, bus, source, executor, gate, validator, supCfg, logger)

	server := httpapi.New(cfg.ServerConfig, cfg.AuthConfig, sup, db, executor, bus)

	go func() {
		logger.Info().Int("port", cfg.ServerConfig.Port).Msg("http control surface listening")
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := sup.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error stopping daemon")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error shutting down http server")
	}
	logger.Info().Msg("shutdown complete")
}

func postgresConfig(pg config.PostgresConfig) persistence.Config {
	return persistence.Config{
		Host:     pg.Host,
		Port:     pg.Port,
		User:     pg.User,
		Password: pg.Password,
		Database: pg.Database,
		SSLMode:  pg.SSLMode,
	}
}

// buildValidator wires the AI second-opinion validator when a provider
// is configured; the supervisor trades on technical signals alone when
// this returns nil. The API key is resolved from the secret store
// first, falling back to config.
func buildValidator(ctx context.Context, cfg *config.Config, store *secrets.Client, logger zerolog.Logger) *ai.Validator {
	aiCfg := cfg.AIConfig
	if !aiCfg.Enabled {
		logger.Info().Msg("AI validation disabled, trading on technical signals only")
		return nil
	}

	apiKey := aiAPIKey(aiCfg)
	if store != nil {
		if creds, err := store.GetCredentials(ctx, "ai"); err == nil && creds.APIKey != "" {
			apiKey = creds.APIKey
		}
	}

	client := ai.NewClient(ai.ClientConfig{
		Provider:    ai.Provider(aiCfg.LLMProvider),
		APIKey:      apiKey,
		Model:       aiCfg.LLMModel,
		MaxTokens:   1024,
		Temperature: 0.3,
		Timeout:     time.Duration(aiCfg.TimeoutSeconds) * time.Second,
	})

	var redisCfg *ai.RedisConfig
	if cfg.RedisConfig.Enabled {
		redisCfg = &ai.RedisConfig{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		}
	}
	cache := ai.NewResponseCache(time.Duration(aiCfg.CacheTTLSeconds)*time.Second, redisCfg)

	validator := ai.NewValidator(client, cache, ai.Config{
		Timeout:           time.Duration(aiCfg.TimeoutSeconds) * time.Second,
		CacheTTL:          time.Duration(aiCfg.CacheTTLSeconds) * time.Second,
		RequestsPerMinute: aiCfg.RequestsPerMinute,
		MaxRetries:        aiCfg.MaxRetries,
		RetryDelay:        time.Second,
		ConfidenceBoost:   aiCfg.ConfidenceBoost,
		ConfidencePenalty: aiCfg.ConfidencePenalty,
		DemoteThreshold:   aiCfg.DemoteThreshold,
	}, logger)
	logger.Info().Str("provider", aiCfg.LLMProvider).Msg("AI validator configured")
	return validator
}

func aiAPIKey(cfg config.AIConfig) string {
	switch ai.Provider(cfg.LLMProvider) {
	case ai.ProviderOpenAI:
		return cfg.OpenAIAPIKey
	case ai.ProviderDeepSeek:
		return cfg.DeepSeekAPIKey
	default:
		return cfg.ClaudeAPIKey
	}
}
