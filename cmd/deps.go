package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai/gemini"
	"github.com/spigell/offer-guard/internal/history"
	"github.com/spigell/offer-guard/internal/logger"
	"github.com/spigell/offer-guard/internal/risk"
	"github.com/spigell/offer-guard/internal/secrets"
)

const (
	historyBackendFile  = "file"
	historyBackendRedis = "redis"
	historyBackendNone  = "none"
)

// setup builds the logger and config every command starts from.
func setup() (*zap.Logger, *Config) {
	lg, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		lg.Fatal("getting a config", zap.Error(err))
	}

	lg.Debug("starting", zap.String("app", app), zap.String("version", version))
	return lg, config
}

func newGenerator(ctx context.Context, cfg *AIConfig, lg *zap.Logger) (*gemini.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file)", err)
	}

	genLogger := lg.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries))

	return gemini.NewGenerator(ctx, apiKey, gemini.Options{
		Model:        cfg.Gemini.Model,
		MaxRetries:   cfg.Gemini.MaxRetries,
		MaxLogLength: cfg.Gemini.MaxLogLength,
	}, genLogger)
}

func newEngine(g *gemini.Generator, config *Config, lg *zap.Logger) *risk.Engine {
	return risk.NewEngine(gemini.NewAnalyzer(g, lg), config.Risk, config.AI.Timeout, lg)
}

// newHistoryStore returns the configured store and a function releasing it.
func newHistoryStore(ctx context.Context, cfg *HistoryConfig, lg *zap.Logger) (history.Store, func(), error) {
	noop := func() {}

	switch strings.TrimSpace(strings.ToLower(cfg.Backend)) {
	case "", historyBackendFile:
		store, err := history.NewFileStore(cfg.File, cfg.MaxItems, logger.Component(lg, "history"))
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case historyBackendRedis:
		if strings.TrimSpace(cfg.RedisURL) == "" {
			return nil, noop, fmt.Errorf("history.redis-url is required for the redis backend")
		}
		client, err := history.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		store := history.NewRedisStore(client, cfg.Key, cfg.MaxItems, logger.Component(lg, "history"))
		return store, func() { client.Close() }, nil
	case historyBackendNone:
		return history.Nop{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported history backend: %s", cfg.Backend)
	}
}
