// Package bootstrap wires configuration into the services shared by the
// Lambda and HTTP server entrypoints.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog"

	"rental-assistant/handler"
	"rental-assistant/internal/catalog"
	"rental-assistant/internal/config"
	"rental-assistant/internal/integrations/gemini"
	"rental-assistant/internal/integrations/openai"
	"rental-assistant/internal/integrations/paramstore"
	"rental-assistant/internal/logger"
	"rental-assistant/internal/metrics"
	"rental-assistant/internal/repository"
	"rental-assistant/internal/sentiment"
	"rental-assistant/internal/usecase"
)

// store is what every repository backend provides.
type store interface {
	usecase.ConversationStore
	usecase.MessageLog
}

// App holds the wired services plus anything that must be closed on exit.
type App struct {
	Services handler.Services
	Metrics  *metrics.Metrics
	closers  []func() error
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HandlerOptions returns the logging and metrics options for either adapter.
func (a *App) HandlerOptions(log zerolog.Logger) []handler.Option {
	return []handler.Option{
		handler.WithLogger(logger.Component(log, "http")),
		handler.WithMetrics(a.Metrics),
		handler.WithMetricsEndpoint(a.Metrics.Handler()),
	}
}

// Build resolves the API key, opens the store and assembles the services.
// Any failure here is fatal for the process.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		var err error
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load AWS config: %w", err)
		}
	}

	apiKey := cfg.APIKey()
	if apiKey == "" && cfg.ParamPrefix != "" {
		ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: create SSM client: %w", err)
		}
		param, err := ps.Lookup(ctx, paramstore.TokenName(cfg.ParamPrefix))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: resolve API key: %w", err)
		}
		if apiKey, err = paramstore.ParseToken(param.Value); err != nil {
			return nil, fmt.Errorf("bootstrap: resolve API key: %w", err)
		}
		ev := log.Info()
		if !param.Secure() {
			ev = log.Warn()
		}
		ev.Str("parameter", param.Name).
			Int64("version", param.Version).
			Bool("secure", param.Secure()).
			Msg("API key loaded from parameter store")
	}

	llm, err := newLLM(cfg, apiKey)
	if err != nil {
		return nil, err
	}

	app := &App{Metrics: metrics.New()}
	st, err := openStore(ctx, cfg, awsCfg, app)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	products, err := catalog.Default()
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("bootstrap: load catalog: %w", err)
	}

	messages, err := usecase.NewMessageService(sentiment.NewVader(), llm, st, products,
		usecase.WithLogger(logger.Component(log, "usecase")),
		usecase.WithRecorder(app.Metrics),
	)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	productSvc, err := usecase.NewProductService(products)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	logSvc, err := usecase.NewMessageLogService(st)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.Services = handler.Services{Messages: messages, Products: productSvc, Log: logSvc}
	log.Info().
		Str("llm_provider", cfg.LLMProvider).
		Str("store_backend", cfg.StoreBackend).
		Int("products", len(products.All())).
		Msg("services ready")
	return app, nil
}

func newLLM(cfg *config.Config, apiKey string) (usecase.LLMClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("bootstrap: no API key for provider %q: set the provider key or PARAM_PREFIX", cfg.LLMProvider)
	}
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		c, err := openai.NewClient(apiKey, openai.WithModel(cfg.OpenAIModel), openai.WithBaseURL(cfg.OpenAIBaseURL))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: create OpenAI client: %w", err)
		}
		return c, nil
	default:
		c, err := gemini.NewClient(apiKey, gemini.WithModel(cfg.GeminiModel), gemini.WithBaseURL(cfg.GeminiBaseURL))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: create Gemini client: %w", err)
		}
		return c, nil
	}
}

func openStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, app *App) (store, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		s, err := repository.OpenRedis(ctx, repository.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open redis store: %w", err)
		}
		app.closers = append(app.closers, s.Close)
		return s, nil
	case config.BackendSQLite:
		s, err := repository.OpenSQLite(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: open sqlite store: %w", err)
		}
		app.closers = append(app.closers, s.Close)
		return s, nil
	default:
		s, err := repository.NewDynamoStore(awsdynamodb.NewFromConfig(awsCfg), cfg.StateTable)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: create dynamodb store: %w", err)
		}
		return s, nil
	}
}
