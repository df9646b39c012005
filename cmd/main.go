package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/davidbz/voxrelay/internal/audio"
	audioredis "github.com/davidbz/voxrelay/internal/audio/redis"
	"github.com/davidbz/voxrelay/internal/config"
	"github.com/davidbz/voxrelay/internal/domain"
	"github.com/davidbz/voxrelay/internal/http"
	"github.com/davidbz/voxrelay/internal/http/middleware"
	"github.com/davidbz/voxrelay/internal/observability"
	"github.com/davidbz/voxrelay/internal/provider/echo"
	"github.com/davidbz/voxrelay/internal/provider/ollama"
	"github.com/davidbz/voxrelay/internal/provider/openai"
	"github.com/davidbz/voxrelay/internal/provider/registry"
	"github.com/davidbz/voxrelay/internal/speech"
	"github.com/davidbz/voxrelay/internal/speech/espeak"
	"github.com/davidbz/voxrelay/internal/speech/tone"
)

const shutdownTimeout = 10 * time.Second

func main() {
	container := buildContainer()

	err := container.Invoke(run)
	if err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

// run serves until SIGINT/SIGTERM, then drains the server and stops background work.
func run(
	server *http.Server,
	store *audio.Store,
	worker *speech.Worker,
	audioCfg *config.AudioConfig,
	logger *zap.Logger,
) error {
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go store.Run(ctx, audioCfg.SweepInterval)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			observability.FromContext(shutdownCtx).Error("shutdown failed", observability.Error(err))
		}
	}()

	err := server.Start()
	stop()
	worker.Stop()

	return err
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func(logger *zap.Logger) domain.EventPublisher {
		return observability.NewEventBus(logger)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Providers
	if err := container.Provide(func(chat *config.ChatConfig) domain.ProviderRegistry {
		return registry.NewRegistry(chat.DefaultProvider)
	}); err != nil {
		log.Fatalf("Failed to provide registry: %v", err)
	}
	if err := container.Invoke(registerProviders); err != nil {
		log.Fatalf("Failed to register providers: %v", err)
	}

	// Chat relay
	if err := container.Provide(func(
		reg domain.ProviderRegistry,
		chat *config.ChatConfig,
		ollamaCfg *ollama.Config,
	) *domain.ChatRelay {
		return domain.NewChatRelay(reg, domain.RelayConfig{
			DefaultModel:   ollamaCfg.Model,
			DefaultOptions: domain.ChatOptions{"temperature": chat.DefaultTemperature},
		})
	}); err != nil {
		log.Fatalf("Failed to provide chat relay: %v", err)
	}

	// Speech
	if err := container.Provide(newEngineFactory); err != nil {
		log.Fatalf("Failed to provide speech engine: %v", err)
	}
	if err := container.Provide(func(factory domain.EngineFactory, cfg *config.SpeechConfig) *speech.Worker {
		return speech.NewWorker(factory, cfg.QueueSize)
	}); err != nil {
		log.Fatalf("Failed to provide speech worker: %v", err)
	}
	if err := container.Provide(func(worker *speech.Worker) domain.EngineExecutor {
		return worker
	}); err != nil {
		log.Fatalf("Failed to provide engine executor: %v", err)
	}

	// Audio retention
	if err := container.Provide(newAudioLedger); err != nil {
		log.Fatalf("Failed to provide audio ledger: %v", err)
	}
	if err := container.Provide(func(
		cfg *config.AudioConfig,
		ledger domain.AudioLedger,
		events domain.EventPublisher,
	) (*audio.Store, error) {
		return audio.NewStore(cfg.Dir, cfg.Retention, ledger, events)
	}); err != nil {
		log.Fatalf("Failed to provide audio store: %v", err)
	}
	if err := container.Provide(func(store *audio.Store) domain.AudioStore {
		return store
	}); err != nil {
		log.Fatalf("Failed to provide audio store interface: %v", err)
	}

	// Domain Services
	if err := container.Provide(func(
		executor domain.EngineExecutor,
		store domain.AudioStore,
		events domain.EventPublisher,
		cfg *config.SpeechConfig,
	) *domain.SpeechService {
		return domain.NewSpeechService(executor, store, events, domain.SpeechDefaults{
			Language: cfg.DefaultLanguage,
			Rate:     cfg.DefaultRate,
			Volume:   cfg.DefaultVolume,
		})
	}); err != nil {
		log.Fatalf("Failed to provide speech service: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(middleware.BuildMiddlewareChain); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(http.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(http.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}

// registerProviders registers ollama first, then the optional providers.
// Order decides which provider answers for a model several could serve.
func registerProviders(
	reg domain.ProviderRegistry,
	chat *config.ChatConfig,
	ollamaCfg *ollama.Config,
	openaiCfg *openai.Config,
	_ *zap.Logger,
) error {
	ctx := context.Background()
	logger := observability.FromContext(ctx)

	ollamaProvider, err := ollama.NewProvider(*ollamaCfg)
	if err != nil {
		return fmt.Errorf("failed to create Ollama provider: %w", err)
	}
	if err := reg.Register(ctx, ollamaProvider); err != nil {
		return fmt.Errorf("failed to register Ollama provider: %w", err)
	}
	logger.Info("provider registered",
		observability.String("provider", ollamaProvider.Name()),
		observability.String("base_url", ollamaCfg.BaseURL),
	)

	if chat.EchoEnabled {
		if err := reg.Register(ctx, echo.NewProvider()); err != nil {
			return fmt.Errorf("failed to register echo provider: %w", err)
		}
		logger.Info("provider registered", observability.String("provider", "echo"))
	}

	if openaiCfg.APIKey != "" {
		openaiProvider, err := openai.NewProvider(*openaiCfg)
		if err != nil {
			return fmt.Errorf("failed to create OpenAI provider: %w", err)
		}
		if err := reg.Register(ctx, openaiProvider); err != nil {
			return fmt.Errorf("failed to register OpenAI provider: %w", err)
		}
		logger.Info("provider registered",
			observability.String("provider", openaiProvider.Name()),
			observability.String("base_url", openaiCfg.BaseURL),
		)
	}

	if _, err := reg.Get(ctx, chat.DefaultProvider); err != nil {
		logger.Warn("default provider is not registered; unclaimed models will fail",
			observability.String("provider", chat.DefaultProvider))
	}

	return nil
}

// newEngineFactory selects the host speech engine. The engine itself is only
// started by the speech worker on first use.
func newEngineFactory(cfg *config.SpeechConfig) (domain.EngineFactory, error) {
	switch cfg.Engine {
	case "", "espeak":
		return espeak.NewFactory(cfg.Binary), nil
	case "tone":
		return tone.NewFactory(), nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}
}

// newAudioLedger shares retention through Redis when configured, else keeps it in memory.
func newAudioLedger(cfg *config.RedisConfig, _ *zap.Logger) (domain.AudioLedger, error) {
	if cfg.Addr == "" {
		return audio.NewMemoryLedger(), nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ledger, err := audioredis.NewLedger(ctx, client, cfg.LedgerKey)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis audio ledger unavailable: %w", err)
	}

	observability.FromContext(ctx).Info("using redis audio ledger",
		observability.String("addr", cfg.Addr),
		observability.String("key", cfg.LedgerKey))

	return ledger, nil
}
