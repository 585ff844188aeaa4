// Package server provides the public entry point for initializing the
// BinarJoin AI engine.
//
// Usage:
//
//	cfg, _ := config.Load(config.Path())
//	srv, err := server.New(ctx, cfg)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/binarjoin/agent-engine/internal/actions"
	"github.com/binarjoin/agent-engine/internal/agent"
	"github.com/binarjoin/agent-engine/internal/api"
	"github.com/binarjoin/agent-engine/internal/api/handlers"
	"github.com/binarjoin/agent-engine/internal/config"
	"github.com/binarjoin/agent-engine/internal/pending"
	"github.com/binarjoin/agent-engine/internal/reports"
	"github.com/binarjoin/agent-engine/internal/retention"
	modelrouter "github.com/binarjoin/agent-engine/internal/router"
	"github.com/binarjoin/agent-engine/internal/store"
	"github.com/binarjoin/agent-engine/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized engine.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the SQL store. Callers close it on shutdown.
	Store *store.SQLStore

	// Router is the provider router.
	Router *modelrouter.ModelRouter

	// Engine runs conversation turns and guarded operations.
	Engine *agent.Engine

	// Janitor purges idle sessions. Nil when retention is disabled.
	Janitor *retention.Janitor

	// Config is the configuration the server was built with.
	Config *config.Config

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New validates cfg and initializes every component.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Server.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.URL, cfg.Database.MaxConnections)
	if err != nil {
		shutdown(ctx)
		return nil, fmt.Errorf("open store: %w", err)
	}

	specs, err := ProviderSpecs(ctx, cfg)
	if err != nil {
		dataStore.Close()
		shutdown(ctx)
		return nil, err
	}
	mr, err := modelrouter.NewModelRouter(specs, modelrouter.WithCooldown(cfg.Engine.Cooldown))
	if err != nil {
		dataStore.Close()
		shutdown(ctx)
		return nil, fmt.Errorf("init router: %w", err)
	}

	reg := pending.NewRegistry()
	eng := agent.New(mr, dataStore, reg,
		actions.New(dataStore),
		reports.New(cfg.Engine.Currency),
		agent.WithHistoryLimit(cfg.Engine.HistoryLimit),
	)
	log.Info().Msg("Engine initialized")

	var janitor *retention.Janitor
	if cfg.Engine.SessionRetention > 0 {
		janitor = retention.NewJanitor(dataStore, reg, cfg.Engine.SessionRetention, cfg.Engine.RetentionInterval)
	}

	h := handlers.New(eng, mr, dataStore)
	return &Server{
		Handler:      api.NewRouter(cfg, h),
		Store:        dataStore,
		Router:       mr,
		Engine:       eng,
		Janitor:      janitor,
		Config:       cfg,
		ShutdownFunc: shutdown,
	}, nil
}

// ProviderSpecs builds a router spec for every provider with an API key.
func ProviderSpecs(ctx context.Context, cfg *config.Config) ([]modelrouter.ProviderSpec, error) {
	p := cfg.Providers
	maxTokens := cfg.Engine.MaxOutputTokens
	var specs []modelrouter.ProviderSpec

	if p.HuggingFace.APIKey != "" {
		specs = append(specs, modelrouter.ProviderSpec{
			Driver:     modelrouter.NewHuggingFaceDriver(p.HuggingFace.APIKey, p.HuggingFace.BaseURL, maxTokens),
			Model:      p.HuggingFace.Model,
			Priority:   p.HuggingFace.Priority,
			DailyLimit: p.HuggingFace.DailyLimit,
		})
	}
	if p.OpenAI.APIKey != "" {
		specs = append(specs, modelrouter.ProviderSpec{
			Driver:     modelrouter.NewOpenAIDriver(p.OpenAI.APIKey, maxTokens),
			Model:      p.OpenAI.Model,
			Priority:   p.OpenAI.Priority,
			DailyLimit: p.OpenAI.DailyLimit,
		})
	}
	if p.Gemini.APIKey != "" {
		drv, err := modelrouter.NewGeminiDriver(ctx, p.Gemini.APIKey, maxTokens)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		specs = append(specs, modelrouter.ProviderSpec{
			Driver:     drv,
			Model:      p.Gemini.Model,
			Priority:   p.Gemini.Priority,
			DailyLimit: p.Gemini.DailyLimit,
		})
	}
	return specs, nil
}
