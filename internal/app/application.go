// Package app composes the reward store and the two gateways into a running
// application and manages their lifecycle.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/tradon-app/tradon/internal/app/services/agent"
	"github.com/tradon-app/tradon/internal/app/services/market"
	rewardsvc "github.com/tradon-app/tradon/internal/app/services/reward"
	"github.com/tradon-app/tradon/internal/app/storage"
	"github.com/tradon-app/tradon/internal/app/storage/file"
	"github.com/tradon-app/tradon/internal/app/storage/memory"
	"github.com/tradon-app/tradon/internal/app/storage/postgres"
	"github.com/tradon-app/tradon/internal/app/system"
	"github.com/tradon-app/tradon/internal/config"
	"github.com/tradon-app/tradon/pkg/logger"
)

// Stores encapsulates persistence dependencies. A nil store defaults to the
// in-memory implementation.
type Stores struct {
	Reward storage.RewardStore
}

// Options carries the optional wiring knobs. Zero values produce a fully
// functional application backed by memory storage and no upstreams, which is
// what the tests use.
type Options struct {
	RewardConfig  rewardsvc.Config
	MarketFetcher market.Fetcher
	AgentUpstream agent.Completer
	MarketTimeout time.Duration
	AgentTimeout  time.Duration
}

// Application ties the services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Reward *rewardsvc.Service
	Market *market.Service
	Agent  *agent.Service
}

// New builds a fully initialised application.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if stores.Reward == nil {
		stores.Reward = memory.New()
	}
	if opts.RewardConfig.TimerDurationSeconds == 0 {
		opts.RewardConfig = rewardsvc.DefaultConfig()
	}

	manager := system.NewManager()

	rewardService := rewardsvc.New(stores.Reward, opts.RewardConfig, log)
	marketService := market.New(opts.MarketFetcher, opts.MarketTimeout, log)
	agentService := agent.New(opts.AgentUpstream, opts.AgentTimeout, log)

	runner := rewardsvc.NewRunner(rewardService, log)
	if err := manager.Register(runner); err != nil {
		return nil, fmt.Errorf("register %s: %w", runner.Name(), err)
	}

	return &Application{
		manager: manager,
		log:     log,
		Reward:  rewardService,
		Market:  marketService,
		Agent:   agentService,
	}, nil
}

// FromConfig wires an application from the loaded configuration, building the
// snapshot store and upstream clients it names.
func FromConfig(cfg *config.Config, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	store, err := buildStore(cfg, log)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{}

	fetcher, err := market.NewHTTPFetcher(httpClient, cfg.Market.UpstreamURL, cfg.Market.Currency, cfg.Market.PageSize, log)
	if err != nil {
		return nil, fmt.Errorf("configure market fetcher: %w", err)
	}

	var completer agent.Completer
	if cfg.Agent.APIKey == "" {
		log.Warn("agent API key not set; commentary gateway will reject requests")
	} else {
		client, err := agent.NewClient(httpClient, agent.ClientConfig{
			BaseURL:   cfg.Agent.BaseURL,
			APIKey:    cfg.Agent.APIKey,
			Model:     cfg.Agent.Model,
			MaxTokens: cfg.Agent.MaxTokens,
			Referer:   cfg.Agent.Referer,
			Title:     cfg.Agent.Title,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("configure agent client: %w", err)
		}
		completer = client
	}

	return New(Stores{Reward: store}, Options{
		RewardConfig: rewardsvc.Config{
			InvitePrefix:         cfg.Reward.InvitePrefix,
			TimerDurationSeconds: cfg.Reward.TimerDurationSeconds,
			TimerRewardPoints:    cfg.Reward.TimerRewardPoints,
			ReferralThreshold:    cfg.Reward.ReferralThreshold,
			ReferralBonusPoints:  cfg.Reward.ReferralBonusPoints,
			PassPrices:           cfg.Reward.PassPrices,
		},
		MarketFetcher: fetcher,
		AgentUpstream: completer,
		MarketTimeout: cfg.Market.Timeout,
		AgentTimeout:  cfg.Agent.Timeout,
	}, log)
}

func buildStore(cfg *config.Config, log *logger.Logger) (storage.RewardStore, error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		return memory.New(), nil
	case "file":
		store, err := file.New(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("configure file store: %w", err)
		}
		return store, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.New(db, cfg.Storage.RecordID)
		if err := store.Migrate(context.Background()); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
