package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/agent"
	"github.com/kitbuilder587/finanalyst/internal/analysis"
	"github.com/kitbuilder587/finanalyst/internal/cache"
	memcache "github.com/kitbuilder587/finanalyst/internal/cache/memory"
	rediscache "github.com/kitbuilder587/finanalyst/internal/cache/redis"
	"github.com/kitbuilder587/finanalyst/internal/config"
	"github.com/kitbuilder587/finanalyst/internal/llm"
	llmmock "github.com/kitbuilder587/finanalyst/internal/llm/mock"
	"github.com/kitbuilder587/finanalyst/internal/llm/offline"
	"github.com/kitbuilder587/finanalyst/internal/llm/openai"
	"github.com/kitbuilder587/finanalyst/internal/llm/openrouter"
	"github.com/kitbuilder587/finanalyst/internal/market"
	"github.com/kitbuilder587/finanalyst/internal/market/yahoo"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/repository"
	memrepo "github.com/kitbuilder587/finanalyst/internal/repository/memory"
	"github.com/kitbuilder587/finanalyst/internal/repository/postgres"
	"github.com/kitbuilder587/finanalyst/internal/search"
	"github.com/kitbuilder587/finanalyst/internal/search/duckduckgo"
	"github.com/kitbuilder587/finanalyst/internal/search/finnhub"
	"github.com/kitbuilder587/finanalyst/internal/search/tavily"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

// App - собранный пайплайн, общий для cmd/server и cmd/bot без BACKEND_URL
type App struct {
	Analysis  *service.AnalysisService
	Portfolio *service.PortfolioService
	Alerts    *service.AlertService
	Evaluator *service.Evaluator
	Status    *service.StatusService

	closers []func()
}

// Build собирает все компоненты по конфигу. Фоновые горутины живут пока жив ctx.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*App, error) {
	a := &App{}

	c, err := a.buildCache(ctx, cfg, logger, m)
	if err != nil {
		a.Close()
		return nil, err
	}

	repos, err := a.buildRepos(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	provider := market.NewInstrumented(yahoo.New(yahoo.Config{BaseURL: cfg.Market.YahooBaseURL}, logger), m)
	provider = market.NewCached(provider, c, cfg.Market.CacheTTL, logger)

	searcher := buildSearch(cfg, logger, m)

	llmClient, configured := buildLLM(cfg, logger)
	if llmClient != nil {
		llmClient = llm.NewInstrumented(llmClient, cfg.LLM.Provider, m)
	}

	var overrides *agent.Overrides
	if cfg.Agents.ConfigPath != "" {
		overrides, err = agent.LoadOverrides(cfg.Agents.ConfigPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("agent overrides loaded", zap.String("path", cfg.Agents.ConfigPath))
	}

	writer := analysis.NewWriter()
	offlineMode := cfg.LLM.Offline()
	agentsCount := len(agent.NewRoster(nil, zap.NewNop(), overrides))

	var (
		coordinator service.AgentCoordinator
		critic      service.Critic
	)
	criticConfig := cfg.Critic
	if configured && !offlineMode {
		agents := agent.NewRoster(llmClient, logger, overrides)
		coordinator = service.NewCoordinatorAdapter(agent.NewCoordinator(agents, llmClient, logger).WithMetrics(m), logger)
		critic = service.NewCriticService(llmClient, logger, criticConfig)
	}

	a.Analysis = service.NewAnalysisService(service.AnalysisServiceDeps{
		Market:  provider,
		Search:  searcher,
		Cache:   c,
		History: repos.history,
		Trust:   search.DefaultTrustList(),
		Writer:  writer,
		LLM:     llmClient,
		Logger:  logger,
		Metrics: m,
		Config: service.AnalysisConfig{
			CacheTTL:       cfg.Cache.TTL,
			SearchTimeout:  cfg.Timeouts.Search,
			RequestTimeout: cfg.Timeouts.Request,
			HistoryLimit:   cfg.History.Limit,
		},
		Coordinator:  coordinator,
		Critic:       critic,
		CriticConfig: criticConfig,
		Offline:      offlineMode,
	})

	a.Portfolio = service.NewPortfolioService(service.PortfolioServiceDeps{
		Market:      provider,
		Store:       repos.portfolio,
		Coordinator: coordinator,
		Writer:      writer,
		Logger:      logger,
		Metrics:     m,
		Offline:     offlineMode,
		CacheTTL:    cfg.Cache.TTL,
	})

	a.Alerts = service.NewAlertService(repos.alerts, provider, logger, m)
	a.Evaluator = service.NewEvaluator(repos.alerts, provider, cfg.Alerts.PollInterval, logger, m)

	apiKey := cfg.LLM.APIKey()
	if cfg.LLM.Provider == config.ProviderMock {
		apiKey = "mock"
	}
	a.Status = service.NewStatusService(service.StatusConfig{
		LLMProvider: cfg.LLM.Provider,
		APIKey:      apiKey,
		Agents:      agentsCount,
		Offline:     offlineMode,
	})

	logger.Info("pipeline ready",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("llm_configured", configured),
		zap.Strings("search_providers", searcher.Providers()),
		zap.Int("agents", agentsCount),
	)

	return a, nil
}

// Close освобождает пулы соединений в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) buildCache(ctx context.Context, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (cache.Cache, error) {
	switch cfg.Cache.Type {
	case config.CacheRedis:
		client, err := rediscache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		logger.Info("using redis cache")
		return cache.NewInstrumented(rediscache.New(client, rediscache.DefaultPrefix), config.CacheRedis, m), nil
	default:
		mc := memcache.NewWithOptions(ctx, memcache.Options{MaxEntries: cfg.Cache.MaxEntries})
		a.closers = append(a.closers, mc.Stop)
		return cache.NewInstrumented(mc, config.CacheMemory, m), nil
	}
}

type repos struct {
	history   repository.HistoryRepository
	alerts    repository.AlertRepository
	portfolio repository.PortfolioRepository
}

func (a *App) buildRepos(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repos, error) {
	if cfg.Database.URL == "" {
		return repos{
			history:   memrepo.NewHistoryRepo(cfg.History.Limit),
			alerts:    memrepo.NewAlertRepo(),
			portfolio: memrepo.NewPortfolioRepo(),
		}, nil
	}

	db, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		return repos{}, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return repos{}, fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("using postgres repositories")

	return repos{
		history:   postgres.NewHistoryRepo(db, cfg.History.Limit),
		alerts:    postgres.NewAlertRepo(db),
		portfolio: postgres.NewPortfolioRepo(db),
	}, nil
}

// buildLLM возвращает клиента и признак, что ключ есть. Без ключа анализ отвечает 503.
func buildLLM(cfg *config.Config, logger *zap.Logger) (llm.Client, bool) {
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		if cfg.LLM.OpenAI.APIKey == "" {
			return nil, false
		}
		return openai.New(openai.Config{
			APIKey:     cfg.LLM.OpenAI.APIKey,
			Model:      cfg.LLM.OpenAI.Model,
			BaseURL:    cfg.LLM.OpenAI.BaseURL,
			MaxRetries: 2,
		}, logger), true
	case config.ProviderOpenRouter:
		if cfg.LLM.OpenRouter.APIKey == "" {
			return nil, false
		}
		return openrouter.New(openrouter.Config{
			APIKey:      cfg.LLM.OpenRouter.APIKey,
			Model:       cfg.LLM.OpenRouter.Model,
			BaseURL:     cfg.LLM.OpenRouter.BaseURL,
			Temperature: -1,
		}, logger), true
	case config.ProviderMock:
		return llmmock.New(), true
	default:
		return offline.New(), true
	}
}

// buildSearch - основной веб-поиск плюс новости Finnhub, если есть ключ
func buildSearch(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *search.Multi {
	var providers []search.Named

	if cfg.Search.Provider == config.SearchTavily && cfg.Search.TavilyAPIKey != "" {
		providers = append(providers, search.Named{
			Name: tavily.Name,
			Client: tavily.New(tavily.Config{
				APIKey:  cfg.Search.TavilyAPIKey,
				BaseURL: cfg.Search.TavilyBaseURL,
				Timeout: cfg.Timeouts.Search,
			}, logger),
		})
	} else {
		providers = append(providers, search.Named{
			Name:   duckduckgo.Name,
			Client: duckduckgo.New(duckduckgo.Config{Timeout: cfg.Timeouts.Search}, logger),
		})
	}

	if cfg.Search.FinnhubAPIKey != "" {
		providers = append(providers, search.Named{
			Name: finnhub.Name,
			Client: finnhub.New(finnhub.Config{
				APIKey:  cfg.Search.FinnhubAPIKey,
				Timeout: cfg.Timeouts.Search,
			}, logger),
		})
	}

	return search.NewMulti(providers, search.DefaultTrustList(), m, logger)
}
