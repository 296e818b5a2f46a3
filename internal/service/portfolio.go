package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/agent"
	"github.com/kitbuilder587/finanalyst/internal/analysis"
	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/llm"
	"github.com/kitbuilder587/finanalyst/internal/market"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/repository"
)

type PortfolioServiceDeps struct {
	Market      market.Provider
	Store       repository.PortfolioRepository
	Coordinator AgentCoordinator
	Writer      *analysis.Writer
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Offline     bool
	// CacheTTL - сколько живет готовый разбор портфеля, 0 - час
	CacheTTL time.Duration
}

type PortfolioService struct {
	market      market.Provider
	store       repository.PortfolioRepository
	coordinator AgentCoordinator
	writer      *analysis.Writer
	logger      *zap.Logger
	metrics     *metrics.Metrics
	offline     bool
	cacheTTL    time.Duration
	now         func() time.Time
}

func NewPortfolioService(deps PortfolioServiceDeps) *PortfolioService {
	if deps.Writer == nil {
		deps.Writer = analysis.NewWriter()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.CacheTTL == 0 {
		deps.CacheTTL = time.Hour
	}
	return &PortfolioService{
		market:      deps.Market,
		store:       deps.Store,
		coordinator: deps.Coordinator,
		writer:      deps.Writer,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		offline:     deps.Offline,
		cacheTTL:    deps.CacheTTL,
		now:         time.Now,
	}
}

func (s *PortfolioService) Analyze(ctx context.Context, req domain.PortfolioRequest) (*domain.PortfolioResult, error) {
	startTime := time.Now()

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.record("validation_error", startTime)
		return nil, err
	}
	if !s.offline && s.coordinator == nil {
		s.record("not_configured", startTime)
		return nil, domain.ErrLLMNotConfigured
	}

	key := req.CacheKey()
	if cached := s.cached(ctx, key); cached != nil {
		s.logger.Debug("portfolio analysis served from cache", zap.String("key", key))
		s.record("cached", startTime)
		return cached, nil
	}

	profile := domain.ProfileFor(domain.AnalysisPortfolio)
	if profile.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, profile.Timeout)
		defer cancel()
	}

	res, err := market.FetchAll(ctx, s.market, req.Symbols, domain.DefaultTimeframe)
	if err != nil {
		s.record("timeout", startTime)
		return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisTimeout, err)
	}
	if len(res.Available()) == 0 {
		s.record("no_data", startTime)
		return nil, domain.ErrNoMarketData
	}

	weights := req.NormalizedWeights()
	stats := analysis.PortfolioStats(res.Snapshots, weights)

	result := &domain.PortfolioResult{
		Key:           key,
		Symbols:       req.Symbols,
		Weights:       weights,
		RiskTolerance: req.RiskTolerance,
		Holdings:      toHoldings(stats),
		CreatedAt:     s.now(),
	}

	if s.offline {
		result.Analysis = s.writer.RenderPortfolio(req.RiskTolerance, stats)
		result.Offline = true
	} else {
		coordResp, coordErr := s.coordinator.Process(ctx, AgentCoordinatorRequest{
			Question:     agent.PortfolioPrompt(req, statsText(stats)),
			Symbols:      req.Symbols,
			Timeframe:    domain.DefaultTimeframe,
			MarketDigest: analysis.Digest(res.Available()),
			Profile:      profile,
		})
		switch {
		case coordErr == nil && coordResp != nil && strings.TrimSpace(coordResp.FinalAnswer) != "":
			result.Analysis = coordResp.FinalAnswer + "\n\n---\n\n" + analysis.PortfolioDisclaimer
		case coordErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
			s.record("timeout", startTime)
			return nil, fmt.Errorf("%w: %v", domain.ErrAnalysisTimeout, coordErr)
		case coordErr != nil && llm.Fatal(coordErr):
			s.record("auth_error", startTime)
			return nil, coordErr
		default:
			s.logger.Warn("portfolio agents failed, falling back to offline report", zap.Error(coordErr))
			result.Analysis = s.writer.RenderPortfolio(req.RiskTolerance, stats)
			result.Offline = true
		}
	}

	if s.store != nil {
		if err := s.store.Save(context.WithoutCancel(ctx), result); err != nil {
			s.logger.Warn("failed to cache portfolio analysis", zap.Error(err))
		}
	}

	s.logger.Info("portfolio analyzed",
		zap.Strings("symbols", req.Symbols),
		zap.String("risk_tolerance", string(req.RiskTolerance)),
		zap.Bool("offline", result.Offline),
	)
	s.record("success", startTime)
	return result, nil
}

func (s *PortfolioService) cached(ctx context.Context, key string) *domain.PortfolioResult {
	if s.store == nil {
		return nil
	}
	res, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("portfolio cache read failed", zap.Error(err))
		}
		return nil
	}
	if s.now().Sub(res.CreatedAt) > s.cacheTTL {
		return nil
	}
	return res
}

func (s *PortfolioService) record(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest(string(domain.AnalysisPortfolio), status, time.Since(start))
	}
}

func toHoldings(p analysis.Portfolio) []domain.Holding {
	out := make([]domain.Holding, len(p.Holdings))
	for i, h := range p.Holdings {
		out[i] = domain.Holding{
			Symbol:         h.Symbol,
			Weight:         h.Weight,
			MarketCapShare: h.MarketCapShare,
			Sector:         h.Sector,
			Price:          h.Price,
		}
	}
	return out
}

// statsText - посчитанные метрики для промпта, чтобы модель не выдумывала цифры
func statsText(p analysis.Portfolio) string {
	var sb strings.Builder
	for _, h := range p.Holdings {
		fmt.Fprintf(&sb, "- %s: weight %.1f%%, price $%.2f", h.Symbol, h.Weight*100, h.Price)
		if h.Sector != "" {
			fmt.Fprintf(&sb, ", sector %s", h.Sector)
		}
		if h.Volatility > 0 {
			fmt.Fprintf(&sb, ", annual volatility %.1f%%", h.Volatility*100)
		}
		sb.WriteString("\n")
	}
	if p.HasRisk {
		fmt.Fprintf(&sb, "Portfolio expected annual return: %.2f%%\n", p.ExpectedReturn*100)
		fmt.Fprintf(&sb, "Portfolio annual volatility: %.2f%%\n", p.Volatility*100)
		fmt.Fprintf(&sb, "Sharpe ratio: %.2f\n", p.Sharpe)
	}
	return strings.TrimSpace(sb.String())
}
