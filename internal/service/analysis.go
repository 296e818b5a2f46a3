package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/finanalyst/internal/analysis"
	"github.com/kitbuilder587/finanalyst/internal/cache"
	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/llm"
	"github.com/kitbuilder587/finanalyst/internal/market"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/repository"
	"github.com/kitbuilder587/finanalyst/internal/search"
)

type Critic interface {
	Review(ctx context.Context, in ReviewInput) (*domain.CriticResult, error)
}

type CoordinatorResponse struct {
	FinalAnswer  string
	AgentsUsed   []string
	AgentsFailed []string
	Synthesized  bool
}

type AgentCoordinator interface {
	Process(ctx context.Context, req AgentCoordinatorRequest) (*CoordinatorResponse, error)
}

type AgentCoordinatorRequest struct {
	Question      string
	Symbols       []string
	Timeframe     domain.Timeframe
	MarketDigest  string
	SearchResults []search.SearchResult
	Context       string
	Profile       domain.Profile
}

type AnalysisConfig struct {
	CacheTTL      time.Duration
	SearchTimeout time.Duration
	// RequestTimeout ограничивает таймаут профиля сверху, 0 - без ограничения
	RequestTimeout time.Duration
	HistoryLimit   int
}

// AnalysisServiceDeps - зависимости пайплайна анализа.
// Coordinator == nil и Offline == false значит ключ LLM не настроен.
type AnalysisServiceDeps struct {
	Market  market.Provider
	Search  search.SearchClient
	Cache   cache.Cache
	History repository.HistoryRepository
	Trust   *search.TrustList
	Writer  *analysis.Writer
	LLM     llm.Client
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Config  AnalysisConfig

	// опциональные компоненты
	Coordinator  AgentCoordinator
	Critic       Critic
	CriticConfig domain.CriticConfig
	Offline      bool
}

type AnalysisService struct {
	market       market.Provider
	search       search.SearchClient
	cache        cache.Cache
	history      repository.HistoryRepository
	trust        *search.TrustList
	writer       *analysis.Writer
	llm          llm.Client
	logger       *zap.Logger
	metrics      *metrics.Metrics
	config       AnalysisConfig
	coordinator  AgentCoordinator
	critic       Critic
	criticConfig domain.CriticConfig
	offline      bool
	now          func() time.Time
}

func NewAnalysisService(deps AnalysisServiceDeps) *AnalysisService {
	if deps.Config.CacheTTL == 0 {
		deps.Config.CacheTTL = time.Hour
	}
	if deps.Config.SearchTimeout == 0 {
		deps.Config.SearchTimeout = 30 * time.Second
	}
	if deps.Config.HistoryLimit <= 0 {
		deps.Config.HistoryLimit = domain.DefaultHistoryLimit
	}
	if deps.Trust == nil {
		deps.Trust = search.DefaultTrustList()
	}
	if deps.Writer == nil {
		deps.Writer = analysis.NewWriter()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &AnalysisService{
		market:       deps.Market,
		search:       deps.Search,
		cache:        deps.Cache,
		history:      deps.History,
		trust:        deps.Trust,
		writer:       deps.Writer,
		llm:          deps.LLM,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
		config:       deps.Config,
		coordinator:  deps.Coordinator,
		critic:       deps.Critic,
		criticConfig: deps.CriticConfig,
		offline:      deps.Offline,
		now:          time.Now,
	}
}

// Ready - можно ли отвечать на запросы анализа
func (s *AnalysisService) Ready() bool {
	return s.offline || s.coordinator != nil
}

func (s *AnalysisService) Offline() bool { return s.offline }

func (s *AnalysisService) Analyze(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	startTime := time.Now()

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		s.record(req.AnalysisType, "validation_error", startTime)
		return nil, err
	}
	if !s.Ready() {
		s.record(req.AnalysisType, "not_configured", startTime)
		return nil, domain.ErrLLMNotConfigured
	}

	profile := domain.ProfileFor(req.AnalysisType)
	timeout := profile.Timeout
	if s.config.RequestTimeout > 0 && (timeout == 0 || s.config.RequestTimeout < timeout) {
		timeout = s.config.RequestTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.logger.Info("processing analysis",
		zap.String("analysis_type", string(req.AnalysisType)),
		zap.Strings("symbols", req.Symbols),
		zap.String("timeframe", string(req.Timeframe)),
		zap.Int("question_length", len(req.Question)),
		zap.Int("max_agents", profile.MaxAgents),
		zap.Bool("use_critic", profile.UseCritic),
	)

	data, err := s.gather(ctx, req, profile)
	if err != nil {
		s.record(req.AnalysisType, "timeout", startTime)
		return nil, s.timeoutErr(err)
	}

	digest := analysis.Digest(data.snapshots)
	meta := domain.QueryMetadata{
		AnalysisType:    req.AnalysisType,
		SymbolsAnalyzed: req.Symbols,
		Timeframe:       req.Timeframe,
		Warnings:        data.warnings,
	}

	var answer string
	if s.offline {
		answer = s.render(req, data)
		meta.Offline = true
	} else {
		coordResp, coordErr := s.coordinator.Process(ctx, AgentCoordinatorRequest{
			Question:      req.Question,
			Symbols:       req.Symbols,
			Timeframe:     req.Timeframe,
			MarketDigest:  digest,
			SearchResults: data.results,
			Profile:       profile,
		})
		switch {
		case coordErr == nil && coordResp != nil && strings.TrimSpace(coordResp.FinalAnswer) != "":
			answer = coordResp.FinalAnswer
			meta.AgentsUsed = coordResp.AgentsUsed
			for _, name := range coordResp.AgentsFailed {
				meta.Warnings = append(meta.Warnings, "agent "+name+" did not respond")
			}
		case coordErr != nil && errors.Is(ctx.Err(), context.DeadlineExceeded):
			s.record(req.AnalysisType, "timeout", startTime)
			return nil, s.timeoutErr(coordErr)
		case coordErr != nil && llm.Fatal(coordErr):
			s.record(req.AnalysisType, "auth_error", startTime)
			return nil, coordErr
		default:
			// агенты не ответили - отдаем отчет, собранный без модели
			s.logger.Warn("coordinator processing failed, falling back to offline report",
				zap.Error(coordErr),
			)
			answer = s.render(req, data)
			meta.Offline = true
			meta.Warnings = append(meta.Warnings, "AI agents unavailable, report generated from market data only")
		}

		if s.critic != nil && profile.UseCritic && !meta.Offline {
			answer = s.reviewWithCritic(ctx, ReviewInput{
				Question:     req.Question,
				Answer:       answer,
				Symbols:      req.Symbols,
				Sources:      data.results,
				MarketDigest: digest,
			})
		}
	}

	meta.Sources = s.toSourceRefs(data.results)
	meta.Timestamp = s.now()
	meta.ProcessingTime = time.Since(startTime)

	if s.history != nil {
		rec := &domain.QueryRecord{
			Timestamp:      meta.Timestamp,
			Question:       req.Question,
			AnalysisType:   req.AnalysisType,
			Symbols:        req.Symbols,
			Timeframe:      req.Timeframe,
			ResponseLength: len(answer),
		}
		// история не должна ронять ответ, поэтому без ctx запроса
		if err := s.history.Append(context.WithoutCancel(ctx), rec); err != nil {
			s.logger.Warn("failed to record history", zap.Error(err))
		} else {
			meta.QueryID = rec.ID
		}
	}

	s.logger.Info("analysis processed",
		zap.String("analysis_type", string(req.AnalysisType)),
		zap.Int("sources_used", len(data.results)),
		zap.Int("snapshots", len(data.snapshots)),
		zap.Bool("offline", meta.Offline),
		zap.Duration("duration", meta.ProcessingTime),
	)
	s.record(req.AnalysisType, "success", startTime)

	return &domain.QueryResponse{
		Response: answer,
		Metadata: meta,
	}, nil
}

// History - последние записи, limit ограничен [1, HistoryLimit], по умолчанию 10
func (s *AnalysisService) History(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	if s.history == nil {
		return []domain.QueryRecord{}, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > s.config.HistoryLimit {
		limit = s.config.HistoryLimit
	}
	return s.history.Recent(ctx, limit)
}

func (s *AnalysisService) HistoryCount(ctx context.Context) (int, error) {
	if s.history == nil {
		return 0, nil
	}
	return s.history.Count(ctx)
}

func (s *AnalysisService) render(req domain.QueryRequest, data *gathered) string {
	return s.writer.Render(analysis.ReportInput{
		Type:      req.AnalysisType,
		Question:  req.Question,
		Symbols:   req.Symbols,
		Timeframe: req.Timeframe,
		Snapshots: data.snapshots,
		News:      data.results,
	})
}

func (s *AnalysisService) timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrAnalysisTimeout, err)
	}
	return err
}

func (s *AnalysisService) record(t domain.AnalysisType, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest(string(t), status, time.Since(start))
	}
}

type gathered struct {
	snapshots []*domain.Snapshot
	results   []search.SearchResult
	warnings  []string
}

// gather - котировки и новости параллельно; сбой провайдера не фатален,
// ошибка возвращается только если истек ctx
func (s *AnalysisService) gather(ctx context.Context, req domain.QueryRequest, profile domain.Profile) (*gathered, error) {
	out := &gathered{}
	g, gctx := errgroup.WithContext(ctx)

	if s.market != nil && len(req.Symbols) > 0 {
		g.Go(func() error {
			res, err := market.FetchAll(gctx, s.market, req.Symbols, req.Timeframe)
			if err != nil {
				return err
			}
			out.snapshots = res.Available()
			for _, sym := range res.Symbols {
				if ferr, ok := res.Errors[sym]; ok {
					out.warnings = append(out.warnings, fmt.Sprintf("no market data for %s: %v", sym, ferr))
				}
			}
			return nil
		})
	}

	if s.search != nil {
		g.Go(func() error {
			results, err := s.searchWithCache(gctx, newsQuery{
				queries:    expandQueries(req, profile.MaxSearchQueries),
				symbols:    req.Symbols,
				timeRange:  search.TimeRangeFor(req.Timeframe),
				maxResults: profile.MaxResults,
			})
			if err != nil {
				return err
			}
			out.results = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
