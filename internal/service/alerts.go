package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/market"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/repository"
)

const baselineTimeout = 5 * time.Second

type AlertService struct {
	repo    repository.AlertRepository
	market  market.Provider
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// NewAlertService - provider опционален, с ним у нового алерта сразу есть базовая цена для crosses
func NewAlertService(repo repository.AlertRepository, provider market.Provider, logger *zap.Logger, m *metrics.Metrics) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertService{
		repo:    repo,
		market:  provider,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (s *AlertService) Create(ctx context.Context, symbol string, condition domain.AlertCondition, threshold float64) (*domain.Alert, error) {
	alert := &domain.Alert{
		Symbol:    symbol,
		Condition: condition,
		Threshold: threshold,
	}
	alert.Normalize()
	if err := alert.Validate(); err != nil {
		return nil, err
	}

	alert.ID = s.newID()
	alert.Created = s.now()
	alert.Active = true
	alert.LastPrice = s.baseline(ctx, alert.Symbol)

	// дубликат активного алерта отсекает репозиторий
	if err := s.repo.Create(ctx, alert); err != nil {
		return nil, err
	}

	s.logger.Info("alert created",
		zap.String("id", alert.ID),
		zap.String("symbol", alert.Symbol),
		zap.String("condition", string(alert.Condition)),
		zap.Float64("threshold", alert.Threshold),
	)
	s.refreshGauge(ctx)
	return alert, nil
}

func (s *AlertService) List(ctx context.Context, activeOnly bool) ([]domain.Alert, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *AlertService) Get(ctx context.Context, id string) (*domain.Alert, error) {
	return s.repo.Get(ctx, id)
}

func (s *AlertService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("alert deleted", zap.String("id", id))
	s.refreshGauge(ctx)
	return nil
}

// baseline - текущая цена, 0 если котировку получить не удалось
func (s *AlertService) baseline(ctx context.Context, symbol string) float64 {
	if s.market == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, baselineTimeout)
	defer cancel()

	snap, err := s.market.Snapshot(ctx, symbol, domain.Timeframe1D)
	if err != nil {
		s.logger.Debug("no baseline price for alert", zap.String("symbol", symbol), zap.Error(err))
		return 0
	}
	return snap.CurrentPrice()
}

func (s *AlertService) refreshGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	active, err := s.repo.List(ctx, true)
	if err != nil {
		return
	}
	s.metrics.SetActiveAlerts(float64(len(active)))
}

// Evaluator периодически сверяет активные алерты с котировками
type Evaluator struct {
	repo     repository.AlertRepository
	market   market.Provider
	interval time.Duration
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	onTrig   func(domain.Alert)
}

func NewEvaluator(repo repository.AlertRepository, provider market.Provider, interval time.Duration, logger *zap.Logger, m *metrics.Metrics) *Evaluator {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		repo:     repo,
		market:   provider,
		interval: interval,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// OnTrigger - колбэк на каждый сработавший алерт, вызывается из горутины Run
func (e *Evaluator) OnTrigger(fn func(domain.Alert)) *Evaluator {
	e.onTrig = fn
	return e
}

// Run блокируется до отмены ctx
func (e *Evaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("alert evaluator started", zap.Duration("interval", e.interval))
	for {
		select {
		case <-ctx.Done():
			e.logger.Info("alert evaluator stopped")
			return
		case <-ticker.C:
			if _, err := e.Evaluate(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Warn("alert evaluation failed", zap.Error(err))
			}
		}
	}
}

// Evaluate - один проход по активным алертам, возвращает сработавшие
func (e *Evaluator) Evaluate(ctx context.Context) ([]domain.Alert, error) {
	active, err := e.repo.List(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		e.setGauge(0)
		return nil, nil
	}

	var symbols []string
	seen := make(map[string]bool)
	for _, a := range active {
		if !seen[a.Symbol] {
			seen[a.Symbol] = true
			symbols = append(symbols, a.Symbol)
		}
	}

	res, err := market.FetchAll(ctx, e.market, symbols, domain.Timeframe1D)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]float64, len(symbols))
	for i, sym := range res.Symbols {
		if snap := res.Snapshots[i]; snap != nil {
			prices[sym] = snap.CurrentPrice()
		} else {
			e.logger.Debug("no quote for alert symbol", zap.String("symbol", sym), zap.Error(res.Errors[sym]))
		}
	}

	var triggered []domain.Alert
	for _, a := range active {
		price, ok := prices[a.Symbol]
		if !ok || price <= 0 {
			continue
		}

		if !a.Evaluate(a.LastPrice, price) {
			if err := e.repo.UpdateLastPrice(ctx, a.ID, price); err != nil && !errors.Is(err, domain.ErrAlertNotFound) {
				e.logger.Warn("failed to update alert price", zap.String("id", a.ID), zap.Error(err))
			}
			continue
		}

		at := e.now()
		if err := e.repo.MarkTriggered(ctx, a.ID, at, price); err != nil {
			// алерт могли удалить между List и MarkTriggered
			if !errors.Is(err, domain.ErrAlertNotFound) {
				e.logger.Warn("failed to mark alert triggered", zap.String("id", a.ID), zap.Error(err))
			}
			continue
		}

		a.Active = false
		a.TriggeredAt = &at
		a.LastPrice = price
		triggered = append(triggered, a)

		e.logger.Info("alert triggered",
			zap.String("id", a.ID),
			zap.String("symbol", a.Symbol),
			zap.String("condition", string(a.Condition)),
			zap.Float64("threshold", a.Threshold),
			zap.Float64("price", price),
		)
		if e.metrics != nil {
			e.metrics.RecordAlertTriggered(string(a.Condition))
		}
		if e.onTrig != nil {
			e.onTrig(a)
		}
	}

	e.setGauge(float64(len(active) - len(triggered)))
	return triggered, nil
}

func (e *Evaluator) setGauge(v float64) {
	if e.metrics != nil {
		e.metrics.SetActiveAlerts(v)
	}
}
