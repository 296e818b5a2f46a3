package backend

import (
	"context"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/httpapi"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

// Local - тот же набор вызовов, что у Client, но без HTTP: бот без BACKEND_URL
type Local struct {
	analyzer  httpapi.Analyzer
	portfolio httpapi.PortfolioAnalyzer
	alerts    httpapi.AlertManager
	status    httpapi.StatusProvider
}

func NewLocal(analyzer httpapi.Analyzer, portfolio httpapi.PortfolioAnalyzer, alerts httpapi.AlertManager, status httpapi.StatusProvider) *Local {
	return &Local{
		analyzer:  analyzer,
		portfolio: portfolio,
		alerts:    alerts,
		status:    status,
	}
}

func (l *Local) Analyze(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	return l.analyzer.Analyze(ctx, req)
}

func (l *Local) AnalyzePortfolio(ctx context.Context, req domain.PortfolioRequest) (*domain.PortfolioResult, error) {
	return l.portfolio.Analyze(ctx, req)
}

func (l *Local) History(ctx context.Context, limit int) ([]domain.QueryRecord, error) {
	return l.analyzer.History(ctx, limit)
}

func (l *Local) Alerts(ctx context.Context) ([]domain.Alert, error) {
	return l.alerts.List(ctx, false)
}

func (l *Local) CreateAlert(ctx context.Context, symbol string, condition domain.AlertCondition, threshold float64) (*domain.Alert, error) {
	return l.alerts.Create(ctx, symbol, condition, threshold)
}

func (l *Local) DeleteAlert(ctx context.Context, id string) error {
	return l.alerts.Delete(ctx, id)
}

func (l *Local) Health(_ context.Context) (*service.Status, error) {
	st := l.status.Health()
	return &st, nil
}
