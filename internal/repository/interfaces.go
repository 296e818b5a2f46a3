package repository

import (
	"context"
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

// HistoryRepository - журнал запросов, хранит последние N записей
type HistoryRepository interface {
	// Append присваивает ID (и время, если пустое) и обрезает журнал до лимита
	Append(ctx context.Context, rec *domain.QueryRecord) error
	// Recent - последние limit записей, самая новая в конце
	Recent(ctx context.Context, limit int) ([]domain.QueryRecord, error)
	Count(ctx context.Context) (int, error)
}

type AlertRepository interface {
	Create(ctx context.Context, alert *domain.Alert) error
	List(ctx context.Context, activeOnly bool) ([]domain.Alert, error)
	Get(ctx context.Context, id string) (*domain.Alert, error)
	Delete(ctx context.Context, id string) error
	MarkTriggered(ctx context.Context, id string, at time.Time, price float64) error
	UpdateLastPrice(ctx context.Context, id string, price float64) error
}

// PortfolioRepository - кеш готовых разборов портфеля по PortfolioRequest.CacheKey
type PortfolioRepository interface {
	Save(ctx context.Context, result *domain.PortfolioResult) error
	Get(ctx context.Context, key string) (*domain.PortfolioResult, error)
}
