package postgres

import "github.com/kitbuilder587/finanalyst/internal/repository"

var (
	_ repository.HistoryRepository   = (*HistoryRepo)(nil)
	_ repository.AlertRepository     = (*AlertRepo)(nil)
	_ repository.PortfolioRepository = (*PortfolioRepo)(nil)
)
