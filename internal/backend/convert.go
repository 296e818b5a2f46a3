package backend

import (
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/httpapi"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

// parseTime - пустая или битая метка дает нулевое время
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func fromQueryResponse(r httpapi.QueryResponse) *domain.QueryResponse {
	m := r.Metadata
	sources := make([]domain.SourceRef, len(m.Sources))
	for i, s := range m.Sources {
		level, err := domain.ParseTrustLevel(s.TrustLevel)
		if err != nil {
			level = domain.TrustLow
		}
		sources[i] = domain.SourceRef{
			Marker:     s.Marker,
			Title:      s.Title,
			URL:        s.URL,
			TrustLevel: level,
		}
	}
	return &domain.QueryResponse{
		Response: r.Response,
		Metadata: domain.QueryMetadata{
			AnalysisType:    domain.AnalysisType(m.AnalysisType),
			SymbolsAnalyzed: m.SymbolsAnalyzed,
			Timeframe:       domain.Timeframe(m.Timeframe),
			Timestamp:       parseTime(m.Timestamp),
			QueryID:         m.QueryID,
			AgentsUsed:      m.AgentsUsed,
			Offline:         m.Offline,
			Sources:         sources,
			Warnings:        m.Warnings,
			ProcessingTime:  time.Duration(m.ProcessingTimeMs) * time.Millisecond,
		},
	}
}

func fromPortfolioResponse(r httpapi.PortfolioResponse) *domain.PortfolioResult {
	m := r.Metadata
	holdings := make([]domain.Holding, len(m.Holdings))
	for i, h := range m.Holdings {
		holdings[i] = domain.Holding(h)
	}
	return &domain.PortfolioResult{
		Symbols:       m.Symbols,
		Weights:       m.Weights,
		RiskTolerance: domain.RiskTolerance(m.RiskTolerance),
		Analysis:      r.Response,
		Holdings:      holdings,
		Offline:       m.Offline,
		CreatedAt:     parseTime(m.Timestamp),
	}
}

func fromHistoryRecord(r httpapi.HistoryRecord) domain.QueryRecord {
	return domain.QueryRecord{
		ID:             r.ID,
		Timestamp:      parseTime(r.Timestamp),
		Question:       r.Question,
		AnalysisType:   domain.AnalysisType(r.AnalysisType),
		Symbols:        r.Symbols,
		Timeframe:      domain.Timeframe(r.Timeframe),
		ResponseLength: r.ResponseLength,
	}
}

func fromAlertResponse(a httpapi.AlertResponse) domain.Alert {
	out := domain.Alert{
		ID:        a.ID,
		Symbol:    a.Symbol,
		Condition: domain.AlertCondition(a.Condition),
		Threshold: a.Threshold,
		Created:   parseTime(a.Created),
		Active:    a.Active,
		LastPrice: a.LastPrice,
	}
	if a.TriggeredAt != "" {
		t := parseTime(a.TriggeredAt)
		out.TriggeredAt = &t
	}
	return out
}

func fromHealthResponse(h httpapi.HealthResponse) service.Status {
	return service.Status{
		Status:           h.Status,
		Version:          h.Version,
		Timestamp:        parseTime(h.Timestamp),
		AgentsReady:      h.AgentsReady,
		AgentsConfigured: h.AgentsConfigured,
		APIKeyConfigured: h.APIKeyConfigured,
		LLMProvider:      h.LLMProvider,
		Offline:          h.Offline,
		Uptime:           time.Duration(h.UptimeSeconds) * time.Second,
	}
}
