package httpapi

import (
	"time"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

// Поля JSON совпадают с исходным API, чтобы старые клиенты продолжали работать

type QueryRequest struct {
	Question     string   `json:"question"`
	AnalysisType string   `json:"analysis_type,omitempty"`
	Symbols      []string `json:"symbols,omitempty"`
	Timeframe    string   `json:"timeframe,omitempty"`
}

func (r QueryRequest) toDomain() domain.QueryRequest {
	return domain.QueryRequest{
		Question:     r.Question,
		AnalysisType: domain.AnalysisType(r.AnalysisType),
		Symbols:      r.Symbols,
		Timeframe:    domain.Timeframe(r.Timeframe),
	}
}

type SourceResponse struct {
	Marker     string `json:"marker"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	TrustLevel string `json:"trust_level"`
}

type QueryMetadata struct {
	AnalysisType     string           `json:"analysis_type"`
	SymbolsAnalyzed  []string         `json:"symbols_analyzed"`
	Timeframe        string           `json:"timeframe"`
	Timestamp        string           `json:"timestamp"`
	QueryID          int64            `json:"query_id"`
	AgentsUsed       []string         `json:"agents_used,omitempty"`
	Offline          bool             `json:"offline"`
	Sources          []SourceResponse `json:"sources,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
}

type QueryResponse struct {
	Response string        `json:"response"`
	Metadata QueryMetadata `json:"metadata"`
}

func toQueryResponse(r *domain.QueryResponse) QueryResponse {
	m := r.Metadata
	sources := make([]SourceResponse, len(m.Sources))
	for i, s := range m.Sources {
		sources[i] = SourceResponse{
			Marker:     s.Marker,
			Title:      s.Title,
			URL:        s.URL,
			TrustLevel: string(s.TrustLevel),
		}
	}
	symbols := m.SymbolsAnalyzed
	if symbols == nil {
		symbols = []string{}
	}
	return QueryResponse{
		Response: r.Response,
		Metadata: QueryMetadata{
			AnalysisType:     string(m.AnalysisType),
			SymbolsAnalyzed:  symbols,
			Timeframe:        string(m.Timeframe),
			Timestamp:        m.Timestamp.Format(time.RFC3339),
			QueryID:          m.QueryID,
			AgentsUsed:       m.AgentsUsed,
			Offline:          m.Offline,
			Sources:          sources,
			Warnings:         m.Warnings,
			ProcessingTimeMs: m.ProcessingTime.Milliseconds(),
		},
	}
}

type PortfolioRequest struct {
	Symbols       []string  `json:"symbols"`
	Weights       []float64 `json:"weights,omitempty"`
	RiskTolerance string    `json:"risk_tolerance,omitempty"`
}

func (r PortfolioRequest) toDomain() domain.PortfolioRequest {
	return domain.PortfolioRequest{
		Symbols:       r.Symbols,
		Weights:       r.Weights,
		RiskTolerance: domain.RiskTolerance(r.RiskTolerance),
	}
}

type HoldingResponse struct {
	Symbol         string  `json:"symbol"`
	Weight         float64 `json:"weight"`
	MarketCapShare float64 `json:"market_cap_share"`
	Sector         string  `json:"sector,omitempty"`
	Price          float64 `json:"price"`
}

type PortfolioMetadata struct {
	Symbols       []string          `json:"symbols"`
	Weights       []float64         `json:"weights"`
	RiskTolerance string            `json:"risk_tolerance"`
	Holdings      []HoldingResponse `json:"holdings"`
	Offline       bool              `json:"offline"`
	Timestamp     string            `json:"timestamp"`
}

type PortfolioResponse struct {
	Response string            `json:"response"`
	Metadata PortfolioMetadata `json:"metadata"`
}

func toPortfolioResponse(r *domain.PortfolioResult) PortfolioResponse {
	holdings := make([]HoldingResponse, len(r.Holdings))
	for i, h := range r.Holdings {
		holdings[i] = HoldingResponse(h)
	}
	return PortfolioResponse{
		Response: r.Analysis,
		Metadata: PortfolioMetadata{
			Symbols:       r.Symbols,
			Weights:       r.Weights,
			RiskTolerance: string(r.RiskTolerance),
			Holdings:      holdings,
			Offline:       r.Offline,
			Timestamp:     r.CreatedAt.Format(time.RFC3339),
		},
	}
}

type HistoryRecord struct {
	ID             int64    `json:"id"`
	Timestamp      string   `json:"timestamp"`
	Question       string   `json:"question"`
	AnalysisType   string   `json:"analysis_type"`
	Symbols        []string `json:"symbols"`
	Timeframe      string   `json:"timeframe,omitempty"`
	ResponseLength int      `json:"response_length"`
}

type HistoryResponse struct {
	History []HistoryRecord `json:"history"`
}

func toHistoryResponse(recs []domain.QueryRecord) HistoryResponse {
	out := HistoryResponse{History: make([]HistoryRecord, len(recs))}
	for i, r := range recs {
		symbols := r.Symbols
		if symbols == nil {
			symbols = []string{}
		}
		out.History[i] = HistoryRecord{
			ID:             r.ID,
			Timestamp:      r.Timestamp.Format(time.RFC3339),
			Question:       r.Question,
			AnalysisType:   string(r.AnalysisType),
			Symbols:        symbols,
			Timeframe:      string(r.Timeframe),
			ResponseLength: r.ResponseLength,
		}
	}
	return out
}

type CreateAlertRequest struct {
	Symbol    string  `json:"symbol"`
	Condition string  `json:"condition"`
	Threshold float64 `json:"threshold"`
}

type AlertResponse struct {
	ID          string  `json:"id"`
	Symbol      string  `json:"symbol"`
	Condition   string  `json:"condition"`
	Threshold   float64 `json:"threshold"`
	Created     string  `json:"created"`
	Active      bool    `json:"active"`
	TriggeredAt string  `json:"triggered_at,omitempty"`
	LastPrice   float64 `json:"last_price,omitempty"`
}

func toAlertResponse(a domain.Alert) AlertResponse {
	out := AlertResponse{
		ID:        a.ID,
		Symbol:    a.Symbol,
		Condition: string(a.Condition),
		Threshold: a.Threshold,
		Created:   a.Created.Format(time.RFC3339),
		Active:    a.Active,
		LastPrice: a.LastPrice,
	}
	if a.TriggeredAt != nil {
		out.TriggeredAt = a.TriggeredAt.Format(time.RFC3339)
	}
	return out
}

type AlertsResponse struct {
	Alerts []AlertResponse `json:"alerts"`
}

type CreateAlertResponse struct {
	Message string        `json:"message"`
	Alert   AlertResponse `json:"alert"`
}

type HealthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	AgentsReady      bool   `json:"agents_ready"`
	AgentsConfigured int    `json:"agents_configured"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	LLMProvider      string `json:"llm_provider"`
	Offline          bool   `json:"offline"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	Version          string `json:"version"`
}

func toHealthResponse(s service.Status) HealthResponse {
	return HealthResponse{
		Status:           s.Status,
		Timestamp:        s.Timestamp.Format(time.RFC3339),
		AgentsReady:      s.AgentsReady,
		AgentsConfigured: s.AgentsConfigured,
		APIKeyConfigured: s.APIKeyConfigured,
		LLMProvider:      s.LLMProvider,
		Offline:          s.Offline,
		UptimeSeconds:    int64(s.Uptime.Seconds()),
		Version:          s.Version,
	}
}

type TestResponse struct {
	APIKeyLoaded     bool   `json:"api_key_loaded"`
	APIKeyLength     int    `json:"api_key_length"`
	AgentsConfigured int    `json:"agents_configured"`
	SystemStatus     string `json:"system_status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
