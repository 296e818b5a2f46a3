package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

type Analyzer interface {
	Analyze(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
	History(ctx context.Context, limit int) ([]domain.QueryRecord, error)
}

type PortfolioAnalyzer interface {
	Analyze(ctx context.Context, req domain.PortfolioRequest) (*domain.PortfolioResult, error)
}

type AlertManager interface {
	Create(ctx context.Context, symbol string, condition domain.AlertCondition, threshold float64) (*domain.Alert, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Alert, error)
	Delete(ctx context.Context, id string) error
}

type StatusProvider interface {
	Health() service.Status
}

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = domain.DefaultHistoryLimit
)

type Handler struct {
	analyzer  Analyzer
	portfolio PortfolioAnalyzer
	alerts    AlertManager
	status    StatusProvider
	logger    *zap.Logger
}

func NewHandler(analyzer Analyzer, portfolio PortfolioAnalyzer, alerts AlertManager, status StatusProvider, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		analyzer:  analyzer,
		portfolio: portfolio,
		alerts:    alerts,
		status:    status,
		logger:    logger,
	}
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Advanced Financial Analyst Multi-Agent System",
		"version": service.Version,
		"endpoints": gin.H{
			"/query":     "Main analysis endpoint",
			"/portfolio": "Portfolio analysis",
			"/technical": "Technical analysis only",
			"/risk":      "Risk assessment only",
			"/sentiment": "Market sentiment only",
			"/history":   "Query history",
			"/alerts":    "Market alerts",
			"/health":    "Service health",
			"/metrics":   "Prometheus metrics",
		},
	})
}

func (h *Handler) Test(c *gin.Context) {
	st := h.status.Health()
	systemStatus := "operational"
	if !st.AgentsReady {
		systemStatus = "degraded"
	}
	c.JSON(http.StatusOK, TestResponse{
		APIKeyLoaded:     st.APIKeyConfigured,
		APIKeyLength:     st.APIKeyLength,
		AgentsConfigured: st.AgentsConfigured,
		SystemStatus:     systemStatus,
	})
}

func (h *Handler) Simple(c *gin.Context) {
	c.JSON(http.StatusOK, MessageResponse{Message: "Advanced Financial Analyst System is operational!"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, toHealthResponse(h.status.Health()))
}

func (h *Handler) Query(c *gin.Context) {
	h.analyze(c, "")
}

// AnalyzeAs - /query с принудительным типом анализа
func (h *Handler) AnalyzeAs(t domain.AnalysisType) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.analyze(c, t)
	}
}

func (h *Handler) analyze(c *gin.Context, forced domain.AnalysisType) {
	var body QueryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, ErrInvalidBody)
		return
	}

	req := body.toDomain()
	if forced != "" {
		req.AnalysisType = forced
	}

	resp, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toQueryResponse(resp))
}

func (h *Handler) Portfolio(c *gin.Context) {
	var body PortfolioRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, ErrInvalidBody)
		return
	}

	res, err := h.portfolio.Analyze(c.Request.Context(), body.toDomain())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPortfolioResponse(res))
}

func (h *Handler) History(c *gin.Context) {
	limit, ok := getQueryInt("limit", defaultHistoryLimit, c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer"})
		return
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	recs, err := h.analyzer.History(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toHistoryResponse(recs))
}

func (h *Handler) ListAlerts(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	alerts, err := h.alerts.List(c.Request.Context(), activeOnly)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res := AlertsResponse{Alerts: make([]AlertResponse, len(alerts))}
	for i, a := range alerts {
		res.Alerts[i] = toAlertResponse(a)
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CreateAlert(c *gin.Context) {
	var body CreateAlertRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.writeError(c, ErrInvalidBody)
		return
	}

	alert, err := h.alerts.Create(c.Request.Context(), body.Symbol, domain.AlertCondition(body.Condition), body.Threshold)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateAlertResponse{
		Message: "Alert created successfully",
		Alert:   toAlertResponse(*alert),
	})
}

func (h *Handler) DeleteAlert(c *gin.Context) {
	if err := h.alerts.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Alert deleted"})
}

func getQueryInt(name string, def int, c *gin.Context) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
