package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/ratelimit"
)

type RouterConfig struct {
	Handler  *Handler
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil - глобальный реестр
	Limiter  *ratelimit.Limiter  // nil - без лимита
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	if cfg.Metrics != nil {
		r.Use(recordMetrics(cfg.Metrics))
	}
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
	}))

	h := cfg.Handler
	r.GET("/", h.Root)
	r.GET("/test", h.Test)
	r.GET("/simple", h.Simple)
	r.GET("/health", h.Health)

	analysis := r.Group("/")
	if cfg.Limiter != nil {
		analysis.Use(rateLimit(cfg.Limiter, cfg.Metrics, logger))
	}
	analysis.POST("/query", h.Query)
	analysis.POST("/technical", h.AnalyzeAs(domain.AnalysisTechnical))
	analysis.POST("/risk", h.AnalyzeAs(domain.AnalysisRisk))
	analysis.POST("/sentiment", h.AnalyzeAs(domain.AnalysisSentiment))
	analysis.POST("/portfolio", h.Portfolio)

	r.GET("/history", h.History)
	r.GET("/alerts", h.ListAlerts)
	r.POST("/alerts", h.CreateAlert)
	r.DELETE("/alerts/:id", h.DeleteAlert)

	var metricsHandler http.Handler
	if cfg.Gatherer != nil {
		metricsHandler = metrics.HandlerFor(cfg.Gatherer)
	} else {
		metricsHandler = metrics.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	return r
}
