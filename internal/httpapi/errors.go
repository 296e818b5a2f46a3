package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/llm"
	"github.com/kitbuilder587/finanalyst/internal/market"
	"github.com/kitbuilder587/finanalyst/internal/search"
)

var ErrInvalidBody = errors.New("invalid request body")

var validationErrors = []error{
	ErrInvalidBody,
	domain.ErrEmptyQuestion,
	domain.ErrQuestionTooLong,
	domain.ErrInvalidAnalysisType,
	domain.ErrInvalidTimeframe,
	domain.ErrInvalidSymbol,
	domain.ErrTooManySymbols,
	domain.ErrNoSymbols,
	domain.ErrWeightsMismatch,
	domain.ErrNegativeWeight,
	domain.ErrZeroWeights,
	domain.ErrInvalidRiskTolerance,
	domain.ErrInvalidCondition,
	domain.ErrInvalidThreshold,
}

var upstreamErrors = []error{
	domain.ErrNoMarketData,
	domain.ErrLLMFailed,
	llm.ErrRequestFailed,
	llm.ErrEmptyResponse,
	llm.ErrRateLimit,
	market.ErrRequestFailed,
	market.ErrRateLimit,
	search.ErrSearchFailed,
	search.ErrRateLimit,
}

// StatusFor - HTTP код для ошибки сервиса
func StatusFor(err error) int {
	for _, e := range validationErrors {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, domain.ErrAlertNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlertExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLLMNotConfigured), llm.Fatal(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAnalysisTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	for _, e := range upstreamErrors {
		if errors.Is(err, e) {
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		msg = "internal server error"
	} else {
		h.logger.Warn("request rejected",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, ErrorResponse{Error: msg})
}
