package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/backend"
	"github.com/kitbuilder587/finanalyst/internal/domain"
)

const historyLimit = 10

type Handler struct {
	bot *Bot
}

func NewHandler(bot *Bot) *Handler {
	return &Handler{bot: bot}
}

// DefaultAnalysisType - для обычного текста без команды
var DefaultAnalysisType = domain.AnalysisQuick

func (h *Handler) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg == nil || msg.Chat == nil {
		return
	}

	userID := int64(0)
	if msg.From != nil {
		userID = msg.From.ID
	}
	h.bot.logger.Info("received message",
		zap.Int64("user_id", userID),
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Bool("is_command", msg.IsCommand()),
	)

	if !msg.IsCommand() {
		symbols, question := ParseAnalysisArgs(msg.Text)
		h.handleAnalysis(ctx, msg, DefaultAnalysisType, symbols, question)
		return
	}

	if t, ok := analysisTypeFor(msg.Command()); ok {
		symbols, question := ParseAnalysisArgs(msg.CommandArguments())
		h.handleAnalysis(ctx, msg, t, symbols, question)
		return
	}

	h.handleCommand(ctx, msg)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch strings.ToLower(msg.Command()) {
	case "start":
		h.handleStart(msg)
	case "help":
		h.handleHelp(msg)
	case "portfolio":
		h.handlePortfolio(ctx, msg)
	case "history":
		h.handleHistory(ctx, msg)
	case "alerts":
		h.handleAlerts(ctx, msg)
	case "alert":
		h.handleAlert(ctx, msg)
	case "unalert":
		h.handleUnalert(ctx, msg)
	case "status":
		h.handleStatus(ctx, msg)
	default:
		h.bot.Send(msg.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	h.bot.Send(msg.Chat.ID, `<b>Financial Analyst</b>

I analyze stocks with a team of specialist agents: technical, fundamental, risk, sentiment and portfolio.

Send a question, or use /help to see commands.`)
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	helpText := `<b>Available commands:</b>

/quick AAPL | question - Quick look (one agent)
/analyze AAPL MSFT | question - Comprehensive analysis (all agents)
/technical AAPL | question - Technical analysis
/risk AAPL | question - Risk assessment
/sentiment AAPL | question - Market sentiment
/portfolio AAPL:40 MSFT:60 [conservative|moderate|aggressive] - Portfolio analysis
/history - Recent analyses
/alerts - Your price alerts
/alert AAPL above 150 - Create alert (above, below, crosses)
/unalert ID - Delete alert
/status - Service status

<b>Symbols:</b>
List tickers before the | separator. Without it the whole text is the question.

<b>Examples:</b>
• /technical TSLA | Is the trend still up?
• /analyze NVDA AMD | Compare valuation and momentum
• Plain text: "What is driving the market today?"

<i>For educational purposes only, not investment advice.</i>`

	h.bot.Send(msg.Chat.ID, helpText)
}

// allow - лимит на чат, true если запрос можно выполнять
func (h *Handler) allow(msg *tgbotapi.Message) bool {
	key := strconv.FormatInt(msg.Chat.ID, 10)
	if h.bot.rateLimiter.Allow(key) {
		return true
	}

	wait := h.bot.rateLimiter.RetryAfter(key)
	h.bot.logger.Warn("rate limit exceeded",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Duration("retry_after", wait),
	)
	h.bot.RecordRateLimitHit()
	h.bot.Send(msg.Chat.ID, fmt.Sprintf("Too many requests. Please wait %d seconds.", int(wait.Seconds()+0.5)))
	return false
}

func (h *Handler) handleAnalysis(ctx context.Context, msg *tgbotapi.Message, t domain.AnalysisType, symbols []string, question string) {
	if question == "" {
		h.bot.Send(msg.Chat.ID, "Please add a question, for example: /"+commandFor(t)+" AAPL | What is the outlook?")
		return
	}
	if !h.allow(msg) {
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	req := domain.QueryRequest{
		Question:     question,
		AnalysisType: t,
		Symbols:      symbols,
	}

	h.bot.logger.Info("processing analysis",
		zap.Int64("chat_id", msg.Chat.ID),
		zap.String("analysis_type", string(t)),
		zap.Strings("symbols", symbols),
	)

	resp, err := h.bot.backend.Analyze(ctx, req)
	if err != nil {
		h.bot.logger.Error("analysis failed",
			zap.Error(err),
			zap.Int64("chat_id", msg.Chat.ID),
		)
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.SendLong(msg.Chat.ID, FormatQueryResponse(resp))
}

func (h *Handler) handlePortfolio(ctx context.Context, msg *tgbotapi.Message) {
	req, err := ParsePortfolioArgs(msg.CommandArguments())
	if err != nil {
		if errors.Is(err, errPortfolioSyntax) || errors.Is(err, domain.ErrNoSymbols) {
			h.bot.Send(msg.Chat.ID, "Usage: /portfolio AAPL:40 MSFT:60 [conservative|moderate|aggressive]")
			return
		}
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}
	if !h.allow(msg) {
		return
	}

	h.bot.SendTyping(msg.Chat.ID)

	res, err := h.bot.backend.AnalyzePortfolio(ctx, req)
	if err != nil {
		h.bot.logger.Error("portfolio analysis failed", zap.Error(err), zap.Int64("chat_id", msg.Chat.ID))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.SendLong(msg.Chat.ID, FormatPortfolio(res))
}

func (h *Handler) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	recs, err := h.bot.backend.History(ctx, historyLimit)
	if err != nil {
		h.bot.logger.Error("failed to load history", zap.Error(err))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}
	h.bot.SendLong(msg.Chat.ID, FormatHistory(recs))
}

func (h *Handler) handleAlerts(ctx context.Context, msg *tgbotapi.Message) {
	alerts, err := h.bot.backend.Alerts(ctx)
	if err != nil {
		h.bot.logger.Error("failed to list alerts", zap.Error(err))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}
	h.bot.SendLong(msg.Chat.ID, FormatAlerts(alerts))
}

func (h *Handler) handleAlert(ctx context.Context, msg *tgbotapi.Message) {
	symbol, cond, threshold, err := ParseAlertArgs(msg.CommandArguments())
	if err != nil {
		h.bot.Send(msg.Chat.ID, "Usage: /alert SYMBOL above|below|crosses PRICE\nExample: /alert AAPL above 150")
		return
	}

	alert, err := h.bot.backend.CreateAlert(ctx, symbol, cond, threshold)
	if err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.rememberAlert(alert.ID, msg.Chat.ID)
	h.bot.Send(msg.Chat.ID, "Alert created.\n"+FormatAlert(*alert))
}

func (h *Handler) handleUnalert(ctx context.Context, msg *tgbotapi.Message) {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		h.bot.Send(msg.Chat.ID, "Specify alert ID: /unalert ID\nSee /alerts for IDs.")
		return
	}

	if err := h.bot.backend.DeleteAlert(ctx, id); err != nil {
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}

	h.bot.forgetAlert(id)
	h.bot.Send(msg.Chat.ID, "Alert deleted.")
}

func (h *Handler) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	st, err := h.bot.backend.Health(ctx)
	if err != nil {
		h.bot.logger.Warn("health check failed", zap.Error(err))
		h.bot.Send(msg.Chat.ID, mapErrorToMessage(err))
		return
	}
	h.bot.Send(msg.Chat.ID, FormatStatus(st))
}

func commandFor(t domain.AnalysisType) string {
	for cmd, ct := range analysisCommands {
		if ct == t {
			return cmd
		}
	}
	return "analyze"
}

func mapErrorToMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return "Empty question. Please type what you want to know."
	case errors.Is(err, domain.ErrQuestionTooLong):
		return "The question is too long. Please shorten it."
	case errors.Is(err, domain.ErrInvalidSymbol):
		return "Invalid ticker symbol. Use symbols like AAPL or BRK.B."
	case errors.Is(err, domain.ErrTooManySymbols):
		return "Too many symbols. Please analyze at most 10 at once."
	case errors.Is(err, domain.ErrNoSymbols):
		return "Please specify at least one symbol."
	case errors.Is(err, domain.ErrWeightsMismatch):
		return "Give a weight for every symbol or for none of them."
	case errors.Is(err, domain.ErrNegativeWeight), errors.Is(err, domain.ErrZeroWeights):
		return "Weights must be positive numbers."
	case errors.Is(err, domain.ErrInvalidCondition):
		return "Unknown alert condition. Use above, below or crosses."
	case errors.Is(err, domain.ErrInvalidThreshold):
		return "Alert price must be a positive number."
	case errors.Is(err, domain.ErrAlertExists):
		return "This alert already exists."
	case errors.Is(err, domain.ErrAlertNotFound), errors.Is(err, domain.ErrNotFound):
		return "Alert not found."
	case errors.Is(err, domain.ErrLLMNotConfigured):
		return "The analysis service is not configured yet (missing API key)."
	case errors.Is(err, domain.ErrAnalysisTimeout):
		return "The analysis took too long. Please try again with fewer symbols."
	case errors.Is(err, domain.ErrNoMarketData):
		return "Could not load market data for these symbols."
	case errors.Is(err, domain.ErrLLMFailed):
		return "Failed to generate the analysis. Please try again later."
	case errors.Is(err, backend.ErrBackendTimeout):
		return "The analysis service did not respond in time. Please try again later."
	case errors.Is(err, backend.ErrBackendUnavailable):
		return "The analysis service is unavailable. Please try again later."
	}

	var be *backend.Error
	if errors.As(err, &be) && be.Status == http.StatusBadRequest {
		return "Invalid request: " + be.Message
	}
	return "Something went wrong. Please try again later."
}
