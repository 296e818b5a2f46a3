package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/finanalyst/internal/domain"
	"github.com/kitbuilder587/finanalyst/internal/metrics"
	"github.com/kitbuilder587/finanalyst/internal/ratelimit"
	"github.com/kitbuilder587/finanalyst/internal/service"
)

// Backend - то, что нужно боту от сервиса анализа: HTTP-клиент или вызовы в процессе
type Backend interface {
	Analyze(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
	AnalyzePortfolio(ctx context.Context, req domain.PortfolioRequest) (*domain.PortfolioResult, error)
	History(ctx context.Context, limit int) ([]domain.QueryRecord, error)
	Alerts(ctx context.Context) ([]domain.Alert, error)
	CreateAlert(ctx context.Context, symbol string, condition domain.AlertCondition, threshold float64) (*domain.Alert, error)
	DeleteAlert(ctx context.Context, id string) error
	Health(ctx context.Context) (*service.Status, error)
}

// Sender - часть tgbotapi.BotAPI, которой бот отправляет сообщения
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type BotConfig struct {
	Token             string
	Debug             bool
	RequestsPerMinute int
}

type Bot struct {
	api         Sender
	updates     *tgbotapi.BotAPI
	backend     Backend
	logger      *zap.Logger
	metrics     *metrics.Metrics
	handler     *Handler
	rateLimiter *ratelimit.Limiter
	wg          sync.WaitGroup

	// кто создал алерт - туда и уведомление
	mu          sync.Mutex
	alertOwners map[string]int64
}

func New(ctx context.Context, cfg BotConfig, b Backend, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	api.Debug = cfg.Debug

	bot := newBot(ctx, api, b, cfg.RequestsPerMinute, logger, m)
	bot.updates = api

	logger.Info("telegram bot authorized",
		zap.String("username", api.Self.UserName),
	)

	return bot, nil
}

func newBot(ctx context.Context, sender Sender, b Backend, perMinute int, logger *zap.Logger, m *metrics.Metrics) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	bot := &Bot{
		api:         sender,
		backend:     b,
		logger:      logger,
		metrics:     m,
		alertOwners: make(map[string]int64),
		rateLimiter: ratelimit.NewWithContext(ctx, ratelimit.Config{
			RequestsPerMinute: perMinute,
		}),
	}
	bot.handler = NewHandler(bot)
	return bot
}

// одновременно обрабатываемых апдейтов, остальные ждут в канале tgbotapi
const maxInflightUpdates = 16

func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 60
	updates := b.updates.GetUpdatesChan(cfg)

	b.logger.Info("bot started, waiting for updates")
	defer func() {
		b.updates.StopReceivingUpdates()
		b.wg.Wait()
		b.logger.Info("all handlers finished")
	}()

	inflight := make(chan struct{}, maxInflightUpdates)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bot stopping, waiting for handlers to finish")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			select {
			case inflight <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			b.wg.Add(1)
			go func() {
				defer func() {
					<-inflight
					b.wg.Done()
				}()
				b.handleUpdate(ctx, update.Message)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, msg *tgbotapi.Message) {
	start := time.Now()
	kind := "telegram_query"
	if msg.IsCommand() {
		kind = "telegram_command"
	}
	status := "processed"

	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			b.logger.Error("panic in update handler", zap.Any("panic", r), zap.Int64("chat_id", chatIDOf(msg)))
		}
		if b.metrics != nil {
			b.metrics.RecordRequest(kind, status, time.Since(start))
		}
	}()

	b.handler.HandleMessage(ctx, msg)
}

func chatIDOf(msg *tgbotapi.Message) int64 {
	if msg == nil || msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}

func (b *Bot) Send(chatID int64, text string) error {
	if b.api == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := b.api.Send(msg)
	return err
}

// SendLong режет ответ по лимиту телеграма
func (b *Bot) SendLong(chatID int64, text string) {
	for _, part := range SplitMessage(text, maxMessageLen) {
		if err := b.Send(chatID, part); err != nil {
			b.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}

func (b *Bot) SendTyping(chatID int64) {
	if b.api == nil {
		return
	}
	_, _ = b.api.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

func (b *Bot) RecordRateLimitHit() {
	if b.metrics != nil {
		b.metrics.RecordRateLimitHit("telegram")
	}
}

func (b *Bot) rememberAlert(id string, chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alertOwners[id] = chatID
}

func (b *Bot) forgetAlert(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.alertOwners, id)
}

// NotifyAlert - колбэк для Evaluator.OnTrigger, работает только когда пайплайн в процессе бота
func (b *Bot) NotifyAlert(a domain.Alert) {
	b.mu.Lock()
	chatID, ok := b.alertOwners[a.ID]
	delete(b.alertOwners, a.ID)
	b.mu.Unlock()

	if !ok {
		b.logger.Debug("triggered alert has no owner chat", zap.String("id", a.ID))
		return
	}
	if err := b.Send(chatID, FormatAlertTriggered(a)); err != nil {
		b.logger.Error("failed to send alert notification", zap.String("id", a.ID), zap.Error(err))
	}
}
