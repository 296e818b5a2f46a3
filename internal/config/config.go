package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kitbuilder587/finanalyst/internal/domain"
)

var (
	ErrMissingToken          = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrInvalidProvider       = errors.New("invalid LLM_PROVIDER")
	ErrInvalidSearchProvider = errors.New("invalid SEARCH_PROVIDER")
	ErrInvalidCacheType      = errors.New("invalid CACHE_TYPE")
	ErrMissingRedisURL       = errors.New("REDIS_URL is required for CACHE_TYPE=redis")
	ErrInvalidPort           = errors.New("invalid PORT")
	ErrInvalidBackendURL     = errors.New("invalid BACKEND_URL")
	ErrInvalidLogFormat      = errors.New("invalid LOG_FORMAT")
)

const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderOffline    = "offline"
	ProviderMock       = "mock"

	SearchDuckDuckGo = "duckduckgo"
	SearchTavily     = "tavily"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	Server     ServerConfig
	BackendURL string
	Telegram   TelegramConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Search     SearchConfig
	Market     MarketConfig
	Log        LogConfig
	Timeouts   TimeoutConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	History    HistoryConfig
	Alerts     AlertsConfig
	Agents     AgentsConfig
	Critic     domain.CriticConfig
}

type ServerConfig struct {
	Host string
	Port int
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

type TelegramConfig struct {
	Token string
}

type DatabaseConfig struct {
	URL string // пусто - in-memory репозитории
}

type RedisConfig struct {
	URL string
}

type LLMConfig struct {
	Provider   string
	OpenAI     OpenAIConfig
	OpenRouter OpenRouterConfig
}

// APIKey - ключ активного провайдера
func (c LLMConfig) APIKey() string {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.APIKey
	case ProviderOpenRouter:
		return c.OpenRouter.APIKey
	}
	return ""
}

// Offline - отчеты без LLM, только по рыночным данным
func (c LLMConfig) Offline() bool {
	return c.Provider == ProviderOffline
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type SearchConfig struct {
	Provider      string
	TavilyAPIKey  string
	TavilyBaseURL string
	FinnhubAPIKey string
}

type MarketConfig struct {
	YahooBaseURL string
	CacheTTL     time.Duration
}

const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

type LogConfig struct {
	Level   string
	Format  string // json или console, пусто - по уровню
	Service string // server или bot, пишется в каждую запись
}

type TimeoutConfig struct {
	Request time.Duration // потолок на один анализ поверх таймаута профиля
	Search  time.Duration
}

type CacheConfig struct {
	Type       string
	TTL        time.Duration
	MaxEntries int // только для memory
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type HistoryConfig struct {
	Limit int
}

type AlertsConfig struct {
	PollInterval time.Duration
}

type AgentsConfig struct {
	ConfigPath string // yaml с переопределениями агентов, опционально
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// .env не обязателен, уже выставленные переменные он не перетирает
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port: getEnvIntOrDefault("PORT", getEnvIntOrDefault("SERVER_PORT", 8000)),
		},
		BackendURL: os.Getenv("BACKEND_URL"),
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		LLM: LLMConfig{
			Provider: getEnvOrDefault("LLM_PROVIDER", ProviderOpenAI),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o"),
				BaseURL: os.Getenv("OPENAI_BASE_URL"),
			},
			OpenRouter: OpenRouterConfig{
				APIKey:  os.Getenv("OPENROUTER_API_KEY"),
				Model:   getEnvOrDefault("OPENROUTER_MODEL", "openai/gpt-4o"),
				BaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			},
		},
		Search: SearchConfig{
			Provider:      getEnvOrDefault("SEARCH_PROVIDER", SearchDuckDuckGo),
			TavilyAPIKey:  os.Getenv("TAVILY_API_KEY"),
			TavilyBaseURL: getEnvOrDefault("TAVILY_BASE_URL", "https://api.tavily.com"),
			FinnhubAPIKey: os.Getenv("FINNHUB_API_KEY"),
		},
		Market: MarketConfig{
			YahooBaseURL: os.Getenv("YAHOO_BASE_URL"),
			CacheTTL:     time.Duration(getEnvIntOrDefault("MARKET_CACHE_TTL_SEC", 300)) * time.Second,
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: strings.ToLower(os.Getenv("LOG_FORMAT")),
		},
		Timeouts: TimeoutConfig{
			Request: time.Duration(getEnvIntOrDefault("REQUEST_TIMEOUT_SEC", 300)) * time.Second,
			Search:  time.Duration(getEnvIntOrDefault("SEARCH_TIMEOUT_SEC", 30)) * time.Second,
		},
		Cache: CacheConfig{
			Type:       getEnvOrDefault("CACHE_TYPE", CacheMemory),
			TTL:        time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 3600)) * time.Second,
			MaxEntries: getEnvIntOrDefault("CACHE_MAX_ENTRIES", 10000),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),
		},
		History: HistoryConfig{
			Limit: getEnvIntOrDefault("HISTORY_LIMIT", 50),
		},
		Alerts: AlertsConfig{
			PollInterval: time.Duration(getEnvIntOrDefault("ALERT_POLL_INTERVAL_SEC", 60)) * time.Second,
		},
		Agents: AgentsConfig{
			ConfigPath: os.Getenv("AGENTS_CONFIG"),
		},
		Critic: domain.CriticConfig{
			MaxRetries:    getEnvIntOrDefault("CRITIC_MAX_RETRIES", 2),
			StrictMode:    getEnvBoolOrDefault("CRITIC_STRICT", false),
			MinConfidence: getEnvFloatOrDefault("CRITIC_MIN_CONFIDENCE", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOpenRouter, ProviderOffline, ProviderMock:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.LLM.Provider)
	}
	switch c.Search.Provider {
	case SearchDuckDuckGo, SearchTavily:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSearchProvider, c.Search.Provider)
	}
	switch c.Cache.Type {
	case CacheMemory:
	case CacheRedis:
		if c.Redis.URL == "" {
			return ErrMissingRedisURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCacheType, c.Cache.Type)
	}
	switch c.Log.Format {
	case "", LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	if err := c.Critic.Validate(); err != nil {
		return fmt.Errorf("critic config: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.BackendURL != "" {
		u, err := url.Parse(c.BackendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidBackendURL
		}
	}
	return nil
}

// ValidateBot - дополнительные требования для cmd/bot
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return ErrMissingToken
	}
	return nil
}

// Warnings - проблемы, с которыми сервис стартует, но работает не полностью
func (c *Config) Warnings() []string {
	var w []string
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			w = append(w, "OPENAI_API_KEY not set, analysis endpoints will return 503")
		}
	case ProviderOpenRouter:
		if c.LLM.OpenRouter.APIKey == "" {
			w = append(w, "OPENROUTER_API_KEY not set, analysis endpoints will return 503")
		}
	}
	if c.Search.Provider == SearchTavily && c.Search.TavilyAPIKey == "" {
		w = append(w, "TAVILY_API_KEY not set, falling back to duckduckgo")
	}
	return w
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}
