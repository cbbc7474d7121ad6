package config

import (
	"log"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Event store.
	StoreDriver  string `mapstructure:"STORE_DRIVER"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisContextDB int    `mapstructure:"REDIS_CONTEXT_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Conversation context.
	ContextStore      string `mapstructure:"CONTEXT_STORE"`
	ContextTTLMinutes int    `mapstructure:"CONTEXT_TTL_MINUTES"`
	HistoryTurns      int    `mapstructure:"HISTORY_TURNS"`

	// Language model.
	LLMProvider       string  `mapstructure:"LLM_PROVIDER"`
	DeepSeekAPIKey    string  `mapstructure:"DEEPSEEK_API_KEY"`
	DeepSeekAPIURL    string  `mapstructure:"DEEPSEEK_API_URL"`
	DeepSeekModel     string  `mapstructure:"DEEPSEEK_MODEL"`
	GeminiAPIKey      string  `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string  `mapstructure:"GEMINI_MODEL"`
	LLMTemperature    float64 `mapstructure:"LLM_TEMPERATURE"`
	LLMMaxTokens      int     `mapstructure:"LLM_MAX_TOKENS"`
	LLMTimeoutSeconds int     `mapstructure:"LLM_TIMEOUT_SECONDS"`
	LLMMaxRetries     int     `mapstructure:"LLM_MAX_RETRIES"`

	// Interpreter behaviour.
	Timezone           string `mapstructure:"TIMEZONE"`
	ConfirmDestructive bool   `mapstructure:"CONFIRM_DESTRUCTIVE"`

	// Reminders.
	RemindersEnabled    bool `mapstructure:"REMINDERS_ENABLED"`
	ReminderLeadMinutes int  `mapstructure:"REMINDER_LEAD_MINUTES"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "3001")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)

	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "barbershop")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CONTEXT_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)

	v.SetDefault("CONTEXT_STORE", "redis")
	v.SetDefault("CONTEXT_TTL_MINUTES", 30)
	v.SetDefault("HISTORY_TURNS", 10)

	v.SetDefault("LLM_PROVIDER", "deepseek")
	v.SetDefault("DEEPSEEK_API_KEY", "")
	v.SetDefault("DEEPSEEK_API_URL", "https://api.deepseek.com/v1")
	v.SetDefault("DEEPSEEK_MODEL", "deepseek-chat")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_TOKENS", 800)
	v.SetDefault("LLM_TIMEOUT_SECONDS", 30)
	v.SetDefault("LLM_MAX_RETRIES", 1)

	v.SetDefault("TIMEZONE", "America/Sao_Paulo")
	v.SetDefault("CONFIRM_DESTRUCTIVE", false)

	v.SetDefault("REMINDERS_ENABLED", false)
	v.SetDefault("REMINDER_LEAD_MINUTES", 60)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Location returns the configured time zone, falling back to the local one.
func Location() *time.Location {
	loc, err := time.LoadLocation(AppConfig.Timezone)
	if err != nil {
		log.Printf("Unknown TIMEZONE %q, using local time: %v", AppConfig.Timezone, err)
		return time.Local
	}
	return loc
}

// ContextTTL is how long an idle conversation keeps its context.
func ContextTTL() time.Duration {
	return time.Duration(AppConfig.ContextTTLMinutes) * time.Minute
}

// LLMTimeout bounds a single model call.
func LLMTimeout() time.Duration {
	return time.Duration(AppConfig.LLMTimeoutSeconds) * time.Second
}
