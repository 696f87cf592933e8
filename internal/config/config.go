package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ServiceName    = "cryptosage"
	ServiceVersion = ""
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string                 `mapstructure:"env"`
	Log                     LogConfig              `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration          `mapstructure:"graceful_shutdown_timeout"`
	Port                    map[string]string      `mapstructure:"port"`
	Telegram                TelegramConfig         `mapstructure:"telegram"`
	DeepSeek                DeepSeekConfig         `mapstructure:"deepseek"`
	Chat                    ChatConfig             `mapstructure:"chat"`
	Sources                 SourcesConfig          `mapstructure:"sources"`
	Detect                  DetectConfig           `mapstructure:"detect"`
	Redis                   map[string]RedisConfig `mapstructure:"redis"`
	KeepAlive               KeepAliveConfig        `mapstructure:"keep_alive"`
	Alerts                  AlertsConfig           `mapstructure:"alerts"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type TelegramConfig struct {
	Token          string        `mapstructure:"token"`
	WebhookBaseURL string        `mapstructure:"webhook_base_url"` // empty -> long polling
	WebhookPath    string        `mapstructure:"webhook_path"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

type DeepSeekConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
}

type SourcesConfig struct {
	FetchTimeout         time.Duration `mapstructure:"fetch_timeout"`
	USDCNYRate           float64       `mapstructure:"usd_cny_rate"` // static rate for the CNY display line
	BinanceBaseURL       string        `mapstructure:"binance_base_url"`
	OKXBaseURL           string        `mapstructure:"okx_base_url"`
	CoinGeckoBaseURL     string        `mapstructure:"coingecko_base_url"`
	CoinGeckoAPIKey      string        `mapstructure:"coingecko_api_key"`
	CryptoCompareBaseURL string        `mapstructure:"cryptocompare_base_url"`
	FearGreedBaseURL     string        `mapstructure:"fng_base_url"`
	WhaleAlertBaseURL    string        `mapstructure:"whale_alert_base_url"`
	WhaleAlertAPIKey     string        `mapstructure:"whale_alert_api_key"`
	WhaleMinValueUSD     int           `mapstructure:"whale_min_value_usd"`
}

type DetectConfig struct {
	MaxAssets     int      `mapstructure:"max_assets"`
	DefaultAssets []string `mapstructure:"default_assets"`
}

type RedisConfig struct {
	CacheDSN string        `mapstructure:"cache_dsn"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type KeepAliveConfig struct {
	URL      string        `mapstructure:"url"`
	Interval time.Duration `mapstructure:"interval"`
}

type AlertsConfig struct {
	ChatID   int64         `mapstructure:"chat_id"`
	Interval time.Duration `mapstructure:"interval"`
}

func LoadConfig(configPath string) error {
	viper.Reset()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = viper.Unmarshal(&Env)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	return nil
}
