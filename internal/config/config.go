package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Exchange  ExchangeConfig
	Bot       BotConfig
	Scheduler SchedulerConfig
	Ledger    LedgerConfig
	Alert     AlertConfig
	Runtime   RuntimeConfig
}

type ExchangeConfig struct {
	BaseUrl string
	WSUrl   string
	ApiKey  string
	Secret  string
}

type BotConfig struct {
	QuoteCurrency   string
	VolatileTrigger float64
	TPPercent       float64
	SLPercent       float64
	Budget          float64
	MinOrderAmount  float64
	TrailingMode    bool
	BuyDipsMode     bool
	SafeMode        bool
	MaxHold         time.Duration
	SellRatio       float64
	ExcludedFiats   []string
}

type SchedulerConfig struct {
	ScanInterval    time.Duration
	MonitorInterval time.Duration
}

type LedgerConfig struct {
	Dir string
}

type AlertConfig struct {
	SentryDSN string
}

type RuntimeConfig struct {
	DryRun bool
	Log    LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load() (*Config, error) {
	cfg := &Config{}
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.ReadInConfig()

	viper.SetDefault("bot.sell_ratio", 100.0)
	viper.SetDefault("bot.excluded_fiats", []string{"EUR", "GBP", "RUB", "TRY", "BRL"})
	viper.SetDefault("scheduler.scan_interval", "5m")
	viper.SetDefault("scheduler.monitor_interval", "10s")
	viper.SetDefault("ledger.dir", "data")

	cfg.Exchange = ExchangeConfig{
		BaseUrl: viper.GetString("exchange.base_url"),
		WSUrl:   viper.GetString("exchange.ws_url"),
		ApiKey:  envSub("exchange.api_key"),
		Secret:  envSub("exchange.secret"),
	}

	cfg.Bot = BotConfig{
		QuoteCurrency:   viper.GetString("bot.quote_currency"),
		VolatileTrigger: viper.GetFloat64("bot.volatile_trigger_pct"),
		TPPercent:       viper.GetFloat64("bot.tp_pct"),
		SLPercent:       viper.GetFloat64("bot.sl_pct"),
		Budget:          viper.GetFloat64("bot.budget"),
		MinOrderAmount:  viper.GetFloat64("bot.min_order_amount"),
		TrailingMode:    viper.GetBool("bot.trailing_mode"),
		BuyDipsMode:     viper.GetBool("bot.buy_dips_mode"),
		SafeMode:        viper.GetBool("bot.safe_mode"),
		MaxHold:         viper.GetDuration("bot.max_hold"),
		SellRatio:       viper.GetFloat64("bot.sell_ratio"),
		ExcludedFiats:   viper.GetStringSlice("bot.excluded_fiats"),
	}

	cfg.Scheduler = SchedulerConfig{
		ScanInterval:    viper.GetDuration("scheduler.scan_interval"),
		MonitorInterval: viper.GetDuration("scheduler.monitor_interval"),
	}

	cfg.Ledger = LedgerConfig{
		Dir: viper.GetString("ledger.dir"),
	}

	cfg.Alert = AlertConfig{
		SentryDSN: envSub("alert.sentry_dsn"),
	}

	cfg.Runtime = RuntimeConfig{
		DryRun: viper.GetBool("runtime.dry_run"),
		Log: LogConfig{
			Level:      viper.GetString("runtime.log.level"),
			Format:     viper.GetString("runtime.log.format"),
			File:       viper.GetString("runtime.log.file"),
			MaxSize:    viper.GetInt("runtime.log.max_size"),
			MaxBackups: viper.GetInt("runtime.log.max_backups"),
			MaxAge:     viper.GetInt("runtime.log.max_age"),
			Compress:   viper.GetBool("runtime.log.compress"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Bot.QuoteCurrency == "" {
		return fmt.Errorf("Не задана котируемая валюта (bot.quote_currency).")
	}
	if cfg.Bot.Budget <= 0 {
		return fmt.Errorf("Бюджет должен быть положительным: %f", cfg.Bot.Budget)
	}
	if cfg.Bot.VolatileTrigger <= 0 {
		return fmt.Errorf("Порог волатильности должен быть положительным: %f", cfg.Bot.VolatileTrigger)
	}
	if cfg.Bot.TPPercent <= 0 || cfg.Bot.SLPercent <= 0 {
		return fmt.Errorf("TP и SL проценты должны быть положительными: tp=%f sl=%f", cfg.Bot.TPPercent, cfg.Bot.SLPercent)
	}
	if cfg.Bot.SellRatio <= 0 || cfg.Bot.SellRatio > 100 {
		return fmt.Errorf("Доля продажи должна быть в (0, 100]: %f", cfg.Bot.SellRatio)
	}
	if cfg.Scheduler.ScanInterval <= 0 || cfg.Scheduler.MonitorInterval <= 0 {
		return fmt.Errorf("Интервалы планировщика должны быть положительными.")
	}
	return nil
}

func envSub(key string) string {
	val := viper.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
