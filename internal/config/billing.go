package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig tunes billing computation and presentation.
type BillingConfig struct {
	// LabelLayout is the Go time layout used in plan period labels.
	LabelLayout    string `mapstructure:"labelLayout"`
	LabelSeparator string `mapstructure:"labelSeparator"`
	Timezone       string `mapstructure:"timezone"`
	// StrictUnitTypes rejects plans carrying unrecognised unit types
	// instead of pricing those units linearly.
	StrictUnitTypes bool          `mapstructure:"strictUnitTypes"`
	PlanCacheTTL    time.Duration `mapstructure:"planCacheTTL"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		LabelLayout:     "2006-01-02 15:04:05",
		LabelSeparator:  " ~ ",
		Timezone:        "UTC",
		StrictUnitTypes: false,
		PlanCacheTTL:    5 * time.Minute,
	}
}

// Location resolves the configured time zone, falling back to UTC.
func (c BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.Timezone))
	if err != nil || c.Timezone == "" {
		return time.UTC
	}
	return loc
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	log = log.Named("config.billing")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/meterbill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("METERBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.labelLayout", defaults.LabelLayout)
	v.SetDefault("billing.labelSeparator", defaults.LabelSeparator)
	v.SetDefault("billing.timezone", defaults.Timezone)
	v.SetDefault("billing.strictUnitTypes", defaults.StrictUnitTypes)
	v.SetDefault("billing.planCacheTTL", defaults.PlanCacheTTL)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileFound = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := ValidateBillingConfig(updated); err != nil {
			log.Warn("invalid config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticBillingConfigHolder returns a holder that never reloads.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func ValidateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.LabelLayout) == "" {
		return errors.New("billing.labelLayout cannot be empty")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(cfg.Timezone)); err != nil {
		return fmt.Errorf("billing.timezone: %w", err)
	}
	if cfg.PlanCacheTTL < 0 {
		return errors.New("billing.planCacheTTL cannot be negative")
	}
	return nil
}
