package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig is the billing policy applied by the invoice generator and
// the late-payment notifier. It is loaded from billing.yml and hot-reloaded
// on change; callers always read it through the holder.
type BillingConfig struct {
	// TaxRate is the VAT rate applied to generated invoices.
	TaxRate float64 `mapstructure:"taxRate"`
	// DedupWindowDays suppresses repeat alerts on the same link within the window.
	DedupWindowDays int `mapstructure:"dedupWindowDays"`
	// AdHocDueDays is the grace window for one-off payments with no known frequency.
	AdHocDueDays int `mapstructure:"adHocDueDays"`
	// UpcomingHorizonDays bounds the upcoming-invoice preview.
	UpcomingHorizonDays int `mapstructure:"upcomingHorizonDays"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		TaxRate:             0.18,
		DedupWindowDays:     7,
		AdHocDueDays:        7,
		UpcomingHorizonDays: 7,
	}
}

// BillingConfigHolder owns the billing policy lifecycle: populated at
// construction, replaced atomically on file change, never read directly
// from disk by callers.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/backoffice")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.taxRate", defaults.TaxRate)
	v.SetDefault("billing.dedupWindowDays", defaults.DedupWindowDays)
	v.SetDefault("billing.adHocDueDays", defaults.AdHocDueDays)
	v.SetDefault("billing.upcomingHorizonDays", defaults.UpcomingHorizonDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed config, bypassing file watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return errors.New("billing.taxRate must be in [0, 1)")
	}
	if cfg.DedupWindowDays <= 0 {
		return errors.New("billing.dedupWindowDays must be positive")
	}
	if cfg.AdHocDueDays <= 0 {
		return errors.New("billing.adHocDueDays must be positive")
	}
	if cfg.UpcomingHorizonDays <= 0 {
		return errors.New("billing.upcomingHorizonDays must be positive")
	}
	return nil
}
