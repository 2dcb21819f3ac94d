package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReconcileConfig tunes the webhook reconciliation engine. It is loaded
// from reconcile.yml and hot-reloaded, so operational knobs (dedup
// windows, retry budgets, the legacy status fallback) can change without
// a deploy.
type ReconcileConfig struct {
	// Duplicate-notification suppression.
	NotificationWindowSeconds int `mapstructure:"notificationWindowSeconds"`
	RecheckDelayMillis        int `mapstructure:"recheckDelayMillis"`

	// Content-generation trigger retries.
	LyricsMaxAttempts          int `mapstructure:"lyricsMaxAttempts"`
	LyricsBackoffMillis        int `mapstructure:"lyricsBackoffMillis"`
	LyricsAttemptTimeoutMillis int `mapstructure:"lyricsAttemptTimeoutMillis"`

	// Legacy Cakto payloads sometimes arrive with an empty status field.
	// When true those are treated as approved. Risky, off by default.
	AssumeApprovedOnEmptyStatus bool `mapstructure:"assumeApprovedOnEmptyStatus"`
}

func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		NotificationWindowSeconds:   30,
		RecheckDelayMillis:          400,
		LyricsMaxAttempts:           3,
		LyricsBackoffMillis:         1000,
		LyricsAttemptTimeoutMillis:  5000,
		AssumeApprovedOnEmptyStatus: false,
	}
}

func (c ReconcileConfig) NotificationWindow() time.Duration {
	return time.Duration(c.NotificationWindowSeconds) * time.Second
}

func (c ReconcileConfig) RecheckDelay() time.Duration {
	return time.Duration(c.RecheckDelayMillis) * time.Millisecond
}

func (c ReconcileConfig) LyricsBackoff() time.Duration {
	return time.Duration(c.LyricsBackoffMillis) * time.Millisecond
}

func (c ReconcileConfig) LyricsAttemptTimeout() time.Duration {
	return time.Duration(c.LyricsAttemptTimeoutMillis) * time.Millisecond
}

type ReconcileConfigHolder struct {
	current atomic.Value // holds ReconcileConfig
}

func NewReconcileConfigHolder() (*ReconcileConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reconcile")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/serenata/config")
	v.AddConfigPath("/etc/serenata")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SERENATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconcileConfig()
	v.SetDefault("reconcile.notificationWindowSeconds", defaults.NotificationWindowSeconds)
	v.SetDefault("reconcile.recheckDelayMillis", defaults.RecheckDelayMillis)
	v.SetDefault("reconcile.lyricsMaxAttempts", defaults.LyricsMaxAttempts)
	v.SetDefault("reconcile.lyricsBackoffMillis", defaults.LyricsBackoffMillis)
	v.SetDefault("reconcile.lyricsAttemptTimeoutMillis", defaults.LyricsAttemptTimeoutMillis)
	v.SetDefault("reconcile.assumeApprovedOnEmptyStatus", getenvBool("CAKTO_ASSUME_APPROVED_ON_EMPTY_STATUS", defaults.AssumeApprovedOnEmptyStatus))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg ReconcileConfig
	if err := v.UnmarshalKey("reconcile", &cfg); err != nil {
		return nil, err
	}
	if err := validateReconcileConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReconcileConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReconcileConfig
		if err := v.UnmarshalKey("reconcile", &updated); err != nil {
			log.Printf("[reconcile-config] reload failed: %v", err)
			return
		}
		if err := validateReconcileConfig(updated); err != nil {
			log.Printf("[reconcile-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[reconcile-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticReconcileHolder wraps a fixed config, used by tests.
func NewStaticReconcileHolder(cfg ReconcileConfig) *ReconcileConfigHolder {
	holder := &ReconcileConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ReconcileConfigHolder) Get() ReconcileConfig {
	return h.current.Load().(ReconcileConfig)
}

func validateReconcileConfig(cfg ReconcileConfig) error {
	if cfg.NotificationWindowSeconds <= 0 {
		return errors.New("reconcile.notificationWindowSeconds must be positive")
	}
	if cfg.LyricsMaxAttempts <= 0 {
		return errors.New("reconcile.lyricsMaxAttempts must be positive")
	}
	if cfg.LyricsAttemptTimeoutMillis <= 0 {
		return errors.New("reconcile.lyricsAttemptTimeoutMillis must be positive")
	}
	return nil
}
