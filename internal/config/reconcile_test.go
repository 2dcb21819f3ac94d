package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultReconcileConfig(t *testing.T) {
	cfg := DefaultReconcileConfig()

	require.NoError(t, validateReconcileConfig(cfg))
	require.Equal(t, 30*time.Second, cfg.NotificationWindow())
	require.Equal(t, 400*time.Millisecond, cfg.RecheckDelay())
	require.Equal(t, 3, cfg.LyricsMaxAttempts)
	require.Equal(t, time.Second, cfg.LyricsBackoff())
	require.Equal(t, 5*time.Second, cfg.LyricsAttemptTimeout())
	require.False(t, cfg.AssumeApprovedOnEmptyStatus)
}

func TestValidateReconcileConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ReconcileConfig)
	}{
		{"zero window", func(c *ReconcileConfig) { c.NotificationWindowSeconds = 0 }},
		{"zero attempts", func(c *ReconcileConfig) { c.LyricsMaxAttempts = 0 }},
		{"zero attempt timeout", func(c *ReconcileConfig) { c.LyricsAttemptTimeoutMillis = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultReconcileConfig()
			tc.mutate(&cfg)
			require.Error(t, validateReconcileConfig(cfg))
		})
	}
}

func TestStaticReconcileHolder(t *testing.T) {
	cfg := DefaultReconcileConfig()
	cfg.LyricsMaxAttempts = 7

	holder := NewStaticReconcileHolder(cfg)
	require.Equal(t, 7, holder.Get().LyricsMaxAttempts)
}
