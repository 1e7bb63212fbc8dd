package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBillingConfig(t *testing.T) {
	cfg := DefaultBillingConfig()
	assert.Equal(t, 0.18, cfg.TaxRate)
	assert.Equal(t, 7, cfg.DedupWindowDays)
	assert.Equal(t, 7, cfg.AdHocDueDays)
	assert.Equal(t, 7, cfg.UpcomingHorizonDays)
	require.NoError(t, validateBillingConfig(cfg))
}

func TestValidateBillingConfig(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.TaxRate = 1.2
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.DedupWindowDays = 0
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.AdHocDueDays = -1
	assert.Error(t, validateBillingConfig(cfg))
}

func TestStaticHolderGet(t *testing.T) {
	cfg := DefaultBillingConfig()
	cfg.TaxRate = 0.2
	holder := NewStaticBillingConfigHolder(cfg)
	assert.Equal(t, 0.2, holder.Get().TaxRate)
}
