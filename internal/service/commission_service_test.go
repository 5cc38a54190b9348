package service

import (
	"testing"

	"booking-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommissionRule(t *testing.T) {
	assert.NoError(t, validateCommissionRule(models.CommissionTypePercent, decimal.RequireFromString("10"), decimal.Zero))
	assert.NoError(t, validateCommissionRule(models.CommissionTypePercent, decimal.Zero, decimal.Zero))
	assert.NoError(t, validateCommissionRule(models.CommissionTypePercent, decimal.RequireFromString("100"), decimal.Zero))
	assert.NoError(t, validateCommissionRule(models.CommissionTypeFixed, decimal.Zero, decimal.RequireFromString("500")))

	err := validateCommissionRule(models.CommissionTypePercent, decimal.RequireFromString("101"), decimal.Zero)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	err = validateCommissionRule(models.CommissionTypePercent, decimal.RequireFromString("-5"), decimal.Zero)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	err = validateCommissionRule(models.CommissionTypeFixed, decimal.Zero, decimal.RequireFromString("-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)

	err = validateCommissionRule("tiered", decimal.Zero, decimal.Zero)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCommissionRuleParity(t *testing.T) {
	// A booking credited under a subscription rule and under the equivalent
	// explicit rule must yield the same cut
	base := decimal.RequireFromString("10000")
	sub := &models.Subscription{
		CommissionType: models.CommissionTypePercent,
		CommissionRate: decimal.RequireFromString("10"),
	}

	fromSub := sub.ComputeCommission(base)
	fromRule := models.ComputeCommission(base, models.CommissionTypePercent, decimal.RequireFromString("10"), decimal.Zero)

	assert.True(t, fromSub.Equal(fromRule))
	assert.True(t, decimal.RequireFromString("1000").Equal(fromSub))
}
