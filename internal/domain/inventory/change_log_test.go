package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orderhub/backend/internal/domain/channel"
)

func TestChangeTypeIsValid(t *testing.T) {
	for _, ct := range []ChangeType{
		ChangeTypeSale, ChangeTypeRestock, ChangeTypeAdjustment,
		ChangeTypeSync, ChangeTypeReservation, ChangeTypeRelease,
	} {
		assert.True(t, ct.IsValid(), "%s must be valid", ct)
	}
	assert.False(t, ChangeType("teleport").IsValid())
}

func TestNewChangeLog(t *testing.T) {
	entry := NewChangeLog("WIDGET-001", ChangeTypeSale, 10, 7, -3, ChangeContext{
		Channel:  channel.CodeShopify,
		OrderRef: "1001",
		Reason:   "order placed",
	})

	assert.Equal(t, "WIDGET-001", entry.SKU)
	assert.Equal(t, ChangeTypeSale, entry.ChangeType)
	assert.Equal(t, 10, entry.QuantityBefore)
	assert.Equal(t, 7, entry.QuantityAfter)
	assert.Equal(t, -3, entry.QuantityChange)
	assert.Equal(t, channel.CodeShopify, entry.Channel)
	assert.Equal(t, "1001", entry.OrderRef)
	assert.NotEqual(t, "", entry.ID.String())
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestNewChangeLog_RecordsRequestedDeltaOnClamp(t *testing.T) {
	// A clamped mutation stores the requested delta alongside the stored
	// counter values, so before + change may differ from after.
	entry := NewChangeLog("WIDGET-001", ChangeTypeSale, 3, 0, -10, ChangeContext{})

	assert.Equal(t, 3, entry.QuantityBefore)
	assert.Equal(t, 0, entry.QuantityAfter)
	assert.Equal(t, -10, entry.QuantityChange)
}
