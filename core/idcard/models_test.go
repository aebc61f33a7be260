package idcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_CanTransition(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusPrinted, StatusDelivered, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusPending, StatusCancelled}:    true,
		{StatusProcessing, StatusPrinted}:   true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusPrinted, StatusDelivered}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusDelivered.Final())
	assert.True(t, StatusCancelled.Final())
	assert.False(t, StatusPrinted.Final())
}

func TestNewOrder_Validate(t *testing.T) {
	no := NewOrder{
		StudentID:       "5b2d0c1e-7a6f-4e3d-9c8b-1a2b3c4d5e6f",
		InstituteID:     "8a6c1a4e-59c1-4c36-9b34-7f2c0c5b7a01",
		CardType:        " ",
		DeliveryAddress: "  12 av. Kasa-Vubu ",
	}
	if assert.NoError(t, no.Validate()) {
		assert.Equal(t, CardStandard, no.CardType)
		assert.Equal(t, 1, no.Quantity)
		assert.Equal(t, "12 av. Kasa-Vubu", no.DeliveryAddress)
	}

	no.CardType = "gold"
	assert.Error(t, no.Validate())

	no.CardType = "Premium"
	no.Quantity = 11
	assert.Error(t, no.Validate())
}
