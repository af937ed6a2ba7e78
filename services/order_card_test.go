package services

import (
	"strings"
	"testing"
	"time"

	"terracafe/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cardOrder(status string) *models.Order {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.Order{
		ID:            42,
		CustomerName:  "Ana",
		PaymentMethod: models.PaymentPix,
		Total:         decimal.RequireFromString("15.68"),
		Status:        status,
		CreatedAt:     now.Add(-3 * time.Minute),
		Items: []models.OrderItem{
			{ID: 7, DrinkName: "Latte", Glyph: "☕", Category: models.CategoryBeverage, Quantity: 2,
				Customizations: []models.Customization{{Name: "Caramelo"}}},
			{ID: 8, DrinkName: "Pão de queijo", Category: models.CategoryFood, Quantity: 1, Prepared: true},
		},
	}
}

func buttonData(c OrderCardContent) []string {
	var out []string
	for _, row := range c.Buttons {
		for _, b := range row {
			out = append(out, b.CallbackData)
		}
	}
	return out
}

func TestBuildKitchenCardText(t *testing.T) {
	o := cardOrder(OrderStatusPending)
	c := BuildKitchenCard(o, o.CreatedAt.Add(3*time.Minute))

	assert.True(t, strings.HasPrefix(c.Text, "Pedido #42 · Ana"))
	assert.Contains(t, c.Text, "2x Latte (Caramelo)")
	assert.Contains(t, c.Text, "R$ 15.68 (Pix)")
	assert.Contains(t, c.Text, "Tempo estimado: 8 min")
	assert.Contains(t, c.Text, "3 minutes atrás")
}

func TestBuildKitchenCardButtons(t *testing.T) {
	tests := []struct {
		status string
		want   []string
	}{
		{OrderStatusPending, []string{"order_status:42:preparing", "order_status:42:cancelled"}},
		{OrderStatusPreparing, []string{"item_prepared:42:7", "order_status:42:ready"}},
		{OrderStatusReady, []string{"order_status:42:delivered"}},
		{OrderStatusDelivered, nil},
		{OrderStatusCancelled, nil},
	}
	for _, tt := range tests {
		o := cardOrder(tt.status)
		assert.Equal(t, tt.want, buttonData(BuildKitchenCard(o, o.CreatedAt)), tt.status)
	}
}

func TestCardCallbacksRoundTrip(t *testing.T) {
	o := cardOrder(OrderStatusPreparing)
	for _, data := range buttonData(BuildKitchenCard(o, o.CreatedAt)) {
		cb, err := ParseOrderCallback(data)
		require.NoError(t, err, data)
		assert.Equal(t, int64(42), cb.OrderID)
	}

	cb, err := ParseOrderCallback("item_prepared:42:7")
	require.NoError(t, err)
	assert.Equal(t, OrderCallback{Kind: CallbackItemPrepared, OrderID: 42, ItemID: 7}, cb)
}

func TestParseOrderCallbackRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "order_status:42", "order_status:x:ready", "item_prepared:1:y", "driver:1:2"} {
		_, err := ParseOrderCallback(data)
		assert.ErrorIs(t, err, ErrInvalidInput, data)
	}
}
