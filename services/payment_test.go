package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"terracafe/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountMultiplier(t *testing.T) {
	tests := []struct {
		method models.PaymentMethod
		want   string
	}{
		{models.PaymentPix, "0.95"},
		{models.PaymentCash, "0.90"},
		{models.PaymentVoucher, "0.90"},
		{models.PaymentCredit, "1"},
		{models.PaymentDebitCard, "1"},
		{models.PaymentMethod("boleto"), "1"},
	}
	for _, tt := range tests {
		decimalEq(t, tt.want, DiscountMultiplier(tt.method))
	}
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		total        string
		method       models.PaymentMethod
		wantCharged  string
		wantDiscount string
	}{
		{"100.00", models.PaymentPix, "95.00", "5.00"},
		{"100.00", models.PaymentCash, "90.00", "10.00"},
		{"100.00", models.PaymentVoucher, "90.00", "10.00"},
		{"100.00", models.PaymentCredit, "100.00", "0"},
		{"13.00", models.PaymentPix, "12.35", "0.65"},
		{"16.50", models.PaymentPix, "15.68", "0.82"}, // 15.675 rounds half up
		{"0", models.PaymentCash, "0", "0"},
	}
	for _, tt := range tests {
		charged, discount := ApplyDiscount(decimal.RequireFromString(tt.total), tt.method)
		decimalEq(t, tt.wantCharged, charged)
		decimalEq(t, tt.wantDiscount, discount)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in   string
		want models.PaymentMethod
	}{
		{"pix", models.PaymentPix},
		{"cash", models.PaymentCash},
		{"debit", models.PaymentCash},
		{"credit", models.PaymentCredit},
		{"debitCard", models.PaymentDebitCard},
		{" debit_card ", models.PaymentDebitCard},
		{"voucher", models.PaymentVoucher},
	}
	for _, tt := range tests {
		got, err := ParsePaymentMethod(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParsePaymentMethod("bitcoin")
	assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
}

func TestPaymentMethodsListsEveryOption(t *testing.T) {
	methods := PaymentMethods()
	require.Len(t, methods, 5)
	for _, m := range methods {
		assert.True(t, DiscountMultiplier(m.ID).Equal(m.Multiplier), m.ID)
	}
	methods[0].Label = "changed"
	assert.Equal(t, "Pix", PaymentMethods()[0].Label)
}

func TestFakeProviderCharge(t *testing.T) {
	p := NewFakeProvider(0)

	ref, err := p.Charge(context.Background(), decimal.RequireFromString("12.35"), models.PaymentPix)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "PAY-"))

	_, err = p.Charge(context.Background(), decimal.Zero, models.PaymentPix)
	assert.ErrorIs(t, err, ErrPaymentDeclined)
}

func TestFakeProviderHonoursCancellation(t *testing.T) {
	p := NewFakeProvider(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Charge(ctx, decimal.NewFromInt(10), models.PaymentCash)
	assert.ErrorIs(t, err, context.Canceled)
}
