package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"terracafe/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	multiplierPix      = decimal.RequireFromString("0.95")
	multiplierTenOff   = decimal.RequireFromString("0.90")
	multiplierFullFare = decimal.NewFromInt(1)
)

// PaymentMethodInfo is one option on the checkout screen.
type PaymentMethodInfo struct {
	ID         models.PaymentMethod `json:"id"`
	Label      string               `json:"name"`
	Perk       string               `json:"discount,omitempty"`
	Multiplier decimal.Decimal      `json:"multiplier"`
}

var paymentMethods = []PaymentMethodInfo{
	{ID: models.PaymentPix, Label: "Pix", Perk: "5% de desconto", Multiplier: multiplierPix},
	{ID: models.PaymentCash, Label: "Dinheiro", Perk: "10% de desconto", Multiplier: multiplierTenOff},
	{ID: models.PaymentCredit, Label: "Cartão de crédito", Perk: "3 vezes", Multiplier: multiplierFullFare},
	{ID: models.PaymentDebitCard, Label: "Cartão de débito", Multiplier: multiplierFullFare},
	{ID: models.PaymentVoucher, Label: "Fidelidade", Perk: "10% de desconto", Multiplier: multiplierTenOff},
}

// PaymentMethods returns the checkout options in display order.
func PaymentMethods() []PaymentMethodInfo {
	out := make([]PaymentMethodInfo, len(paymentMethods))
	copy(out, paymentMethods)
	return out
}

// ParsePaymentMethod accepts the canonical ids and the ids older web clients
// send ("debit" for cash, "debitCard" for the debit card).
func ParsePaymentMethod(s string) (models.PaymentMethod, error) {
	switch strings.TrimSpace(s) {
	case "pix":
		return models.PaymentPix, nil
	case "cash", "debit":
		return models.PaymentCash, nil
	case "credit":
		return models.PaymentCredit, nil
	case "debit_card", "debitCard":
		return models.PaymentDebitCard, nil
	case "voucher":
		return models.PaymentVoucher, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, s)
}

func DiscountMultiplier(m models.PaymentMethod) decimal.Decimal {
	switch m {
	case models.PaymentPix:
		return multiplierPix
	case models.PaymentCash, models.PaymentVoucher:
		return multiplierTenOff
	default:
		return multiplierFullFare
	}
}

// ApplyDiscount returns the amount to charge (rounded to cents) and the discount granted.
func ApplyDiscount(total decimal.Decimal, m models.PaymentMethod) (charged, discount decimal.Decimal) {
	charged = total.Mul(DiscountMultiplier(m)).Round(2)
	return charged, total.Sub(charged)
}

// PaymentProvider charges an order total.
type PaymentProvider interface {
	Charge(ctx context.Context, amount decimal.Decimal, method models.PaymentMethod) (ref string, err error)
}

// FakeProvider approves every positive charge after Delay. It stands in for a
// real gateway at the counter.
type FakeProvider struct {
	Delay time.Duration
}

func NewFakeProvider(delay time.Duration) *FakeProvider {
	return &FakeProvider{Delay: delay}
}

func (p *FakeProvider) Charge(ctx context.Context, amount decimal.Decimal, method models.PaymentMethod) (string, error) {
	if !amount.IsPositive() {
		return "", fmt.Errorf("%w: amount %s", ErrPaymentDeclined, amount)
	}
	if p.Delay > 0 {
		t := time.NewTimer(p.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return "PAY-" + uuid.NewString(), nil
}
