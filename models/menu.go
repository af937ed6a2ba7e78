package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryBeverage = "beverage"
	CategoryFood     = "food"
)

type Drink struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Glyph       string          `json:"image"` // display glyph, e.g. ☕
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"created_at,omitzero"`
	UpdatedAt   time.Time       `json:"updated_at,omitzero"`
}

// Customization is an optional additive ingredient priced per unit of drink.
type Customization struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

func ValidCategory(c string) bool {
	return c == CategoryBeverage || c == CategoryFood
}
