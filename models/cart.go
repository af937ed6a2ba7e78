package models

import "github.com/shopspring/decimal"

type CartItem struct {
	Drink          Drink           `json:"drink"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

// UnitPrice is the base price plus every selected customization, for one unit.
func (ci CartItem) UnitPrice() decimal.Decimal {
	unit := ci.Drink.Price
	for _, c := range ci.Customizations {
		unit = unit.Add(c.Price)
	}
	return unit
}

// CustomizationNames lists the selected customizations in order.
func (ci CartItem) CustomizationNames() []string {
	names := make([]string, 0, len(ci.Customizations))
	for _, c := range ci.Customizations {
		names = append(names, c.Name)
	}
	return names
}

type Cart struct {
	CustomerID int64           `json:"customer_id"`
	Items      []CartItem      `json:"items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}
