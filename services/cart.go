package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"terracafe/db"
	"terracafe/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MaxItemQuantity bounds a single cart line.
const MaxItemQuantity = 99

func checkQuantity(qty int) error {
	if qty < 1 || qty > MaxItemQuantity {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}
	return nil
}

// maxAmount is the largest value the NUMERIC(10,2) money columns hold.
var maxAmount = decimal.RequireFromString("99999999.99")

func checkAmount(what string, v decimal.Decimal) error {
	if v.GreaterThan(maxAmount) {
		return invalid("%s %s exceeds %s", what, v.StringFixed(2), maxAmount.StringFixed(2))
	}
	return nil
}

// NewCartItem prices a drink with its customizations:
// total = (base + sum(customizations)) * quantity.
func NewCartItem(drink models.Drink, customizations []models.Customization, qty int) (models.CartItem, error) {
	if err := checkQuantity(qty); err != nil {
		return models.CartItem{}, err
	}
	if customizations == nil {
		customizations = []models.Customization{}
	}
	item := models.CartItem{
		Drink:          drink,
		Quantity:       qty,
		Customizations: customizations,
	}
	item.TotalPrice = item.UnitPrice().Mul(decimal.NewFromInt(int64(qty)))
	return item, nil
}

func AddItem(cart *models.Cart, item models.CartItem) {
	cart.Items = append(cart.Items, item)
	cart.Subtotal = Subtotal(cart.Items)
}

// UpdateQuantity reprices the line at index. A quantity of zero or less
// removes the line; one above MaxItemQuantity is rejected.
func UpdateQuantity(cart *models.Cart, index, qty int) error {
	if index < 0 || index >= len(cart.Items) {
		return fmt.Errorf("cart item %d: %w", index, ErrNotFound)
	}
	if qty <= 0 {
		return RemoveItem(cart, index)
	}
	if err := checkQuantity(qty); err != nil {
		return err
	}
	item := cart.Items[index]
	item.Quantity = qty
	item.TotalPrice = item.UnitPrice().Mul(decimal.NewFromInt(int64(qty)))
	cart.Items[index] = item
	cart.Subtotal = Subtotal(cart.Items)
	return nil
}

func RemoveItem(cart *models.Cart, index int) error {
	if index < 0 || index >= len(cart.Items) {
		return fmt.Errorf("cart item %d: %w", index, ErrNotFound)
	}
	items := make([]models.CartItem, 0, len(cart.Items)-1)
	items = append(items, cart.Items[:index]...)
	items = append(items, cart.Items[index+1:]...)
	cart.Items = items
	cart.Subtotal = Subtotal(cart.Items)
	return nil
}

// ReplaceItem swaps the line at index for item, leaving every other line where it was.
func ReplaceItem(cart *models.Cart, index int, item models.CartItem) error {
	if index < 0 || index >= len(cart.Items) {
		return fmt.Errorf("cart item %d: %w", index, ErrNotFound)
	}
	cart.Items[index] = item
	cart.Subtotal = Subtotal(cart.Items)
	return nil
}

func Subtotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalPrice)
	}
	return total
}

// TotalUnits is the number shown on the cart badge.
func TotalUnits(items []models.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// MergeCustomizations resolves selected names against the catalog. Duplicates
// collapse and the result follows catalog order.
func MergeCustomizations(selected []string, catalog []models.Customization) ([]models.Customization, error) {
	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}
	out := make([]models.Customization, 0, len(want))
	for _, c := range catalog {
		if want[c.Name] {
			out = append(out, c)
			delete(want, c.Name)
		}
	}
	for name := range want {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCustomization, name)
	}
	return out, nil
}

// CartLineInput is what a client sends to add or edit a cart line. Prices are
// always looked up server side.
type CartLineInput struct {
	DrinkID        int64
	Customizations []string
	Quantity       int
}

// BuildCartItem resolves a line against the current menu.
func BuildCartItem(ctx context.Context, in CartLineInput) (models.CartItem, error) {
	drink, err := GetDrink(ctx, in.DrinkID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.CartItem{}, fmt.Errorf("%w: %d", ErrUnknownDrink, in.DrinkID)
		}
		return models.CartItem{}, err
	}
	if !drink.Available {
		return models.CartItem{}, fmt.Errorf("%w: %d is unavailable", ErrUnknownDrink, in.DrinkID)
	}
	catalog, err := ListCustomizations(ctx)
	if err != nil {
		return models.CartItem{}, err
	}
	customs, err := MergeCustomizations(in.Customizations, catalog)
	if err != nil {
		return models.CartItem{}, err
	}
	return NewCartItem(*drink, customs, in.Quantity)
}

func AddToCart(ctx context.Context, customerID int64, in CartLineInput) (*models.Cart, error) {
	item, err := BuildCartItem(ctx, in)
	if err != nil {
		return nil, err
	}
	cart, err := GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	AddItem(cart, item)
	return cart, SaveCart(ctx, cart)
}

// EditCartItem replaces the line at index with a freshly priced one.
func EditCartItem(ctx context.Context, customerID int64, index int, in CartLineInput) (*models.Cart, error) {
	item, err := BuildCartItem(ctx, in)
	if err != nil {
		return nil, err
	}
	cart, err := GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := ReplaceItem(cart, index, item); err != nil {
		return nil, err
	}
	return cart, SaveCart(ctx, cart)
}

func SetCartItemQuantity(ctx context.Context, customerID int64, index, qty int) (*models.Cart, error) {
	cart, err := GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := UpdateQuantity(cart, index, qty); err != nil {
		return nil, err
	}
	return cart, SaveCart(ctx, cart)
}

func RemoveCartItem(ctx context.Context, customerID int64, index int) (*models.Cart, error) {
	cart, err := GetCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := RemoveItem(cart, index); err != nil {
		return nil, err
	}
	return cart, SaveCart(ctx, cart)
}

func GetCart(ctx context.Context, customerID int64) (*models.Cart, error) {
	var itemsJSON []byte
	err := db.Pool.QueryRow(ctx, `
		SELECT items FROM carts WHERE customer_id = $1`,
		customerID,
	).Scan(&itemsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.Cart{CustomerID: customerID, Items: []models.CartItem{}, Subtotal: decimal.Zero}, nil
		}
		return nil, err
	}

	items := []models.CartItem{}
	if len(itemsJSON) > 0 {
		if err := json.Unmarshal(itemsJSON, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cart items: %w", err)
		}
	}
	return &models.Cart{CustomerID: customerID, Items: items, Subtotal: Subtotal(items)}, nil
}

func SaveCart(ctx context.Context, cart *models.Cart) error {
	if err := checkAmount("cart subtotal", cart.Subtotal); err != nil {
		return err
	}
	itemsJSON, err := json.Marshal(cart.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO carts (customer_id, items, subtotal, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (customer_id) DO UPDATE SET
			items = $2,
			subtotal = $3,
			updated_at = now()`,
		cart.CustomerID, itemsJSON, cart.Subtotal,
	)
	return err
}

func DeleteCart(ctx context.Context, customerID int64) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM carts WHERE customer_id = $1`, customerID)
	return err
}
