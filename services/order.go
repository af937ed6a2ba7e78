package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"terracafe/db"
	"terracafe/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = models.OrderStatusPending
	OrderStatusPreparing = models.OrderStatusPreparing
	OrderStatusReady     = models.OrderStatusReady
	OrderStatusDelivered = models.OrderStatusDelivered
	OrderStatusCancelled = models.OrderStatusCancelled
)

// ValidStatusTransition reports whether the kitchen may move an order from one status to another.
func ValidStatusTransition(from, to string) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusPreparing || to == OrderStatusCancelled
	case OrderStatusPreparing:
		return to == OrderStatusReady
	case OrderStatusReady:
		return to == OrderStatusDelivered
	}
	return false
}

// NextStatus is the forward step used by the "advance" button.
func NextStatus(status string) (string, bool) {
	switch status {
	case OrderStatusPending:
		return OrderStatusPreparing, true
	case OrderStatusPreparing:
		return OrderStatusReady, true
	case OrderStatusReady:
		return OrderStatusDelivered, true
	}
	return "", false
}

const (
	prepMinutesBeverage = 3
	prepMinutesFood     = 5
)

// EstimatedPrepMinutes is the kitchen's rough estimate: 3 minutes per beverage line, 5 per food line.
func EstimatedPrepMinutes(items []models.OrderItem) int {
	total := 0
	for _, it := range items {
		if it.Category == models.CategoryFood {
			total += prepMinutesFood
		} else {
			total += prepMinutesBeverage
		}
	}
	return total
}

// LoyaltyPointsEarned grants one point per whole real charged.
func LoyaltyPointsEarned(charged decimal.Decimal) int {
	if !charged.IsPositive() {
		return 0
	}
	return int(charged.Floor().IntPart())
}

// Checkout turns carts into paid orders.
type Checkout struct {
	Payments    PaymentProvider
	VoucherCost int // loyalty points spent by a voucher payment
}

type PlaceOrderInput struct {
	CustomerID int64
	Method     models.PaymentMethod
	Items      []CartLineInput // empty: use the stored cart
}

// PlaceOrder prices the lines, charges the discounted total and records the
// order, the loyalty movement and the emptied cart in one transaction.
func (c *Checkout) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	fromCart := len(in.Items) == 0
	lines := in.Items
	if fromCart {
		cart, err := GetCart(ctx, in.CustomerID)
		if err != nil {
			return nil, err
		}
		for _, it := range cart.Items {
			lines = append(lines, CartLineInput{
				DrinkID:        it.Drink.ID,
				Customizations: it.CustomizationNames(),
				Quantity:       it.Quantity,
			})
		}
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]models.CartItem, 0, len(lines))
	for _, line := range lines {
		item, err := BuildCartItem(ctx, line)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	subtotal := Subtotal(items)
	if err := checkAmount("order subtotal", subtotal); err != nil {
		return nil, err
	}
	charged, discount := ApplyDiscount(subtotal, in.Method)

	spend := 0
	if in.Method == models.PaymentVoucher {
		spend = c.VoucherCost
		u, err := GetUser(ctx, in.CustomerID)
		if err != nil {
			return nil, err
		}
		if u.LoyaltyPoints == nil || *u.LoyaltyPoints < spend {
			return nil, ErrInsufficientPoints
		}
	}

	ref, err := c.Payments.Charge(ctx, charged, in.Method)
	if err != nil {
		return nil, fmt.Errorf("charge: %w", err)
	}

	orderID, err := db.WithTx(ctx, func(tx pgx.Tx) (int64, error) {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (customer_id, customer_name, payment_method, payment_ref, subtotal, discount, total, currency, status)
			VALUES ($1, COALESCE((SELECT name FROM users WHERE id = $1), ''), $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			in.CustomerID, string(in.Method), ref, subtotal, discount, charged, models.Currency.String(), OrderStatusPending,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert order: %w", err)
		}

		for pos, it := range items {
			customsJSON, err := json.Marshal(it.Customizations)
			if err != nil {
				return 0, fmt.Errorf("marshal customizations: %w", err)
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO order_items (
					order_id, position, drink_id, drink_name, glyph, category,
					quantity, customizations, unit_price, total_price
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				id, pos, it.Drink.ID, it.Drink.Name, it.Drink.Glyph, it.Drink.Category,
				it.Quantity, customsJSON, it.UnitPrice(), it.TotalPrice,
			)
			if err != nil {
				return 0, fmt.Errorf("insert order item: %w", err)
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE users SET loyalty_points = loyalty_points - $1 + $2, updated_at = now()
			WHERE id = $3 AND loyalty_points >= $1`,
			spend, LoyaltyPointsEarned(charged), in.CustomerID,
		)
		if err != nil {
			return 0, fmt.Errorf("update loyalty: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrInsufficientPoints
		}

		if fromCart {
			if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE customer_id = $1`, in.CustomerID); err != nil {
				return 0, fmt.Errorf("clear cart: %w", err)
			}
		}
		return id, nil
	})
	if err != nil {
		log.Error().Err(err).Str("payment_ref", ref).Int64("customer", in.CustomerID).Msg("order not recorded after charge")
		return nil, err
	}
	return GetOrder(ctx, orderID)
}

const orderColumns = `
	o.id, o.customer_id, COALESCE(u.name, o.customer_name), o.payment_method, o.payment_ref,
	o.subtotal, o.discount, o.total, o.currency, o.status, o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var method string
	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &method, &o.PaymentRef,
		&o.Subtotal, &o.Discount, &o.Total, &o.Currency, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = models.PaymentMethod(method)
	o.Currency = strings.TrimSpace(o.Currency)
	if _, err := models.ParseCurrency(o.Currency); err != nil {
		return nil, fmt.Errorf("order %d currency %q: %w", o.ID, o.Currency, err)
	}
	o.Items = []models.OrderItem{}
	return &o, nil
}

func GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(db.Pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders o LEFT JOIN users u ON u.id = o.customer_id
		WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if err := loadOrderItems(ctx, []*models.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// OrderFilter narrows ListOrders; zero values match everything.
type OrderFilter struct {
	Status     string
	CustomerID int64
}

// ListOrders returns matching orders newest first.
func ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o LEFT JOIN users u ON u.id = o.customer_id
		WHERE ($1::text = '' OR o.status = $1::text)
		  AND ($2::bigint = 0 OR o.customer_id = $2::bigint)
		ORDER BY o.created_at DESC, o.id DESC`,
		f.Status, f.CustomerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadOrderItems(ctx, ptrs); err != nil {
		return nil, err
	}
	orders := make([]models.Order, 0, len(ptrs))
	for _, o := range ptrs {
		orders = append(orders, *o)
	}
	return orders, nil
}

// ListOrdersByCustomer is the order history of one client.
func ListOrdersByCustomer(ctx context.Context, customerID int64) ([]models.Order, error) {
	return ListOrders(ctx, OrderFilter{CustomerID: customerID})
}

func loadOrderItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT order_id, id, drink_id, drink_name, glyph, category, quantity,
			customizations, unit_price, total_price, prepared
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position`,
		ids,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var it models.OrderItem
		var customsJSON []byte
		if err := rows.Scan(&orderID, &it.ID, &it.DrinkID, &it.DrinkName, &it.Glyph, &it.Category, &it.Quantity,
			&customsJSON, &it.UnitPrice, &it.TotalPrice, &it.Prepared); err != nil {
			return err
		}
		it.Customizations = []models.Customization{}
		if len(customsJSON) > 0 {
			if err := json.Unmarshal(customsJSON, &it.Customizations); err != nil {
				return fmt.Errorf("failed to unmarshal customizations: %w", err)
			}
		}
		if o := byID[orderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func lockOrderStatus(ctx context.Context, tx pgx.Tx, id int64) (string, error) {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return status, err
}

func setOrderStatus(ctx context.Context, tx pgx.Tx, id int64, status string) error {
	_, err := tx.Exec(ctx, `UPDATE orders SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

// UpdateOrderStatus moves an order to newStatus if the transition is allowed.
func UpdateOrderStatus(ctx context.Context, id int64, newStatus string) (*models.Order, error) {
	_, err := db.WithTx(ctx, func(tx pgx.Tx) (struct{}, error) {
		current, err := lockOrderStatus(ctx, tx, id)
		if err != nil {
			return struct{}{}, err
		}
		if !ValidStatusTransition(current, newStatus) {
			return struct{}{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, newStatus)
		}
		return struct{}{}, setOrderStatus(ctx, tx, id, newStatus)
	})
	if err != nil {
		return nil, err
	}
	return GetOrder(ctx, id)
}

// AdvanceOrder moves an order one step forward (pending → preparing → ready → delivered).
func AdvanceOrder(ctx context.Context, id int64) (*models.Order, error) {
	_, err := db.WithTx(ctx, func(tx pgx.Tx) (struct{}, error) {
		current, err := lockOrderStatus(ctx, tx, id)
		if err != nil {
			return struct{}{}, err
		}
		next, ok := NextStatus(current)
		if !ok {
			return struct{}{}, fmt.Errorf("%w: %s is final", ErrInvalidTransition, current)
		}
		return struct{}{}, setOrderStatus(ctx, tx, id, next)
	})
	if err != nil {
		return nil, err
	}
	return GetOrder(ctx, id)
}

func CancelOrder(ctx context.Context, id int64) (*models.Order, error) {
	return UpdateOrderStatus(ctx, id, OrderStatusCancelled)
}

// MarkItemPrepared flags one line as done while the order is being prepared.
// The order turns ready once every line is done; statusChanged reports that.
func MarkItemPrepared(ctx context.Context, orderID, itemID int64) (order *models.Order, statusChanged bool, err error) {
	statusChanged, err = db.WithTx(ctx, func(tx pgx.Tx) (bool, error) {
		current, err := lockOrderStatus(ctx, tx, orderID)
		if err != nil {
			return false, err
		}
		if current != OrderStatusPreparing {
			return false, fmt.Errorf("%w: order %d is %s", ErrInvalidTransition, orderID, current)
		}
		tag, err := tx.Exec(ctx, `UPDATE order_items SET prepared = true WHERE id = $1 AND order_id = $2`, itemID, orderID)
		if err != nil {
			return false, err
		}
		if tag.RowsAffected() == 0 {
			return false, fmt.Errorf("order item %d: %w", itemID, ErrNotFound)
		}
		var remaining int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1 AND NOT prepared`, orderID).Scan(&remaining); err != nil {
			return false, err
		}
		if remaining > 0 {
			return false, nil
		}
		return true, setOrderStatus(ctx, tx, orderID, OrderStatusReady)
	})
	if err != nil {
		return nil, false, err
	}
	order, err = GetOrder(ctx, orderID)
	return order, statusChanged, err
}

func DeleteOrder(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return nil
}

// KitchenSummary counts the day's orders per status; revenue excludes cancelled orders.
func KitchenSummary(ctx context.Context, date string) (*models.KitchenSummary, error) {
	s := models.KitchenSummary{Date: date}
	err := db.Pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')::int,
			COUNT(*) FILTER (WHERE status = 'preparing')::int,
			COUNT(*) FILTER (WHERE status = 'ready')::int,
			COUNT(*) FILTER (WHERE status = 'delivered')::int,
			COUNT(*) FILTER (WHERE status = 'cancelled')::int,
			COALESCE(SUM(total) FILTER (WHERE status <> 'cancelled'), 0)
		FROM orders
		WHERE created_at::date = $1::text::date`,
		date,
	).Scan(&s.Pending, &s.Preparing, &s.Ready, &s.Delivered, &s.Cancelled, &s.Revenue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
