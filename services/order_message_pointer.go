package services

import (
	"context"
	"errors"

	"terracafe/db"

	"github.com/jackc/pgx/v5"
)

// GetOrderMessagePointer returns where the kitchen card of an order was posted.
// ok is false if the card was never sent.
func GetOrderMessagePointer(ctx context.Context, orderID int64) (chatID int64, messageID int, ok bool, err error) {
	err = db.Pool.QueryRow(ctx, `
		SELECT chat_id, message_id FROM order_message_pointers WHERE order_id = $1`,
		orderID,
	).Scan(&chatID, &messageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	return chatID, messageID, true, nil
}

// UpsertOrderMessagePointer remembers the kitchen card so later status changes edit it in place.
func UpsertOrderMessagePointer(ctx context.Context, orderID, chatID int64, messageID int) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO order_message_pointers (order_id, chat_id, message_id, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (order_id) DO UPDATE SET chat_id = EXCLUDED.chat_id, message_id = EXCLUDED.message_id, updated_at = now()`,
		orderID, chatID, messageID,
	)
	return err
}
