package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"terracafe/db"

	"github.com/jackc/pgx/v5"
)

// Consecutive failed logins for an email double its cooldown: 2s, 4s, 8s,
// 16s and then loginCooldownCap until a successful login clears the row.

const loginCooldownCap = 30 * time.Second

// loginCooldown is the wait imposed once an email has failed n times in a row.
func loginCooldown(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	if failures >= 5 {
		return loginCooldownCap
	}
	return min(time.Duration(1<<failures)*time.Second, loginCooldownCap)
}

// LoginWaitSeconds returns how long email must wait before the next attempt,
// rounded up to whole seconds. Zero means it may try now.
func LoginWaitSeconds(ctx context.Context, email string) (int, error) {
	var wait int
	err := db.Pool.QueryRow(ctx, `
		SELECT CEIL(EXTRACT(EPOCH FROM cooldown_until - now()))::int
		FROM login_throttle
		WHERE email = $1 AND cooldown_until > now()`,
		email,
	).Scan(&wait)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("login wait: %w", err)
	}
	return wait, nil
}

// recordLoginFailure counts a failed attempt and starts the matching cooldown.
func recordLoginFailure(ctx context.Context, email string) (time.Duration, error) {
	return db.WithTx(ctx, func(tx pgx.Tx) (time.Duration, error) {
		var failures int
		err := tx.QueryRow(ctx, `
			INSERT INTO login_throttle (email, fail_count, last_failed_at, updated_at)
			VALUES ($1, 1, now(), now())
			ON CONFLICT (email) DO UPDATE SET
				fail_count = login_throttle.fail_count + 1,
				last_failed_at = now(),
				updated_at = now()
			RETURNING fail_count`,
			email,
		).Scan(&failures)
		if err != nil {
			return 0, fmt.Errorf("count failure: %w", err)
		}
		cooldown := loginCooldown(failures)
		_, err = tx.Exec(ctx, `
			UPDATE login_throttle SET cooldown_until = now() + make_interval(secs => $2)
			WHERE email = $1`,
			email, cooldown.Seconds(),
		)
		if err != nil {
			return 0, fmt.Errorf("set cooldown: %w", err)
		}
		return cooldown, nil
	})
}

func clearLoginFailures(ctx context.Context, email string) error {
	_, err := db.Pool.Exec(ctx, `DELETE FROM login_throttle WHERE email = $1`, email)
	return err
}
