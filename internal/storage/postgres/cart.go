package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muratkomurcu/october4mama/internal/domain/cart"
)

const (
	getCartSQL = `SELECT updated_at FROM carts WHERE user_id = $1`

	getCartItemsSQL = `SELECT product_id, quantity, price, added_at FROM cart_items
		WHERE user_id = $1 ORDER BY added_at, product_id`

	upsertCartSQL = `INSERT INTO carts (user_id, updated_at) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository stores carts as a header row plus one row per line.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	c := &cart.Cart{UserID: userID}
	if err := r.pool.QueryRow(ctx, getCartSQL, userID).Scan(&c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart of %q: %w", userID, err)
	}

	rows, err := r.pool.Query(ctx, getCartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart items of %q: %w", userID, err)
	}
	c.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var it cart.Item
		err := row.Scan(&it.ProductID, &it.Quantity, &it.Price, &it.AddedAt)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cart items of %q: %w", userID, err)
	}
	return c, nil
}

// Save replaces the cart lines atomically.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	updated := c.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertCartSQL, c.UserID, updated); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, clearCartItemsSQL, c.UserID); err != nil {
			return err
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"cart_items"},
			[]string{"user_id", "product_id", "quantity", "price", "added_at"},
			pgx.CopyFromSlice(len(c.Items), func(i int) ([]any, error) {
				it := c.Items[i]
				return []any{c.UserID, it.ProductID, it.Quantity, it.Price, it.AddedAt}, nil
			}),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving cart of %q: %w", c.UserID, err)
	}
	return nil
}
