package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muratkomurcu/october4mama/internal/domain/order"
)

const (
	orderColumns = `id, order_number, user_id, guest_full_name, guest_email, guest_phone, shipping_address,
		product_total, shipping_cost, discount_amount, total, coupon_code, payment_method,
		payment_status, order_status, payment_token, conversation_id, payment_id, transaction_id,
		tracking_number, notes, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (id, order_number, user_id, guest_full_name, guest_email, guest_phone,
		shipping_address, product_total, shipping_cost, discount_amount, total, coupon_code, payment_method,
		payment_status, order_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	getOrderByIDSQL     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	getOrderByNumberSQL = `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	getOrderByTokenSQL  = `SELECT ` + orderColumns + ` FROM orders WHERE payment_token = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE (payment_status = 'pending') = $1 AND ($2 = '' OR user_id = $2)
		ORDER BY created_at DESC`

	orderItemsSQL = `SELECT order_id, product_id, name, image, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	attachTokenSQL = `UPDATE orders SET payment_token = $2, conversation_id = order_number, updated_at = now()
		WHERE id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`

	settleOrderSQL = `UPDATE orders SET payment_status = 'paid',
		payment_token = COALESCE(NULLIF($2, ''), payment_token),
		conversation_id = COALESCE(NULLIF($3, ''), conversation_id),
		payment_id = COALESCE(NULLIF($4, ''), payment_id),
		transaction_id = COALESCE(NULLIF($5, ''), transaction_id),
		updated_at = now()
		WHERE id = $1 AND payment_status = 'pending'
		RETURNING coupon_code`

	takeStockSQL = `UPDATE products p SET stock_quantity = p.stock_quantity - i.quantity,
		in_stock = p.stock_quantity - i.quantity > 0, updated_at = now()
		FROM (SELECT product_id, SUM(quantity) AS quantity FROM order_items WHERE order_id = $1 GROUP BY product_id) i
		WHERE p.id = i.product_id
		RETURNING p.id, p.stock_quantity`

	returnStockSQL = `UPDATE products p SET stock_quantity = p.stock_quantity + i.quantity,
		in_stock = p.stock_quantity + i.quantity > 0, updated_at = now()
		FROM (SELECT product_id, SUM(quantity) AS quantity FROM order_items WHERE order_id = $1 GROUP BY product_id) i
		WHERE p.id = i.product_id`

	countCouponUseSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1 AND used_count < max_uses`

	cancelPaymentSQL = `UPDATE orders SET payment_status = 'cancelled', updated_at = now()
		WHERE id = $1 AND payment_status = 'pending'`

	updateStatusSQL = `UPDATE orders SET order_status = $3,
		tracking_number = COALESCE($4, tracking_number), updated_at = now()
		WHERE id = $1 AND order_status = $2`

	deletePendingBeforeSQL = `DELETE FROM orders WHERE payment_status = 'pending' AND created_at < $1`

	hasPurchasedSQL = `SELECT EXISTS (SELECT 1 FROM orders o JOIN order_items i ON i.order_id = o.id
		WHERE o.user_id = $1 AND i.product_id = $2 AND o.payment_status = 'paid')`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	orderNumberConstraint = "orders_order_number_key"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Every
// multi-row change runs in a single transaction.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order together with its lines.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if err := o.CheckOwner(); err != nil {
		return err
	}

	var (
		userID                *string
		guestName, guestEmail *string
		guestPhone            *string
	)
	if o.UserID != "" {
		userID = &o.UserID
	}
	if o.Guest != nil {
		guestName, guestEmail, guestPhone = &o.Guest.FullName, &o.Guest.Email, &o.Guest.Phone
	}

	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createOrderSQL,
			o.ID, o.Number, userID, guestName, guestEmail, guestPhone,
			o.ShippingAddress, o.ProductTotal, o.ShippingCost, o.DiscountAmount, o.Total, o.CouponCode,
			string(o.PaymentMethod), string(o.PaymentStatus), string(o.Status), o.CreatedAt, o.UpdatedAt,
		); err != nil {
			return err
		}

		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"order_items"},
			[]string{"order_id", "position", "product_id", "name", "image", "quantity", "unit_price", "subtotal"},
			pgx.CopyFromSlice(len(o.Items), func(i int) ([]any, error) {
				it := o.Items[i]
				return []any{o.ID, i, it.ProductID, it.Name, it.Image, it.Quantity, it.UnitPrice, it.Subtotal}, nil
			}),
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err, orderNumberConstraint) {
			return order.ErrDuplicateNumber
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return getOrder(ctx, r.pool, getOrderByIDSQL, id)
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return getOrder(ctx, r.pool, getOrderByNumberSQL, number)
}

func (r *OrderRepository) GetByPaymentToken(ctx context.Context, token string) (*order.Order, error) {
	if token == "" {
		return nil, order.ErrNotFound
	}
	return getOrder(ctx, r.pool, getOrderByTokenSQL, token)
}

func getOrder(ctx context.Context, q querier, query, arg string) (*order.Order, error) {
	rows, err := q.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", arg, err)
	}

	orders := []order.Order{o}
	if err := loadItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) AttachPaymentToken(ctx context.Context, id, token string) error {
	tag, err := r.pool.Exec(ctx, attachTokenSQL, id, token)
	if err != nil {
		return fmt.Errorf("attaching payment token to order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, f.Pending, f.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := loadItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func loadItems(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := q.Query(ctx, orderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      order.Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Image, &it.Quantity, &it.UnitPrice, &it.Subtotal); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return rows.Err()
}

// Settle flips a pending order to paid, takes its stock and counts its coupon
// in one transaction. Stock may go negative when concurrent checkouts oversold
// a product; those products are reported back.
func (r *OrderRepository) Settle(ctx context.Context, id string, ref order.PaymentRef) (*order.Settlement, error) {
	st := &order.Settlement{}
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var couponCode string
		err := tx.QueryRow(ctx, settleOrderSQL, id, ref.Token, ref.ConversationID, ref.PaymentID, ref.TransactionID).
			Scan(&couponCode)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			o, err := getOrder(ctx, tx, getOrderByIDSQL, id)
			if err != nil {
				return err
			}
			st.Order = o
			return nil
		case err != nil:
			return err
		}
		st.Settled = true

		rows, err := tx.Query(ctx, takeStockSQL, id)
		if err != nil {
			return err
		}
		stock, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (stockRow, error) {
			var s stockRow
			err := row.Scan(&s.productID, &s.remaining)
			return s, err
		})
		if err != nil {
			return err
		}
		for _, s := range stock {
			if s.remaining < 0 {
				st.Oversold = append(st.Oversold, s.productID)
			}
		}

		if couponCode != "" {
			tag, err := tx.Exec(ctx, countCouponUseSQL, couponCode)
			if err != nil {
				return err
			}
			st.CouponCounted = tag.RowsAffected() == 1
		}

		st.Order, err = getOrder(ctx, tx, getOrderByIDSQL, id)
		return err
	})
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("settling order %q: %w", id, err)
	}
	return st, nil
}

type stockRow struct {
	productID string
	remaining int
}

func (r *OrderRepository) CancelPayment(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, cancelPaymentSQL, id)
	if err != nil {
		return false, fmt.Errorf("cancelling payment of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	return false, r.mustExist(ctx, id)
}

// UpdateStatus applies ch and, when asked, returns the stock in the same
// transaction. Nothing is written when the status moved in the meantime.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, ch order.StatusChange) (bool, error) {
	var applied bool
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateStatusSQL, id, string(ch.From), string(ch.To), ch.TrackingNumber)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		applied = true
		if ch.Restock {
			if _, err := tx.Exec(ctx, returnStockSQL, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if !applied {
		return false, r.mustExist(ctx, id)
	}
	return true, nil
}

func (r *OrderRepository) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, deletePendingBeforeSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting stale pending orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *OrderRepository) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, hasPurchasedSQL, userID, productID).Scan(&ok); err != nil {
		return false, fmt.Errorf("checking purchase of %q by %q: %w", productID, userID, err)
	}
	return ok, nil
}

func (r *OrderRepository) mustExist(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                 order.Order
		userID, token                     *string
		guestName, guestEmail, guestPhone *string
		method, paymentStatus, status     string
	)
	err := row.Scan(
		&o.ID, &o.Number, &userID, &guestName, &guestEmail, &guestPhone, &o.ShippingAddress,
		&o.ProductTotal, &o.ShippingCost, &o.DiscountAmount, &o.Total, &o.CouponCode, &method,
		&paymentStatus, &status, &token, &o.Payment.ConversationID, &o.Payment.PaymentID, &o.Payment.TransactionID,
		&o.TrackingNumber, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return order.Order{}, fmt.Errorf("scanning order row: %w", err)
	}
	if userID != nil {
		o.UserID = *userID
	}
	if token != nil {
		o.Payment.Token = *token
	}
	if guestEmail != nil {
		o.Guest = &order.Guest{Email: *guestEmail}
		if guestName != nil {
			o.Guest.FullName = *guestName
		}
		if guestPhone != nil {
			o.Guest.Phone = *guestPhone
		}
	}
	o.PaymentMethod = order.PaymentMethod(method)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	o.Status = order.Status(status)
	return o, nil
}
