package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muratkomurcu/october4mama/internal/domain/contact"
)

const (
	messageColumns = `id, name, email, subject, body, is_read, created_at`

	createMessageSQL = `INSERT INTO contact_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	listMessagesSQL = `SELECT ` + messageColumns + ` FROM contact_messages ORDER BY created_at DESC`

	markMessageReadSQL = `UPDATE contact_messages SET is_read = TRUE WHERE id = $1 RETURNING ` + messageColumns

	deleteMessageSQL = `DELETE FROM contact_messages WHERE id = $1`
)

var _ contact.Repository = (*ContactRepository)(nil)

// ContactRepository stores contact form submissions.
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository returns a ContactRepository that uses the given pool.
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

func (r *ContactRepository) Create(ctx context.Context, m *contact.Message) error {
	if _, err := r.pool.Exec(ctx, createMessageSQL,
		m.ID, m.Name, m.Email, m.Subject, m.Body, m.Read, m.CreatedAt); err != nil {
		return fmt.Errorf("creating contact message: %w", err)
	}
	return nil
}

func (r *ContactRepository) List(ctx context.Context) ([]contact.Message, error) {
	rows, err := r.pool.Query(ctx, listMessagesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing contact messages: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("scanning contact messages: %w", err)
	}
	return msgs, nil
}

func (r *ContactRepository) MarkRead(ctx context.Context, id string) (*contact.Message, error) {
	rows, err := r.pool.Query(ctx, markMessageReadSQL, id)
	if err != nil {
		return nil, fmt.Errorf("marking message %q read: %w", id, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMessage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contact.ErrNotFound
		}
		return nil, fmt.Errorf("marking message %q read: %w", id, err)
	}
	return &m, nil
}

func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteMessageSQL, id)
	if err != nil {
		return fmt.Errorf("deleting message %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func scanMessage(row pgx.CollectableRow) (contact.Message, error) {
	var m contact.Message
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Body, &m.Read, &m.CreatedAt)
	return m, err
}
