package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
)

const (
	getUserSQL = `SELECT id, full_name, email, phone, role FROM users WHERE id = $1`

	upsertUserSQL = `INSERT INTO users (id, full_name, email, phone, role) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name, email = EXCLUDED.email,
		phone = EXCLUDED.phone, role = EXCLUDED.role`
)

var _ auth.UserRepository = (*UserRepository)(nil)

// UserRepository resolves the contact details of token subjects.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := r.pool.QueryRow(ctx, getUserSQL, id).Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user %q: %w", id, err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func (r *UserRepository) Upsert(ctx context.Context, u *auth.User) error {
	role := u.Role
	if role == "" {
		role = auth.RoleUser
	}
	if _, err := r.pool.Exec(ctx, upsertUserSQL, u.ID, u.FullName, u.Email, u.Phone, string(role)); err != nil {
		return fmt.Errorf("upserting user %q: %w", u.ID, err)
	}
	return nil
}
