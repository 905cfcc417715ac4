package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
)

// Claims is the payload of the storefront's bearer tokens.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Security verifies HS256 bearer tokens and resolves the caller's role from
// the user store.
type Security struct {
	secret []byte
	users  auth.UserRepository
}

// NewSecurity creates a Security. An empty secret rejects every token.
func NewSecurity(secret string, users auth.UserRepository) *Security {
	return &Security{secret: []byte(secret), users: users}
}

// Issue signs a token for userID.
func (s *Security) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// identify resolves the caller of r. It returns auth.ErrUnauthenticated for
// missing, malformed or expired tokens and for unknown users.
func (s *Security) identify(ctx context.Context, r *http.Request) (*auth.Identity, error) {
	raw := bearer(r)
	if raw == "" || len(s.secret) == 0 {
		return nil, auth.ErrUnauthenticated
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, auth.ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "load user")
	}
	role := u.Role
	if role == "" {
		role = auth.RoleUser
	}
	return &auth.Identity{UserID: u.ID, Role: role}, nil
}

// Authenticate rejects requests without a valid token.
func (s *Security) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(r.Context(), r)
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = zctx.With(ctx, zap.String("user_id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Optional attaches the caller when a valid token is present and lets the
// request through anonymously otherwise.
func (s *Security) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(r.Context(), r)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				zctx.From(r.Context()).Warn("Ignoring token", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.FromContext(r.Context()).IsAdmin() {
			fail(w, r, auth.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
