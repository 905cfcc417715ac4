// Package contact keeps the messages sent through the storefront contact
// form for the admins to read.
package contact

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for unknown message ids.
	ErrNotFound = errors.New("message not found")
	// ErrInvalid wraps missing or malformed form fields.
	ErrInvalid = errors.New("invalid contact message")
)

var validate = validator.New()

// Message is one contact form submission.
type Message struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Body      string
	Read      bool
	CreatedAt time.Time
}

// Repository stores messages. List returns newest first.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	List(ctx context.Context) ([]Message, error)
	MarkRead(ctx context.Context, id string) (*Message, error)
	Delete(ctx context.Context, id string) error
}

// Service implements the contact inbox.
type Service struct {
	messages Repository
	now      func() time.Time
}

// NewService returns a contact service.
func NewService(messages Repository) *Service {
	return &Service{messages: messages, now: time.Now}
}

// Send validates and stores a message.
func (s *Service) Send(ctx context.Context, m *Message) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Body = strings.TrimSpace(m.Body)
	switch {
	case m.Name == "":
		return errors.Wrap(ErrInvalid, "name is required")
	case m.Subject == "":
		return errors.Wrap(ErrInvalid, "subject is required")
	case m.Body == "":
		return errors.Wrap(ErrInvalid, "message is required")
	}
	if err := validate.Var(m.Email, "required,email"); err != nil {
		return errors.Wrap(ErrInvalid, "a valid email address is required")
	}

	m.ID = uuid.NewString()
	m.Read = false
	m.CreatedAt = s.now()
	if err := s.messages.Create(ctx, m); err != nil {
		return errors.Wrap(err, "create message")
	}
	zctx.From(ctx).Info("Contact message received",
		zap.String("id", m.ID),
		zap.String("subject", m.Subject),
	)
	return nil
}

// List returns every message, newest first.
func (s *Service) List(ctx context.Context) ([]Message, error) {
	msgs, err := s.messages.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	return msgs, nil
}

// MarkRead flags a message as read and returns it.
func (s *Service) MarkRead(ctx context.Context, id string) (*Message, error) {
	m, err := s.messages.MarkRead(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "mark message read")
	}
	return m, nil
}

// Delete removes a message.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.messages.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "delete message")
	}
	return nil
}
