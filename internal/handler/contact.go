package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/muratkomurcu/october4mama/internal/domain/contact"
)

type contactMessageRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type contactReceipt struct {
	ID string `json:"id"`
}

type contactResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

func toContact(m *contact.Message) contactResponse {
	return contactResponse{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Body,
		IsRead:    m.Read,
		CreatedAt: m.CreatedAt,
	}
}

// POST /api/contact
func (h *Handler) sendContactMessage(w http.ResponseWriter, r *http.Request) {
	var req contactMessageRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	m := &contact.Message{Name: req.Name, Email: req.Email, Subject: req.Subject, Body: req.Message}
	if err := h.contact.Send(r.Context(), m); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, envelope{
		Success: true,
		Message: "your message has been sent",
		Data:    contactReceipt{ID: m.ID},
	})
}

// GET /api/contact
func (h *Handler) contactMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.contact.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	out := make([]contactResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, toContact(&msgs[i]))
	}
	respond(w, r, http.StatusOK, out)
}

// PUT /api/contact/{id}/read
func (h *Handler) markContactMessageRead(w http.ResponseWriter, r *http.Request) {
	m, err := h.contact.MarkRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, toContact(m))
}

// DELETE /api/contact/{id}
func (h *Handler) deleteContactMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.contact.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	respondMessage(w, r, "message deleted")
}
