package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/muratkomurcu/october4mama/internal/domain/auth"
	"github.com/muratkomurcu/october4mama/internal/domain/review"
)

type reviewResponse struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

func toReview(r *review.Review) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

type reviewListResponse struct {
	Count int `json:"count"`
	// AvgRating has one decimal place and is null without reviews.
	AvgRating *string          `json:"avgRating"`
	Reviews   []reviewResponse `json:"reviews"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

// GET /api/reviews/{id}
func (h *Handler) productReviews(w http.ResponseWriter, r *http.Request) {
	l, err := h.reviews.List(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	out := reviewListResponse{
		Count:   len(l.Reviews),
		Reviews: make([]reviewResponse, 0, len(l.Reviews)),
	}
	if l.Average != nil {
		avg := l.Average.StringFixed(1)
		out.AvgRating = &avg
	}
	for i := range l.Reviews {
		out.Reviews = append(out.Reviews, toReview(&l.Reviews[i]))
	}
	respond(w, r, http.StatusOK, out)
}

// POST /api/reviews/{id}
func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := h.decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	rv, err := h.reviews.Create(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"), req.Rating, req.Comment)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, envelope{Success: true, Message: "review added", Data: toReview(rv)})
}

// DELETE /api/reviews/{id}
func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	respondMessage(w, r, "review deleted")
}
