// Package favorites exposes the per-user offer bookmark endpoints.
package favorites

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/unbox-labs/backend-unbox/internal/common"
	"github.com/unbox-labs/backend-unbox/internal/store"
)

// Store persists favorites.
type Store interface {
	Add(ctx context.Context, userID, offerID string) error
	Remove(ctx context.Context, userID, offerID string) error
	ListOffers(ctx context.Context, userID string, limit, offset int) ([]store.Offer, error)
}

// Handler wires favorites to HTTP. All routes require authentication.
type Handler struct {
	Store Store
}

// List handles GET /api/v1/favorites.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	offers, err := h.Store.ListOffers(r.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "unable to load favorites")
		return
	}

	type item struct {
		ID           string `json:"id"`
		MerchantName string `json:"merchant_name"`
		Title        string `json:"title"`
		Price        string `json:"price"`
		ImageURL     string `json:"image_url"`
	}
	items := make([]item, 0, len(offers))
	for _, o := range offers {
		items = append(items, item{
			ID:           o.ID,
			MerchantName: o.MerchantName,
			Title:        o.Title,
			Price:        o.Price.StringFixed(2),
			ImageURL:     o.ImageURL,
		})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// Add handles PUT /api/v1/favorites/{offerId}.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	userID, offerID, ok := h.params(w, r)
	if !ok {
		return
	}
	if err := h.Store.Add(r.Context(), userID, offerID); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "unable to save favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove handles DELETE /api/v1/favorites/{offerId}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, offerID, ok := h.params(w, r)
	if !ok {
		return
	}
	if err := h.Store.Remove(r.Context(), userID, offerID); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "unable to remove favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) params(w http.ResponseWriter, r *http.Request) (userID, offerID string, ok bool) {
	userID, authed := common.UserID(r.Context())
	if !authed {
		common.JSONError(w, http.StatusUnauthorized, "missing or invalid token")
		return "", "", false
	}
	offerID = chi.URLParam(r, "offerId")
	if _, err := uuid.Parse(offerID); err != nil {
		common.JSONError(w, http.StatusBadRequest, "invalid offer id")
		return "", "", false
	}
	return userID, offerID, true
}
