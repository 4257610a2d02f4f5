package offer

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unbox-labs/backend-unbox/internal/common"
	"github.com/unbox-labs/backend-unbox/internal/store"
)

// Handler wires offer reads to HTTP.
type Handler struct {
	Svc *Service
}

// List handles GET /api/v1/offers.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "offer service not configured")
		return
	}
	page, perPage := common.ParsePagination(r, 20)
	if perPage > 100 {
		perPage = 100
	}
	offset := (page - 1) * perPage

	views, err := h.Svc.List(r.Context(), perPage, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "unable to load offers")
		return
	}
	if views == nil {
		views = []View{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": views,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: len(views),
		},
	})
}

// Get handles GET /api/v1/offers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "offer service not configured")
		return
	}
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "offer not found")
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "unable to load offer")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}
