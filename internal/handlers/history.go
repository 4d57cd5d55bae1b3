package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"promptcraft-backend/internal/middleware"
	"promptcraft-backend/internal/models"
	"promptcraft-backend/internal/services"
)

type historyStore interface {
	List(ctx context.Context, clientID uuid.UUID) ([]models.HistoryItem, error)
	Get(ctx context.Context, clientID uuid.UUID, id string) (*models.HistoryItem, error)
	Clear(ctx context.Context, clientID uuid.UUID) error
}

type HistoryHandler struct {
	history historyStore
	now     func() time.Time
}

func NewHistoryHandler(history historyStore) *HistoryHandler {
	return &HistoryHandler{history: history, now: time.Now}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort")
	order := r.URL.Query().Get("order")
	if sortBy != "" && sortBy != "timestamp" && sortBy != "userInput" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "sort must be timestamp or userInput", r))
		return
	}
	if order != "" && order != "asc" && order != "desc" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "order must be asc or desc", r))
		return
	}

	items, err := h.history.List(r.Context(), middleware.GetClientID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch history", r))
		return
	}

	items = services.SortHistory(items, sortBy, order)
	writeJSON(w, http.StatusOK, models.HistoryListResponse{Items: items, Total: len(items)})
}

func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context(), middleware.GetClientID(r.Context())); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to clear history", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "History cleared"})
}

func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.history.Get(r.Context(), middleware.GetClientID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *HistoryHandler) Export(w http.ResponseWriter, r *http.Request) {
	item, err := h.history.Get(r.Context(), middleware.GetClientID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	artifact, filename := services.BuildExport(item.Params, item.Result, h.now())
	writeAttachment(w, filename, artifact)
}
