package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/middleware"
	"promptcraft-backend/internal/models"
	"promptcraft-backend/internal/services"
)

// maxPromptBody leaves room for a base64 encoded attachment.
const maxPromptBody = 16 << 20

type promptComposer interface {
	Generate(ctx context.Context, params models.PromptGenerationParams) (*models.PromptResult, error)
}

type historyRecorder interface {
	Record(ctx context.Context, clientID uuid.UUID, params models.PromptGenerationParams, result models.PromptResult) (*models.HistoryItem, error)
}

type PromptHandler struct {
	composer promptComposer
	history  historyRecorder
	log      *logger.Logger
	now      func() time.Time
}

func NewPromptHandler(composer promptComposer, history historyRecorder, log *logger.Logger) *PromptHandler {
	return &PromptHandler{
		composer: composer,
		history:  history,
		log:      log,
		now:      time.Now,
	}
}

func (h *PromptHandler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPromptBody)

	var params models.PromptGenerationParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	result, err := h.composer.Generate(r.Context(), params)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := models.GenerateResponse{Result: *result}

	// History is best effort; a storage failure never fails the generation.
	clientID := middleware.GetClientID(r.Context())
	item, err := h.history.Record(r.Context(), clientID, params, *result)
	if err != nil {
		h.log.Error("failed to record history", "client_id", clientID, "error", err)
	} else {
		resp.HistoryItem = item
	}

	writeJSON(w, http.StatusOK, resp)
}

// Export returns the supplied parameters and result as a downloadable file.
func (h *PromptHandler) Export(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPromptBody)

	var req models.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Result.Prompt == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Nothing to export", r))
		return
	}

	artifact, filename := services.BuildExport(req.Parameters, req.Result, h.now())
	writeAttachment(w, filename, artifact)
}
