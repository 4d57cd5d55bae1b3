package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"promptcraft-backend/internal/models"
	"promptcraft-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// statusForKind maps an error kind to the HTTP status reported to clients.
// Upstream failures are reported as bad gateway, not as the upstream code.
func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindInvalidInput:
		return http.StatusBadRequest
	case services.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case services.KindAPIKey, services.KindNetwork, services.KindAPI, services.KindService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var aiErr *services.AIError
	var notFound *services.NotFoundError

	switch {
	case errors.As(err, &aiErr):
		writeJSON(w, statusForKind(aiErr.Kind), models.ErrorResponse{
			Error: models.APIError{
				Code:      string(aiErr.Kind),
				Label:     aiErr.Label(),
				Message:   aiErr.Message,
				RequestID: r.Header.Get("X-Request-ID"),
			},
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", notFound.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func writeAttachment(w http.ResponseWriter, filename string, data interface{}) {
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
