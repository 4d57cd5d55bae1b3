package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/middleware"
	"promptcraft-backend/internal/models"
)

type SessionHandler struct {
	jwt *middleware.JWTAuth
	log *logger.Logger
}

func NewSessionHandler(jwt *middleware.JWTAuth, log *logger.Logger) *SessionHandler {
	return &SessionHandler{jwt: jwt, log: log}
}

// Create issues a token for a brand new anonymous client.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.New()
	token, err := h.jwt.GenerateClientToken(clientID)
	if err != nil {
		h.log.Error("failed to sign client token", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create session", r))
		return
	}

	writeJSON(w, http.StatusCreated, models.SessionResponse{
		Token:     token,
		ClientID:  clientID.String(),
		ExpiresIn: int(middleware.SessionTTL.Seconds()),
	})
}

func (h *SessionHandler) Options(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.OptionsResponse{
		Tones:     models.ToneOptions,
		Formats:   models.FormatOptions,
		ChatModes: models.ChatModes,
	})
}
