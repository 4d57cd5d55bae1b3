package handlers

import (
	"io"
	"net/http"

	"promptcraft-backend/internal/models"
	"promptcraft-backend/internal/services"
)

type fileReader interface {
	Read(name, declaredType string, data []byte) (*models.AttachedFile, error)
}

type FileHandler struct {
	reader fileReader
}

func NewFileHandler(reader fileReader) *FileHandler {
	return &FileHandler{reader: reader}
}

// Upload turns a single multipart file into an attachment the client can
// send back with a generate request.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > services.MaxAttachmentBytes+(1<<20) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds 10MB limit", r))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxAttachmentBytes+(1<<20))

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxAttachmentBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}

	attached, err := h.reader.Read(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, attached)
}
