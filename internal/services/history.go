package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/models"
	"promptcraft-backend/internal/repository"
)

const historyKeyPrefix = "promptHistory:"

// HistoryService keeps each client's generations as one JSON array under a
// single key, most recent first.
type HistoryService struct {
	store repository.KVStore
	log   *logger.Logger
	now   func() time.Time
	newID func() string
}

func NewHistoryService(store repository.KVStore, log *logger.Logger) *HistoryService {
	return &HistoryService{
		store: store,
		log:   log.With("component", "history"),
		now:   time.Now,
		newID: newHistoryID,
	}
}

func newHistoryID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func HistoryKey(clientID uuid.UUID) string {
	return historyKeyPrefix + clientID.String()
}

// List returns the stored items. Corrupt data is discarded and the key
// removed.
func (h *HistoryService) List(ctx context.Context, clientID uuid.UUID) ([]models.HistoryItem, error) {
	key := HistoryKey(clientID)
	raw, err := h.store.Get(ctx, key)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return []models.HistoryItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items []models.HistoryItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		h.log.Warn("Discarding corrupt history", "client_id", clientID, "error", err)
		if delErr := h.store.Delete(ctx, key); delErr != nil {
			h.log.Error("Failed to clear corrupt history", "client_id", clientID, "error", delErr)
		}
		return []models.HistoryItem{}, nil
	}
	if items == nil {
		items = []models.HistoryItem{}
	}
	return items, nil
}

// Record prepends a generation and rewrites the stored list. File content
// is replaced by a name/type descriptor.
func (h *HistoryService) Record(ctx context.Context, clientID uuid.UUID, params models.PromptGenerationParams, result models.PromptResult) (*models.HistoryItem, error) {
	items, err := h.List(ctx, clientID)
	if err != nil {
		return nil, err
	}

	item := models.HistoryItem{
		ID:        h.newID(),
		Params:    stripFileContent(params),
		Result:    result,
		Timestamp: h.now().UnixMilli(),
	}
	items = append([]models.HistoryItem{item}, items...)

	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	if err := h.store.Set(ctx, HistoryKey(clientID), string(data)); err != nil {
		return nil, err
	}
	return &item, nil
}

func (h *HistoryService) Get(ctx context.Context, clientID uuid.UUID, id string) (*models.HistoryItem, error) {
	items, err := h.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			return &items[i], nil
		}
	}
	return nil, &NotFoundError{Message: "History item not found"}
}

func (h *HistoryService) Clear(ctx context.Context, clientID uuid.UUID) error {
	return h.store.Delete(ctx, HistoryKey(clientID))
}

func stripFileContent(p models.PromptGenerationParams) models.PromptGenerationParams {
	if p.File != nil {
		p.FileInfo = &models.FileDescriptor{Name: p.File.Name, Type: p.File.Type}
		p.File = nil
	}
	return p
}

// SortHistory orders a copy of items by "timestamp" (default) or
// "userInput", "asc" or "desc" (default).
func SortHistory(items []models.HistoryItem, key, order string) []models.HistoryItem {
	sorted := make([]models.HistoryItem, len(items))
	copy(sorted, items)

	less := func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp }
	if key == "userInput" {
		less = func(i, j int) bool {
			return strings.ToLower(sorted[i].Params.UserInput) < strings.ToLower(sorted[j].Params.UserInput)
		}
	}

	if order == "asc" {
		sort.SliceStable(sorted, less)
	} else {
		sort.SliceStable(sorted, func(i, j int) bool { return less(j, i) })
	}
	return sorted
}

// BuildExport wraps a generation into the downloadable artifact and its
// file name.
func BuildExport(params models.PromptGenerationParams, result models.PromptResult, now time.Time) (models.ExportArtifact, string) {
	artifact := models.ExportArtifact{
		Parameters: stripFileContent(params),
		Result:     result,
		ExportedAt: now.UTC().Format(time.RFC3339),
	}
	return artifact, fmt.Sprintf("prompt-export-%d.json", now.UnixMilli())
}
