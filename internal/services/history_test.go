package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/models"
)

func newTestHistory(kv *memoryKV) *HistoryService {
	h := NewHistoryService(kv, logger.Nop())
	clock := time.UnixMilli(1_700_000_000_000)
	h.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return h
}

func TestHistory_RecordPrependsMostRecentFirst(t *testing.T) {
	kv := newMemoryKV()
	h := newTestHistory(kv)
	client := uuid.New()
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		p := models.PromptGenerationParams{UserInput: fmt.Sprintf("goal %d", i)}
		if _, err := h.Record(ctx, client, p, models.PromptResult{Prompt: "p"}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	items, err := h.List(ctx, client)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != n {
		t.Fatalf("expected %d items, got %d", n, len(items))
	}
	for i, item := range items {
		want := fmt.Sprintf("goal %d", n-1-i)
		if item.Params.UserInput != want {
			t.Fatalf("index %d: expected %q, got %q", i, want, item.Params.UserInput)
		}
		if i > 0 && item.Timestamp >= items[i-1].Timestamp {
			t.Fatal("items must be in reverse-chronological order")
		}
	}

	ids := map[string]bool{}
	for _, item := range items {
		if ids[item.ID] {
			t.Fatalf("duplicate id %s", item.ID)
		}
		ids[item.ID] = true
	}
}

func TestHistory_ClearRemovesKey(t *testing.T) {
	kv := newMemoryKV()
	h := newTestHistory(kv)
	client := uuid.New()
	ctx := context.Background()

	h.Record(ctx, client, models.PromptGenerationParams{UserInput: "g"}, models.PromptResult{})
	if err := h.Clear(ctx, client); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := kv.data[HistoryKey(client)]; ok {
		t.Fatal("expected persisted key to be removed")
	}
	items, _ := h.List(ctx, client)
	if len(items) != 0 {
		t.Fatalf("expected empty history, got %d", len(items))
	}
}

func TestHistory_CorruptDataResets(t *testing.T) {
	kv := newMemoryKV()
	h := newTestHistory(kv)
	client := uuid.New()
	kv.data[HistoryKey(client)] = "{not json"

	items, err := h.List(context.Background(), client)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty list, got %d", len(items))
	}
	if _, ok := kv.data[HistoryKey(client)]; ok {
		t.Fatal("corrupt key must be cleared")
	}
}

func TestHistory_StripsFileContent(t *testing.T) {
	kv := newMemoryKV()
	h := newTestHistory(kv)
	client := uuid.New()
	p := models.PromptGenerationParams{
		UserInput: "g",
		File:      &models.AttachedFile{Name: "notes.txt", Type: "text/plain", Content: "secret body"},
	}

	item, err := h.Record(context.Background(), client, p, models.PromptResult{})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if item.Params.File != nil {
		t.Fatal("file content must be stripped")
	}
	if item.Params.FileInfo == nil || item.Params.FileInfo.Name != "notes.txt" || item.Params.FileInfo.Type != "text/plain" {
		t.Fatalf("unexpected descriptor %#v", item.Params.FileInfo)
	}
	if strings.Contains(kv.data[HistoryKey(client)], "secret body") {
		t.Fatal("persisted history must not contain file content")
	}
	if p.File == nil {
		t.Fatal("caller params must not be mutated")
	}
}

func TestHistory_IsolatedPerClient(t *testing.T) {
	kv := newMemoryKV()
	h := newTestHistory(kv)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	h.Record(ctx, a, models.PromptGenerationParams{UserInput: "a"}, models.PromptResult{})
	items, _ := h.List(ctx, b)
	if len(items) != 0 {
		t.Fatal("clients must not see each other's history")
	}
}

func TestHistory_GetNotFound(t *testing.T) {
	h := newTestHistory(newMemoryKV())
	_, err := h.Get(context.Background(), uuid.New(), "missing")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestHistory_RecordPropagatesStoreFailure(t *testing.T) {
	kv := newMemoryKV()
	kv.failSet = errors.New("quota exceeded")
	h := newTestHistory(kv)

	if _, err := h.Record(context.Background(), uuid.New(), models.PromptGenerationParams{UserInput: "g"}, models.PromptResult{}); err == nil {
		t.Fatal("expected store failure to surface to the caller")
	}
}

func TestSortHistory(t *testing.T) {
	items := []models.HistoryItem{
		{ID: "1", Timestamp: 100, Params: models.PromptGenerationParams{UserInput: "banana"}},
		{ID: "2", Timestamp: 300, Params: models.PromptGenerationParams{UserInput: "Apple"}},
		{ID: "3", Timestamp: 200, Params: models.PromptGenerationParams{UserInput: "cherry"}},
	}

	tests := []struct {
		key, order string
		want       string
	}{
		{"", "", "231"},
		{"timestamp", "asc", "132"},
		{"userInput", "asc", "213"},
		{"userInput", "desc", "312"},
	}

	for _, tc := range tests {
		t.Run(tc.key+"_"+tc.order, func(t *testing.T) {
			var got strings.Builder
			for _, item := range SortHistory(items, tc.key, tc.order) {
				got.WriteString(item.ID)
			}
			if got.String() != tc.want {
				t.Fatalf("expected order %s, got %s", tc.want, got.String())
			}
		})
	}
	if items[0].ID != "1" {
		t.Fatal("SortHistory must not reorder its input")
	}
}

func TestBuildExport(t *testing.T) {
	now := time.UnixMilli(1_700_000_123_456).UTC()
	p := models.PromptGenerationParams{UserInput: "g", File: &models.AttachedFile{Name: "a.png", Type: "image/png", Content: "data:..."}}

	artifact, name := BuildExport(p, models.PromptResult{Prompt: "final"}, now)
	if name != "prompt-export-1700000123456.json" {
		t.Fatalf("unexpected file name %q", name)
	}
	if artifact.ExportedAt != now.Format(time.RFC3339) {
		t.Fatalf("unexpected timestamp %q", artifact.ExportedAt)
	}
	if artifact.Result.Prompt != "final" || artifact.Parameters.File != nil || artifact.Parameters.FileInfo == nil {
		t.Fatalf("unexpected artifact %#v", artifact)
	}
}
