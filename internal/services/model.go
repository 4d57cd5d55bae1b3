package services

import (
	"context"
	"iter"

	"promptcraft-backend/internal/models"
)

// Capabilities toggles optional model features for one request or
// conversation.
type Capabilities struct {
	SearchGrounding bool
	ThinkingBudget  int32 // 0 leaves the model default
}

// InlineData is a binary part sent next to the text instructions.
type InlineData struct {
	MIMEType string
	Data     []byte
}

type ModelRequest struct {
	Model        string
	Text         string
	Inline       *InlineData
	Capabilities Capabilities
}

// ModelResponse is one complete answer, or one fragment of a stream.
// Sources are passed through unfiltered.
type ModelResponse struct {
	Text    string
	Sources []models.GroundingChunk
}

// ModeSpec is the fixed model/capability pair behind a chat mode.
type ModeSpec struct {
	Model        string
	Capabilities Capabilities
}

// Conversation keeps model-side context across turns.
type Conversation interface {
	SendStream(ctx context.Context, message string) iter.Seq2[*ModelResponse, error]
}

// ModelClient is the hosted model API as seen by the composer and chat.
type ModelClient interface {
	Generate(ctx context.Context, req ModelRequest) (*ModelResponse, error)
	NewConversation(ctx context.Context, spec ModeSpec) (Conversation, error)
}

const (
	ComposerModel = "gemini-2.5-flash"

	deepThoughtBudget int32 = 32768
)

var chatModeTable = map[models.ChatMode]ModeSpec{
	models.ChatModeStandard: {Model: "gemini-2.5-flash"},
	models.ChatModeFast:     {Model: "gemini-2.5-flash-lite"},
	models.ChatModeWeb: {
		Model:        "gemini-2.5-flash",
		Capabilities: Capabilities{SearchGrounding: true},
	},
	models.ChatModeDeepThought: {
		Model:        "gemini-2.5-pro",
		Capabilities: Capabilities{ThinkingBudget: deepThoughtBudget},
	},
}

// SpecForMode returns the model configuration for a chat mode.
func SpecForMode(mode models.ChatMode) (ModeSpec, bool) {
	spec, ok := chatModeTable[mode]
	return spec, ok
}
