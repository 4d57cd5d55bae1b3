package models

type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

// ChatMode selects the model and capabilities used for a conversation.
type ChatMode string

const (
	ChatModeStandard    ChatMode = "standard"
	ChatModeFast        ChatMode = "fast"
	ChatModeWeb         ChatMode = "web"
	ChatModeDeepThought ChatMode = "deep-thought"
)

var ChatModes = []ChatMode{ChatModeStandard, ChatModeFast, ChatModeWeb, ChatModeDeepThought}

func IsValidChatMode(m ChatMode) bool {
	for _, valid := range ChatModes {
		if m == valid {
			return true
		}
	}
	return false
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	ID        string           `json:"id"`
	Role      ChatRole         `json:"role"`
	Text      string           `json:"text"`
	Sources   []GroundingChunk `json:"sources,omitempty"`
	IsLoading bool             `json:"isLoading,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// ChatClientFrame is a message sent by the client over the chat socket.
type ChatClientFrame struct {
	Type    string   `json:"type"` // "send" or "mode"
	Message string   `json:"message,omitempty"`
	Mode    ChatMode `json:"mode,omitempty"`
}

// ChatServerFrame is a message pushed to the client over the chat socket.
type ChatServerFrame struct {
	Type     string           `json:"type"`
	ID       string           `json:"id,omitempty"`
	Mode     ChatMode         `json:"mode,omitempty"`
	Text     string           `json:"text,omitempty"`
	Sources  []GroundingChunk `json:"sources,omitempty"`
	Error    string           `json:"error,omitempty"`
	Kind     string           `json:"kind,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Message  *ChatMessage     `json:"message,omitempty"`
	Messages []ChatMessage    `json:"messages,omitempty"`
}
