package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"promptcraft-backend/internal/models"
)

const (
	GreetingID   = "init-0"
	GreetingText = "Hello! I am your AI Assistant. How can I assist you today?"
)

var ErrChatBusy = errors.New("a chat request is already in progress")

// ChatChunk is one increment of a chat reply. A zero field means "no update
// in this increment", never "cleared".
type ChatChunk struct {
	Text    string
	Sources []models.GroundingChunk
	Err     *AIError
}

// ChatRegistry owns one conversation handle per mode for the lifetime of a
// page session. Handles are created on first use and never evicted.
type ChatRegistry struct {
	model ModelClient

	mu            sync.Mutex
	conversations map[models.ChatMode]Conversation
}

func NewChatRegistry(model ModelClient) *ChatRegistry {
	return &ChatRegistry{
		model:         model,
		conversations: make(map[models.ChatMode]Conversation),
	}
}

// Has reports whether a handle already exists for mode.
func (r *ChatRegistry) Has(mode models.ChatMode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conversations[mode]
	return ok
}

func (r *ChatRegistry) conversation(ctx context.Context, mode models.ChatMode) (Conversation, error) {
	spec, ok := SpecForMode(mode)
	if !ok {
		return nil, newInvalidInput("Unknown chat mode %q.", mode)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if conv, ok := r.conversations[mode]; ok {
		return conv, nil
	}
	conv, err := r.model.NewConversation(ctx, spec)
	if err != nil {
		return nil, err
	}
	r.conversations[mode] = conv
	return conv, nil
}

// Send streams the reply to message in the conversation for mode. The
// channel yields text increments in arrival order, then at most one
// sources increment carrying the last non-empty citation set, or a single
// terminal error increment. It is closed when the stream ends or ctx is
// cancelled.
func (r *ChatRegistry) Send(ctx context.Context, message string, mode models.ChatMode) <-chan ChatChunk {
	out := make(chan ChatChunk)

	go func() {
		defer close(out)

		emit := func(c ChatChunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if strings.TrimSpace(message) == "" {
			emit(ChatChunk{Err: newInvalidInput("Message cannot be empty.")})
			return
		}

		conv, err := r.conversation(ctx, mode)
		if err != nil {
			emit(ChatChunk{Err: ClassifyError(err)})
			return
		}

		var sources []models.GroundingChunk
		for resp, err := range conv.SendStream(ctx, message) {
			if err != nil {
				emit(ChatChunk{Err: ClassifyError(err)})
				return
			}
			if resp == nil {
				continue
			}
			if resp.Text != "" {
				if !emit(ChatChunk{Text: resp.Text}) {
					return
				}
			}
			if filtered := FilterSources(resp.Sources); len(filtered) > 0 {
				sources = filtered
			}
		}

		if len(sources) > 0 {
			emit(ChatChunk{Sources: sources})
		}
	}()

	return out
}

// ChatSession is the visible conversation of one page: the selected mode,
// the rendered messages and whether a reply is in flight.
type ChatSession struct {
	registry *ChatRegistry
	now      func() time.Time

	mu       sync.Mutex
	mode     models.ChatMode
	messages []models.ChatMessage
	busy     bool
	seq      int
}

func NewChatSession(registry *ChatRegistry) *ChatSession {
	return &ChatSession{
		registry: registry,
		now:      time.Now,
		mode:     models.ChatModeStandard,
		messages: []models.ChatMessage{greeting()},
	}
}

func greeting() models.ChatMessage {
	return models.ChatMessage{ID: GreetingID, Role: models.RoleModel, Text: GreetingText}
}

func (s *ChatSession) Mode() models.ChatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *ChatSession) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Messages returns a copy of the visible conversation.
func (s *ChatSession) Messages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// SwitchMode selects mode and resets the visible conversation to the
// greeting. Other modes keep their conversation handles. It is refused
// while a reply is in flight.
func (s *ChatSession) SwitchMode(mode models.ChatMode) error {
	if !models.IsValidChatMode(mode) {
		return newInvalidInput("Unknown chat mode %q.", mode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy {
		return ErrChatBusy
	}
	s.mode = mode
	s.messages = []models.ChatMessage{greeting()}
	return nil
}

// Send appends the user message and a pending model message, streams the
// reply into it and reports progress through emit. It blocks until the
// reply is complete.
func (s *ChatSession) Send(ctx context.Context, text string, emit func(models.ChatServerFrame)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return newInvalidInput("Message cannot be empty.")
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrChatBusy
	}
	s.busy = true
	mode := s.mode
	userMsg := models.ChatMessage{ID: s.nextID("user"), Role: models.RoleUser, Text: text}
	modelMsg := models.ChatMessage{ID: s.nextID("model"), Role: models.RoleModel, IsLoading: true}
	s.messages = append(s.messages, userMsg, modelMsg)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	emit(models.ChatServerFrame{Type: "message", Message: &userMsg})
	emit(models.ChatServerFrame{Type: "message", Message: &modelMsg})

	var full strings.Builder
	var sources []models.GroundingChunk
	var errText string

	for chunk := range s.registry.Send(ctx, text, mode) {
		if chunk.Text != "" {
			full.WriteString(chunk.Text)
			current := full.String()
			s.update(modelMsg.ID, func(m *models.ChatMessage) {
				m.Text = current
				m.IsLoading = false
			})
			emit(models.ChatServerFrame{Type: "chunk", ID: modelMsg.ID, Text: chunk.Text})
		}
		if len(chunk.Sources) > 0 {
			sources = chunk.Sources
			emit(models.ChatServerFrame{Type: "sources", ID: modelMsg.ID, Sources: sources})
		}
		if chunk.Err != nil {
			errText = chunk.Err.Error()
			emit(models.ChatServerFrame{Type: "error", ID: modelMsg.ID, Error: errText, Kind: string(chunk.Err.Kind)})
		}
	}

	final := s.update(modelMsg.ID, func(m *models.ChatMessage) {
		m.IsLoading = false
		m.Sources = sources
		m.Error = errText
		if errText != "" {
			m.Text = ""
		}
	})
	emit(models.ChatServerFrame{Type: "done", ID: modelMsg.ID, Message: &final})
	return nil
}

func (s *ChatSession) update(id string, fn func(m *models.ChatMessage)) models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			fn(&s.messages[i])
			return s.messages[i]
		}
	}
	return models.ChatMessage{ID: id}
}

// nextID must be called with s.mu held.
func (s *ChatSession) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d-%d", prefix, s.now().UnixMilli(), s.seq)
}
