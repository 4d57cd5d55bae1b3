package services

import (
	"context"
	"iter"
	"sync"

	"promptcraft-backend/internal/models"
	"promptcraft-backend/internal/repository"
)

type stubModel struct {
	mu          sync.Mutex
	resp        *ModelResponse
	err         error
	calls       int
	lastReq     ModelRequest
	convErr     error
	created     []ModeSpec
	newStreamFn func(spec ModeSpec) *stubConversation
}

func (m *stubModel) Generate(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *stubModel) NewConversation(ctx context.Context, spec ModeSpec) (Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.convErr != nil {
		return nil, m.convErr
	}
	m.created = append(m.created, spec)
	if m.newStreamFn != nil {
		return m.newStreamFn(spec), nil
	}
	return &stubConversation{}, nil
}

type streamStep struct {
	resp *ModelResponse
	err  error
}

type stubConversation struct {
	mu       sync.Mutex
	steps    []streamStep
	messages []string
}

func (c *stubConversation) SendStream(ctx context.Context, message string) iter.Seq2[*ModelResponse, error] {
	c.mu.Lock()
	c.messages = append(c.messages, message)
	steps := c.steps
	c.mu.Unlock()

	return func(yield func(*ModelResponse, error) bool) {
		for _, s := range steps {
			if !yield(s.resp, s.err) {
				return
			}
			if s.err != nil {
				return
			}
		}
	}
}

type memoryKV struct {
	mu      sync.Mutex
	data    map[string]string
	failSet error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", repository.ErrKeyNotFound
	}
	return v, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func web(uri, title string) models.GroundingChunk {
	return models.GroundingChunk{Web: &models.WebSource{URI: uri, Title: title}}
}
