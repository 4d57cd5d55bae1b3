package services

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"promptcraft-backend/internal/logger"
	"promptcraft-backend/internal/models"
)

// GeminiService implements ModelClient on the Gemini Developer API.
type GeminiService struct {
	apiKey   string
	log      *logger.Logger
	mu       sync.Mutex
	client   *genai.Client
	rateChan chan struct{} // Token bucket
}

// NewGeminiService does not contact the API. The client is created on the
// first call so a missing key only fails requests that need the model.
func NewGeminiService(apiKey string, concurrentReqs int, log *logger.Logger) *GeminiService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		apiKey:   apiKey,
		log:      log.With("component", "gemini"),
		rateChan: rateChan,
	}
}

func (s *GeminiService) getClient(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &AIError{
			Kind:    KindConfiguration,
			Message: fmt.Sprintf("failed to create Gemini client: %v", err),
			Err:     err,
		}
	}
	s.client = client
	return client, nil
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return &AIError{Kind: KindService, Message: "timeout waiting for Gemini rate slot"}
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

func (s *GeminiService) Generate(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	var parts []*genai.Part
	if req.Inline != nil {
		parts = append(parts, genai.NewPartFromBytes(req.Inline.Data, req.Inline.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Text))
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := client.Models.GenerateContent(ctx, req.Model, contents, buildContentConfig(req.Capabilities))
	if err != nil {
		return nil, err
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonStop {
			s.log.Warn("Gemini stopped early", "candidate", i, "finish_reason", cand.FinishReason)
		}
	}

	return toModelResponse(resp), nil
}

func (s *GeminiService) NewConversation(ctx context.Context, spec ModeSpec) (Conversation, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	chat, err := client.Chats.Create(ctx, spec.Model, buildContentConfig(spec.Capabilities), nil)
	if err != nil {
		return nil, err
	}
	s.log.Debug("Gemini conversation created", "model", spec.Model)
	return &geminiConversation{svc: s, chat: chat}, nil
}

type geminiConversation struct {
	svc  *GeminiService
	chat *genai.Chat
}

func (c *geminiConversation) SendStream(ctx context.Context, message string) iter.Seq2[*ModelResponse, error] {
	return func(yield func(*ModelResponse, error) bool) {
		if err := c.svc.acquireRate(ctx); err != nil {
			yield(nil, err)
			return
		}
		defer c.svc.releaseRate()

		for resp, err := range c.chat.SendMessageStream(ctx, *genai.NewPartFromText(message)) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(toModelResponse(resp), nil) {
				return
			}
		}
	}
}

// Helper functions

func buildContentConfig(caps Capabilities) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if caps.SearchGrounding {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	if caps.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(caps.ThinkingBudget)}
	}
	return cfg
}

func toModelResponse(resp *genai.GenerateContentResponse) *ModelResponse {
	out := &ModelResponse{}
	if resp == nil || len(resp.Candidates) == 0 {
		return out
	}
	cand := resp.Candidates[0]

	if cand.Content != nil {
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text.WriteString(part.Text)
		}
		out.Text = text.String()
	}

	if cand.GroundingMetadata != nil {
		for _, gc := range cand.GroundingMetadata.GroundingChunks {
			if gc == nil {
				continue
			}
			var chunk models.GroundingChunk
			if gc.Web != nil {
				chunk.Web = &models.WebSource{URI: gc.Web.URI, Title: gc.Web.Title}
			}
			if gc.Maps != nil {
				chunk.Maps = &models.MapsSource{URI: gc.Maps.URI, Title: gc.Maps.Title}
			}
			out.Sources = append(out.Sources, chunk)
		}
	}

	return out
}
