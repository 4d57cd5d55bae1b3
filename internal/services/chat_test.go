package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"promptcraft-backend/internal/models"
)

func collect(ch <-chan ChatChunk) []ChatChunk {
	var out []ChatChunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestRegistrySend_ConcatenatesAndYieldsLastSources(t *testing.T) {
	conv := &stubConversation{steps: []streamStep{
		{resp: &ModelResponse{Text: "Hel", Sources: []models.GroundingChunk{web("https://first", "1")}}},
		{resp: &ModelResponse{Text: "lo, "}},
		{resp: &ModelResponse{Sources: []models.GroundingChunk{web("https://second", "2"), {}}}},
		{resp: &ModelResponse{Text: "world"}},
		{resp: &ModelResponse{Sources: []models.GroundingChunk{{}}}},
	}}
	m := &stubModel{newStreamFn: func(ModeSpec) *stubConversation { return conv }}
	r := NewChatRegistry(m)

	chunks := collect(r.Send(context.Background(), "hi", models.ChatModeWeb))

	var text strings.Builder
	sourceYields := 0
	var last []models.GroundingChunk
	for i, c := range chunks {
		text.WriteString(c.Text)
		if c.Sources != nil {
			sourceYields++
			last = c.Sources
			if i != len(chunks)-1 {
				t.Fatal("sources must be yielded after the stream completes")
			}
		}
		if c.Err != nil {
			t.Fatalf("unexpected error chunk: %v", c.Err)
		}
	}
	if text.String() != "Hello, world" {
		t.Fatalf("unexpected text %q", text.String())
	}
	if sourceYields != 1 {
		t.Fatalf("expected exactly one sources chunk, got %d", sourceYields)
	}
	if len(last) != 1 || last[0].Web.URI != "https://second" {
		t.Fatalf("expected last non-empty filtered set, got %#v", last)
	}
}

func TestRegistrySend_NoSourcesNoSourceChunk(t *testing.T) {
	conv := &stubConversation{steps: []streamStep{{resp: &ModelResponse{Text: "a"}}}}
	m := &stubModel{newStreamFn: func(ModeSpec) *stubConversation { return conv }}

	for _, c := range collect(NewChatRegistry(m).Send(context.Background(), "hi", models.ChatModeStandard)) {
		if c.Sources != nil {
			t.Fatal("no sources chunk expected")
		}
	}
}

func TestRegistrySend_ErrorTerminatesAfterPartialText(t *testing.T) {
	conv := &stubConversation{steps: []streamStep{
		{resp: &ModelResponse{Text: "partial"}},
		{err: errors.New("stream broke")},
		{resp: &ModelResponse{Text: "never"}},
	}}
	m := &stubModel{newStreamFn: func(ModeSpec) *stubConversation { return conv }}

	chunks := collect(NewChatRegistry(m).Send(context.Background(), "hi", models.ChatModeStandard))
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %#v", len(chunks), chunks)
	}
	if chunks[0].Text != "partial" {
		t.Fatalf("unexpected first chunk %#v", chunks[0])
	}
	if chunks[1].Err == nil || chunks[1].Err.Kind != KindService {
		t.Fatalf("expected terminal service error, got %#v", chunks[1])
	}
}

func TestRegistrySend_ConfigurationErrorOnFirstUse(t *testing.T) {
	m := &stubModel{convErr: ErrMissingAPIKey}
	r := NewChatRegistry(m)

	chunks := collect(r.Send(context.Background(), "hi", models.ChatModeFast))
	if len(chunks) != 1 || chunks[0].Err == nil || chunks[0].Err.Kind != KindConfiguration {
		t.Fatalf("expected one configuration error chunk, got %#v", chunks)
	}
	if r.Has(models.ChatModeFast) {
		t.Fatal("failed handles must not be cached")
	}
}

func TestRegistry_ReusesHandlePerMode(t *testing.T) {
	m := &stubModel{}
	r := NewChatRegistry(m)
	ctx := context.Background()

	collect(r.Send(ctx, "one", models.ChatModeStandard))
	collect(r.Send(ctx, "two", models.ChatModeStandard))
	collect(r.Send(ctx, "three", models.ChatModeDeepThought))

	if len(m.created) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(m.created))
	}
	if m.created[0].Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected standard model %q", m.created[0].Model)
	}
	if m.created[1].Capabilities.ThinkingBudget != deepThoughtBudget {
		t.Fatalf("deep-thought must enable the thinking budget, got %+v", m.created[1].Capabilities)
	}
}

func TestRegistrySend_InvalidInput(t *testing.T) {
	r := NewChatRegistry(&stubModel{})

	for _, tc := range []struct {
		msg  string
		mode models.ChatMode
	}{
		{"  ", models.ChatModeStandard},
		{"hi", models.ChatMode("turbo")},
	} {
		chunks := collect(r.Send(context.Background(), tc.msg, tc.mode))
		if len(chunks) != 1 || chunks[0].Err == nil || chunks[0].Err.Kind != KindInvalidInput {
			t.Fatalf("expected invalid input for %q/%q, got %#v", tc.msg, tc.mode, chunks)
		}
	}
}

func TestRegistrySend_CancelStopsProducer(t *testing.T) {
	conv := &stubConversation{steps: []streamStep{
		{resp: &ModelResponse{Text: "a"}},
		{resp: &ModelResponse{Text: "b"}},
	}}
	m := &stubModel{newStreamFn: func(ModeSpec) *stubConversation { return conv }}
	ctx, cancel := context.WithCancel(context.Background())

	ch := NewChatRegistry(m).Send(ctx, "hi", models.ChatModeStandard)
	<-ch
	cancel()
	for range ch {
	}
}

func TestSpecForMode_WebEnablesSearch(t *testing.T) {
	spec, ok := SpecForMode(models.ChatModeWeb)
	if !ok || !spec.Capabilities.SearchGrounding {
		t.Fatalf("web mode must enable search grounding: %+v", spec)
	}
	if _, ok := SpecForMode("nope"); ok {
		t.Fatal("unknown mode must not resolve")
	}
}

func TestChatSession_SendBuildsMessages(t *testing.T) {
	conv := &stubConversation{steps: []streamStep{
		{resp: &ModelResponse{Text: "Hi "}},
		{resp: &ModelResponse{Text: "there", Sources: []models.GroundingChunk{web("https://s", "S")}}},
	}}
	m := &stubModel{newStreamFn: func(ModeSpec) *stubConversation { return conv }}
	s := NewChatSession(NewChatRegistry(m))

	var frames []models.ChatServerFrame
	if err := s.Send(context.Background(), "  hello  ", func(f models.ChatServerFrame) { frames = append(frames, f) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected greeting + user + model, got %d", len(msgs))
	}
	if msgs[1].Role != models.RoleUser || msgs[1].Text != "hello" {
		t.Fatalf("unexpected user message %#v", msgs[1])
	}
	reply := msgs[2]
	if reply.Text != "Hi there" || reply.IsLoading || len(reply.Sources) != 1 || reply.Error != "" {
		t.Fatalf("unexpected model message %#v", reply)
	}
	if frames[len(frames)-1].Type != "done" {
		t.Fatalf("expected final done frame, got %q", frames[len(frames)-1].Type)
	}
	if s.Busy() {
		t.Fatal("session must be idle after Send returns")
	}
	if len(conv.messages) != 1 || conv.messages[0] != "hello" {
		t.Fatalf("unexpected messages sent to model: %#v", conv.messages)
	}
}

func TestChatSession_ErrorFinalizesMessage(t *testing.T) {
	conv := &stubConversation{steps: []streamStep{
		{resp: &ModelResponse{Text: "par"}},
		{err: errors.New("API key not valid")},
	}}
	m := &stubModel{newStreamFn: func(ModeSpec) *stubConversation { return conv }}
	s := NewChatSession(NewChatRegistry(m))

	if err := s.Send(context.Background(), "hello", func(models.ChatServerFrame) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reply := s.Messages()[2]
	if reply.Error != "[API Key Error] The configured API key was rejected." {
		t.Fatalf("unexpected error text %q", reply.Error)
	}
	if reply.Text != "" || reply.IsLoading {
		t.Fatalf("unexpected reply state %#v", reply)
	}
}

func TestChatSession_SwitchModeResetsToGreeting(t *testing.T) {
	m := &stubModel{}
	reg := NewChatRegistry(m)
	s := NewChatSession(reg)
	ctx := context.Background()

	if err := s.Send(ctx, "hello", func(models.ChatServerFrame) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SwitchMode(models.ChatModeWeb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ID != GreetingID || msgs[0].Text != GreetingText {
		t.Fatalf("expected only the greeting, got %#v", msgs)
	}
	if s.Mode() != models.ChatModeWeb {
		t.Fatalf("unexpected mode %q", s.Mode())
	}
	if !reg.Has(models.ChatModeStandard) {
		t.Fatal("switching modes must keep the standard conversation handle")
	}
}

func TestChatSession_SwitchModeIgnoredWhileBusy(t *testing.T) {
	s := NewChatSession(NewChatRegistry(&stubModel{}))
	s.busy = true

	if err := s.SwitchMode(models.ChatModeFast); !errors.Is(err, ErrChatBusy) {
		t.Fatalf("expected ErrChatBusy, got %v", err)
	}
	if err := s.Send(context.Background(), "hi", func(models.ChatServerFrame) {}); !errors.Is(err, ErrChatBusy) {
		t.Fatalf("expected ErrChatBusy, got %v", err)
	}
	if s.Mode() != models.ChatModeStandard {
		t.Fatal("mode must not change while busy")
	}
}

func TestChatSession_RejectsInvalidInput(t *testing.T) {
	s := NewChatSession(NewChatRegistry(&stubModel{}))
	requireKind(t, s.Send(context.Background(), "   ", func(models.ChatServerFrame) {}), KindInvalidInput)
	requireKind(t, s.SwitchMode("turbo"), KindInvalidInput)
}
