// pkg/chat/chat_test.go
package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/tablebot/tablebot/pkg/storage"
)

type memoryStore struct {
	storage.RecordStore

	users    map[int64]bool
	messages map[int64][]storage.Message
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    map[int64]bool{},
		messages: map[int64][]storage.Message{},
	}
}

func (m *memoryStore) UpsertUser(_ context.Context, userID int64) error {
	m.users[userID] = true
	return nil
}

func (m *memoryStore) AppendMessage(_ context.Context, userID int64, role, content string) error {
	m.messages[userID] = append(m.messages[userID], storage.Message{Role: role, Content: content})
	return nil
}

func (m *memoryStore) RecentMessages(_ context.Context, userID int64, limit int) ([]storage.Message, error) {
	msgs := m.messages[userID]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

type scriptedResponder struct {
	reply  string
	err    error
	prompt string
}

func (r *scriptedResponder) Generate(_ context.Context, prompt string) (string, error) {
	r.prompt = prompt
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

func TestRespondPersistsBothSides(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	responder := &scriptedResponder{reply: "Hello there."}
	svc := NewService(store, responder, "", zap.NewNop())

	reply, err := svc.Respond(context.Background(), 5, "hi")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply != "Hello there." {
		t.Errorf("reply = %q", reply)
	}

	msgs := store.messages[5]
	if len(msgs) != 2 {
		t.Fatalf("persisted %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[0].Content != "hi" {
		t.Errorf("first message = %+v, want the user turn", msgs[0])
	}
	if msgs[1].Role != "assistant" || msgs[1].Content != "Hello there." {
		t.Errorf("second message = %+v, want the assistant turn", msgs[1])
	}
	if !store.users[5] {
		t.Error("user was not upserted")
	}
}

func TestRespondIncludesHistory(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.messages[9] = []storage.Message{
		{Role: "user", Content: "what is a csv"},
		{Role: "assistant", Content: "a comma separated file"},
	}
	responder := &scriptedResponder{reply: "ok"}
	svc := NewService(store, responder, "", zap.NewNop())

	if _, err := svc.Respond(context.Background(), 9, "thanks"); err != nil {
		t.Fatalf("Respond: %v", err)
	}

	for _, want := range []string{
		"user: what is a csv",
		"assistant: a comma separated file",
		"user: thanks",
	} {
		if !strings.Contains(responder.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(strings.TrimSpace(responder.prompt), "assistant:") {
		t.Error("prompt does not end with the assistant cue")
	}
}

func TestRespondDegradesOnModelFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	responder := &scriptedResponder{err: errors.New("connection refused")}
	svc := NewService(store, responder, "", zap.NewNop())

	reply, err := svc.Respond(context.Background(), 3, "hi")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if reply != unavailableReply {
		t.Errorf("reply = %q, want the canned unavailable reply", reply)
	}
	// The conversation survives the outage.
	if len(store.messages[3]) != 2 {
		t.Errorf("persisted %d messages, want 2", len(store.messages[3]))
	}
}

func TestRenderPromptTrimsOldest(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemoryStore(), &scriptedResponder{}, "system", zap.NewNop())

	long := strings.Repeat("x", 7000)
	history := []storage.Message{
		{Role: "user", Content: "oldest " + long},
		{Role: "user", Content: "middle " + long},
		{Role: "user", Content: "newest " + long},
		{Role: "user", Content: "final"},
	}

	prompt := svc.renderPrompt(history)
	if len(prompt) > maxContextChars {
		t.Errorf("prompt length = %d, want at most %d", len(prompt), maxContextChars)
	}
	if strings.Contains(prompt, "oldest") {
		t.Error("oldest message survived trimming")
	}
	if !strings.Contains(prompt, "final") {
		t.Error("newest message was trimmed")
	}
}
