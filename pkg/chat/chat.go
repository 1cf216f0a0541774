// pkg/chat/chat.go
package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tablebot/tablebot/pkg/storage"
)

const (
	// maxHistoryMessages bounds how much persisted context one reply sees.
	maxHistoryMessages = 20

	// maxContextChars bounds the rendered conversation context.
	maxContextChars = 15000

	defaultSystemPrompt = `You are a helpful assistant that provides clear and concise answers.
Be friendly, informative, and respectful in your responses.
If you're unsure about something, admit it rather than making up information.`

	unavailableReply = "Sorry, the language model is not reachable right now. Please try again later."
)

// Responder generates one reply for a rendered conversation prompt.
// The suggestion client's backends satisfy it.
type Responder interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service is the free-form chat mode with persisted per-user context.
type Service struct {
	records   storage.RecordStore
	responder Responder
	system    string
	logger    *zap.Logger
}

// NewService wires the chat service. An empty system prompt falls back
// to the default.
func NewService(records storage.RecordStore, responder Responder, system string, logger *zap.Logger) *Service {
	if strings.TrimSpace(system) == "" {
		system = defaultSystemPrompt
	}
	return &Service{records: records, responder: responder, system: system, logger: logger}
}

// Respond persists the user's message, generates a reply from the
// recent conversation context and persists that too. A model failure
// degrades to a canned reply rather than an error: losing chat history
// over a flaky model would be worse than an apology.
func (s *Service) Respond(ctx context.Context, userID int64, text string) (string, error) {
	if err := s.records.UpsertUser(ctx, userID); err != nil {
		return "", err
	}
	if err := s.records.AppendMessage(ctx, userID, "user", text); err != nil {
		return "", err
	}

	history, err := s.records.RecentMessages(ctx, userID, maxHistoryMessages)
	if err != nil {
		return "", err
	}

	reply, genErr := s.responder.Generate(ctx, s.renderPrompt(history))
	if genErr != nil {
		s.logger.Warn("chat reply generation failed",
			zap.Int64("user_id", userID), zap.Error(genErr))
		reply = unavailableReply
	}

	if err := s.records.AppendMessage(ctx, userID, "assistant", reply); err != nil {
		return "", err
	}
	return reply, nil
}

// renderPrompt flattens the system prompt plus history into one text
// prompt, trimming the oldest messages when the context grows too large.
func (s *Service) renderPrompt(history []storage.Message) string {
	lines := make([]string, 0, len(history)+2)
	lines = append(lines, s.system, "")
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	lines = append(lines, "assistant:")

	prompt := strings.Join(lines, "\n")
	for len(prompt) > maxContextChars && len(history) > 1 {
		history = history[1:]
		lines = lines[:0]
		lines = append(lines, s.system, "")
		for _, m := range history {
			lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
		}
		lines = append(lines, "assistant:")
		prompt = strings.Join(lines, "\n")
	}
	return prompt
}
