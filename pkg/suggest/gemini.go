// pkg/suggest/gemini.go
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiBackend obtains guidance from the Gemini API instead of a local
// server. The state machine around it is unchanged: a failing Gemini
// call degrades to the CLI fallback and then to unavailable.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// GeminiConfig configures the Gemini backend.
type GeminiConfig struct {
	APIKey string
	Model  string

	// BaseURL overrides the API endpoint, useful for tests and proxies.
	BaseURL string
}

// NewGeminiBackend builds a Gemini backend.
func NewGeminiBackend(ctx context.Context, cfg GeminiConfig) (*GeminiBackend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("gemini: model is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &GeminiBackend{client: client, model: strings.TrimSpace(cfg.Model)}, nil
}

func (b *GeminiBackend) Name() string  { return "gemini" }
func (b *GeminiBackend) Model() string { return b.model }

// Probe is a no-op for the hosted API; reachability problems surface on
// the first generate attempt instead.
func (b *GeminiBackend) Probe(ctx context.Context) error {
	return ctx.Err()
}

// Generate submits one prompt and returns the plain-text response.
func (b *GeminiBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.client.Models.GenerateContent(
		ctx,
		b.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{CandidateCount: 1},
	)
	if err != nil {
		return "", classifyGeminiErr(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: empty response from model")
	}
	return text, nil
}

func classifyGeminiErr(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			return &TransientError{Err: err}
		}
		return err
	}
	return &TransientError{Err: err}
}
