package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

// generateFunc sends one prompt to a text model and returns its raw reply.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// GeminiIntentParser is the IntentParser backed by Gemini.
type GeminiIntentParser struct {
	model    string
	vocab    domain.Vocabulary
	generate generateFunc
}

// NewGeminiIntentParser creates a Gemini client for apiKey. An empty key
// falls back to the GEMINI_API_KEY / GOOGLE_API_KEY environment variables
// read by the genai SDK.
func NewGeminiIntentParser(ctx context.Context, apiKey, model string, vocab domain.Vocabulary) (*GeminiIntentParser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiIntentParser: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0),
	}
	generate := func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		return resp.Text(), nil
	}
	return newIntentParser(model, vocab, generate), nil
}

func newIntentParser(model string, vocab domain.Vocabulary, generate generateFunc) *GeminiIntentParser {
	return &GeminiIntentParser{model: model, vocab: vocab, generate: generate}
}

// Model returns the model name used for requests.
func (p *GeminiIntentParser) Model() string { return p.model }

func (p *GeminiIntentParser) ParseAdd(ctx context.Context, text string, ref time.Time) (string, error) {
	return p.call(ctx, buildAddPrompt(text, ref, p.vocab))
}

func (p *GeminiIntentParser) ParseUpdate(ctx context.Context, text string, ref time.Time) (string, error) {
	return p.call(ctx, buildUpdatePrompt(text, ref, p.vocab))
}

func (p *GeminiIntentParser) call(ctx context.Context, prompt string) (string, error) {
	raw, err := p.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return raw, nil
}

// CleanModelJSON strips Markdown fences and any chatter around the JSON
// payload, keeping the text from the first '[' or '{' to the matching
// last ']' or '}'.
func CleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return strings.Trim(s, "`")
		}
		s = strings.TrimSpace(s[idx+1:])
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "]"
	if s[start] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
