package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	defaultGeminiModel = "gemini-2.0-flash"
	requestTimeout     = 45 * time.Second
)

var (
	ErrNotConfigured   = errors.New("composer: no api key configured")
	ErrEmptyCompletion = errors.New("composer: empty completion")
)

// Generator turns a system instruction and a prompt into text.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type Settings struct {
	Provider     string
	OpenAIAPIKey string
	GeminiAPIKey string
	Model        string
	// BaseURL overrides the provider endpoint; used against local stubs.
	BaseURL string
}

// New builds the generator for the configured provider. A missing key yields a
// generator that always fails, so callers fall back to their literal copy.
func New(ctx context.Context, s Settings) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", ProviderOpenAI:
		if s.OpenAIAPIKey == "" {
			return Disabled{}, nil
		}
		return NewOpenAI(s.OpenAIAPIKey, s.Model, s.BaseURL), nil
	case ProviderGemini:
		if s.GeminiAPIKey == "" {
			return Disabled{}, nil
		}
		model := s.Model
		if model == "" || strings.HasPrefix(model, "gpt-") {
			model = defaultGeminiModel
		}
		return NewGemini(ctx, s.GeminiAPIKey, model, s.BaseURL)
	default:
		return nil, fmt.Errorf("composer.New: unknown provider %q", s.Provider)
	}
}

type Disabled struct{}

func (Disabled) Generate(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

func clean(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
