package insight

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/runnerr0/dreamlog/internal/apperror"
	"github.com/runnerr0/dreamlog/internal/config"
)

// Generator turns one text prompt into one text response.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// LLMGenerator calls a langchaingo model with a single prompt.
type LLMGenerator struct {
	model       llms.Model
	temperature float64
}

// NewLLMGenerator wraps an existing langchaingo model.
func NewLLMGenerator(model llms.Model) *LLMGenerator {
	return &LLMGenerator{model: model, temperature: 0.7}
}

// NewOllamaGenerator connects to a local Ollama server. Generation stays on
// the user's machine.
func NewOllamaGenerator(cfg config.AIConfig) (*LLMGenerator, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.OllamaURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return NewLLMGenerator(llm), nil
}

// NewGenerator builds the configured generator. A disabled AI section
// yields an ExternalServiceUnavailable error.
func NewGenerator(cfg config.AIConfig) (Generator, error) {
	if !cfg.Enabled {
		return nil, apperror.ServiceUnavailable("insight.NewGenerator", nil)
	}
	switch cfg.Provider {
	case "", "ollama":
		g, err := NewOllamaGenerator(cfg)
		if err != nil {
			return nil, apperror.ServiceUnavailable("insight.NewGenerator", err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

// Generate sends prompt and returns the full completion text.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g.model, prompt, llms.WithTemperature(g.temperature))
}
