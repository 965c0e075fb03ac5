// Package llm renders replies with a language model through langchaingo.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Providers accepted by NewFromConfig.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const systemPrompt = `Eres el asistente de una librería online. Reescribe el BORRADOR como una
respuesta breve y cordial en el idioma del cliente. No cambies títulos, cantidades,
precios, números de pedido ni estados, y no prometas nada que el borrador no diga.
Conserva las listas en Markdown. Responde solo con el texto final.`

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("model returned no content")

// Config selects and configures a provider.
type Config struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// Generator implements ports.TextGenerator on an llms.Model.
type Generator struct {
	model       llms.Model
	temperature float64
	maxTokens   int
}

// Option configures a Generator.
type Option func(*Generator)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		g.maxTokens = n
	}
}

// New wraps model.
func New(model llms.Model, opts ...Option) *Generator {
	g := &Generator{model: model, temperature: 0.3, maxTokens: 400}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewFromConfig builds the provider client described by cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Generator, error) {
	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		o := []openai.Option{}
		if cfg.APIKey != "" {
			o = append(o, openai.WithToken(cfg.APIKey))
		}
		if cfg.Model != "" {
			o = append(o, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			o = append(o, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(o...)
	case ProviderOllama:
		o := []ollama.Option{}
		if cfg.Model != "" {
			o = append(o, ollama.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			o = append(o, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(o...)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", cfg.Provider, err)
	}
	return New(model, opts...), nil
}

var _ ports.TextGenerator = (*Generator)(nil)

// Generate asks the model to rephrase req.Draft.
func (g *Generator) Generate(ctx context.Context, req ports.GenerationRequest) (string, error) {
	resp, err := g.model.GenerateContent(ctx, Prompt(req),
		llms.WithTemperature(g.temperature),
		llms.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// Prompt lays out the system instructions, the conversation tail and the
// structured facts of the turn.
func Prompt(req ports.GenerationRequest) []llms.MessageContent {
	msgs := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt)}

	for _, m := range req.History {
		role := llms.ChatMessageTypeHuman
		if m.Role == domain.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		msgs = append(msgs, llms.TextParts(role, m.Text))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INTENCIÓN: %s\n", req.Intent)
	if len(req.Missing) > 0 {
		fields := make([]string, len(req.Missing))
		for i, f := range req.Missing {
			fields[i] = string(f)
		}
		fmt.Fprintf(&b, "FALTAN: %s\n", strings.Join(fields, ", "))
	}
	if req.Result != nil {
		if facts, err := json.Marshal(req.Result.Payload); err == nil {
			fmt.Fprintf(&b, "DATOS: %s\n", facts)
		}
	}
	fmt.Fprintf(&b, "BORRADOR:\n%s", req.Draft)
	return append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, b.String()))
}
