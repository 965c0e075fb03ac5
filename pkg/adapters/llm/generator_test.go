package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/bookflow/pkg/adapters/llm"
	"github.com/aretw0/bookflow/pkg/domain"
	"github.com/aretw0/bookflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel records the prompt and answers with a canned response.
type fakeModel struct {
	reply    *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, o := range options {
		o(&m.opts)
	}
	return m.reply, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textOf(t *testing.T, mc llms.MessageContent) string {
	t.Helper()
	require.Len(t, mc.Parts, 1)
	part, ok := mc.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestGenerator_Generate(t *testing.T) {
	model := &fakeModel{reply: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "  ¡Claro! Tenemos Emma.  "}}}}
	gen := llm.New(model, llm.WithTemperature(0.1), llm.WithMaxTokens(50))

	result := domain.Success(domain.IntentSearch, domain.Payload{Query: "austen", Books: []domain.Book{{ID: 3, Title: "Emma", Price: 999}}})
	text, err := gen.Generate(context.Background(), ports.GenerationRequest{
		Intent: domain.IntentSearch,
		Result: &result,
		Draft:  "Encontré 1 libro para \"austen\"",
		History: []domain.Message{
			{Role: domain.RoleUser, Text: "hola"},
			{Role: domain.RoleAssistant, Text: "¿En qué te ayudo?"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "¡Claro! Tenemos Emma.", text)

	require.Len(t, model.messages, 4)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, model.messages[2].Role)

	last := textOf(t, model.messages[3])
	assert.Contains(t, last, "INTENCIÓN: search")
	assert.Contains(t, last, `"title":"Emma"`)
	assert.Contains(t, last, "BORRADOR:\nEncontré 1 libro")

	assert.Equal(t, 0.1, model.opts.Temperature)
	assert.Equal(t, 50, model.opts.MaxTokens)
}

func TestGenerator_ListsMissingFields(t *testing.T) {
	msgs := llm.Prompt(ports.GenerationRequest{
		Intent:  domain.IntentAddToCart,
		Missing: []domain.Field{domain.FieldBookReference, domain.FieldQuantity},
		Draft:   "¿Qué libro?",
	})
	require.Len(t, msgs, 2)
	assert.Contains(t, textOf(t, msgs[1]), "FALTAN: book_reference, quantity")
}

func TestGenerator_Errors(t *testing.T) {
	boom := errors.New("rate limited")
	_, err := llm.New(&fakeModel{err: boom}).Generate(context.Background(), ports.GenerationRequest{Draft: "x"})
	assert.ErrorIs(t, err, boom)

	_, err = llm.New(&fakeModel{reply: &llms.ContentResponse{}}).Generate(context.Background(), ports.GenerationRequest{Draft: "x"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestNewFromConfig_UnknownProvider(t *testing.T) {
	_, err := llm.NewFromConfig(llm.Config{Provider: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unknown llm provider")
}

func TestNewFromConfig_Ollama(t *testing.T) {
	gen, err := llm.NewFromConfig(llm.Config{Provider: "ollama", Model: "llama3", BaseURL: "http://127.0.0.1:11434"})
	require.NoError(t, err)
	assert.NotNil(t, gen)
}
