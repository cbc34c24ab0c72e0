package llm

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/emocare/emobot/internal/domain"
)

//go:embed prompt/personas.yaml
var personasYAML []byte

// Localized fallback replies shown instead of surfacing completion errors.
const (
	fallbackUnavailable = "Lo siento, no puedo conectarme con el servicio de IA ahora mismo."
	fallbackBadResponse = "Lo siento, tuve un problema al procesar la respuesta."
)

// promptWindow limits how many history turns are sent with each request.
const promptWindow = 8

// requestTimeout bounds a single completion call.
const requestTimeout = 30 * time.Second

// Completer produces an assistant reply for a user message. Implementations
// never fail the caller: on any error they return a fallback reply.
type Completer interface {
	Complete(ctx context.Context, userID, message string, persona domain.Persona, lastTopic string, history []domain.Turn) string
}

type personaPrompt struct {
	SystemPrompt string `yaml:"system_prompt"`
}

type personaPrompts struct {
	Peter personaPrompt `yaml:"peter"`
	Wuen  personaPrompt `yaml:"wuen"`
}

// Client talks to an OpenAI-compatible chat-completion endpoint (OpenRouter
// in production).
type Client struct {
	api     *openai.Client
	model   string
	prompts personaPrompts
	log     *zap.Logger
}

// NewClient builds a completion client for the given endpoint and model.
func NewClient(apiKey, baseURL, model string, log *zap.Logger) (*Client, error) {
	var prompts personaPrompts
	if err := yaml.Unmarshal(personasYAML, &prompts); err != nil {
		return nil, fmt.Errorf("parse personas yaml: %w", err)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   model,
		prompts: prompts,
		log:     log,
	}, nil
}

// systemPrompt returns the tone-setting prompt for a persona. Unknown
// personas fall back to Wuen, matching registration's default.
func (c *Client) systemPrompt(p domain.Persona) string {
	if p == domain.PersonaPeter {
		return c.prompts.Peter.SystemPrompt
	}
	return c.prompts.Wuen.SystemPrompt
}

// Complete requests one assistant reply. The message list is: persona system
// prompt, optional last-topic system hint, up to the last 8 history turns,
// then the new user message. Any failure is logged and mapped to a fixed
// fallback reply.
func (c *Client) Complete(ctx context.Context, userID, message string, persona domain.Persona, lastTopic string, history []domain.Turn) string {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: c.systemPrompt(persona)},
	}
	if lastTopic != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "Último tema del usuario: " + lastTopic,
		})
	}
	turns := history
	if len(turns) > promptWindow {
		turns = turns[len(turns)-promptWindow:]
	}
	for _, turn := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   512,
		Temperature: 0.8,
	})
	if err != nil {
		c.log.Error("completion request failed",
			zap.String("userID", userID), zap.Error(err))
		return fallbackUnavailable
	}

	if len(resp.Choices) == 0 {
		c.log.Error("completion response has no choices",
			zap.String("userID", userID))
		return fallbackBadResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		c.log.Error("completion response has empty content",
			zap.String("userID", userID))
		return fallbackBadResponse
	}
	return content
}
