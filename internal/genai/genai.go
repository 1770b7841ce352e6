// Package genai generates marketing copy with the OpenAI chat API, shaped by
// the account's business profile.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/getemily/emily-api/internal/models"
)

// ErrNoAPIKey indicates the client was constructed without an API key.
var ErrNoAPIKey = errors.New("OpenAI API key not set")

// Opts holds configuration for the generator.
type Opts struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model overrides the default chat model.
	Model string
}

// Option configures generator construction.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// chatService is the slice of the OpenAI client exercised here, split out so
// tests can stub completions.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Generator produces post copy and campaign ideas.
type Generator struct {
	chat  chatService
	model string
}

// NewGenerator creates a generator backed by the OpenAI API.
func NewGenerator(opts ...Option) (*Generator, error) {
	cfg := Opts{Model: openai.ChatModelGPT4oMini}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("Creating genai Generator", "model", cfg.Model)
	return &Generator{chat: &client.Chat.Completions, model: cfg.Model}, nil
}

// GeneratedContent is the result of one generation call.
type GeneratedContent struct {
	Body     string `json:"body"`
	Platform string `json:"platform,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

// Generate produces a piece of content for the request, grounded in the
// business profile when one exists.
func (g *Generator) Generate(ctx context.Context, profile *models.BusinessProfile, req models.GenerateContentRequest) (*GeneratedContent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	completion, err := g.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(profile)),
			openai.UserMessage(userPrompt(req)),
		},
	})
	if err != nil {
		slog.Error("Generator.Generate: completion failed", "error", err, "topic", req.Topic)
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	body := strings.TrimSpace(completion.Choices[0].Message.Content)
	slog.Debug("Generator.Generate: content generated", "topic", req.Topic, "platform", req.Platform, "length", len(body))
	return &GeneratedContent{Body: body, Platform: req.Platform, Topic: req.Topic}, nil
}

func systemPrompt(profile *models.BusinessProfile) string {
	var b strings.Builder
	b.WriteString("You are a digital marketing assistant writing social media content for a small business.")
	if profile == nil {
		b.WriteString(" No business profile is available; keep the copy broadly applicable.")
		return b.String()
	}
	fmt.Fprintf(&b, " The business is %s", profile.BusinessName)
	if len(profile.Industries) > 0 {
		fmt.Fprintf(&b, ", operating in %s", strings.Join(profile.Industries, ", "))
	}
	b.WriteString(".")
	if profile.About != "" {
		fmt.Fprintf(&b, " About the business: %s", profile.About)
	}
	if len(profile.BrandVoice) > 0 {
		fmt.Fprintf(&b, " Write in a %s voice.", strings.Join(profile.BrandVoice, ", "))
	}
	if len(profile.Audience) > 0 {
		fmt.Fprintf(&b, " The audience is: %s.", strings.Join(profile.Audience, ", "))
	}
	if len(profile.MarketingGoals) > 0 {
		fmt.Fprintf(&b, " Marketing goals: %s.", strings.Join(profile.MarketingGoals, ", "))
	}
	return b.String()
}

func userPrompt(req models.GenerateContentRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a social media post about: %s.", req.Topic)
	if req.Platform != "" {
		fmt.Fprintf(&b, " Target platform: %s.", req.Platform)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, " Tone: %s.", req.Tone)
	}
	b.WriteString(" Return only the post text, no preamble.")
	return b.String()
}
