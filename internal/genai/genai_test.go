package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/getemily/emily-api/internal/models"
)

// stubChat records the params it receives and returns a canned completion.
type stubChat struct {
	params openai.ChatCompletionNewParams
	reply  string
	err    error
}

func (s *stubChat) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.reply}},
		},
	}, nil
}

func messagesJSON(t *testing.T, params openai.ChatCompletionNewParams) string {
	t.Helper()
	data, err := json.Marshal(params.Messages)
	if err != nil {
		t.Fatalf("Failed to marshal messages: %v", err)
	}
	return string(data)
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewGenerator(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestGenerateUsesProfileInPrompt(t *testing.T) {
	stub := &stubChat{reply: "  Fresh sourdough every morning!  "}
	g := &Generator{chat: stub, model: openai.ChatModelGPT4oMini}

	profile := &models.BusinessProfile{
		BusinessName:   "Acme Bakery",
		Industries:     []string{"food", "retail"},
		About:          "A family bakery in Portland.",
		BrandVoice:     []string{"warm", "playful"},
		Audience:       []string{"locals"},
		MarketingGoals: []string{"brand_awareness"},
	}
	req := models.GenerateContentRequest{Platform: "instagram", Topic: "new sourdough line", Tone: "excited"}

	got, err := g.Generate(context.Background(), profile, req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got.Body != "Fresh sourdough every morning!" {
		t.Errorf("Expected trimmed body, got %q", got.Body)
	}
	if got.Platform != "instagram" || got.Topic != "new sourdough line" {
		t.Errorf("Request echo lost: %+v", got)
	}

	msgs := messagesJSON(t, stub.params)
	for _, want := range []string{"Acme Bakery", "food, retail", "family bakery", "warm, playful", "locals", "brand_awareness", "new sourdough line", "instagram", "excited"} {
		if !strings.Contains(msgs, want) {
			t.Errorf("Expected prompt to mention %q, messages were: %s", want, msgs)
		}
	}
	if stub.params.Model != openai.ChatModelGPT4oMini {
		t.Errorf("Expected default model, got %q", stub.params.Model)
	}
}

func TestGenerateWithoutProfile(t *testing.T) {
	stub := &stubChat{reply: "Generic post"}
	g := &Generator{chat: stub, model: openai.ChatModelGPT4oMini}

	if _, err := g.Generate(context.Background(), nil, models.GenerateContentRequest{Platform: "facebook", Topic: "summer sale"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(messagesJSON(t, stub.params), "No business profile is available") {
		t.Error("Expected profile-free system prompt")
	}
}

func TestGenerateValidatesRequest(t *testing.T) {
	g := &Generator{chat: &stubChat{}, model: openai.ChatModelGPT4oMini}
	if _, err := g.Generate(context.Background(), nil, models.GenerateContentRequest{Topic: "no platform"}); !errors.Is(err, models.ErrEmptyPlatform) {
		t.Errorf("Expected ErrEmptyPlatform, got %v", err)
	}
}

func TestGeneratePropagatesAPIError(t *testing.T) {
	stub := &stubChat{err: fmt.Errorf("rate limited")}
	g := &Generator{chat: stub, model: openai.ChatModelGPT4oMini}

	_, err := g.Generate(context.Background(), nil, models.GenerateContentRequest{Platform: "facebook", Topic: "sale"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("Expected wrapped API error, got %v", err)
	}
}

func TestGenerateRejectsEmptyChoices(t *testing.T) {
	g := &Generator{chat: emptyChat{}, model: openai.ChatModelGPT4oMini}
	if _, err := g.Generate(context.Background(), nil, models.GenerateContentRequest{Platform: "facebook", Topic: "sale"}); err == nil {
		t.Error("Expected error when completion has no choices")
	}
}

type emptyChat struct{}

func (emptyChat) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	return &openai.ChatCompletion{}, nil
}
