// Package genai provides optional LLM-assisted intent classification using
// the OpenAI API. It is a best-effort second pass for free text the rule
// parser could not classify; callers must treat errors and unknown results
// as a plain fallback, never as a hard failure.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const classifySystemPrompt = `You classify WhatsApp messages sent to a delivery dispatch service.
Reply with exactly one word from this list and nothing else:
MENU, CREATE_DELIVERY, STATUS, SUMMARY, LIST_RIDERS, CANCEL, EXPORT, HELP, UNKNOWN`

// Classifier is the interface consumed by the router for fallback
// classification. Implementations must be safe for concurrent use.
type Classifier interface {
	ClassifyIntent(ctx context.Context, text string) (string, error)
}

// Client wraps the OpenAI chat completion API.
type Client struct {
	client openai.Client
	model  string
}

// Compile-time check that Client implements Classifier.
var _ Classifier = (*Client)(nil)

// NewClient initializes a GenAI client using the OPENAI_API_KEY environment
// variable.
func NewClient() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// ClassifyIntent asks the model to classify free text into one of the
// parser's intent names. Returns "UNKNOWN" for anything unexpected.
func (c *Client) ClassifyIntent(ctx context.Context, text string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifySystemPrompt),
			openai.UserMessage(text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	out := strings.ToUpper(strings.TrimSpace(resp.Choices[0].Message.Content))
	switch out {
	case "MENU", "CREATE_DELIVERY", "STATUS", "SUMMARY", "LIST_RIDERS", "CANCEL", "EXPORT", "HELP", "UNKNOWN":
		return out, nil
	default:
		slog.Debug("GenAI classifier returned unexpected label", "label", out)
		return "UNKNOWN", nil
	}
}

// MockClassifier returns a fixed label for tests.
type MockClassifier struct {
	Label string
	Err   error
	Calls []string
}

// ClassifyIntent records the input and returns the configured label.
func (m *MockClassifier) ClassifyIntent(ctx context.Context, text string) (string, error) {
	m.Calls = append(m.Calls, text)
	if m.Err != nil {
		return "", m.Err
	}
	if m.Label == "" {
		return "UNKNOWN", nil
	}
	return m.Label, nil
}
