// Package genai resolves free-form user replies to menu options using
// the OpenAI API.
//
// The triage engine interprets numbered and textual replies itself; this
// client is its last resort before a reply counts as unclear. It never
// generates user-facing text, only picks an option index, so a wrong
// answer can misroute but never mis-speak.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoChoicesReturned indicates the API responded without any choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// ErrNoAPIKey indicates no API key was configured or found in the
// environment.
var ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")

// chatService is the minimal completion surface, split out so tests can
// substitute a mock.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Client classifies replies against option lists.
type Client struct {
	chat  chatService
	model openai.ChatModel
}

// Opts holds configuration for the client.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option configures the client.
type Option func(*Opts)

// WithAPIKey sets the API key explicitly instead of reading the
// environment.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the completion model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// NewClient creates a classifier client. Without WithAPIKey the key is
// read from OPENAI_API_KEY.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{Model: openai.ChatModelGPT4oMini}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("genai.NewClient created", "model", cfg.Model)
	return &Client{chat: &openaiChatService{client: cli}, model: cfg.Model}, nil
}

const classifySystemPrompt = "You map a user's reply to one option from a numbered list. " +
	"Reply with only the number of the single best-matching option. " +
	"If no option clearly matches, reply with 0. Never reply with anything except one number."

// ClassifySelection returns the 1-based index of the option the text
// most likely means, or 0 when none applies. An out-of-range model
// answer is an error, not a guess.
func (c *Client) ClassifySelection(ctx context.Context, text string, options []string) (int, error) {
	var b strings.Builder
	b.WriteString("Options:\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	b.WriteString("\nUser reply: ")
	b.WriteString(text)

	resp, err := c.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifySystemPrompt),
			openai.UserMessage(b.String()),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to classify selection: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, ErrNoChoicesReturned
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	idx, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("classifier returned non-numeric answer %q", answer)
	}
	if idx < 0 || idx > len(options) {
		return 0, fmt.Errorf("classifier returned out-of-range answer %d", idx)
	}
	slog.Debug("genai.ClassifySelection resolved", "index", idx, "options", len(options))
	return idx, nil
}
