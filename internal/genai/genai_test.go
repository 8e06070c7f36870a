package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp openai.ChatCompletion
	err  error
}

func (m *mockChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	return m.resp, m.err
}

func completionWith(content string) openai.ChatCompletion {
	return openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

var testOptions = []string{"Somewhere to stay", "Money or benefits", "Staying safe"}

func TestClassifySelection_Success(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("2")}}
	idx, err := client.ClassifySelection(context.Background(), "i'm skint", testOptions)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if idx != 2 {
		t.Errorf("expected 2, got %d", idx)
	}
}

func TestClassifySelection_NoMatch(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("0")}}
	idx, err := client.ClassifySelection(context.Background(), "purple monkey", testOptions)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if idx != 0 {
		t.Errorf("expected 0, got %d", idx)
	}
}

func TestClassifySelection_TrimsWhitespace(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("  3\n")}}
	idx, err := client.ClassifySelection(context.Background(), "keeping safe", testOptions)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if idx != 3 {
		t.Errorf("expected 3, got %d", idx)
	}
}

func TestClassifySelection_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}}
	_, err := client.ClassifySelection(context.Background(), "text", testOptions)
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestClassifySelection_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}}
	_, err := client.ClassifySelection(context.Background(), "text", testOptions)
	if err != ErrNoChoicesReturned {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestClassifySelection_NonNumericAnswer(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("the second one")}}
	_, err := client.ClassifySelection(context.Background(), "text", testOptions)
	if err == nil {
		t.Error("expected error for non-numeric answer, got nil")
	}
}

func TestClassifySelection_OutOfRangeAnswer(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: completionWith("7")}}
	_, err := client.ClassifySelection(context.Background(), "text", testOptions)
	if err == nil {
		t.Error("expected error for out-of-range answer, got nil")
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if err != ErrNoAPIKey {
		t.Errorf("expected ErrNoAPIKey when API key not provided, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Error("expected client instance, got nil")
	}
}
