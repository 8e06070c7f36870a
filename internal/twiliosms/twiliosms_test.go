package twiliosms

import (
	"context"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendMessage(ctx, "447700900123", "Hello Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}

	if mock.SentMessages[0].Body != "Hello Test" {
		t.Errorf("expected body %q, got %q", "Hello Test", mock.SentMessages[0].Body)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewClient(); err == nil {
		t.Fatal("expected error when credentials are missing")
	}

	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token")); err == nil {
		t.Fatal("expected error when from number is missing")
	}

	client, err := NewClient(WithAccountSID("AC123"), WithAuthToken("token"), WithFromNumber("+447700900000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.fromNumber != "+447700900000" {
		t.Errorf("fromNumber = %q, want %q", client.fromNumber, "+447700900000")
	}
}
