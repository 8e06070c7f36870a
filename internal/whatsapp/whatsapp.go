// Package whatsapp wraps whatsmeow so the rest of SafePath only ever
// sees a send-a-text interface and never the login or session plumbing.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/SafePath-UK/SafePath/internal/store"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
)

const (
	// DefaultSQLitePath holds the whatsmeow session database when no DSN
	// is configured.
	DefaultSQLitePath = "/var/lib/safepath/whatsmeow.db"
	// JIDSuffix is the server part of a personal WhatsApp JID.
	JIDSuffix = "s.whatsapp.net"
)

// WhatsAppSender is the outbound surface the messaging layer depends on.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts configures the whatsmeow session store and the login flow.
type Opts struct {
	DBDSN       string
	QRPath      string // write the login QR here instead of stdout
	NumericCode bool   // print the pairing code as digits, not a QR
}

// Option mutates Opts.
type Option func(*Opts)

// WithDBDSN points the whatsmeow session store at the given database.
func WithDBDSN(dsn string) Option {
	return func(o *Opts) { o.DBDSN = dsn }
}

// WithQRCodeOutput writes the login QR code to path instead of stdout.
func WithQRCodeOutput(path string) Option {
	return func(o *Opts) { o.QRPath = path }
}

// WithNumericCode prints the pairing code digits instead of rendering a QR.
func WithNumericCode() Option {
	return func(o *Opts) { o.NumericCode = true }
}

// Client is a connected whatsmeow client.
type Client struct {
	waClient *whatsmeow.Client
}

// NewClient opens the whatsmeow session store, runs the QR login flow if
// the device has no stored session yet, and connects.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DBDSN == "" {
		cfg.DBDSN = DefaultSQLitePath
		slog.Debug("No WhatsApp session DSN configured, using default", "path", cfg.DBDSN)
	}

	container, err := openSessionStore(cfg.DBDSN)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		slog.Error("WhatsApp device lookup failed", "error", err)
		return nil, fmt.Errorf("get device from whatsmeow store: %w", err)
	}

	waClient := whatsmeow.NewClient(deviceStore, waLog.Stdout("Client", "INFO", true))
	if waClient.Store.ID == nil {
		if err := loginWithCode(waClient, cfg); err != nil {
			return nil, err
		}
	} else {
		slog.Debug("WhatsApp session found, reconnecting")
		if err := waClient.Connect(); err != nil {
			slog.Error("WhatsApp reconnect failed", "error", err)
			return nil, fmt.Errorf("connect to WhatsApp: %w", err)
		}
	}

	slog.Info("WhatsApp client connected")
	return &Client{waClient: waClient}, nil
}

// openSessionStore picks the driver from the DSN shape the same way the
// main session store does, so one DATABASE_URL convention covers both.
func openSessionStore(dsn string) (*sqlstore.Container, error) {
	driver := "sqlite3"
	if store.DetectDSNType(dsn) == "postgres" {
		driver = "postgres"
	} else if !strings.Contains(dsn, "foreign_keys") {
		// whatsmeow wants foreign keys on for its sqlite schema.
		slog.Warn("WhatsApp sqlite DSN has no foreign_keys pragma",
			"suggestion", "file:"+dsn+"?_foreign_keys=on")
	}

	slog.Debug("Opening whatsmeow session store", "driver", driver)
	container, err := sqlstore.New(context.Background(), driver, dsn, waLog.Stdout("Database", "INFO", true))
	if err != nil {
		slog.Error("WhatsApp session store init failed", "error", err)
		return nil, fmt.Errorf("open whatsmeow session store: %w", err)
	}
	return container, nil
}

// loginWithCode drives the first-run pairing flow, rendering the QR (or
// numeric code) until WhatsApp confirms the link.
func loginWithCode(waClient *whatsmeow.Client, cfg Opts) error {
	slog.Info("No WhatsApp session stored, starting pairing flow")
	qrChan, _ := waClient.GetQRChannel(context.Background())
	if err := waClient.Connect(); err != nil {
		slog.Error("WhatsApp pairing connect failed", "error", err)
		return fmt.Errorf("connect to WhatsApp for pairing: %w", err)
	}

	out := io.Writer(os.Stdout)
	if cfg.QRPath != "" {
		f, err := os.Create(cfg.QRPath)
		if err != nil {
			return fmt.Errorf("create QR output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	for evt := range qrChan {
		switch {
		case evt.Event != "code":
			slog.Debug("WhatsApp pairing event", "event", evt.Event)
			fmt.Println("Login event:", evt.Event)
		case cfg.NumericCode:
			fmt.Fprintln(out, evt.Code)
		default:
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, out)
		}
	}
	return nil
}

// SendMessage delivers one plain-text message to a canonical phone number.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	if c.waClient == nil || c.waClient.Store == nil {
		return fmt.Errorf("whatsapp client not initialized")
	}
	if to == "" {
		return fmt.Errorf("recipient cannot be empty")
	}
	if body == "" {
		return fmt.Errorf("message body cannot be empty")
	}

	jid := types.NewJID(to, JIDSuffix)
	if _, err := c.waClient.SendMessage(ctx, jid, &waE2E.Message{Conversation: &body}); err != nil {
		slog.Error("WhatsApp send failed", "error", err, "to", to)
		return fmt.Errorf("send message to %s: %w", to, err)
	}
	slog.Debug("WhatsApp message sent", "to", to, "body_length", len(body))
	return nil
}

// GetClient exposes the underlying whatsmeow client for event handler
// registration.
func (c *Client) GetClient() *whatsmeow.Client {
	return c.waClient
}

// MockClient implements WhatsAppSender but does nothing. Use it in tests
// to avoid real WhatsApp connections.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	return nil
}
