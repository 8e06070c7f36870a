package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SafePath-UK/SafePath/internal/models"
)

// ResponseAction defines a hook function that processes an inbound message.
// It receives the sender's canonical phone number, message text, and timestamp.
// It should return true if the message was handled, false otherwise.
type ResponseAction func(ctx context.Context, from, responseText string, timestamp int64) (handled bool, err error)

// ResponseHandler routes inbound messages. Per-sender hooks take
// precedence; anything unclaimed goes to the fallback action (the
// triage responder in production) and finally to a static default.
type ResponseHandler struct {
	// hooks maps canonicalized phone numbers to response action functions
	hooks map[string]ResponseAction
	// fallback handles any sender without a registered hook
	fallback ResponseAction
	// mu protects concurrent access to the hooks map and fallback
	mu sync.RWMutex
	// msgService is used to send default responses when nothing handles a message
	msgService Service
	// defaultMessage is sent when no hook or fallback handles a message
	defaultMessage string
}

// NewResponseHandler creates a new ResponseHandler with the given messaging service.
func NewResponseHandler(msgService Service) *ResponseHandler {
	return &ResponseHandler{
		hooks:          make(map[string]ResponseAction),
		msgService:     msgService,
		defaultMessage: "Sorry, we couldn't process that message. Please try again.",
	}
}

// RegisterHook registers a response action for a specific sender.
// The recipient should be a phone number; it is canonicalized before storage.
func (rh *ResponseHandler) RegisterHook(recipient string, action ResponseAction) error {
	canonicalRecipient, err := rh.msgService.ValidateAndCanonicalizeRecipient(recipient)
	if err != nil {
		slog.Error("ResponseHandler RegisterHook validation failed", "error", err, "recipient", recipient)
		return fmt.Errorf("invalid recipient: %w", err)
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.hooks[canonicalRecipient] = action

	slog.Debug("ResponseHandler hook registered", "recipient", canonicalRecipient)
	return nil
}

// UnregisterHook removes a response action for a specific sender.
func (rh *ResponseHandler) UnregisterHook(recipient string) error {
	canonicalRecipient, err := rh.msgService.ValidateAndCanonicalizeRecipient(recipient)
	if err != nil {
		slog.Error("ResponseHandler UnregisterHook validation failed", "error", err, "recipient", recipient)
		return fmt.Errorf("invalid recipient: %w", err)
	}

	rh.mu.Lock()
	defer rh.mu.Unlock()
	delete(rh.hooks, canonicalRecipient)

	slog.Debug("ResponseHandler hook unregistered", "recipient", canonicalRecipient)
	return nil
}

// IsHookRegistered checks if a hook is registered for the given sender.
func (rh *ResponseHandler) IsHookRegistered(recipient string) bool {
	canonicalRecipient, err := rh.msgService.ValidateAndCanonicalizeRecipient(recipient)
	if err != nil {
		slog.Debug("ResponseHandler IsHookRegistered validation failed", "error", err, "recipient", recipient)
		return false
	}

	rh.mu.RLock()
	defer rh.mu.RUnlock()
	_, exists := rh.hooks[canonicalRecipient]
	return exists
}

// SetFallback installs the action that handles senders without a hook.
func (rh *ResponseHandler) SetFallback(action ResponseAction) {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.fallback = action
	slog.Debug("ResponseHandler fallback action installed")
}

// ProcessResponse processes an inbound message: registered hook first,
// then the fallback action, then the static default reply.
func (rh *ResponseHandler) ProcessResponse(ctx context.Context, response models.Response) error {
	canonicalFrom, err := rh.msgService.ValidateAndCanonicalizeRecipient(response.From)
	if err != nil {
		slog.Error("ResponseHandler ProcessResponse validation failed", "error", err, "from", response.From)
		return fmt.Errorf("invalid sender: %w", err)
	}

	slog.Debug("ResponseHandler processing response", "from", canonicalFrom, "body_length", len(response.Body))

	rh.mu.RLock()
	action, hasHook := rh.hooks[canonicalFrom]
	fallback := rh.fallback
	rh.mu.RUnlock()

	if hasHook {
		slog.Debug("ResponseHandler executing hook", "from", canonicalFrom)
		handled, err := rh.runAction(ctx, action, canonicalFrom, response)
		if err != nil || handled {
			return err
		}
		// Hook exists but didn't handle the message, fall through
		slog.Debug("ResponseHandler hook did not handle response", "from", canonicalFrom)
	}

	if fallback != nil {
		handled, err := rh.runAction(ctx, fallback, canonicalFrom, response)
		if err != nil || handled {
			return err
		}
		slog.Debug("ResponseHandler fallback did not handle response", "from", canonicalFrom)
	}

	// Nothing claimed the message - send the default reply
	slog.Debug("ResponseHandler sending default response", "from", canonicalFrom)
	if err := rh.msgService.SendMessage(ctx, canonicalFrom, rh.defaultMessage); err != nil {
		slog.Error("ResponseHandler failed to send default response", "error", err, "from", canonicalFrom)
		return fmt.Errorf("failed to send default response: %w", err)
	}

	slog.Info("ResponseHandler sent default response", "from", canonicalFrom)
	return nil
}

// runAction executes one action and tells the sender when it fails.
func (rh *ResponseHandler) runAction(ctx context.Context, action ResponseAction, from string, response models.Response) (bool, error) {
	handled, err := action(ctx, from, response.Body, response.Time)
	if err != nil {
		slog.Error("ResponseHandler action execution failed", "error", err, "from", from)
		errorMsg := "Sorry, something went wrong on our side. Please send your message again."
		if sendErr := rh.msgService.SendMessage(ctx, from, errorMsg); sendErr != nil {
			slog.Error("ResponseHandler failed to send error message", "error", sendErr, "from", from)
		}
		return false, fmt.Errorf("action execution failed: %w", err)
	}
	if handled {
		slog.Info("ResponseHandler response handled", "from", from)
	}
	return handled, nil
}

// SetDefaultMessage sets the default message sent when nothing handles a response.
func (rh *ResponseHandler) SetDefaultMessage(message string) {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	rh.defaultMessage = message
	slog.Debug("ResponseHandler default message updated", "message", message)
}

// GetDefaultMessage returns the current default message.
func (rh *ResponseHandler) GetDefaultMessage() string {
	rh.mu.RLock()
	defer rh.mu.RUnlock()
	return rh.defaultMessage
}

// GetHookCount returns the number of currently registered hooks.
func (rh *ResponseHandler) GetHookCount() int {
	rh.mu.RLock()
	defer rh.mu.RUnlock()
	return len(rh.hooks)
}

// Start begins processing responses from the messaging service.
// This should be called once to start the response processing loop.
func (rh *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler starting response processing")

	go func() {
		defer slog.Info("ResponseHandler stopped response processing")

		for {
			select {
			case response, ok := <-rh.msgService.Responses():
				if !ok {
					slog.Debug("ResponseHandler responses channel closed")
					return
				}

				if err := rh.ProcessResponse(ctx, response); err != nil {
					slog.Error("ResponseHandler failed to process response", "error", err, "from", response.From)
				}

			case <-ctx.Done():
				slog.Debug("ResponseHandler stopping due to context cancellation")
				return
			}
		}
	}()

	slog.Info("ResponseHandler response processing started")
}
