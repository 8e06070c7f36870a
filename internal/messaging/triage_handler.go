package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SafePath-UK/SafePath/internal/engine"
	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/store"
)

// sessionIDPrefix marks sessions opened over a messaging channel; the
// rest of the ID is the sender's canonical phone number.
const sessionIDPrefix = "p_"

// TriageResponder drives the gate engine for inbound messages. Each
// sender maps to one active session keyed by their phone number; a new
// session opens on first contact and again after the previous one ends.
type TriageResponder struct {
	msgService Service
	st         store.Store
	engine     *engine.Engine

	// locks serializes turns per sender so two rapid messages cannot
	// interleave their read-evaluate-write cycles.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTriageResponder creates a TriageResponder over the given channel,
// store and engine.
func NewTriageResponder(msgService Service, st store.Store, eng *engine.Engine) *TriageResponder {
	return &TriageResponder{
		msgService: msgService,
		st:         st,
		engine:     eng,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Action returns the ResponseAction to install as a ResponseHandler
// fallback, so every sender without a dedicated hook gets triage.
func (tr *TriageResponder) Action() ResponseAction {
	return tr.handle
}

func (tr *TriageResponder) handle(ctx context.Context, from, responseText string, timestamp int64) (bool, error) {
	unlock := tr.lockSender(from)
	defer unlock()

	sessionID := sessionIDPrefix + from

	state, err := tr.st.GetSession(sessionID)
	fresh := false
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		fresh = true
	case err != nil:
		return false, fmt.Errorf("failed to load session: %w", err)
	case state.Ended():
		// A finished conversation stays on record until the sender
		// texts again; the next contact starts over.
		slog.Info("TriageResponder reopening after ended session", "session", sessionID)
		fresh = true
	}

	if fresh {
		state = models.NewSessionState(sessionID, time.Now().UTC())
		result := tr.engine.ProcessTurn(ctx, state, "")
		state = result.Patch.Apply(state)
		if err := tr.st.SaveSession(state); err != nil {
			return false, fmt.Errorf("failed to save session: %w", err)
		}
		slog.Info("TriageResponder session opened", "session", sessionID)
		return true, tr.msgService.SendMessage(ctx, from, formatTurnMessage(result))
	}

	// The raw message log is best-effort; it must not block the turn.
	if err := tr.st.AddResponse(models.Response{From: sessionID, Body: responseText, Time: timestamp}); err != nil {
		slog.Warn("TriageResponder message log failed", "error", err, "session", sessionID)
	}

	result := tr.engine.ProcessTurn(ctx, state, responseText)
	state = result.Patch.Apply(state)
	if err := tr.st.SaveSession(state); err != nil {
		return false, fmt.Errorf("failed to save session: %w", err)
	}

	if result.SessionEnded {
		slog.Info("TriageResponder session ended", "session", sessionID, "safeguarding", state.SafeguardingTriggered)
	}
	return true, tr.msgService.SendMessage(ctx, from, formatTurnMessage(result))
}

// lockSender acquires the per-sender mutex, creating it on first use.
func (tr *TriageResponder) lockSender(from string) func() {
	tr.mu.Lock()
	l, ok := tr.locks[from]
	if !ok {
		l = &sync.Mutex{}
		tr.locks[from] = l
	}
	tr.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// formatTurnMessage renders one turn as a single outbound message:
// the body followed by numbered reply options.
func formatTurnMessage(result models.RoutingResult) string {
	if len(result.Options) == 0 {
		return result.Body
	}

	var b strings.Builder
	b.WriteString(result.Body)
	b.WriteString("\n")
	for i, opt := range result.Options {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt))
	}
	return b.String()
}
