// Package engine implements the gate transition engine for the triage
// conversation.
//
// The engine is a pure reducer: ProcessTurn takes a session snapshot and
// one raw user message and returns the reply plus a StatePatch. It never
// persists anything and never mutates its input, so a turn can be safely
// retried by replaying the same snapshot.
package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/phrasebank"
)

// maxUnclearTurns is the number of consecutive uninterpretable replies
// tolerated at one gate before the session escalates.
const maxUnclearTurns = 3

// Classifier resolves free-form text to an option index when mechanical
// interpretation fails. Implementations may call out to an LLM; the
// engine treats any error as "still unclear".
type Classifier interface {
	// ClassifySelection returns the 1-based index of the option the
	// text most likely means, or 0 if none applies.
	ClassifySelection(ctx context.Context, text string, options []string) (int, error)
}

// ServiceMatcher finds directory services matching a completed profile.
type ServiceMatcher interface {
	Match(ctx context.Context, profile models.Profile) ([]models.Service, error)
}

// Engine evaluates one conversation turn at a time.
type Engine struct {
	bank       *phrasebank.Bank
	classifier Classifier
	matcher    ServiceMatcher
}

// New creates an engine. classifier and matcher may be nil: without a
// classifier unclear input is never rescued, and without a matcher the
// handoff omits the local service list.
func New(bank *phrasebank.Bank, classifier Classifier, matcher ServiceMatcher) *Engine {
	return &Engine{bank: bank, classifier: classifier, matcher: matcher}
}

// gateHandler consumes one clear selection at one gate. raw carries the
// original message for free-text gates.
type gateHandler func(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, raw string) models.RoutingResult

// handlers is the dispatch table. Every gate in models.AllGates must
// appear here; the exhaustiveness test enforces it.
var handlers = map[models.Gate]gateHandler{
	models.GateInit:        handleInit,
	models.GateCrisisCheck: handleCrisisCheck,
	models.GateIntent:      handleIntent,
	models.GateRouteChoice: handleRouteChoice,

	models.GateDVGenderAsk:   handleDVGenderAsk,
	models.GateDVChildrenAsk: handleDVChildrenAsk,
	models.GateSAGenderAsk:   handleSAGenderAsk,

	models.GateLocalAuthority:    handleLocalAuthority,
	models.GateWhoFor:            handleWhoFor,
	models.GateAgeCategory:       handleAgeCategory,
	models.GateGender:            handleGender,
	models.GateSupportNeed:       handleSupportNeed,
	models.GateHomelessCheck:     handleHomelessCheck,
	models.GateSleepingSituation: handleSleepingSituation,
	models.GateHousedSituation:   handleHousedSituation,
	models.GatePrevention:        handlePreventionGate,

	models.GateHomelessDuration:     handleHomelessDuration,
	models.GateHomelessReason:       handleHomelessReason,
	models.GateHomelessIncome:       handleHomelessIncome,
	models.GateHomelessPriorSupport: handleHomelessPriorSupport,
	models.GateHomelessCurrSupport:  handleHomelessCurrSupport,

	models.GatePreventionReason:       handlePreventionReason,
	models.GatePreventionUrgency:      handlePreventionUrgency,
	models.GatePreventionDependents:   handlePreventionDependents,
	models.GatePreventionEmployment:   handlePreventionEmployment,
	models.GatePreventionPriorSupport: handlePreventionPriorSupport,
	models.GateSafeguardingCheck:      handleSafeguardingCheck,
	models.GateSafeguardingFollowup:   handleSafeguardingFollowup,

	models.GateImmigration:         handleImmigration,
	models.GateImmigrationFollowup: handleImmigrationFollowup,
	models.GateDependentChildren:   handleDependentChildren,
	models.GateAgeExact:            handleAgeExact,
	models.GateGenderDetail:        handleGenderDetail,
	models.GatePregnancy:           handlePregnancy,
	models.GateEthnicity:           handleEthnicity,
	models.GatePhysicalHealth:      handlePhysicalHealth,
	models.GateMentalHealth:        handleMentalHealth,
	models.GateConvictions:         handleConvictions,
	models.GateLGBTQIdentity:       handleLGBTQIdentity,
	models.GateLGBTQServicePref:    handleLGBTQServicePref,
	models.GateCareStatus:          handleCareStatus,
	models.GateSocialServices:      handleSocialServices,

	models.GateHandoff:      handleHandoff,
	models.GateIntervention: handleIntervention,
	models.GatePhoneOffer:   handlePhoneOffer,
	models.GateSessionEnd:   handleSessionEnd,
}

// ProcessTurn evaluates one inbound message against the session snapshot
// and returns the reply with the state updates the caller must persist.
func (e *Engine) ProcessTurn(ctx context.Context, s models.SessionState, raw string) models.RoutingResult {
	slog.Debug("Engine.ProcessTurn received input", "session", s.ID, "gate", s.CurrentGate, "chars", len(raw))

	if s.Ended() {
		return models.RoutingResult{
			Body:         e.text(phrasebank.KeySessionAlreadyEnded, s.IsSupporter),
			SessionEnded: true,
		}
	}

	// INIT consumes the first inbound message whatever it says.
	if s.CurrentGate == models.GateInit {
		return handleInit(e, ctx, s, models.Selection{Index: 1}, raw)
	}

	handler, ok := handlers[s.CurrentGate]
	if !ok {
		slog.Error("Engine.ProcessTurn session stuck at unknown gate", "session", s.ID, "gate", s.CurrentGate)
		return models.RoutingResult{Body: phrasebank.FallbackText}
	}

	sel := e.interpretTurn(ctx, s, raw)
	if sel.Unclear() {
		return e.handleUnclear(s)
	}

	result := handler(e, ctx, s, sel, raw)

	// A successfully interpreted answer resets the unclear streak
	// unless the handler already decided otherwise.
	if result.Patch.UnclearCount == nil && s.UnclearCount != 0 {
		zero := 0
		result.Patch.UnclearCount = &zero
	}
	if result.Patch.CurrentGate != nil && *result.Patch.CurrentGate != s.CurrentGate {
		slog.Info("Engine.ProcessTurn gate transition", "session", s.ID,
			"from", s.CurrentGate, "to", *result.Patch.CurrentGate, "selection", sel.Index)
	}
	return result
}

// interpretTurn resolves the raw message to a selection for the current
// gate. Gates with no option list are free text: any non-empty reply is
// accepted as selection 1 and the handler reads the raw message itself.
func (e *Engine) interpretTurn(ctx context.Context, s models.SessionState, raw string) models.Selection {
	entry, err := e.bank.Resolve(string(s.CurrentGate), s.IsSupporter)
	if err != nil {
		slog.Error("Engine.interpretTurn gate has no phrase entry", "session", s.ID, "gate", s.CurrentGate, "error", err)
		return models.SelectionUnclear
	}

	if len(entry.Options) == 0 {
		if strings.TrimSpace(raw) == "" {
			return models.SelectionUnclear
		}
		return models.Selection{Index: 1}
	}

	sel := Interpret(raw, entry.Options)
	if !sel.Unclear() || e.classifier == nil {
		return sel
	}

	idx, err := e.classifier.ClassifySelection(ctx, raw, entry.Options)
	if err != nil {
		slog.Warn("Engine.interpretTurn classifier failed, treating as unclear",
			"session", s.ID, "gate", s.CurrentGate, "error", err)
		return models.SelectionUnclear
	}
	if idx < 1 || idx > len(entry.Options) {
		return models.SelectionUnclear
	}
	slog.Debug("Engine.interpretTurn classifier resolved input", "session", s.ID, "gate", s.CurrentGate, "index", idx)
	return models.Selection{Index: idx}
}

// handleUnclear applies the escalation ladder for uninterpretable input:
// two clarifications, then the intervention gate, and if the user cannot
// be understood there either, a final phone signpost and session end.
func (e *Engine) handleUnclear(s models.SessionState) models.RoutingResult {
	count := s.UnclearCount + 1
	if count < maxUnclearTurns {
		body, opts := e.prompt(s.CurrentGate, s.IsSupporter)
		return models.RoutingResult{
			Body:    e.text(phrasebank.KeyClarifyNote, s.IsSupporter) + "\n\n" + body,
			Options: opts,
			Patch:   models.StatePatch{UnclearCount: &count},
		}
	}

	zero := 0
	if s.CurrentGate == models.GateIntervention {
		// The user could not be understood even at the intervention
		// gate. End with the phone signpost; this is not a
		// safeguarding exit.
		slog.Warn("Engine.handleUnclear final escalation", "session", s.ID)
		end := models.GateSessionEnd
		return models.RoutingResult{
			Body:         e.text(phrasebank.KeyFinalEscalation, s.IsSupporter),
			SessionEnded: true,
			Patch:        models.StatePatch{CurrentGate: &end, UnclearCount: &zero},
		}
	}

	slog.Info("Engine.handleUnclear escalating to intervention", "session", s.ID, "from", s.CurrentGate)
	intervention := models.GateIntervention
	from := s.CurrentGate
	body, opts := e.prompt(models.GateIntervention, s.IsSupporter)
	return models.RoutingResult{
		Body:    body,
		Options: opts,
		Patch: models.StatePatch{
			CurrentGate:   &intervention,
			EscalatedFrom: &from,
			UnclearCount:  &zero,
		},
	}
}

// enterGate finishes a turn by moving the session to next and emitting
// that gate's prompt. The handoff gate composes its summary instead of
// reading a static phrase.
func (e *Engine) enterGate(ctx context.Context, s models.SessionState, next models.Gate, patch models.StatePatch) models.RoutingResult {
	patch.CurrentGate = &next

	if next == models.GateHandoff {
		merged := patch.Apply(s)
		body, opts := e.composeHandoff(ctx, merged)
		return models.RoutingResult{Body: body, Options: opts, Patch: patch}
	}

	// The prompt voice must reflect a supporter flag set this turn.
	supporter := s.IsSupporter
	if patch.IsSupporter != nil {
		supporter = *patch.IsSupporter
	}
	body, opts := e.prompt(next, supporter)
	return models.RoutingResult{Body: body, Options: opts, Patch: patch}
}

// endSession finishes a turn by ending the session with the given body.
func endSession(body string, patch models.StatePatch) models.RoutingResult {
	end := models.GateSessionEnd
	patch.CurrentGate = &end
	return models.RoutingResult{Body: body, SessionEnded: true, Patch: patch}
}

// prompt resolves a gate's question and options, degrading to the safe
// fallback text if the phrase bank has no entry.
func (e *Engine) prompt(gate models.Gate, supporter bool) (string, []string) {
	entry, err := e.bank.Resolve(string(gate), supporter)
	if err != nil {
		slog.Error("Engine.prompt missing phrase", "gate", gate, "error", err)
		return phrasebank.FallbackText, nil
	}
	return entry.Text, entry.Options
}

// text resolves a non-gate phrase, degrading to the safe fallback text.
func (e *Engine) text(key string, supporter bool) string {
	entry, err := e.bank.Resolve(key, supporter)
	if err != nil {
		slog.Error("Engine.text missing phrase", "key", key, "error", err)
		return phrasebank.FallbackText
	}
	return entry.Text
}

func handleInit(e *Engine, ctx context.Context, s models.SessionState, _ models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateCrisisCheck, models.StatePatch{})
}

// handleSessionEnd exists for dispatch-table completeness; ProcessTurn
// short-circuits ended sessions before dispatch.
func handleSessionEnd(e *Engine, _ context.Context, s models.SessionState, _ models.Selection, _ string) models.RoutingResult {
	return models.RoutingResult{
		Body:         e.text(phrasebank.KeySessionAlreadyEnded, s.IsSupporter),
		SessionEnded: true,
	}
}
