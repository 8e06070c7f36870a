package engine

import (
	"context"
	"strings"

	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/phrasebank"
)

// Prevention flow: questions for people who still have a home but are at
// risk of losing it, ending in an explicit safeguarding check.

var preventionReasons = map[int]string{
	1: "arrears",
	2: "landlord_notice",
	3: "asked_to_leave",
	4: "relationship_breakdown",
	5: "other",
}

func handlePreventionReason(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GatePreventionUrgency, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailPreventionReason: preventionReasons[sel.Index]},
	})
}

var preventionUrgencies = map[int]string{
	1: "already_left",
	2: "within_week",
	3: "within_month",
	4: "over_month",
}

func handlePreventionUrgency(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GatePreventionDependents, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailPreventionUrgency: preventionUrgencies[sel.Index]},
	})
}

func handlePreventionDependents(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GatePreventionEmployment, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailDependents: yesNo(sel.Index)},
	})
}

var employmentStates = map[int]string{
	1: "paid_work",
	2: "benefits",
	3: "none",
	4: "prefer_not_to_say",
}

func handlePreventionEmployment(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GatePreventionPriorSupport, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailEmployment: employmentStates[sel.Index]},
	})
}

var preventionPriorSupport = map[int]string{
	1: "council",
	2: "charity",
	3: "none",
}

func handlePreventionPriorSupport(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateSafeguardingCheck, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailPreventionPriorSupport: preventionPriorSupport[sel.Index]},
	})
}

// handleSafeguardingCheck is the explicit late safety screen. Abuse
// disclosures join the domestic abuse flow, self-harm takes the crisis
// exit, and third-party concerns get a free-text follow-up so the note
// reaches the safeguarding record.
func handleSafeguardingCheck(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	switch sel.Index {
	case 1:
		return e.enterGate(ctx, s, models.GateDVGenderAsk, models.StatePatch{})
	case 2:
		return e.enterGate(ctx, s, models.GateSafeguardingFollowup, models.StatePatch{})
	case 3:
		return e.safeguardingExit(s, phrasebank.KeyExitSelfHarm, models.SafeguardingSelfHarm, models.StatePatch{})
	default:
		return e.finishCore(ctx, s, models.StatePatch{})
	}
}

func handleSafeguardingFollowup(e *Engine, ctx context.Context, s models.SessionState, _ models.Selection, raw string) models.RoutingResult {
	return e.finishCore(ctx, s, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailSafeguardingNote: strings.TrimSpace(raw)},
	})
}
