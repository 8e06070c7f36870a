package engine

import (
	"context"
	"strings"

	"github.com/SafePath-UK/SafePath/internal/models"
)

// Detailed profiling, asked on the full route only. Each answer lands in
// the profile's detail map under a stable key; the quick route fills the
// same keys with synthesised defaults so the two routes are
// indistinguishable downstream.

var immigrationStatuses = map[int]string{
	1: "british_irish",
	2: "eu_settled",
	3: "nrpf_visa",
	4: "asylum_or_refugee",
	5: "prefer_not_to_say",
}

func handleImmigration(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	patch := models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailImmigrationStatus: immigrationStatuses[sel.Index]},
	}
	// Restricted-eligibility statuses get a free-text follow-up;
	// eligibility hinges on detail a fixed option list cannot carry.
	if sel.Index == 3 || sel.Index == 4 {
		return e.enterGate(ctx, s, models.GateImmigrationFollowup, patch)
	}
	return e.enterGate(ctx, s, models.GateDependentChildren, patch)
}

func handleImmigrationFollowup(e *Engine, ctx context.Context, s models.SessionState, _ models.Selection, raw string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateDependentChildren, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailImmigrationNote: strings.TrimSpace(raw)},
	})
}

func handleDependentChildren(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateAgeExact, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailDependentChildren: yesNo(sel.Index)},
	})
}

func handleAgeExact(e *Engine, ctx context.Context, s models.SessionState, _ models.Selection, raw string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateGenderDetail, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailExactAge: strings.TrimSpace(raw)},
	})
}

var genderNotes = map[int]string{
	1: "none",
	2: "single_gender_preferred",
	3: "other",
}

func handleGenderDetail(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GatePregnancy, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailGenderNote: genderNotes[sel.Index]},
	})
}

var pregnancyAnswers = map[int]string{
	1: "yes",
	2: "no",
	3: "not_applicable",
}

func handlePregnancy(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateEthnicity, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailPregnancy: pregnancyAnswers[sel.Index]},
	})
}

var ethnicities = map[int]string{
	1: "asian",
	2: "black",
	3: "mixed",
	4: "white",
	5: "other",
	6: "prefer_not_to_say",
}

func handleEthnicity(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GatePhysicalHealth, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailEthnicity: ethnicities[sel.Index]},
	})
}

func handlePhysicalHealth(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateMentalHealth, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailPhysicalHealth: yesNo(sel.Index)},
	})
}

func handleMentalHealth(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateConvictions, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailMentalHealth: yesNo(sel.Index)},
	})
}

var convictionAnswers = map[int]string{
	1: "yes",
	2: "no",
	3: "prefer_not_to_say",
}

func handleConvictions(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateLGBTQIdentity, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailConvictions: convictionAnswers[sel.Index]},
	})
}

var lgbtqAnswers = map[int]string{
	1: "yes",
	2: "no",
	3: "prefer_not_to_say",
}

func handleLGBTQIdentity(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	patch := models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailLGBTQIdentity: lgbtqAnswers[sel.Index]},
	}
	if sel.Index == 1 {
		return e.enterGate(ctx, s, models.GateLGBTQServicePref, patch)
	}
	patch.Details[models.DetailLGBTQServicePref] = "no_preference"
	return e.enterGate(ctx, s, models.GateCareStatus, patch)
}

func handleLGBTQServicePref(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	pref := "no_preference"
	if sel.Index == 1 {
		pref = "lgbtq_specialist"
	}
	return e.enterGate(ctx, s, models.GateCareStatus, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailLGBTQServicePref: pref},
	})
}

func handleCareStatus(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateSocialServices, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailCareExperience: yesNo(sel.Index)},
	})
}

func handleSocialServices(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateHandoff, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailSocialServices: yesNo(sel.Index)},
	})
}
