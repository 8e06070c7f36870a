package engine

import (
	"context"
	"strings"

	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/phrasebank"
)

func handleIntent(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	if sel.Index == 3 {
		// Neither browsing nor connecting: offer a human instead.
		return e.enterGate(ctx, s, models.GatePhoneOffer, models.StatePatch{})
	}
	return e.enterGate(ctx, s, models.GateRouteChoice, models.StatePatch{})
}

func handleRouteChoice(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	route := models.RouteTypeQuick
	if sel.Index == 1 {
		route = models.RouteTypeFull
	}
	return e.enterGate(ctx, s, models.GateLocalAuthority, models.StatePatch{RouteType: &route})
}

func handleLocalAuthority(e *Engine, ctx context.Context, s models.SessionState, _ models.Selection, raw string) models.RoutingResult {
	la := strings.TrimSpace(raw)
	jurisdiction := "england"
	return e.enterGate(ctx, s, models.GateWhoFor, models.StatePatch{
		LocalAuthority: &la,
		Jurisdiction:   &jurisdiction,
	})
}

var userTypes = map[int]string{
	1: "self",
	2: "friend_or_family",
	3: "professional",
}

func handleWhoFor(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	userType := userTypes[sel.Index]
	supporter := sel.Index != 1
	return e.enterGate(ctx, s, models.GateAgeCategory, models.StatePatch{
		UserType:    &userType,
		IsSupporter: &supporter,
	})
}

var ageCategories = map[int]string{
	2: "16_17",
	3: "18_24",
	4: "25_54",
	5: "55_plus",
}

func handleAgeCategory(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	if sel.Index == 1 {
		// Under 16 disclosed mid-conversation takes the same exit as
		// the crisis screen.
		return e.safeguardingExit(s, phrasebank.KeyExitUnder16, models.SafeguardingUnder16, models.StatePatch{})
	}
	age := ageCategories[sel.Index]
	return e.enterGate(ctx, s, models.GateGender, models.StatePatch{AgeCategory: &age})
}

func handleGender(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	gender := genderBuckets[sel.Index]
	return e.enterGate(ctx, s, models.GateSupportNeed, models.StatePatch{Gender: &gender})
}

var supportNeeds = map[int]string{
	1: "housing",
	2: "money_benefits",
	3: "health_wellbeing",
	4: "work_learning",
	5: "safety",
	6: "other",
}

func handleSupportNeed(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	need := supportNeeds[sel.Index]
	return e.enterGate(ctx, s, models.GateHomelessCheck, models.StatePatch{SupportNeed: &need})
}

func handleHomelessCheck(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	switch sel.Index {
	case 1:
		homeless := true
		return e.enterGate(ctx, s, models.GateSleepingSituation, models.StatePatch{Homeless: &homeless})
	case 2:
		homeless := false
		return e.enterGate(ctx, s, models.GateHousedSituation, models.StatePatch{Homeless: &homeless})
	default:
		homeless := false
		return e.finishCore(ctx, s, models.StatePatch{Homeless: &homeless})
	}
}

var sleepingSituations = map[int]string{
	1: "streets",
	2: "sofa_surfing",
	3: "vehicle",
	4: "shelter_or_hostel",
	5: "other",
}

func handleSleepingSituation(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	situation := sleepingSituations[sel.Index]
	return e.enterGate(ctx, s, models.GateHomelessDuration, models.StatePatch{SleepingSituation: &situation})
}

var housedSituations = map[int]string{
	1: "eviction_notice",
	2: "arrears",
	3: "relationship_breakdown",
	4: "unsafe_at_home",
	5: "other",
}

func handleHousedSituation(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	situation := housedSituations[sel.Index]
	return e.enterGate(ctx, s, models.GatePrevention, models.StatePatch{HousedSituation: &situation})
}

func handlePreventionGate(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	if sel.Index == 1 {
		need := "stay_in_home"
		return e.enterGate(ctx, s, models.GatePreventionReason, models.StatePatch{PreventionNeed: &need})
	}
	return e.finishCore(ctx, s, models.StatePatch{})
}

// Homeless continuation: five short questions building the picture of
// the current homelessness episode.

var homelessDurations = map[int]string{
	1: "under_week",
	2: "under_month",
	3: "one_to_six_months",
	4: "over_six_months",
}

func handleHomelessDuration(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateHomelessReason, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailHomelessDuration: homelessDurations[sel.Index]},
	})
}

var homelessReasons = map[int]string{
	1: "asked_to_leave",
	2: "evicted",
	3: "relationship_breakdown",
	4: "left_institution",
	5: "other",
}

func handleHomelessReason(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateHomelessIncome, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailHomelessReason: homelessReasons[sel.Index]},
	})
}

var incomeSources = map[int]string{
	1: "benefits",
	2: "paid_work",
	3: "none",
	4: "prefer_not_to_say",
}

func handleHomelessIncome(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateHomelessPriorSupport, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailIncome: incomeSources[sel.Index]},
	})
}

func handleHomelessPriorSupport(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.enterGate(ctx, s, models.GateHomelessCurrSupport, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailPriorSupport: yesNo(sel.Index)},
	})
}

func handleHomelessCurrSupport(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	return e.finishCore(ctx, s, models.StatePatch{
		Details: map[models.DetailKey]string{models.DetailCurrentSupport: yesNo(sel.Index)},
	})
}

// finishCore closes the core profiling phase. The full route continues
// into the detailed questions; the quick route synthesises defaults for
// them so downstream consumers see a complete profile either way.
func (e *Engine) finishCore(ctx context.Context, s models.SessionState, patch models.StatePatch) models.RoutingResult {
	merged := patch.Apply(s)
	if merged.RouteType != models.RouteTypeQuick {
		return e.enterGate(ctx, s, models.GateImmigration, patch)
	}

	if patch.Details == nil {
		patch.Details = make(map[models.DetailKey]string, len(models.SectionCKeys))
	}
	for _, key := range models.SectionCKeys {
		if merged.Profile.Detail(key) == "" {
			patch.Details[key] = quickRouteDefault(key)
		}
	}
	return e.enterGate(ctx, s, models.GateHandoff, patch)
}

// quickRouteDefault is the synthesised answer for a detailed question
// the quick route never asked.
func quickRouteDefault(key models.DetailKey) string {
	switch key {
	case models.DetailImmigrationStatus, models.DetailExactAge:
		return "prefer_not_to_say"
	case models.DetailImmigrationNote, models.DetailGenderNote:
		return "none"
	case models.DetailLGBTQServicePref:
		return "no_preference"
	default:
		return "no"
	}
}

func yesNo(index int) string {
	if index == 1 {
		return "yes"
	}
	return "no"
}
