package engine

import (
	"context"
	"log/slog"

	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/phrasebank"
)

// safeguardingExit ends the session with a crisis signpost and marks the
// safeguarding flag, which is permanent for the session.
func (e *Engine) safeguardingExit(s models.SessionState, phraseKey, sgType string, patch models.StatePatch) models.RoutingResult {
	slog.Info("Engine safeguarding exit", "session", s.ID, "gate", s.CurrentGate, "type", sgType)
	triggered := true
	patch.SafeguardingTriggered = &triggered
	patch.SafeguardingType = &sgType
	return endSession(e.text(phraseKey, s.IsSupporter), patch)
}

// handleCrisisCheck routes the opening safety screen. Most branches end
// the session with a specialist signpost; domestic abuse and sexual
// violence ask for gender first so the signpost is the right service.
func handleCrisisCheck(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	switch sel.Index {
	case 1:
		return e.safeguardingExit(s, phrasebank.KeyExitPhysicalDanger, models.SafeguardingPhysicalDanger, models.StatePatch{})
	case 2:
		return e.enterGate(ctx, s, models.GateDVGenderAsk, models.StatePatch{})
	case 3:
		return e.enterGate(ctx, s, models.GateSAGenderAsk, models.StatePatch{})
	case 4:
		return e.safeguardingExit(s, phrasebank.KeyExitSelfHarm, models.SafeguardingSelfHarm, models.StatePatch{})
	case 5:
		return e.safeguardingExit(s, phrasebank.KeyExitUnder16, models.SafeguardingUnder16, models.StatePatch{})
	case 6:
		return e.safeguardingExit(s, phrasebank.KeyExitFireFlood, models.SafeguardingFireFlood, models.StatePatch{})
	default:
		return e.enterGate(ctx, s, models.GateIntent, models.StatePatch{})
	}
}

// genderBuckets maps a four-option gender question to the stored bucket.
var genderBuckets = map[int]string{
	1: models.GenderFemale,
	2: models.GenderMale,
	3: models.GenderOther,
	4: models.GenderUndisclosed,
}

func handleDVGenderAsk(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	gender := genderBuckets[sel.Index]
	return e.enterGate(ctx, s, models.GateDVChildrenAsk, models.StatePatch{Gender: &gender})
}

// handleDVChildrenAsk picks the domestic abuse signpost from the gender
// recorded a turn earlier and whether children are in the home.
// Non-binary, other and undisclosed genders share the inclusive service.
func handleDVChildrenAsk(e *Engine, _ context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	children := sel.Index == 1

	var key string
	switch s.Profile.Gender {
	case models.GenderFemale:
		key = phrasebank.KeyDVFemaleChildrenNo
		if children {
			key = phrasebank.KeyDVFemaleChildrenYes
		}
	case models.GenderMale:
		key = phrasebank.KeyDVMaleChildrenNo
		if children {
			key = phrasebank.KeyDVMaleChildrenYes
		}
	default:
		key = phrasebank.KeyDVLGBTQChildrenNo
		if children {
			key = phrasebank.KeyDVLGBTQChildrenYes
		}
	}
	return e.safeguardingExit(s, key, models.SafeguardingDV, models.StatePatch{})
}

func handleSAGenderAsk(e *Engine, _ context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	gender := genderBuckets[sel.Index]
	patch := models.StatePatch{Gender: &gender}

	var key string
	switch sel.Index {
	case 1:
		key = phrasebank.KeySAFemale16Plus
	case 2:
		key = phrasebank.KeySAMale16Plus
	default:
		key = phrasebank.KeySALGBTQOrNonBinary
	}
	return e.safeguardingExit(s, key, models.SafeguardingSA, patch)
}
