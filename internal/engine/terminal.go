package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/phrasebank"
)

// supportNeedLabels turns the stored need token back into the wording
// used in the handoff summary.
var supportNeedLabels = map[string]string{
	"housing":          "somewhere to stay",
	"money_benefits":   "money or benefits",
	"health_wellbeing": "health and wellbeing",
	"work_learning":    "work or learning",
	"safety":           "staying safe",
}

// composeHandoff builds the handoff summary for a profiled session: the
// matched local services, the council's statutory duty, the national
// helpline, and the street outreach route for people sleeping outside.
// Matching failures degrade to a summary without the service list.
func (e *Engine) composeHandoff(ctx context.Context, s models.SessionState) (string, []string) {
	area := s.Profile.LocalAuthority
	if area == "" {
		area = "your area"
	}
	need, ok := supportNeedLabels[s.Profile.SupportNeed]
	if !ok {
		need = "your situation"
	}

	var parts []string
	if intro, err := e.bank.Resolve(phrasebank.KeyHandoffIntro, s.IsSupporter); err == nil {
		parts = append(parts, fmt.Sprintf(intro.Text, need, area))
	}

	if e.matcher != nil {
		services, err := e.matcher.Match(ctx, s.Profile)
		if err != nil {
			slog.Warn("Engine.composeHandoff service matching failed", "session", s.ID, "error", err)
		} else if len(services) > 0 {
			var b strings.Builder
			if header, herr := e.bank.Resolve(phrasebank.KeyHandoffServicesHeader, s.IsSupporter); herr == nil {
				b.WriteString(header.Text)
			}
			for _, svc := range services {
				b.WriteString("\n• ")
				b.WriteString(svc.Name)
				if svc.Phone != "" {
					b.WriteString(" — ")
					b.WriteString(svc.Phone)
				}
				if svc.Description != "" {
					b.WriteString(". ")
					b.WriteString(svc.Description)
				}
			}
			parts = append(parts, b.String())
		}
	}

	if statutory, err := e.bank.Resolve(phrasebank.KeyHandoffStatutory, s.IsSupporter); err == nil {
		parts = append(parts, fmt.Sprintf(statutory.Text, area))
	}
	parts = append(parts, e.text(phrasebank.KeyHandoffHelpline, s.IsSupporter))

	if s.Profile.SleepingSituation == "streets" {
		parts = append(parts, e.text(phrasebank.KeyHandoffRoughSleeper, s.IsSupporter))
	}

	question, options := e.prompt(models.GateHandoff, s.IsSupporter)
	parts = append(parts, question)

	return strings.Join(parts, "\n\n"), options
}

// handleHandoff closes the loop after a handoff: the user either starts
// another need, which reruns profiling from the support-need question
// against the same identity answers, or says goodbye.
func handleHandoff(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	if sel.Index == 1 {
		return e.enterGate(ctx, s, models.GateSupportNeed, models.StatePatch{ResetNeedFields: true})
	}
	return endSession(e.text(phrasebank.KeyGoodbye, s.IsSupporter), models.StatePatch{})
}

// handleIntervention resolves the stuck-conversation gate: hand off with
// whatever profile exists so far, show a phone number, or go back to the
// question that caused the escalation.
func handleIntervention(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	switch sel.Index {
	case 1:
		return e.enterGate(ctx, s, models.GateHandoff, models.StatePatch{})
	case 2:
		return e.enterGate(ctx, s, models.GatePhoneOffer, models.StatePatch{})
	default:
		return e.enterGate(ctx, s, resumeGate(s), models.StatePatch{})
	}
}

func handlePhoneOffer(e *Engine, ctx context.Context, s models.SessionState, sel models.Selection, _ string) models.RoutingResult {
	if sel.Index == 1 {
		return e.enterGate(ctx, s, resumeGate(s), models.StatePatch{})
	}
	return endSession(e.text(phrasebank.KeyGoodbye, s.IsSupporter), models.StatePatch{})
}

// resumeGate is where a session continues after an escalation detour.
// Sessions that reached the phone offer straight from the intent gate
// have no escalation origin and resume at the route choice.
func resumeGate(s models.SessionState) models.Gate {
	if s.EscalatedFrom != "" && models.IsValidGate(s.EscalatedFrom) {
		return s.EscalatedFrom
	}
	return models.GateRouteChoice
}
