package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/phrasebank"
)

type mockClassifier struct {
	index int
	err   error
	calls int
}

func (m *mockClassifier) ClassifySelection(_ context.Context, _ string, _ []string) (int, error) {
	m.calls++
	return m.index, m.err
}

type mockMatcher struct {
	services []models.Service
	err      error
}

func (m *mockMatcher) Match(_ context.Context, _ models.Profile) ([]models.Service, error) {
	return m.services, m.err
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	bank, err := phrasebank.Load()
	if err != nil {
		t.Fatalf("phrasebank.Load failed: %v", err)
	}
	return New(bank, nil, nil)
}

// turn processes one message and applies the resulting patch in place,
// the way a caller would.
func turn(t *testing.T, e *Engine, s *models.SessionState, raw string) models.RoutingResult {
	t.Helper()
	res := e.ProcessTurn(context.Background(), *s, raw)
	*s = res.Patch.Apply(*s)
	return res
}

func TestDispatchTableCoversEveryGate(t *testing.T) {
	for _, g := range models.AllGates {
		if _, ok := handlers[g]; !ok {
			t.Errorf("gate %s has no handler", g)
		}
	}
	if len(handlers) != len(models.AllGates) {
		t.Errorf("handler table has %d entries, want %d", len(handlers), len(models.AllGates))
	}
}

func TestFirstTurnOpensWithCrisisCheck(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())

	res := turn(t, e, &s, "hello")
	if s.CurrentGate != models.GateCrisisCheck {
		t.Fatalf("gate = %s, want %s", s.CurrentGate, models.GateCrisisCheck)
	}
	if len(res.Options) != 7 {
		t.Errorf("crisis check should show 7 options, got %d", len(res.Options))
	}
	if res.SessionEnded {
		t.Error("first turn must not end the session")
	}
}

func TestFullRouteWalkthrough(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())

	steps := []struct {
		input    string
		wantGate models.Gate
	}{
		{"hi", models.GateCrisisCheck},
		{"7", models.GateIntent},
		{"2", models.GateRouteChoice},
		{"1", models.GateLocalAuthority}, // full route
		{"Manchester", models.GateWhoFor},
		{"1", models.GateAgeCategory},
		{"3", models.GateGender},
		{"1", models.GateSupportNeed},
		{"1", models.GateHomelessCheck},
		{"1", models.GateSleepingSituation}, // homeless now
		{"1", models.GateHomelessDuration},  // streets
		{"2", models.GateHomelessReason},
		{"1", models.GateHomelessIncome},
		{"1", models.GateHomelessPriorSupport},
		{"2", models.GateHomelessCurrSupport},
		{"2", models.GateImmigration},
		{"1", models.GateDependentChildren},
		{"2", models.GateAgeExact},
		{"21", models.GateGenderDetail},
		{"1", models.GatePregnancy},
		{"2", models.GateEthnicity},
		{"4", models.GatePhysicalHealth},
		{"2", models.GateMentalHealth},
		{"2", models.GateConvictions},
		{"2", models.GateLGBTQIdentity},
		{"2", models.GateCareStatus}, // not LGBTQ+ skips the preference gate
		{"2", models.GateSocialServices},
	}
	for i, step := range steps {
		turn(t, e, &s, step.input)
		if s.CurrentGate != step.wantGate {
			t.Fatalf("step %d (%q): gate = %s, want %s", i, step.input, s.CurrentGate, step.wantGate)
		}
	}

	res := turn(t, e, &s, "2")
	if s.CurrentGate != models.GateHandoff {
		t.Fatalf("gate = %s, want %s", s.CurrentGate, models.GateHandoff)
	}
	if !strings.Contains(res.Body, "Manchester") {
		t.Error("handoff should name the local authority")
	}
	if !strings.Contains(res.Body, "0808 800 4444") {
		t.Error("handoff should carry the national helpline")
	}
	if !strings.Contains(res.Body, "StreetLink") {
		t.Error("street sleepers should get the outreach signpost")
	}
	if len(res.Options) != 2 {
		t.Errorf("handoff should offer 2 options, got %d", len(res.Options))
	}
	if s.RouteType != models.RouteTypeFull {
		t.Errorf("route = %s, want FULL", s.RouteType)
	}
	if s.Profile.Detail(models.DetailExactAge) != "21" {
		t.Errorf("exact age not stored: %q", s.Profile.Detail(models.DetailExactAge))
	}

	// Declining further help ends the session.
	res = turn(t, e, &s, "2")
	if !res.SessionEnded || s.CurrentGate != models.GateSessionEnd {
		t.Fatalf("session should end, gate = %s", s.CurrentGate)
	}

	// Any further message is a no-op with the closed-session notice.
	res = turn(t, e, &s, "hello?")
	if !res.SessionEnded {
		t.Error("ended session should stay ended")
	}
	if res.Patch.CurrentGate != nil {
		t.Error("ended session should produce no state changes")
	}
}

func TestQuickRouteSynthesisesDetailDefaults(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())

	for _, input := range []string{"hi", "7", "1", "2", "Leeds", "1", "4", "2", "2", "3"} {
		turn(t, e, &s, input)
	}
	if s.CurrentGate != models.GateHandoff {
		t.Fatalf("quick route with settled housing should reach handoff, gate = %s", s.CurrentGate)
	}
	if s.RouteType != models.RouteTypeQuick {
		t.Fatalf("route = %s, want QUICK", s.RouteType)
	}
	for _, key := range models.SectionCKeys {
		if s.Profile.Detail(key) == "" {
			t.Errorf("quick route left detail %s unset", key)
		}
	}
	if got := s.Profile.Detail(models.DetailPregnancy); got != "no" {
		t.Errorf("pregnancy default = %q, want no", got)
	}
	if got := s.Profile.Detail(models.DetailLGBTQServicePref); got != "no_preference" {
		t.Errorf("service pref default = %q, want no_preference", got)
	}
}

func TestHandoffAnotherNeedRestartsAtSupportNeed(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())

	for _, input := range []string{"hi", "7", "1", "2", "Leeds", "1", "4", "2", "1", "3"} {
		turn(t, e, &s, input)
	}
	if s.CurrentGate != models.GateHandoff {
		t.Fatalf("setup failed, gate = %s", s.CurrentGate)
	}

	res := turn(t, e, &s, "1")
	if s.CurrentGate != models.GateSupportNeed {
		t.Fatalf("gate = %s, want %s", s.CurrentGate, models.GateSupportNeed)
	}
	if len(res.Options) != 6 {
		t.Errorf("support need should show 6 options, got %d", len(res.Options))
	}
	if s.Profile.SupportNeed != "" || s.Profile.Homeless != nil {
		t.Error("need fields should be reset for the second pass")
	}
	if s.Profile.LocalAuthority != "Leeds" {
		t.Error("identity answers must survive the second pass")
	}
}

func TestProcessTurnIsPureAndRepeatable(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateSupportNeed

	before := s
	first := e.ProcessTurn(context.Background(), s, "1")
	second := e.ProcessTurn(context.Background(), s, "1")

	if !reflect.DeepEqual(first, second) {
		t.Error("replaying the same snapshot should give an identical result")
	}
	if !reflect.DeepEqual(s, before) {
		t.Error("ProcessTurn mutated its input snapshot")
	}
}

func TestClassifierRescuesFreeFormAnswer(t *testing.T) {
	bank, err := phrasebank.Load()
	if err != nil {
		t.Fatalf("phrasebank.Load failed: %v", err)
	}
	cls := &mockClassifier{index: 7}
	e := New(bank, cls, nil)

	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateCrisisCheck

	turnRes := e.ProcessTurn(context.Background(), s, "nah it's nothing like that mate")
	if cls.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", cls.calls)
	}
	if turnRes.Patch.CurrentGate == nil || *turnRes.Patch.CurrentGate != models.GateIntent {
		t.Error("classifier result should advance the gate")
	}
}

func TestClassifierFailureIsUnclear(t *testing.T) {
	bank, err := phrasebank.Load()
	if err != nil {
		t.Fatalf("phrasebank.Load failed: %v", err)
	}
	e := New(bank, &mockClassifier{err: errors.New("rate limited")}, nil)

	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateCrisisCheck

	res := e.ProcessTurn(context.Background(), s, "zzzz")
	if res.Patch.UnclearCount == nil || *res.Patch.UnclearCount != 1 {
		t.Error("classifier failure should count as one unclear turn")
	}
}

func TestHandoffListsMatchedServices(t *testing.T) {
	bank, err := phrasebank.Load()
	if err != nil {
		t.Fatalf("phrasebank.Load failed: %v", err)
	}
	matcher := &mockMatcher{services: []models.Service{
		{Name: "Booth Centre", Phone: "0161 308 2096", Description: "Day centre and advice"},
	}}
	e := New(bank, nil, matcher)

	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateSocialServices
	s.RouteType = models.RouteTypeFull
	s.Profile.LocalAuthority = "Manchester"
	s.Profile.SupportNeed = "housing"

	res := e.ProcessTurn(context.Background(), s, "2")
	if !strings.Contains(res.Body, "Booth Centre") {
		t.Error("handoff should list matched services")
	}
	if !strings.Contains(res.Body, "0161 308 2096") {
		t.Error("handoff should include service phone numbers")
	}
}

func TestHandoffSurvivesMatcherFailure(t *testing.T) {
	bank, err := phrasebank.Load()
	if err != nil {
		t.Fatalf("phrasebank.Load failed: %v", err)
	}
	e := New(bank, nil, &mockMatcher{err: errors.New("db down")})

	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateSocialServices
	s.Profile.LocalAuthority = "Manchester"
	s.Profile.SupportNeed = "housing"

	res := e.ProcessTurn(context.Background(), s, "2")
	if res.Body == "" || res.Body == phrasebank.FallbackText {
		t.Error("matcher failure should degrade to a summary, not the fallback")
	}
	if !strings.Contains(res.Body, "0808 800 4444") {
		t.Error("degraded handoff still carries the helpline")
	}
}

func TestLGBTQYesAsksServicePreference(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateLGBTQIdentity
	s.RouteType = models.RouteTypeFull

	turn(t, e, &s, "1")
	if s.CurrentGate != models.GateLGBTQServicePref {
		t.Fatalf("gate = %s, want %s", s.CurrentGate, models.GateLGBTQServicePref)
	}
	turn(t, e, &s, "1")
	if s.Profile.Detail(models.DetailLGBTQServicePref) != "lgbtq_specialist" {
		t.Error("specialist preference not stored")
	}
	if s.CurrentGate != models.GateCareStatus {
		t.Errorf("gate = %s, want %s", s.CurrentGate, models.GateCareStatus)
	}
}

func TestSupporterAnswerSwitchesVoice(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateWhoFor
	s.RouteType = models.RouteTypeFull

	res := turn(t, e, &s, "2")
	if !s.IsSupporter {
		t.Fatal("answering for a friend should set the supporter flag")
	}
	if !strings.Contains(res.Body, "they") {
		t.Errorf("next prompt should be in supporter voice: %q", res.Body)
	}
}
