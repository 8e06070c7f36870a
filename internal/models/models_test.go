package models

import (
	"testing"
	"time"
)

func TestStatePatchApplyDoesNotMutateInput(t *testing.T) {
	s := NewSessionState("s1", time.Now())
	s.Profile.Details = map[DetailKey]string{DetailIncome: "benefits"}

	gate := GateGender
	la := "Manchester"
	patch := StatePatch{
		CurrentGate:    &gate,
		LocalAuthority: &la,
		Details:        map[DetailKey]string{DetailEmployment: "paid_work"},
	}

	out := patch.Apply(s)

	if s.CurrentGate != GateInit {
		t.Errorf("input session mutated: gate = %s", s.CurrentGate)
	}
	if s.Profile.LocalAuthority != "" {
		t.Errorf("input profile mutated: localAuthority = %q", s.Profile.LocalAuthority)
	}
	if _, ok := s.Profile.Details[DetailEmployment]; ok {
		t.Error("input details map mutated")
	}
	if out.CurrentGate != GateGender {
		t.Errorf("patch not applied: gate = %s", out.CurrentGate)
	}
	if out.Profile.LocalAuthority != "Manchester" {
		t.Errorf("patch not applied: localAuthority = %q", out.Profile.LocalAuthority)
	}
	if out.Profile.Details[DetailIncome] != "benefits" {
		t.Error("existing detail lost during apply")
	}
	if out.Profile.Details[DetailEmployment] != "paid_work" {
		t.Error("patched detail missing")
	}
}

func TestStatePatchSafeguardingIsMonotonic(t *testing.T) {
	s := NewSessionState("s1", time.Now())
	s.SafeguardingTriggered = true
	s.SafeguardingType = SafeguardingDV

	f := false
	out := StatePatch{SafeguardingTriggered: &f}.Apply(s)
	if !out.SafeguardingTriggered {
		t.Error("patch cleared safeguardingTriggered; must be monotonic")
	}
}

func TestStatePatchResetNeedFields(t *testing.T) {
	s := NewSessionState("s1", time.Now())
	homeless := true
	s.Profile.SupportNeed = "housing"
	s.Profile.Homeless = &homeless
	s.Profile.SleepingSituation = "streets"
	s.Profile.LocalAuthority = "Leeds"
	s.SafeguardingType = ""

	out := StatePatch{ResetNeedFields: true}.Apply(s)
	if out.Profile.SupportNeed != "" || out.Profile.Homeless != nil || out.Profile.SleepingSituation != "" {
		t.Errorf("need fields not reset: %+v", out.Profile)
	}
	if out.Profile.LocalAuthority != "Leeds" {
		t.Error("location field must survive a need reset")
	}
}

func TestSessionStateEnded(t *testing.T) {
	s := NewSessionState("s1", time.Now())
	if s.Ended() {
		t.Error("fresh session should not be ended")
	}
	s.CurrentGate = GateSessionEnd
	if !s.Ended() {
		t.Error("SESSION_END gate should report ended")
	}

	s2 := NewSessionState("s2", time.Now())
	s2.SafeguardingTriggered = true
	if !s2.Ended() {
		t.Error("safeguarded session should report ended regardless of gate")
	}
}

func TestSessionStateJSONRoundTrip(t *testing.T) {
	s := NewSessionState("s1", time.Unix(1700000000, 0).UTC())
	s.CurrentGate = GateSupportNeed
	s.RouteType = RouteTypeQuick
	s.Profile.Details = map[DetailKey]string{DetailPregnancy: "no"}

	data, err := s.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	var back SessionState
	if err := back.FromJSON(data); err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if back.CurrentGate != GateSupportNeed || back.RouteType != RouteTypeQuick {
		t.Errorf("round trip lost fields: %+v", back)
	}
	if back.Profile.Detail(DetailPregnancy) != "no" {
		t.Error("round trip lost detail answers")
	}
}

func TestMessageRequestValidate(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"empty", "", ErrEmptyMessageBody},
		{"ok", "2", nil},
		{"too long", string(make([]byte, MaxMessageBodyLength+1)), ErrMessageBodyTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := MessageRequest{Body: tc.body}
			if err := r.Validate(); err != tc.want {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestIsValidGate(t *testing.T) {
	if !IsValidGate(GateCrisisCheck) {
		t.Error("GATE0_CRISIS_DANGER should be valid")
	}
	if IsValidGate(Gate("NOT_A_GATE")) {
		t.Error("unknown gate should be invalid")
	}
}

func TestAllGatesUnique(t *testing.T) {
	seen := make(map[Gate]bool, len(AllGates))
	for _, g := range AllGates {
		if seen[g] {
			t.Errorf("duplicate gate in AllGates: %s", g)
		}
		seen[g] = true
	}
	if !seen[GateInit] || !seen[GateSessionEnd] {
		t.Error("AllGates must include INIT and SESSION_END")
	}
}
