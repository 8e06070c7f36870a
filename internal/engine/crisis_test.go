package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/SafePath-UK/SafePath/internal/models"
)

func crisisSession(t *testing.T) (*Engine, models.SessionState) {
	t.Helper()
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateCrisisCheck
	return e, s
}

func TestPhysicalDangerEndsImmediately(t *testing.T) {
	e, s := crisisSession(t)

	res := turn(t, e, &s, "1")
	if !res.SessionEnded {
		t.Fatal("physical danger should end the session")
	}
	if !strings.Contains(res.Body, "999") {
		t.Error("exit text should point at 999")
	}
	if !s.SafeguardingTriggered || s.SafeguardingType != models.SafeguardingPhysicalDanger {
		t.Errorf("safeguarding not recorded: triggered=%v type=%q", s.SafeguardingTriggered, s.SafeguardingType)
	}
}

func TestDomesticAbuseBranchAsksGenderThenChildren(t *testing.T) {
	e, s := crisisSession(t)

	res := turn(t, e, &s, "2")
	if s.CurrentGate != models.GateDVGenderAsk {
		t.Fatalf("gate = %s, want %s", s.CurrentGate, models.GateDVGenderAsk)
	}
	if res.SessionEnded {
		t.Fatal("DV branch should ask follow-ups before ending")
	}

	turn(t, e, &s, "1") // female
	if s.CurrentGate != models.GateDVChildrenAsk {
		t.Fatalf("gate = %s, want %s", s.CurrentGate, models.GateDVChildrenAsk)
	}
	if s.Profile.Gender != models.GenderFemale {
		t.Errorf("gender = %q, want female", s.Profile.Gender)
	}

	res = turn(t, e, &s, "1") // children in the home
	if !res.SessionEnded {
		t.Fatal("DV exit should end the session")
	}
	if !strings.Contains(res.Body, "0808 2000 247") {
		t.Error("female DV exit should name the national DV helpline")
	}
	if !strings.Contains(res.Body, "children") {
		t.Error("children variant should mention children")
	}
	if s.SafeguardingType != models.SafeguardingDV {
		t.Errorf("safeguarding type = %q, want dv", s.SafeguardingType)
	}
}

func TestDomesticAbuseMaleRoute(t *testing.T) {
	e, s := crisisSession(t)
	turn(t, e, &s, "2")
	turn(t, e, &s, "2") // male
	res := turn(t, e, &s, "2")

	if !strings.Contains(res.Body, "0808 801 0327") {
		t.Error("male DV exit should name the Men's Advice Line")
	}
}

func TestDomesticAbusePreferNotToSaySharesInclusiveExit(t *testing.T) {
	e, s := crisisSession(t)
	turn(t, e, &s, "2")
	turn(t, e, &s, "4") // prefer not to say
	res := turn(t, e, &s, "2")

	if !strings.Contains(res.Body, "Galop") {
		t.Error("undisclosed gender should get the inclusive service")
	}
	if !strings.Contains(res.Body, "0808 2000 247") {
		t.Error("inclusive exit still carries the 24h national helpline")
	}
}

// A survivor who types the word rather than the number must land on
// the service for their own gender.
func TestTypedGenderWordRoutesToMatchingService(t *testing.T) {
	e, s := crisisSession(t)
	turn(t, e, &s, "2")
	turn(t, e, &s, "male")
	if s.Profile.Gender != models.GenderMale {
		t.Fatalf("gender after typing male = %q, want %q", s.Profile.Gender, models.GenderMale)
	}
	res := turn(t, e, &s, "no")
	if !strings.Contains(res.Body, "0808 801 0327") {
		t.Error("typed male should reach the Men's Advice Line exit")
	}

	e2, s2 := crisisSession(t)
	turn(t, e2, &s2, "2")
	turn(t, e2, &s2, "female")
	if s2.Profile.Gender != models.GenderFemale {
		t.Fatalf("gender after typing female = %q, want %q", s2.Profile.Gender, models.GenderFemale)
	}

	e3, s3 := crisisSession(t)
	turn(t, e3, &s3, "3")
	res3 := turn(t, e3, &s3, "male")
	if s3.Profile.Gender != models.GenderMale {
		t.Errorf("gender after typing male = %q, want %q", s3.Profile.Gender, models.GenderMale)
	}
	if !strings.Contains(res3.Body, "SurvivorsUK") {
		t.Error("typed male should reach the SurvivorsUK exit")
	}
}

// Every gender bucket crossed with the children answer reaches its own
// signpost.
func TestDomesticAbuseExitMatrix(t *testing.T) {
	cases := []struct {
		name       string
		gender     string
		children   string
		wantGender string
		wantIn     []string
		wantOut    string
	}{
		{"female with children", "1", "1", models.GenderFemale, []string{"0808 2000 247", "children"}, ""},
		{"female without children", "1", "2", models.GenderFemale, []string{"0808 2000 247"}, "children"},
		{"male with children", "2", "1", models.GenderMale, []string{"0808 801 0327", "children"}, ""},
		{"male without children", "2", "2", models.GenderMale, []string{"0808 801 0327"}, "children"},
		{"non-binary with children", "3", "1", models.GenderOther, []string{"Galop", "0800 999 5428", "children"}, ""},
		{"non-binary without children", "3", "2", models.GenderOther, []string{"Galop", "0800 999 5428"}, "children"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, s := crisisSession(t)
			turn(t, e, &s, "2")
			turn(t, e, &s, tc.gender)
			res := turn(t, e, &s, tc.children)

			if !res.SessionEnded {
				t.Fatal("DV exit should end the session")
			}
			if s.Profile.Gender != tc.wantGender {
				t.Errorf("gender = %q, want %q", s.Profile.Gender, tc.wantGender)
			}
			if s.SafeguardingType != models.SafeguardingDV {
				t.Errorf("safeguarding type = %q, want %q", s.SafeguardingType, models.SafeguardingDV)
			}
			for _, want := range tc.wantIn {
				if !strings.Contains(res.Body, want) {
					t.Errorf("exit text missing %q: %q", want, res.Body)
				}
			}
			if tc.wantOut != "" && strings.Contains(res.Body, tc.wantOut) {
				t.Errorf("exit text should not mention %q", tc.wantOut)
			}
		})
	}
}

func TestSexualViolenceExitMatrix(t *testing.T) {
	cases := []struct {
		name       string
		reply      string
		wantGender string
		wantIn     []string
	}{
		{"female", "1", models.GenderFemale, []string{"Rape Crisis", "0808 500 2222"}},
		{"male", "2", models.GenderMale, []string{"SurvivorsUK"}},
		{"non-binary", "3", models.GenderOther, []string{"Galop"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, s := crisisSession(t)
			turn(t, e, &s, "3")
			res := turn(t, e, &s, tc.reply)

			if !res.SessionEnded {
				t.Fatal("SA exit should end the session")
			}
			if s.Profile.Gender != tc.wantGender {
				t.Errorf("gender = %q, want %q", s.Profile.Gender, tc.wantGender)
			}
			if s.SafeguardingType != models.SafeguardingSA {
				t.Errorf("safeguarding type = %q, want %q", s.SafeguardingType, models.SafeguardingSA)
			}
			for _, want := range tc.wantIn {
				if !strings.Contains(res.Body, want) {
					t.Errorf("exit text missing %q: %q", want, res.Body)
				}
			}
		})
	}
}

func TestSexualViolenceBranch(t *testing.T) {
	e, s := crisisSession(t)

	turn(t, e, &s, "3")
	if s.CurrentGate != models.GateSAGenderAsk {
		t.Fatalf("gate = %s, want %s", s.CurrentGate, models.GateSAGenderAsk)
	}

	res := turn(t, e, &s, "2") // male
	if !res.SessionEnded {
		t.Fatal("SA exit should end the session")
	}
	if !strings.Contains(res.Body, "SurvivorsUK") {
		t.Error("male SA exit should name SurvivorsUK")
	}
	if s.SafeguardingType != models.SafeguardingSA {
		t.Errorf("safeguarding type = %q, want sa", s.SafeguardingType)
	}
}

func TestSelfHarmExit(t *testing.T) {
	e, s := crisisSession(t)

	res := turn(t, e, &s, "4")
	if !res.SessionEnded {
		t.Fatal("self-harm should end the session")
	}
	if !strings.Contains(res.Body, "116 123") {
		t.Error("self-harm exit should name Samaritans")
	}
	if s.SafeguardingType != models.SafeguardingSelfHarm {
		t.Errorf("safeguarding type = %q", s.SafeguardingType)
	}
}

func TestUnder16ExitFromCrisisScreenAndAgeGate(t *testing.T) {
	e, s := crisisSession(t)
	res := turn(t, e, &s, "5")
	if !strings.Contains(res.Body, "0800 1111") {
		t.Error("under-16 exit should name Childline")
	}
	if s.SafeguardingType != models.SafeguardingUnder16 {
		t.Errorf("safeguarding type = %q", s.SafeguardingType)
	}

	// Disclosing under-16 at the age question takes the same exit.
	e2 := newTestEngine(t)
	s2 := models.NewSessionState("s2", time.Now())
	s2.CurrentGate = models.GateAgeCategory
	res2 := turn(t, e2, &s2, "1")
	if !res2.SessionEnded || s2.SafeguardingType != models.SafeguardingUnder16 {
		t.Error("age-gate disclosure should trigger the under-16 exit")
	}
}

func TestFireFloodExit(t *testing.T) {
	e, s := crisisSession(t)
	res := turn(t, e, &s, "6")
	if !res.SessionEnded || s.SafeguardingType != models.SafeguardingFireFlood {
		t.Error("fire/flood should end with safeguarding recorded")
	}
	if !strings.Contains(res.Body, "999") {
		t.Error("fire/flood exit should point at 999")
	}
}

func TestSafeguardedSessionIgnoresFurtherInput(t *testing.T) {
	e, s := crisisSession(t)
	turn(t, e, &s, "1")

	res := turn(t, e, &s, "7")
	if !res.SessionEnded {
		t.Error("safeguarded session must stay ended")
	}
	if res.Patch.CurrentGate != nil || res.Patch.SafeguardingType != nil {
		t.Error("safeguarded session should produce no state changes")
	}
}

func TestLateSafeguardingCheckRoutesToDVFlow(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateSafeguardingCheck

	turn(t, e, &s, "1")
	if s.CurrentGate != models.GateDVGenderAsk {
		t.Fatalf("abuse disclosure should join the DV flow, gate = %s", s.CurrentGate)
	}
}

func TestSafeguardingFollowupStoresNote(t *testing.T) {
	e := newTestEngine(t)
	s := models.NewSessionState("s1", time.Now())
	s.CurrentGate = models.GateSafeguardingCheck
	s.RouteType = models.RouteTypeFull

	turn(t, e, &s, "2")
	if s.CurrentGate != models.GateSafeguardingFollowup {
		t.Fatalf("gate = %s, want %s", s.CurrentGate, models.GateSafeguardingFollowup)
	}

	turn(t, e, &s, "My neighbour's kids are left alone at night")
	if got := s.Profile.Detail(models.DetailSafeguardingNote); !strings.Contains(got, "neighbour") {
		t.Errorf("safeguarding note not stored: %q", got)
	}
	if s.CurrentGate != models.GateImmigration {
		t.Errorf("follow-up should continue the full route, gate = %s", s.CurrentGate)
	}
}
