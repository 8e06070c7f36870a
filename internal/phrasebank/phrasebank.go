// Package phrasebank resolves the pre-authored, safeguarding-reviewed
// text shown at each gate of the triage conversation.
//
// Phrase entries are keyed by gate name. A gate that needs different
// wording when the user is acting for someone else carries a second
// entry under the "__SUPPORTER"-suffixed key; resolution falls back to
// the canonical key when no supporter variant exists.
package phrasebank

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

//go:embed phrases.json
var phraseData []byte

// SupporterSuffix marks the supporter-voice variant of a phrase key.
const SupporterSuffix = "__SUPPORTER"

// FallbackText is the generic safe response used when a phrase cannot
// be resolved. It must never be empty and always carries a crisis line.
const FallbackText = "Sorry — something went wrong on our side. " +
	"If you are in immediate danger, call 999. " +
	"You can also talk to Samaritans any time, free, on 116 123, " +
	"or call Shelter's emergency helpline on 0808 800 4444."

// ErrMissingPhrase indicates a gate has no resolvable prompt. This is a
// data-integrity fault; callers must degrade to FallbackText rather
// than surface an empty message.
var ErrMissingPhrase = errors.New("no phrase entry for key")

// Keys for terminal phrases that are not gates themselves.
const (
	KeyExitPhysicalDanger = "EXIT_PHYSICAL_DANGER"
	KeyExitSelfHarm       = "EXIT_SELFHARM"
	KeyExitUnder16        = "EXIT_UNDER16"
	KeyExitFireFlood      = "EXIT_FIRE_FLOOD"

	KeyDVFemaleChildrenYes = "DV_FEMALE_CHILDREN_YES"
	KeyDVFemaleChildrenNo  = "DV_FEMALE_CHILDREN_NO"
	KeyDVMaleChildrenYes   = "DV_MALE_CHILDREN_YES"
	KeyDVMaleChildrenNo    = "DV_MALE_CHILDREN_NO"
	KeyDVLGBTQChildrenYes  = "DV_LGBTQ_CHILDREN_YES"
	KeyDVLGBTQChildrenNo   = "DV_LGBTQ_CHILDREN_NO"

	KeySAFemale16Plus     = "SA_FEMALE_16PLUS"
	KeySAMale16Plus       = "SA_MALE_16PLUS"
	KeySALGBTQOrNonBinary = "SA_LGBTQ_OR_NONBINARY"

	KeyFinalEscalation     = "E3_FINAL_ESCALATION"
	KeyGoodbye             = "GOODBYE"
	KeySessionAlreadyEnded = "SESSION_ALREADY_ENDED"
	KeyClarifyNote         = "CLARIFY_NOTE"

	KeyHandoffIntro          = "HANDOFF_INTRO"
	KeyHandoffServicesHeader = "HANDOFF_SERVICES_HEADER"
	KeyHandoffStatutory      = "HANDOFF_STATUTORY"
	KeyHandoffHelpline       = "HANDOFF_HELPLINE"
	KeyHandoffRoughSleeper   = "HANDOFF_ROUGH_SLEEPER"
)

// Entry holds the prompt text and the ordered option labels for one key.
type Entry struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}

// Bank is a loaded phrase resource.
type Bank struct {
	entries map[string]Entry
}

// Load parses the embedded phrase data into a Bank.
func Load() (*Bank, error) {
	var entries map[string]Entry
	if err := json.Unmarshal(phraseData, &entries); err != nil {
		slog.Error("phrasebank Load failed to parse embedded data", "error", err)
		return nil, fmt.Errorf("failed to parse phrase data: %w", err)
	}
	slog.Debug("phrasebank loaded", "entries", len(entries))
	return &Bank{entries: entries}, nil
}

// Resolve looks up the entry for key, preferring the supporter-voice
// variant when supporter is true. Falling back from the supporter key
// to the canonical key is silent; a missing canonical key is an error.
func (b *Bank) Resolve(key string, supporter bool) (Entry, error) {
	if supporter {
		if e, ok := b.entries[key+SupporterSuffix]; ok {
			return e, nil
		}
	}
	if e, ok := b.entries[key]; ok {
		return e, nil
	}
	slog.Error("phrasebank missing entry", "key", key, "supporter", supporter)
	return Entry{}, fmt.Errorf("%w: %s", ErrMissingPhrase, key)
}

// Options returns the option labels for key, honoring the supporter
// voice. A missing entry yields nil, never an inferred option list.
func (b *Bank) Options(key string, supporter bool) []string {
	e, err := b.Resolve(key, supporter)
	if err != nil {
		return nil
	}
	return e.Options
}

// Has reports whether an entry exists for the exact key (no fallback).
func (b *Bank) Has(key string) bool {
	_, ok := b.entries[key]
	return ok
}
