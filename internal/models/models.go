// Package models defines the core data structures for SafePath.
//
// It includes the session state, the engine's routing result and state
// patch, and the API request/response types shared across modules.
package models

import (
	"encoding/json"
	"errors"
	"time"
)

// RouteType selects how much detailed profiling the conversation asks for.
type RouteType string

const (
	// RouteTypeQuick skips the detailed Section C questions and
	// synthesises default answers for them.
	RouteTypeQuick RouteType = "QUICK"
	// RouteTypeFull asks every detailed profiling question.
	RouteTypeFull RouteType = "FULL"
	// RouteTypeUnset means the user has not chosen a route yet.
	RouteTypeUnset RouteType = ""
)

// Safeguarding type tags recorded when a session exits via a crisis branch.
const (
	SafeguardingPhysicalDanger = "physical_danger"
	SafeguardingDV             = "dv"
	SafeguardingSA             = "sa"
	SafeguardingSelfHarm       = "selfharm"
	SafeguardingUnder16        = "under16"
	SafeguardingFireFlood      = "fire_flood"
)

// Gender buckets stored in the profile. Non-binary, other and
// prefer-not-to-say collapse into one bucket for the DV/SA exits.
const (
	GenderFemale      = "female"
	GenderMale        = "male"
	GenderOther       = "nonbinary_or_other"
	GenderUndisclosed = "prefer_not_to_say"
)

// DetailKey identifies one detailed-profiling answer in the profile.
type DetailKey string

// Homeless continuation detail keys.
const (
	DetailHomelessDuration DetailKey = "homeless_duration"
	DetailHomelessReason   DetailKey = "homeless_reason"
	DetailIncome           DetailKey = "income"
	DetailPriorSupport     DetailKey = "prior_support"
	DetailCurrentSupport   DetailKey = "current_support"
)

// Prevention detail keys.
const (
	DetailPreventionReason       DetailKey = "prevention_reason"
	DetailPreventionUrgency      DetailKey = "prevention_urgency"
	DetailDependents             DetailKey = "dependents"
	DetailEmployment             DetailKey = "employment"
	DetailPreventionPriorSupport DetailKey = "prevention_prior_support"
	DetailSafeguardingNote       DetailKey = "safeguarding_note"
)

// Section C detail keys.
const (
	DetailImmigrationStatus DetailKey = "immigration_status"
	DetailImmigrationNote   DetailKey = "immigration_note"
	DetailDependentChildren DetailKey = "dependent_children"
	DetailExactAge          DetailKey = "exact_age"
	DetailGenderNote        DetailKey = "gender_note"
	DetailPregnancy         DetailKey = "pregnancy"
	DetailEthnicity         DetailKey = "ethnicity"
	DetailPhysicalHealth    DetailKey = "physical_health"
	DetailMentalHealth      DetailKey = "mental_health"
	DetailConvictions       DetailKey = "convictions"
	DetailLGBTQIdentity     DetailKey = "lgbtq_identity"
	DetailLGBTQServicePref  DetailKey = "lgbtq_service_pref"
	DetailCareExperience    DetailKey = "care_experience"
	DetailSocialServices    DetailKey = "social_services"
)

// SectionCKeys lists the detail keys the QUICK route synthesises
// defaults for instead of asking. Downstream consumers must not be able
// to distinguish an explicit "no" from a route-skipped default.
var SectionCKeys = []DetailKey{
	DetailImmigrationStatus,
	DetailImmigrationNote,
	DetailDependentChildren,
	DetailExactAge,
	DetailGenderNote,
	DetailPregnancy,
	DetailEthnicity,
	DetailPhysicalHealth,
	DetailMentalHealth,
	DetailConvictions,
	DetailLGBTQIdentity,
	DetailLGBTQServicePref,
	DetailCareExperience,
	DetailSocialServices,
}

// Profile holds the accumulated answers for one session.
type Profile struct {
	LocalAuthority    string               `json:"local_authority,omitempty"`
	Jurisdiction      string               `json:"jurisdiction,omitempty"`
	UserType          string               `json:"user_type,omitempty"`
	AgeCategory       string               `json:"age_category,omitempty"`
	Gender            string               `json:"gender,omitempty"`
	SupportNeed       string               `json:"support_need,omitempty"`
	Homeless          *bool                `json:"homeless,omitempty"`
	SleepingSituation string               `json:"sleeping_situation,omitempty"`
	HousedSituation   string               `json:"housed_situation,omitempty"`
	PreventionNeed    string               `json:"prevention_need,omitempty"`
	Details           map[DetailKey]string `json:"details,omitempty"`
}

// Detail returns the detailed-profiling answer for key, or "".
func (p *Profile) Detail(key DetailKey) string {
	if p.Details == nil {
		return ""
	}
	return p.Details[key]
}

// SessionState is the persisted snapshot of one triage conversation.
// The engine never mutates it; it returns a StatePatch the caller merges.
type SessionState struct {
	ID                    string    `json:"id"`
	CurrentGate           Gate      `json:"current_gate"`
	RouteType             RouteType `json:"route_type,omitempty"`
	Profile               Profile   `json:"profile"`
	IsSupporter           bool      `json:"is_supporter"`
	UnclearCount          int       `json:"unclear_count"`
	SafeguardingTriggered bool      `json:"safeguarding_triggered"`
	SafeguardingType      string    `json:"safeguarding_type,omitempty"`
	EscalatedFrom         Gate      `json:"escalated_from,omitempty"`
	StartedAt             time.Time `json:"started_at"`
}

// NewSessionState creates a fresh session at the INIT gate.
func NewSessionState(id string, startedAt time.Time) SessionState {
	return SessionState{
		ID:          id,
		CurrentGate: GateInit,
		StartedAt:   startedAt,
	}
}

// Ended reports whether the session has reached its terminal state.
// Once safeguarding has triggered the session is always ended.
func (s *SessionState) Ended() bool {
	return s.CurrentGate == GateSessionEnd || s.SafeguardingTriggered
}

// ToJSON serializes the session state for storage.
func (s *SessionState) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON deserializes a stored session state.
func (s *SessionState) FromJSON(data string) error {
	return json.Unmarshal([]byte(data), s)
}

// StatePatch is a partial update to a SessionState. Each handler sets
// only the fields it authoritatively owns; nil fields are left alone.
type StatePatch struct {
	CurrentGate           *Gate                `json:"current_gate,omitempty"`
	RouteType             *RouteType           `json:"route_type,omitempty"`
	IsSupporter           *bool                `json:"is_supporter,omitempty"`
	UnclearCount          *int                 `json:"unclear_count,omitempty"`
	SafeguardingTriggered *bool                `json:"safeguarding_triggered,omitempty"`
	SafeguardingType      *string              `json:"safeguarding_type,omitempty"`
	EscalatedFrom         *Gate                `json:"escalated_from,omitempty"`
	LocalAuthority        *string              `json:"local_authority,omitempty"`
	Jurisdiction          *string              `json:"jurisdiction,omitempty"`
	UserType              *string              `json:"user_type,omitempty"`
	AgeCategory           *string              `json:"age_category,omitempty"`
	Gender                *string              `json:"gender,omitempty"`
	SupportNeed           *string              `json:"support_need,omitempty"`
	Homeless              *bool                `json:"homeless,omitempty"`
	SleepingSituation     *string              `json:"sleeping_situation,omitempty"`
	HousedSituation       *string              `json:"housed_situation,omitempty"`
	PreventionNeed        *string              `json:"prevention_need,omitempty"`
	Details               map[DetailKey]string `json:"details,omitempty"`
	ResetNeedFields       bool                 `json:"reset_need_fields,omitempty"`
}

// Apply merges the patch into a copy of the session and returns it.
// The original session is not modified. Safeguarding is monotonic: a
// patch can set SafeguardingTriggered but never clear it.
func (p StatePatch) Apply(s SessionState) SessionState {
	out := s
	// Copy the details map so the input snapshot stays untouched.
	out.Profile.Details = make(map[DetailKey]string, len(s.Profile.Details)+len(p.Details))
	for k, v := range s.Profile.Details {
		out.Profile.Details[k] = v
	}

	if p.ResetNeedFields {
		out.Profile.SupportNeed = ""
		out.Profile.Homeless = nil
		out.Profile.SleepingSituation = ""
		out.Profile.HousedSituation = ""
		out.Profile.PreventionNeed = ""
	}
	if p.CurrentGate != nil {
		out.CurrentGate = *p.CurrentGate
	}
	if p.RouteType != nil {
		out.RouteType = *p.RouteType
	}
	if p.IsSupporter != nil {
		out.IsSupporter = *p.IsSupporter
	}
	if p.UnclearCount != nil {
		out.UnclearCount = *p.UnclearCount
	}
	if p.SafeguardingTriggered != nil && *p.SafeguardingTriggered {
		out.SafeguardingTriggered = true
	}
	if p.SafeguardingType != nil {
		out.SafeguardingType = *p.SafeguardingType
	}
	if p.EscalatedFrom != nil {
		out.EscalatedFrom = *p.EscalatedFrom
	}
	if p.LocalAuthority != nil {
		out.Profile.LocalAuthority = *p.LocalAuthority
	}
	if p.Jurisdiction != nil {
		out.Profile.Jurisdiction = *p.Jurisdiction
	}
	if p.UserType != nil {
		out.Profile.UserType = *p.UserType
	}
	if p.AgeCategory != nil {
		out.Profile.AgeCategory = *p.AgeCategory
	}
	if p.Gender != nil {
		out.Profile.Gender = *p.Gender
	}
	if p.SupportNeed != nil {
		out.Profile.SupportNeed = *p.SupportNeed
	}
	if p.Homeless != nil {
		h := *p.Homeless
		out.Profile.Homeless = &h
	}
	if p.SleepingSituation != nil {
		out.Profile.SleepingSituation = *p.SleepingSituation
	}
	if p.HousedSituation != nil {
		out.Profile.HousedSituation = *p.HousedSituation
	}
	if p.PreventionNeed != nil {
		out.Profile.PreventionNeed = *p.PreventionNeed
	}
	for k, v := range p.Details {
		out.Profile.Details[k] = v
	}
	return out
}

// Selection is the outcome of interpreting one raw user input against a
// gate's option list. Index is 1-based; zero means unclear.
type Selection struct {
	Index int `json:"index"`
}

// SelectionUnclear is the sentinel for input that could not be resolved.
var SelectionUnclear = Selection{}

// Unclear reports whether the selection failed to resolve.
func (s Selection) Unclear() bool {
	return s.Index == 0
}

// RoutingResult is the engine's output for one turn. It carries no side
// effects; the caller persists the merged state.
type RoutingResult struct {
	Body         string     `json:"body"`
	Options      []string   `json:"options,omitempty"`
	SessionEnded bool       `json:"session_ended"`
	Patch        StatePatch `json:"state_updates"`
}

// Service represents one organisation in the service directory.
type Service struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	LocalAuthority string `json:"local_authority"`
	Category       string `json:"category"`
	Phone          string `json:"phone,omitempty"`
	Description    string `json:"description,omitempty"`
}

// Validation constants for API input.
const (
	// MaxMessageBodyLength bounds one inbound user message.
	MaxMessageBodyLength = 2000
	// MaxSessionIDLength bounds session identifiers.
	MaxSessionIDLength = 128
)

// Error variables for better error handling and testability.
var (
	ErrEmptyMessageBody   = errors.New("message body cannot be empty")
	ErrMessageBodyTooLong = errors.New("message body exceeds maximum length")
	ErrEmptySessionID     = errors.New("session id cannot be empty")
	ErrSessionIDTooLong   = errors.New("session id exceeds maximum length")
	ErrSessionEnded       = errors.New("session has already ended")
	ErrSessionNotFound    = errors.New("session not found")
)

// MessageRequest is the payload for one conversation turn.
type MessageRequest struct {
	Body string `json:"body"`
}

// Validate validates a MessageRequest.
func (r *MessageRequest) Validate() error {
	if r.Body == "" {
		return ErrEmptyMessageBody
	}
	if len(r.Body) > MaxMessageBodyLength {
		return ErrMessageBodyTooLong
	}
	return nil
}

// SessionCreateResponse is returned when a new session is opened.
type SessionCreateResponse struct {
	SessionID string   `json:"session_id"`
	Body      string   `json:"body"`
	Options   []string `json:"options,omitempty"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response envelope.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// Response represents an incoming message from a messaging channel.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}

// Receipt records the delivery status of an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}

// MessageStatus represents the delivery status of a message.
type MessageStatus string

const (
	// MessageStatusSent indicates the message was sent.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusDelivered indicates the message was delivered.
	MessageStatusDelivered MessageStatus = "delivered"
	// MessageStatusRead indicates the message was read.
	MessageStatusRead MessageStatus = "read"
	// MessageStatusFailed indicates the message failed to send.
	MessageStatusFailed MessageStatus = "failed"
)
