// Package models defines gate definitions for the SafePath triage conversation.
package models

// Gate represents a named state in the triage conversation state machine.
// Exactly one gate is active per session at a time.
type Gate string

// Entry gates.
const (
	GateInit        Gate = "INIT"
	GateCrisisCheck Gate = "GATE0_CRISIS_DANGER"
	GateIntent      Gate = "GATE1_INTENT"
	GateRouteChoice Gate = "GATE2_ROUTE_CHOICE"
)

// Crisis sub-flow gates. Most crisis branches exit the session
// immediately; only the DV and SA branches ask follow-up questions.
const (
	GateDVGenderAsk   Gate = "DV_GENDER_ASK"
	GateDVChildrenAsk Gate = "DV_CHILDREN_ASK"
	GateSAGenderAsk   Gate = "SA_GENDER_ASK"
)

// Core profiling gates.
const (
	GateLocalAuthority    Gate = "B1_LOCAL_AUTHORITY"
	GateWhoFor            Gate = "B2_WHO_FOR"
	GateAgeCategory       Gate = "B3_AGE_CATEGORY"
	GateGender            Gate = "B4_GENDER"
	GateSupportNeed       Gate = "B5_SUPPORT_NEED"
	GateHomelessCheck     Gate = "B6_HOMELESS_CHECK"
	GateSleepingSituation Gate = "B7_SLEEPING_SITUATION"
	GateHousedSituation   Gate = "B8_HOUSED_SITUATION"
	GatePrevention        Gate = "B9_PREVENTION_GATE"
)

// Homeless continuation gates.
const (
	GateHomelessDuration     Gate = "H1_DURATION"
	GateHomelessReason       Gate = "H2_REASON"
	GateHomelessIncome       Gate = "H3_INCOME"
	GateHomelessPriorSupport Gate = "H4_PRIOR_SUPPORT"
	GateHomelessCurrSupport  Gate = "H5_CURRENT_SUPPORT"
)

// Prevention profiling gates.
const (
	GatePreventionReason       Gate = "P1_REASON"
	GatePreventionUrgency      Gate = "P2_URGENCY"
	GatePreventionDependents   Gate = "P3_DEPENDENTS"
	GatePreventionEmployment   Gate = "P4_EMPLOYMENT"
	GatePreventionPriorSupport Gate = "P5_PRIOR_SUPPORT"
	GateSafeguardingCheck      Gate = "P6_SAFEGUARDING_CHECK"
	GateSafeguardingFollowup   Gate = "P7_SAFEGUARDING_FOLLOWUP"
)

// Detailed "Section C" profiling gates, asked on the FULL route only.
const (
	GateImmigration         Gate = "C1_IMMIGRATION"
	GateImmigrationFollowup Gate = "C1A_IMMIGRATION_FOLLOWUP"
	GateDependentChildren   Gate = "C2_DEPENDENT_CHILDREN"
	GateAgeExact            Gate = "C3_AGE_EXACT"
	GateGenderDetail        Gate = "C4_GENDER_DETAIL"
	GatePregnancy           Gate = "C5_PREGNANCY"
	GateEthnicity           Gate = "C6_ETHNICITY"
	GatePhysicalHealth      Gate = "C7_PHYSICAL_HEALTH"
	GateMentalHealth        Gate = "C8_MENTAL_HEALTH"
	GateConvictions         Gate = "C9_CONVICTIONS"
	GateLGBTQIdentity       Gate = "C10_LGBTQ_IDENTITY"
	GateLGBTQServicePref    Gate = "C10A_LGBTQ_SERVICE_PREF"
	GateCareStatus          Gate = "C11_CARE_STATUS"
	GateSocialServices      Gate = "C12_SOCIAL_SERVICES"
)

// Terminal and escalation gates.
const (
	GateHandoff      Gate = "T1_HANDOFF"
	GateIntervention Gate = "E1_INTERVENTION"
	GatePhoneOffer   Gate = "E2_PHONE_OFFER"
	GateSessionEnd   Gate = "SESSION_END"
)

// AllGates lists every gate in the conversation, in rough conversational
// order. The engine's dispatch table is checked against this list, so a
// new gate added here without a handler fails the exhaustiveness test.
var AllGates = []Gate{
	GateInit,
	GateCrisisCheck,
	GateIntent,
	GateRouteChoice,
	GateDVGenderAsk,
	GateDVChildrenAsk,
	GateSAGenderAsk,
	GateLocalAuthority,
	GateWhoFor,
	GateAgeCategory,
	GateGender,
	GateSupportNeed,
	GateHomelessCheck,
	GateSleepingSituation,
	GateHousedSituation,
	GatePrevention,
	GateHomelessDuration,
	GateHomelessReason,
	GateHomelessIncome,
	GateHomelessPriorSupport,
	GateHomelessCurrSupport,
	GatePreventionReason,
	GatePreventionUrgency,
	GatePreventionDependents,
	GatePreventionEmployment,
	GatePreventionPriorSupport,
	GateSafeguardingCheck,
	GateSafeguardingFollowup,
	GateImmigration,
	GateImmigrationFollowup,
	GateDependentChildren,
	GateAgeExact,
	GateGenderDetail,
	GatePregnancy,
	GateEthnicity,
	GatePhysicalHealth,
	GateMentalHealth,
	GateConvictions,
	GateLGBTQIdentity,
	GateLGBTQServicePref,
	GateCareStatus,
	GateSocialServices,
	GateHandoff,
	GateIntervention,
	GatePhoneOffer,
	GateSessionEnd,
}

// IsValidGate checks if the given gate is part of the conversation.
func IsValidGate(g Gate) bool {
	for _, known := range AllGates {
		if g == known {
			return true
		}
	}
	return false
}
