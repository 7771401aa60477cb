package domain

// Intent is the coarse classification label attached to a chat message.
// The closed label set mirrors what the external classifier produces.
type Intent string

const (
	IntentPlanTrip        Intent = "plan_trip"
	IntentShareExperience Intent = "share_experience"
	IntentGreet           Intent = "greet"
	IntentAskHelp         Intent = "ask_help"
	IntentGeneric         Intent = "generic"
)

// HelpSubtype refines an ask_help message into a keyword family.
// Families are checked in priority order; the first match wins.
type HelpSubtype string

const (
	HelpExperience HelpSubtype = "experience"
	HelpCost       HelpSubtype = "cost_info"
	HelpTripPlan   HelpSubtype = "trip_plan"
	HelpRoute      HelpSubtype = "route"
	HelpPacking    HelpSubtype = "packing"
	HelpSafety     HelpSubtype = "safety"
	HelpWeather    HelpSubtype = "weather"
	HelpCustoms    HelpSubtype = "customs"
	HelpLanguage   HelpSubtype = "language"
	HelpGeneric    HelpSubtype = "generic"
)
