package nlp

import (
	"regexp"

	"trip-hub/domain"
)

// helpLikePatterns catch questions the classifier tends to mislabel. When
// any of them matches, the intent is forced to ask_help regardless of the
// classifier output.
var helpLikePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(has|have)\s+anyone\b`),
	regexp.MustCompile(`\banyone\s+visited\b`),
	regexp.MustCompile(`\bbeen\s+to\b`),
	regexp.MustCompile(`\bany\s+tips\b`),
	regexp.MustCompile(`\blooking\s+for\s+tips\b`),
	regexp.MustCompile(`\bsuggestions\s+for\b`),
	regexp.MustCompile(`\brecommendations\s+for\b`),
	regexp.MustCompile(`\bexperience\s+with\b`),
	regexp.MustCompile(`\bvisited\b`),
}

// IsHelpLike reports whether the message reads as a request for help.
func IsHelpLike(text string) bool {
	lower := normalize(text)
	for _, p := range helpLikePatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	return false
}

// subtypeFamilies lists the keyword families in priority order; the first
// family with a hit wins.
var subtypeFamilies = []struct {
	subtype  domain.HelpSubtype
	keywords []string
}{
	{domain.HelpExperience, []string{
		"been to", "visited", "experience with", "has anyone been", "tips about",
		"what was your experience", "anyone been", "reviews of", "how was",
	}},
	{domain.HelpCost, []string{
		"cost", "price", "budget", "how much", "hotel", "stay", "accommodation",
		"rates", "entry fee", "ticket price", "expense", "cheap", "expensive",
	}},
	{domain.HelpTripPlan, []string{
		"plan a trip", "itinerary", "how to plan", "schedule", "organize", "arrange",
		"trip idea", "planning for", "prepare a trip", "suggest a plan",
	}},
	{domain.HelpRoute, []string{
		"route", "how to get", "how do i reach", "directions", "transport",
		"travel route", "bus to", "train to", "flight to", "commute", "way to",
	}},
	{domain.HelpPacking, []string{
		"pack", "carry", "prepare", "bring", "what should i take",
		"packing list", "essential items", "things to take", "what to wear",
	}},
	{domain.HelpSafety, []string{
		"safe", "dangerous", "risk", "security", "is it safe", "safety",
		"precaution", "crime", "warning", "alert",
	}},
	{domain.HelpWeather, []string{
		"weather", "temperature", "climate", "raining", "rainy", "sunny", "forecast",
	}},
	{domain.HelpCustoms, []string{
		"custom", "tradition", "culture", "dress code", "rules",
		"etiquette", "norms", "social behavior", "dos and don'ts",
	}},
	{domain.HelpLanguage, []string{
		"language", "speak", "how to say", "translate", "communication",
		"local language", "common phrases", "understand locals",
	}},
}

// SubtypeDetector classifies a help question into its keyword family.
type SubtypeDetector struct {
	matchers []struct {
		subtype domain.HelpSubtype
		matcher *Matcher
	}
}

// NewSubtypeDetector builds one automaton per family, preserving the
// priority order.
func NewSubtypeDetector() (*SubtypeDetector, error) {
	d := &SubtypeDetector{}
	for _, family := range subtypeFamilies {
		m, err := NewMatcher(family.keywords)
		if err != nil {
			return nil, err
		}
		d.matchers = append(d.matchers, struct {
			subtype domain.HelpSubtype
			matcher *Matcher
		}{family.subtype, m})
	}
	return d, nil
}

// Detect returns the first family that matches, or HelpGeneric.
func (d *SubtypeDetector) Detect(text string) domain.HelpSubtype {
	for _, entry := range d.matchers {
		if entry.matcher.Contains(text) {
			return entry.subtype
		}
	}
	return domain.HelpGeneric
}
