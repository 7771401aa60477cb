package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// defaultDestinations and defaultActivities stand in for the curated
// destination/activity dataset the semantic extractor is trained on.
// Deployments pass their own lexicons to NewLexiconExtractor.
var defaultDestinations = []string{
	"Ella", "Kandy", "Sigiriya", "Galle", "Mirissa", "Nuwara Eliya",
	"Anuradhapura", "Trincomalee", "Jaffna", "Colombo", "Arugam Bay",
	"Yala", "Udawalawe", "Polonnaruwa", "Hikkaduwa", "Unawatuna",
}

var defaultActivities = []string{
	"hiking", "surfing", "snorkeling", "diving", "safari", "camping",
	"whale watching", "tea tasting", "rock climbing", "kayaking",
	"birdwatching", "cycling", "temple visit", "beach",
}

// LexiconExtractor finds known destinations and activities by
// case-insensitive substring matching against curated lists. Fuzzy
// similarity matching belongs to the external ML collaborator.
type LexiconExtractor struct {
	destinations       []string
	activities         []string
	destinationMatcher *Matcher
	activityMatcher    *Matcher
}

func NewLexiconExtractor(destinations, activities []string) (*LexiconExtractor, error) {
	if len(destinations) == 0 {
		destinations = defaultDestinations
	}
	if len(activities) == 0 {
		activities = defaultActivities
	}
	dm, err := NewMatcher(destinations)
	if err != nil {
		return nil, err
	}
	am, err := NewMatcher(activities)
	if err != nil {
		return nil, err
	}
	return &LexiconExtractor{
		destinations:       destinations,
		activities:         activities,
		destinationMatcher: dm,
		activityMatcher:    am,
	}, nil
}

// Extract returns every known destination and activity mentioned in text,
// with the lexicon's original casing.
func (e *LexiconExtractor) Extract(text string) (destinations, activities []string) {
	return e.restore(e.destinationMatcher.Match(text), e.destinations),
		e.restore(e.activityMatcher.Match(text), e.activities)
}

// restore maps normalized matches back to the lexicon spelling.
func (e *LexiconExtractor) restore(matches, lexicon []string) []string {
	if len(matches) == 0 {
		return nil
	}
	var out []string
	for _, m := range matches {
		for _, entry := range lexicon {
			if strings.EqualFold(m, entry) {
				out = append(out, entry)
				break
			}
		}
	}
	return out
}

// datePhrases interprets relative time expressions against the clock.
var datePhrases = []struct {
	phrase string
	days   int
}{
	{"this weekend", 5},
	{"next weekend", 12},
	{"next month", 30},
}

var numericDate = regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?)`)

// ExtractDate resolves a travel date mentioned in text, either a relative
// phrase or a numeric date. Empty when nothing matches.
func ExtractDate(text string, now time.Time) string {
	lower := normalize(text)
	for _, p := range datePhrases {
		if strings.Contains(lower, p.phrase) {
			return now.AddDate(0, 0, p.days).Format("2006-01-02")
		}
	}
	if m := numericDate.FindString(text); m != "" {
		return m
	}
	return ""
}

var partySize = regexp.MustCompile(`(\d+)\s*(people|persons|friends|members)`)

// ExtractPartySize returns the mentioned head count, 0 when absent.
func ExtractPartySize(text string) int {
	m := partySize.FindStringSubmatch(normalize(text))
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

var tripStyles = []string{
	"adventure", "relaxing", "cultural", "beach", "hiking", "wildlife", "budget", "luxury",
}

// ExtractTripStyle returns the first known style mentioned, empty when none.
func ExtractTripStyle(text string) string {
	lower := normalize(text)
	for _, style := range tripStyles {
		if strings.Contains(lower, style) {
			return style
		}
	}
	return ""
}
