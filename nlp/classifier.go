package nlp

import (
	"trip-hub/domain"
)

// intentFamilies are checked in order; the first family with a hit wins and
// unmatched text falls through to generic. The production classifier is an
// external sentence-embedding model; this keyword version keeps the binary
// usable without it.
var intentFamilies = []struct {
	intent   domain.Intent
	keywords []string
}{
	{domain.IntentAskHelp, []string{
		"any tips", "how do i", "how much", "can someone", "what about",
		"suggestions", "recommend", "help me", "should i",
	}},
	{domain.IntentShareExperience, []string{
		"we went", "i went", "i visited", "we visited", "last year", "last month",
		"my trip", "our trip", "i stayed", "we stayed", "i remember",
	}},
	{domain.IntentPlanTrip, []string{
		"let's go", "lets go", "plan a trip", "planning to go", "trip to",
		"we should go", "how about going", "thinking of going",
	}},
	{domain.IntentGreet, []string{
		"hello", "hi everyone", "hey all", "good morning", "good evening",
		"hey there", "hi all",
	}},
}

// KeywordClassifier is the default in-process intent classifier.
type KeywordClassifier struct {
	matchers []struct {
		intent  domain.Intent
		matcher *Matcher
	}
}

func NewKeywordClassifier() (*KeywordClassifier, error) {
	c := &KeywordClassifier{}
	for _, family := range intentFamilies {
		m, err := NewMatcher(family.keywords)
		if err != nil {
			return nil, err
		}
		c.matchers = append(c.matchers, struct {
			intent  domain.Intent
			matcher *Matcher
		}{family.intent, m})
	}
	return c, nil
}

func (c *KeywordClassifier) Classify(text string) domain.Intent {
	for _, entry := range c.matchers {
		if entry.matcher.Contains(text) {
			return entry.intent
		}
	}
	return domain.IntentGeneric
}
