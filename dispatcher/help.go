package dispatcher

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/abadojack/whatlanggo"

	"trip-hub/assistant"
	"trip-hub/domain"
)

// helpRequest snapshots everything a help timer needs at scheduling time, so
// a fire-time answer is built from the question as it was asked.
type helpRequest struct {
	GroupID  string
	UserID   string
	Username string
	Question string
	Subtype  domain.HelpSubtype
	AskedAt  time.Time
}

// scheduleHelp arms the delayed help response. At fire time it re-reads the
// group context and answers only when the conversation has gone quiet and
// the assistant has not already replied since the question.
func (d *Dispatcher) scheduleHelp(req helpRequest) {
	d.deferred.After(d.timersCtx, d.timers.HelpDelay, "delayed-help", func(ctx context.Context) {
		snap, err := d.store.Get(req.GroupID)
		if err != nil {
			d.log.Warn("Failed to read context for delayed help", "group", req.GroupID, "error", err)
			return
		}
		if !snap.LastMessageAt.IsZero() && time.Since(snap.LastMessageAt) < d.timers.HelpQuietWindow {
			return
		}
		if !snap.LastReplyAt.IsZero() && snap.LastReplyAt.After(req.AskedAt) {
			return
		}
		d.answerHelp(ctx, req)
	})
}

// HandleConfirmHelp answers immediately, skipping the delay. The user has
// explicitly confirmed they want the assistant's input.
func (d *Dispatcher) HandleConfirmHelp(ctx context.Context, groupID, userID, username, question string) {
	d.answerHelp(ctx, helpRequest{
		GroupID:  groupID,
		UserID:   userID,
		Username: username,
		Question: question,
		Subtype:  d.subtypes.Detect(question),
		AskedAt:  time.Now().UTC(),
	})
}

func (d *Dispatcher) answerHelp(ctx context.Context, req helpRequest) {
	d.log.Info("Answering help question",
		"group", req.GroupID, "user", req.UserID, "subtype", req.Subtype)
	reply := d.composeHelp(ctx, req)
	if reply == "" {
		return
	}
	d.postBot(req.GroupID, reply, "help_"+string(req.Subtype))
}

// helpPrompts are forwarded to the generative collaborator with the question
// appended. Subtypes absent here have dedicated handlers.
var helpPrompts = map[domain.HelpSubtype]string{
	domain.HelpCost:     "Give a short cost estimate for this travel question, two sentences at most: ",
	domain.HelpTripPlan: "Suggest a short itinerary for this request, three bullet points at most: ",
	domain.HelpPacking:  "List the essential things to pack for this trip, keep it short: ",
	domain.HelpSafety:   "Give brief safety advice for this travel question: ",
	domain.HelpCustoms:  "Describe the local customs relevant to this question in two sentences: ",
	domain.HelpGeneric:  "Answer this travel question briefly and helpfully: ",
}

func (d *Dispatcher) composeHelp(ctx context.Context, req helpRequest) string {
	switch req.Subtype {
	case domain.HelpExperience:
		return d.experienceAnswer(ctx, req)
	case domain.HelpWeather:
		return d.weatherAnswer(ctx, req)
	case domain.HelpRoute:
		return d.routeAnswer(ctx, req)
	case domain.HelpLanguage:
		return d.languageAnswer(ctx, req)
	default:
		prompt, ok := helpPrompts[req.Subtype]
		if !ok {
			prompt = helpPrompts[domain.HelpGeneric]
		}
		return d.askAssistant(ctx, prompt+req.Question)
	}
}

// experienceAnswer surfaces what members shared earlier: first the live
// context log, then the durable archive, then the generative fallback.
func (d *Dispatcher) experienceAnswer(ctx context.Context, req helpRequest) string {
	destinations, activities := d.extractor.Extract(req.Question)
	keywords := append(destinations, activities...)
	for _, keyword := range keywords {
		entry, found, err := d.store.FindExperience(req.GroupID, keyword)
		if err != nil {
			d.log.Warn("Experience lookup failed", "group", req.GroupID, "error", err)
			break
		}
		if found {
			return fmt.Sprintf("📝 %s shared this earlier about %s:\n> %s", entry.User, keyword, entry.Message)
		}
	}
	if d.archive != nil {
		hits, err := d.archive.Search(ctx, req.GroupID, req.Question, 1)
		if err != nil {
			d.log.Warn("Archive search failed", "group", req.GroupID, "error", err)
		} else if len(hits) > 0 {
			return fmt.Sprintf("📝 %s shared this a while back:\n> %s", hits[0].User, hits[0].Message)
		}
	}
	return "🤷 No one in the group has shared an experience about that yet."
}

func (d *Dispatcher) weatherAnswer(ctx context.Context, req helpRequest) string {
	destinations, _ := d.extractor.Extract(req.Question)
	place := "Sri Lanka"
	if len(destinations) > 0 {
		place = destinations[0]
	}
	report, err := d.weather.Weather(ctx, place)
	if err != nil {
		d.log.Warn("Weather lookup failed", "place", place, "error", err)
		return assistant.WeatherApology
	}
	return report
}

func (d *Dispatcher) routeAnswer(ctx context.Context, req helpRequest) string {
	destinations, _ := d.extractor.Extract(req.Question)
	switch {
	case len(destinations) >= 2:
		return fmt.Sprintf("🗺️ Route from %s to %s: https://www.google.com/maps/dir/?api=1&origin=%s&destination=%s",
			destinations[0], destinations[1],
			url.QueryEscape(destinations[0]), url.QueryEscape(destinations[1]))
	case len(destinations) == 1:
		return fmt.Sprintf("🗺️ Route to %s: https://www.google.com/maps/dir/?api=1&destination=%s",
			destinations[0], url.QueryEscape(destinations[0]))
	default:
		return d.askAssistant(ctx, "Suggest the best way to travel for this question: "+req.Question)
	}
}

func (d *Dispatcher) languageAnswer(ctx context.Context, req helpRequest) string {
	info := whatlanggo.Detect(req.Question)
	langCode := info.Lang.Iso6391()
	prompt := "Give a few useful local phrases for this travel question: " + req.Question
	if langCode != "" {
		prompt = fmt.Sprintf(
			"The question is written in %q. Give a few useful local phrases for this travel question: %s",
			langCode, req.Question)
	}
	return d.askAssistant(ctx, prompt)
}

// askAssistant degrades failures to the static apology so the group always
// gets an answer.
func (d *Dispatcher) askAssistant(ctx context.Context, prompt string) string {
	reply, err := d.assistant.Ask(ctx, prompt)
	if err != nil {
		d.log.Warn("Assistant call failed", "error", err)
		return assistant.Apology
	}
	return reply
}
