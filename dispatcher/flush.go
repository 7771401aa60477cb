package dispatcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trip-hub/buffer"
	"trip-hub/domain"
)

// scheduleFlush arms the silence flush for one user's staging buffer. Every
// share_experience message arms another timer; only the one that finds the
// buffer still tagged, non-empty and quiet performs the flush, the rest
// become no-ops inside TakeIfSilent.
func (d *Dispatcher) scheduleFlush(groupID, userID, username string) {
	d.deferred.After(d.timersCtx, d.timers.FlushSilence, "experience-flush", func(ctx context.Context) {
		drained, ok := d.buffers.TakeIfSilent(groupID, userID, domain.IntentShareExperience, d.timers.FlushSilence)
		if !ok {
			return
		}
		d.commitExperience(groupID, username, drained)
	})
}

// flushOnIntentChange commits a pending experience buffer when the user
// switches away from share_experience. Inside the grace window the buffer is
// flushed; past it the content is considered abandoned and dropped without
// an announcement.
func (d *Dispatcher) flushOnIntentChange(in Inbound, intent domain.Intent, now time.Time) {
	if intent == domain.IntentShareExperience {
		return
	}
	entry, ok := d.buffers.Get(in.GroupID, in.UserID)
	if !ok || entry.Intent != domain.IntentShareExperience || entry.Empty() {
		return
	}
	if now.Sub(entry.LastMessageAt) > d.timers.FlushGrace {
		d.buffers.Clear(in.GroupID, in.UserID)
		d.log.Info("Stale experience buffer discarded",
			"group", in.GroupID, "user", in.UserID, "age", now.Sub(entry.LastMessageAt))
		return
	}
	drained, ok := d.buffers.TakeIfTagged(in.GroupID, in.UserID, domain.IntentShareExperience)
	if !ok {
		return
	}
	d.commitExperience(in.GroupID, in.Username, drained)
}

// commitExperience extracts entities from the combined narrative, records it
// in the group context and announces the save.
func (d *Dispatcher) commitExperience(groupID, username string, entry buffer.Entry) {
	combined := entry.Combined()
	destinations, activities := d.extractor.Extract(combined)

	if err := d.store.RecordExperience(groupID, username, combined, destinations, activities); err != nil {
		d.log.Warn("Failed to record experience", "group", groupID, "user", username, "error", err)
		return
	}
	d.log.Info("Experience committed",
		"group", groupID,
		"user", username,
		"messages", len(entry.Messages),
		"destinations", destinations,
		"activities", activities)

	var b strings.Builder
	fmt.Fprintf(&b, "🙏 Thanks %s, your experience has been saved!", username)
	if len(destinations) > 0 {
		fmt.Fprintf(&b, " Places: %s.", strings.Join(destinations, ", "))
	}
	if len(activities) > 0 {
		fmt.Fprintf(&b, " Activities: %s.", strings.Join(activities, ", "))
	}
	d.postBot(groupID, b.String(), "experience_saved")
}
