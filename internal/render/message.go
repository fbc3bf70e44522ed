// Package render produces the two-message textual representation of an
// event: a header line and a body holding schedule, description and the
// grouped roster. Rendering is a pure function of its inputs so re-renders
// of unchanged state produce byte-identical messages.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/heraldbot/backend/internal/emoji"
	"github.com/heraldbot/backend/internal/models"
)

// DefaultDurationMinutes is the duration that goes without saying; the
// duration line is only rendered when the event deviates from it.
const DefaultDurationMinutes = 60

const (
	startEmojiName     = "Start"
	organiserEmojiName = "Organiser"
	durationEmojiName  = "Duration"
	peopleEmojiName    = "People"
)

// Renderer renders events for a guild's event role.
type Renderer struct {
	EventRoleID int64
}

// New creates a renderer mentioning the given event role.
func New(eventRoleID int64) *Renderer {
	return &Renderer{EventRoleID: eventRoleID}
}

// Header renders the heading message: the event type's emoji and the name.
func (r *Renderer) Header(event *models.Event) string {
	return fmt.Sprintf("# %s %s", emoji.Resolve(string(event.EventType)), event.Name)
}

// Body renders the body message: role mention, start time, organiser,
// optional duration, description, attendee counts and the grouped roster.
func (r *Renderer) Body(event *models.Event, registrations []models.Registration) string {
	grouped := splitByStatus(registrations)
	guaranteed, maximum := 0, 0
	for _, status := range models.Statuses {
		maximum += len(grouped[status])
		if status.Guaranteed() {
			guaranteed += len(grouped[status])
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<@&%d>\n%s <t:%d:F>\n%s <@%d>",
		r.EventRoleID,
		emoji.Resolve(startEmojiName), event.UTCStart.Unix(),
		emoji.Resolve(organiserEmojiName), event.OrganiserID)

	if minutes := event.DurationMinutes(); minutes != DefaultDurationMinutes {
		fmt.Fprintf(&b, "\t%s %s minutes",
			emoji.Resolve(durationEmojiName), strconv.FormatFloat(minutes, 'f', 1, 64))
	}

	fmt.Fprintf(&b, "\n\n%s\n\n%s %d - %d Attendees:\n",
		event.Description, emoji.Resolve(peopleEmojiName), guaranteed, maximum)

	for _, status := range models.Statuses {
		for _, reg := range grouped[status] {
			b.WriteString("\n")
			b.WriteString(attendeeLine(reg))
		}
	}
	return b.String()
}

// attendeeLine renders one roster entry: status emoji, job emoji when a job
// is set, the status label and the user mention.
func attendeeLine(reg models.Registration) string {
	statusEmoji := emoji.Resolve(string(reg.Status))
	if reg.Job != nil {
		jobEmoji := emoji.Resolve(string(*reg.Job))
		return fmt.Sprintf("%s%s %s <@%d>", statusEmoji, jobEmoji, reg.Status, reg.UserID)
	}
	return fmt.Sprintf("%s %s <@%d>", statusEmoji, reg.Status, reg.UserID)
}

// splitByStatus groups registrations by status, preserving input order
// within each group so the roster keeps store insertion order.
func splitByStatus(registrations []models.Registration) map[models.Status][]models.Registration {
	grouped := make(map[models.Status][]models.Registration, len(models.Statuses))
	for _, reg := range registrations {
		grouped[reg.Status] = append(grouped[reg.Status], reg)
	}
	return grouped
}
