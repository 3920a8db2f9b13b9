package icsexport

import (
	"fmt"
	"os"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/pbaille/calsync/internal/domain"
)

const productID = "-//calsync//Academic Calendar//PT"

// Build renders every dated event of cal as an all-day VEVENT. Events listed
// with explicit dates get one VEVENT per date. Events without any date are
// left out and counted in skipped.
func Build(cal *domain.Calendar, stamp time.Time) (out *ics.Calendar, skipped int) {
	out = ics.NewCalendar()
	out.SetMethod(ics.MethodPublish)
	out.SetProductId(productID)
	out.SetName(calendarName(cal))

	for mi, m := range cal.Months {
		for ei, e := range m.Events {
			spans := eventSpans(e)
			if len(spans) == 0 {
				skipped++
				continue
			}
			for si, sp := range spans {
				uid := fmt.Sprintf("%d-%s-%d-%d-%d@calsync", cal.Year, cal.Semester, mi, ei, si)
				ev := out.AddEvent(uid)
				ev.SetDtStampTime(stamp)
				ev.SetAllDayStartAt(sp.start)
				// DTEND is exclusive for all-day events
				ev.SetAllDayEndAt(sp.end.AddDate(0, 0, 1))
				ev.SetSummary(e.Description)
				ev.AddProperty(ics.ComponentPropertyCategories, string(e.Category))
				if desc := description(e); desc != "" {
					ev.SetDescription(desc)
				}
			}
		}
	}
	return out, skipped
}

// WriteFile serializes cal to path.
func WriteFile(path string, cal *domain.Calendar, stamp time.Time) (int, error) {
	out, skipped := Build(cal, stamp)
	if err := os.WriteFile(path, []byte(out.Serialize()), 0o644); err != nil {
		return skipped, fmt.Errorf("write %s: %w", path, err)
	}
	return skipped, nil
}

type span struct{ start, end time.Time }

func eventSpans(e domain.Event) []span {
	if start, ok := e.Start(); ok {
		end, _ := e.End()
		if end.Before(start) {
			end = start
		}
		return []span{{start, end}}
	}

	var spans []span
	for _, d := range e.Dates {
		if t, ok := domain.ParseDate(d); ok {
			spans = append(spans, span{t, t})
		}
	}
	return spans
}

func description(e domain.Event) string {
	var parts []string
	if e.Notes != "" {
		parts = append(parts, e.Notes)
	}
	if !e.HasClass {
		parts = append(parts, "Sem aula")
	}
	return strings.Join(parts, "\n")
}

func calendarName(cal *domain.Calendar) string {
	name := fmt.Sprintf("Calendário Acadêmico %d-%s", cal.Year, cal.Semester)
	if cal.Institution != "" {
		name = cal.Institution + " - " + name
	}
	return name
}
