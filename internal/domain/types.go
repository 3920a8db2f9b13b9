package domain

import (
	"fmt"
	"time"
)

// DateLayout is the date format the extraction schema asks the model for.
const DateLayout = "2006-01-02"

// Category classifies a calendar event
type Category string

const (
	CategoryHoliday       Category = "feriado"
	CategoryNoClass       Category = "sem_aula"
	CategoryAssessment    Category = "avaliacao"
	CategoryEnrollment    Category = "matricula"
	CategoryInstitutional Category = "evento_institucional"
	CategoryMakeup        Category = "reposicao"
	CategoryOther         Category = "outro"
)

// Categories lists every valid category in schema order
var Categories = []Category{
	CategoryHoliday,
	CategoryNoClass,
	CategoryAssessment,
	CategoryEnrollment,
	CategoryInstitutional,
	CategoryMakeup,
	CategoryOther,
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Event is a single entry of the academic calendar
type Event struct {
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Dates       []string `json:"dates,omitempty"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	HasClass    bool     `json:"has_class"`
	Notes       string   `json:"notes,omitempty"`
}

// Start parses the event start date. ok is false when the date is missing
// or cannot be read.
func (e Event) Start() (time.Time, bool) {
	return ParseDate(e.StartDate)
}

// End parses the event end date, falling back to the start date.
func (e Event) End() (time.Time, bool) {
	if t, ok := ParseDate(e.EndDate); ok {
		return t, true
	}
	return e.Start()
}

// Month groups the events listed under one month heading
type Month struct {
	Month  string  `json:"month"`
	Events []Event `json:"events"`
}

// Summary holds the optional totals printed on the calendar
type Summary struct {
	TotalSchoolDays *int `json:"total_school_days,omitempty"`
}

// Calendar is the structured academic calendar extracted from the PDF
type Calendar struct {
	Institution string   `json:"institution,omitempty"`
	Year        int      `json:"year"`
	Semester    string   `json:"semester"`
	Months      []Month  `json:"months"`
	Summary     *Summary `json:"summary,omitempty"`
}

// Validate checks the year and semester bounds the extraction schema
// declares. Event contents are not checked; an unknown category is carried
// through as a label.
func (c *Calendar) Validate() error {
	if c.Year < 2000 || c.Year > 2100 {
		return fmt.Errorf("%w: year %d out of range 2000-2100", ErrParse, c.Year)
	}
	if c.Semester != "1" && c.Semester != "2" {
		return fmt.Errorf("%w: invalid semester %q", ErrParse, c.Semester)
	}
	return nil
}

// EventCount returns the number of events across all months
func (c *Calendar) EventCount() int {
	n := 0
	for _, m := range c.Months {
		n += len(m.Events)
	}
	return n
}

// Task is a task as stored by the task tracker
type Task struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	ProjectID string   `json:"project_id"`
	SectionID string   `json:"section_id,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Due       *Due     `json:"due,omitempty"`
}

// Due is the due date attached to a task
type Due struct {
	Date   string `json:"date"`
	String string `json:"string,omitempty"`
}

// NewTask describes a task to be created
type NewTask struct {
	Content   string   `json:"content"`
	DueString string   `json:"due_string,omitempty"`
	ProjectID string   `json:"project_id,omitempty"`
	SectionID string   `json:"section_id,omitempty"`
	Labels    []string `json:"labels,omitempty"`
}

// ParseDate reads a YYYY-MM-DD date, also accepting a longer RFC 3339 value.
// The result is midnight in the local time zone.
func ParseDate(s string) (time.Time, bool) {
	if len(s) < len(DateLayout) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, s[:len(DateLayout)], time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
