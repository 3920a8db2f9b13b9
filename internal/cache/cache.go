package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pbaille/calsync/internal/domain"
)

// State tells how far a calendar document got through the pipeline
type State int

const (
	StateAbsent State = iota
	StateDownloaded
	StateExtracted
)

func (s State) String() string {
	switch s {
	case StateDownloaded:
		return "downloaded"
	case StateExtracted:
		return "extracted"
	default:
		return "absent"
	}
}

// YearSemester maps months 1-6 to semester "1" and 7-12 to "2" of now's year.
// Institution-specific term boundaries are not taken into account.
func YearSemester(now time.Time) (int, string) {
	if now.Month() <= time.June {
		return now.Year(), "1"
	}
	return now.Year(), "2"
}

// Document is the set of cache artifacts for one year and semester
type Document struct {
	Year     int
	Semester string
	PDFPath  string
	JSONPath string
	ICSPath  string
}

// NewDocument derives the artifact paths under dir.
func NewDocument(dir string, year int, semester string) Document {
	id := Identifier(year, semester)
	return Document{
		Year:     year,
		Semester: semester,
		PDFPath:  filepath.Join(dir, id+".pdf"),
		JSONPath: filepath.Join(dir, id+".json"),
		ICSPath:  filepath.Join(dir, id+".ics"),
	}
}

// Identifier returns the base name shared by the artifacts, e.g.
// calendario_academico_2025-2.
func Identifier(year int, semester string) string {
	return "calendario_academico_" + strconv.Itoa(year) + "-" + semester
}

func (d Document) HasPDF() bool  { return exists(d.PDFPath) }
func (d Document) HasJSON() bool { return exists(d.JSONPath) }

// State reports the furthest step whose artifact is on disk.
func (d Document) State() State {
	switch {
	case d.HasJSON():
		return StateExtracted
	case d.HasPDF():
		return StateDownloaded
	default:
		return StateAbsent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SaveJSON writes the extracted calendar JSON as-is.
func SaveJSON(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// LoadCalendar reads and validates a cached calendar.
func LoadCalendar(path string) (*domain.Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cal domain.Calendar
	if err := json.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrParse, path, err)
	}
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cal, nil
}

// LoadSchema reads the extraction schema file. The content is passed to the
// model verbatim, so it is only checked to be valid JSON.
func LoadSchema(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: schema file %s not found (run genschema)", domain.ErrParse, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: schema file %s is not valid JSON", domain.ErrParse, path)
	}
	return json.RawMessage(data), nil
}
