package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pbaille/calsync/internal/cache"
	"github.com/pbaille/calsync/internal/domain"
	"github.com/pbaille/calsync/internal/reconcile"
	"github.com/sirupsen/logrus"
)

// Locator finds the calendar document link on a landing page
type Locator interface {
	FindCalendarLink(ctx context.Context, pageURL string) (string, error)
}

// Downloader stores a remote file locally
type Downloader interface {
	Download(ctx context.Context, fileURL, dest string) error
}

// Extractor turns a calendar PDF into schema-shaped JSON
type Extractor interface {
	Extract(ctx context.Context, pdfPath string, schema json.RawMessage) ([]byte, error)
}

// Options wires a Pipeline. NewExtractor is only called when the JSON cache
// is missing, so a missing model API key does not fail cached runs.
type Options struct {
	CalendarURL  string
	CacheDir     string
	SchemaFile   string
	ProjectID    string
	SectionID    string
	Locator      Locator
	Downloader   Downloader
	NewExtractor func() (Extractor, error)
	Tasks        reconcile.TaskService
	Now          func() time.Time
	Log          *logrus.Entry
}

// Summary reports one run
type Summary struct {
	Document   cache.Document
	Downloaded bool
	Extracted  bool
	reconcile.Result
}

// Pipeline runs locate, download, extract and reconcile in order
type Pipeline struct {
	opts Options
	log  *logrus.Entry
}

func New(opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CacheDir == "" {
		opts.CacheDir = "."
	}
	if opts.Log == nil {
		opts.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{opts: opts, log: opts.Log.WithField("component", "pipeline")}
}

// Prepare makes sure the extracted calendar JSON for the current semester
// exists, downloading and extracting only what is missing from the cache.
func (p *Pipeline) Prepare(ctx context.Context) (Summary, error) {
	var sum Summary

	year, semester := cache.YearSemester(p.opts.Now())
	doc := cache.NewDocument(p.opts.CacheDir, year, semester)
	sum.Document = doc
	p.log.WithFields(logrus.Fields{"year": year, "semester": semester, "state": doc.State()}).
		Info("starting calendar extraction")

	if err := os.MkdirAll(p.opts.CacheDir, 0o755); err != nil {
		return sum, fmt.Errorf("create cache dir: %w", err)
	}

	if doc.HasPDF() {
		p.log.WithField("file", doc.PDFPath).Info("calendar PDF already cached")
	} else {
		if err := p.download(ctx, doc); err != nil {
			return sum, err
		}
		sum.Downloaded = true
	}

	if doc.HasJSON() {
		p.log.WithField("file", doc.JSONPath).Info("calendar JSON already cached")
		return sum, nil
	}

	if err := p.extract(ctx, doc); err != nil {
		return sum, err
	}
	sum.Extracted = true
	return sum, nil
}

// Run prepares the calendar and reconciles the task section with it.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	sum, err := p.Prepare(ctx)
	if err != nil {
		return sum, err
	}

	cal, err := cache.LoadCalendar(sum.Document.JSONPath)
	if err != nil {
		return sum, err
	}

	r := reconcile.New(p.opts.Tasks, p.opts.ProjectID, p.opts.SectionID, p.opts.Log).WithClock(p.opts.Now)
	res, err := r.Run(ctx, cal)
	sum.Result = res
	if err != nil {
		return sum, fmt.Errorf("reconcile: %w", err)
	}
	return sum, nil
}

func (p *Pipeline) download(ctx context.Context, doc cache.Document) error {
	p.log.WithField("url", p.opts.CalendarURL).Info("calendar PDF not cached, looking for link")

	link, err := p.opts.Locator.FindCalendarLink(ctx, p.opts.CalendarURL)
	if err != nil {
		p.log.WithError(err).WithField("url", p.opts.CalendarURL).Error("could not search for calendar link")
		return err
	}
	if link == "" {
		return fmt.Errorf("%w: no calendar link on %s", domain.ErrNotFound, p.opts.CalendarURL)
	}

	if err := p.opts.Downloader.Download(ctx, link, doc.PDFPath); err != nil {
		return err
	}
	p.log.WithField("file", doc.PDFPath).Info("calendar PDF saved")
	return nil
}

func (p *Pipeline) extract(ctx context.Context, doc cache.Document) error {
	schema, err := cache.LoadSchema(p.opts.SchemaFile)
	if err != nil {
		p.log.WithError(err).WithField("file", p.opts.SchemaFile).Error("could not load extraction schema")
		return err
	}
	p.log.WithField("file", p.opts.SchemaFile).Info("extraction schema loaded")

	ex, err := p.opts.NewExtractor()
	if err != nil {
		return err
	}

	data, err := ex.Extract(ctx, doc.PDFPath, schema)
	if err != nil {
		p.log.WithError(err).Error("calendar extraction failed")
		return err
	}

	// a rejected answer must not reach the cache, or every later run would
	// reuse it instead of extracting again
	if err := checkCalendar(data); err != nil {
		p.log.WithError(err).Error("extracted calendar rejected, not caching it")
		return err
	}

	if err := cache.SaveJSON(doc.JSONPath, data); err != nil {
		return err
	}
	p.log.WithField("file", doc.JSONPath).Info("calendar JSON saved")
	return nil
}

func checkCalendar(data []byte) error {
	var cal domain.Calendar
	if err := json.Unmarshal(data, &cal); err != nil {
		return fmt.Errorf("%w: extracted calendar: %v", domain.ErrParse, err)
	}
	return cal.Validate()
}

// SummaryLine is the message printed after a successful run.
func SummaryLine(s Summary) string {
	return fmt.Sprintf("%d tasks criadas no Todoist!", s.Created)
}
