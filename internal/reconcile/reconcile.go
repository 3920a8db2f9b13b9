package reconcile

import (
	"context"
	"time"

	"github.com/pbaille/calsync/internal/domain"
	"github.com/sirupsen/logrus"
)

// TaskService is the part of the task tracker the reconciler needs
type TaskService interface {
	ListTasks(ctx context.Context, projectID, sectionID string) ([]domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
	CreateTask(ctx context.Context, t domain.NewTask) (*domain.Task, error)
}

// Result counts what a run did
type Result struct {
	Deleted int
	Created int
	Skipped int
}

// Reconciler replaces the content of one section with the calendar events.
// There is no diffing: every existing task is deleted, then the events that
// are not in the past are created again.
type Reconciler struct {
	tasks     TaskService
	projectID string
	sectionID string
	now       func() time.Time
	log       *logrus.Entry
}

func New(tasks TaskService, projectID, sectionID string, log *logrus.Entry) *Reconciler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Reconciler{
		tasks:     tasks,
		projectID: projectID,
		sectionID: sectionID,
		now:       time.Now,
		log:       log.WithField("component", "reconcile"),
	}
}

// WithClock overrides the time source used for the date filter.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// Run wipes the section and recreates tasks from cal. It stops at the first
// error; tasks already deleted or created are left as they are.
func (r *Reconciler) Run(ctx context.Context, cal *domain.Calendar) (Result, error) {
	var res Result

	current, err := r.tasks.ListTasks(ctx, r.projectID, r.sectionID)
	if err != nil {
		return res, err
	}

	for _, t := range current {
		r.log.WithFields(logrus.Fields{"id": t.ID, "content": t.Content}).Info("deleting task")
		if err := r.tasks.DeleteTask(ctx, t.ID); err != nil {
			return res, err
		}
		res.Deleted++
	}

	today := r.now()
	for _, m := range cal.Months {
		for _, e := range m.Events {
			entry := r.log.WithFields(logrus.Fields{"month": m.Month, "event": e.Description, "start_date": e.StartDate})

			if _, ok := e.Start(); !ok {
				entry.Warn("skipping event without a usable start date")
				res.Skipped++
				continue
			}
			if !Include(e, today) {
				entry.Info("skipping event, date already passed")
				res.Skipped++
				continue
			}

			if !e.Category.Valid() {
				entry.WithField("category", e.Category).Warn("unknown category, using it as the label anyway")
			}
			if _, err := r.tasks.CreateTask(ctx, NewTask(e, r.projectID, r.sectionID)); err != nil {
				return res, err
			}
			res.Created++
		}
	}

	r.log.WithFields(logrus.Fields{"deleted": res.Deleted, "created": res.Created, "skipped": res.Skipped}).
		Info("section reconciled")
	return res, nil
}

// Include reports whether e starts on today's date or later. Events with
// no parseable start date are excluded.
func Include(e domain.Event, today time.Time) bool {
	start, ok := e.Start()
	if !ok {
		return false
	}
	y, m, d := today.In(start.Location()).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	return !start.Before(midnight)
}

// NewTask maps an event to the task that represents it
func NewTask(e domain.Event, projectID, sectionID string) domain.NewTask {
	due := e.StartDate
	if start, ok := e.Start(); ok {
		due = start.Format(domain.DateLayout)
	}
	return domain.NewTask{
		Content:   e.Description,
		DueString: due,
		ProjectID: projectID,
		SectionID: sectionID,
		Labels:    []string{string(e.Category)},
	}
}
