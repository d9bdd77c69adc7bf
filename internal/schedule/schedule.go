// Package schedule runs task pieces at fixed times or on cron specs. Entries
// are persisted in the clientStorage "schedules" key and restored on start.
//
// Example usage:
//
//	s := schedule.New(c)
//	c.Schedule = s
//	entry, err := s.Create(ctx, "reminder", schedule.When{Time: at}, map[string]any{"text": "hi"})
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/keshon/piecebot/internal/core"
	"github.com/keshon/piecebot/pkg/jobmgr"
)

const settingsKey = "schedules"

// CleanupTask is created with CleanupSpec when no entry runs it yet.
const (
	CleanupTask = "cleanup"
	CleanupSpec = "@every 10m"
)

var (
	// ErrNoTask is returned when creating an entry for an unknown task.
	ErrNoTask = errors.New("no such task")
	// ErrNoWhen is returned when an entry has neither a time nor a spec.
	ErrNoWhen = errors.New("entry needs a time or a repeat spec")
	// ErrUnknownEntry is returned when deleting an id that is not scheduled.
	ErrUnknownEntry = errors.New("unknown schedule entry")
)

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// When selects a one-off time or a repeating cron spec.
type When struct {
	Time   time.Time
	Repeat string
}

// Entry is one scheduled run of a task.
type Entry struct {
	ID     string
	Task   string
	Time   time.Time
	Repeat string
	Data   map[string]any
}

// Recurring reports whether the entry repeats.
func (e Entry) Recurring() bool { return e.Repeat != "" }

func (e Entry) record() map[string]any {
	rec := map[string]any{"id": e.ID, "task": e.Task}
	if !e.Time.IsZero() {
		rec["time"] = e.Time.UTC().Format(time.RFC3339Nano)
	}
	if e.Repeat != "" {
		rec["repeat"] = e.Repeat
	}
	if len(e.Data) > 0 {
		rec["data"] = e.Data
	}
	return rec
}

func entryFrom(v any) (Entry, bool) {
	rec, ok := v.(map[string]any)
	if !ok {
		return Entry{}, false
	}
	e := Entry{}
	e.ID, _ = rec["id"].(string)
	e.Task, _ = rec["task"].(string)
	e.Repeat, _ = rec["repeat"].(string)
	e.Data, _ = rec["data"].(map[string]any)
	if s, ok := rec["time"].(string); ok {
		e.Time, _ = time.Parse(time.RFC3339Nano, s)
	}
	if e.ID == "" || e.Task == "" || (e.Repeat == "" && e.Time.IsZero()) {
		return Entry{}, false
	}
	return e, true
}

// once fires a single time.
type once time.Time

func (o once) Next(t time.Time) time.Time {
	if t.Before(time.Time(o)) {
		return time.Time(o)
	}
	return time.Time{}
}

type scheduled struct {
	entry  Entry
	cronID cron.EntryID
}

// Scheduler implements core.Scheduler over robfig/cron.
type Scheduler struct {
	client *core.Client
	cron   *cron.Cron
	jobs   *jobmgr.Manager

	mu      sync.Mutex
	entries map[string]*scheduled
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

var _ core.Scheduler = (*Scheduler)(nil)

// New returns a stopped scheduler for c.
func New(c *core.Client) *Scheduler {
	s := &Scheduler{
		client:  c,
		cron:    cron.New(cron.WithParser(parser)),
		entries: map[string]*scheduled{},
	}
	s.jobs = jobmgr.NewManager(func(st jobmgr.Status) {
		if st.State == "running" {
			c.Logf(context.Background(), core.EventDebug, "schedule: %s", st)
		}
	})
	return s
}

// Start restores the persisted entries, makes sure the cleanup task is
// scheduled and starts the clock. One-off entries whose time has passed run
// right away.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.started = true
	s.mu.Unlock()

	var errs []error
	var overdue []Entry
	stored, _ := s.settings().Get(settingsKey).([]any)
	for _, v := range stored {
		e, ok := entryFrom(v)
		if !ok {
			errs = append(errs, fmt.Errorf("skip malformed schedule entry %v", v))
			continue
		}
		if !e.Recurring() && !e.Time.After(time.Now()) {
			overdue = append(overdue, e)
			continue
		}
		if err := s.add(e); err != nil {
			errs = append(errs, err)
		}
	}

	if !s.hasTask(CleanupTask) {
		if _, ok := s.client.Tasks.Get(CleanupTask); ok {
			if _, err := s.Create(ctx, CleanupTask, When{Repeat: CleanupSpec}, nil); err != nil {
				errs = append(errs, err)
			}
		}
	}

	s.cron.Start()
	for _, e := range overdue {
		s.mu.Lock()
		s.entries[e.ID] = &scheduled{entry: e}
		s.mu.Unlock()
		s.fire(e.ID)
	}
	return errors.Join(errs...)
}

// Stop halts the clock and cancels running tasks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	cancel()
	s.jobs.StopAll()
}

func (s *Scheduler) settings() *core.Settings {
	return s.client.ClientSettings()
}

func (s *Scheduler) hasTask(task string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.entries {
		if sc.entry.Task == task {
			return true
		}
	}
	return false
}

// Create schedules task and persists the entry.
func (s *Scheduler) Create(ctx context.Context, task string, when When, data map[string]any) (Entry, error) {
	if _, ok := s.client.Tasks.Get(task); !ok {
		return Entry{}, fmt.Errorf("%q: %w", task, ErrNoTask)
	}
	e := Entry{ID: uuid.NewString(), Task: task, Time: when.Time, Repeat: when.Repeat, Data: data}
	if err := s.add(e); err != nil {
		return Entry{}, err
	}
	if err := s.persist(ctx); err != nil {
		s.remove(e.ID)
		return Entry{}, err
	}
	return e, nil
}

// Delete unschedules and forgets the entry id.
func (s *Scheduler) Delete(ctx context.Context, id string) error {
	if !s.remove(id) {
		return fmt.Errorf("%s: %w", id, ErrUnknownEntry)
	}
	return s.persist(ctx)
}

// Get returns the entry id.
func (s *Scheduler) Get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return sc.entry, true
}

// Entries returns every entry ordered by id.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, sc := range s.entries {
		out = append(out, sc.entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Scheduler) add(e Entry) error {
	var sched cron.Schedule
	switch {
	case e.Repeat != "":
		parsed, err := parser.Parse(e.Repeat)
		if err != nil {
			return fmt.Errorf("schedule %s: %w", e.Task, err)
		}
		sched = parsed
	case !e.Time.IsZero():
		sched = once(e.Time)
	default:
		return fmt.Errorf("schedule %s: %w", e.Task, ErrNoWhen)
	}

	id := e.ID
	cronID := s.cron.Schedule(sched, cron.FuncJob(func() { s.fire(id) }))
	s.mu.Lock()
	s.entries[id] = &scheduled{entry: e, cronID: cronID}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) remove(id string) bool {
	s.mu.Lock()
	sc, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if ok && sc.cronID != 0 {
		s.cron.Remove(sc.cronID)
	}
	return ok
}

func (s *Scheduler) persist(ctx context.Context) error {
	entries := s.Entries()
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = e.record()
	}
	res, err := s.settings().Update(ctx, []core.Change{{Key: settingsKey, Value: list}}, core.UpdateOptions{Action: core.ActionOverwrite})
	if err != nil {
		return fmt.Errorf("persist schedules: %w", err)
	}
	return res.Err()
}

// fire runs the entry's task as a job. One-off entries are deleted first so
// a crash mid-run does not replay them.
func (s *Scheduler) fire(id string) {
	e, ok := s.Get(id)
	if !ok {
		return
	}
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if !e.Recurring() {
		if err := s.Delete(ctx, id); err != nil {
			s.client.Logf(ctx, core.EventWarn, "schedule: drop %s: %v", id, err)
		}
	}

	err := s.jobs.StartAsync(ctx, id, func(ctx context.Context) error {
		task, ok := s.client.Tasks.Get(e.Task)
		if !ok || !s.client.Tasks.IsEnabled(e.Task) {
			err := fmt.Errorf("%q: %w", e.Task, ErrNoTask)
			s.client.Emit(ctx, core.EventTaskError, &core.PieceError{Err: err})
			return err
		}
		if err := task.Run(ctx, e.Data); err != nil {
			s.client.Emit(ctx, core.EventTaskError, &core.PieceError{Piece: task, Err: err})
			return err
		}
		return nil
	})
	if errors.Is(err, jobmgr.ErrRunning) {
		s.client.Logf(ctx, core.EventDebug, "schedule: %s still running, skipped", e.Task)
	}
}
