// Package jobmgr runs named jobs in their own goroutines with cancellation,
// status callbacks and in-memory tracking of running jobs. A name runs at
// most once at a time.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(status jobmgr.Status) {
//	    log.Println("JOB:", status)
//	})
//
//	err := jm.StartAsync(ctx, "cleanup", func(ctx context.Context) error {
//	    // do work until ctx is cancelled
//	    return nil
//	})
//
//	// later...
//	jm.StopAll()
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrRunning is returned when a job with the same name is still running.
	ErrRunning = errors.New("job already running")
	// ErrNotRunning is returned when stopping a job that is not running.
	ErrNotRunning = errors.New("job not running")
)

// Job represents a running unit of work.
// Jobs are added and removed by Manager automatically.
type Job struct {
	Name   string
	Cancel context.CancelFunc
}

// Status is one lifecycle event of a job. Err is set on failures.
type Status struct {
	Name  string
	State string // running, error or done
	Err   error
}

func (s Status) String() string {
	if s.Err != nil {
		return s.State + ":" + s.Name + ":" + s.Err.Error()
	}
	return s.State + ":" + s.Name
}

// StatusReporter receives lifecycle events for jobs.
type StatusReporter func(Status)

// Manager orchestrates starting, stopping and tracking jobs.
// It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	wg       sync.WaitGroup
	Reporter StatusReporter
}

// NewManager creates a new Manager.
// The reporter callback may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartAsync runs a job in a separate goroutine and returns immediately.
// The job's context derives from parent. If a job with the same name is
// already running, ErrRunning is returned. Jobs are removed automatically
// after completion (success or failure).
func (m *Manager) StartAsync(parent context.Context, name string, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)
	job := &Job{Name: name, Cancel: cancel}

	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		cancel()
		return fmt.Errorf("job %q: %w", name, ErrRunning)
	}
	m.jobs[name] = job
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer cancel()
		m.report(Status{Name: name, State: "running"})

		err := runner(ctx)
		if err != nil {
			m.report(Status{Name: name, State: "error", Err: err})
		} else {
			m.report(Status{Name: name, State: "done"})
		}

		m.mu.Lock()
		if m.jobs[name] == job {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()

	return nil
}

// Stop cancels a running job by name.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("job %q: %w", name, ErrNotRunning)
	}

	job.Cancel()
	delete(m.jobs, name)
	return nil
}

// StopAll cancels every running job and waits for them to return.
func (m *Manager) StopAll() {
	m.mu.Lock()
	for name, job := range m.jobs {
		job.Cancel()
		delete(m.jobs, name)
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Wait blocks until every started job has returned.
func (m *Manager) Wait() { m.wg.Wait() }

// List returns the sorted names of active jobs.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs.
// Example:
//
//	"Running jobs: cleanup, reminder"
//
// If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

// report delivers lifecycle events to the reporter if present.
func (m *Manager) report(s Status) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
