// Package jobmgr runs named jobs with cancellation and refuses to start a job
// while another job with the same name is running.
//
//	jm := jobmgr.NewManager(logger)
//	err := jm.Go(ctx, "sync", func(ctx context.Context) error {
//	    return client.Sync(ctx)
//	})
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrRunning    = errors.New("job is already running")
	ErrNotRunning = errors.New("job is not running")
)

type job struct {
	cancel context.CancelFunc
}

// Manager tracks running jobs. It is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*job
	log  zerolog.Logger
}

// NewManager creates a Manager that reports job lifecycle to log.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		jobs: make(map[string]*job),
		log:  log,
	}
}

func (m *Manager) claim(parent context.Context, name string) (context.Context, *job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[name]; exists {
		return nil, nil, fmt.Errorf("%s: %w", name, ErrRunning)
	}
	ctx, cancel := context.WithCancel(parent)
	j := &job{cancel: cancel}
	m.jobs[name] = j
	return ctx, j, nil
}

func (m *Manager) release(name string, j *job, err error) {
	j.cancel()
	m.mu.Lock()
	if m.jobs[name] == j {
		delete(m.jobs, name)
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	m.log.Debug().Str("job", name).Msg("job done")
}

// Run executes the job in the calling goroutine.
func (m *Manager) Run(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	jctx, j, err := m.claim(ctx, name)
	if err != nil {
		return err
	}
	m.log.Debug().Str("job", name).Msg("job running")
	err = fn(jctx)
	m.release(name, j, err)
	return err
}

// Go executes the job in a new goroutine and returns once it is started.
func (m *Manager) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	jctx, j, err := m.claim(ctx, name)
	if err != nil {
		return err
	}
	go func() {
		m.log.Debug().Str("job", name).Msg("job running")
		m.release(name, j, fn(jctx))
	}()
	return nil
}

// Stop cancels a running job.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNotRunning)
	}
	j.cancel()
	delete(m.jobs, name)
	return nil
}

// Running returns the names of active jobs, sorted.
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status summarizes active jobs, e.g. "Running jobs: sync".
func (m *Manager) Status() string {
	active := m.Running()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return "Running jobs: " + strings.Join(active, ", ")
}
