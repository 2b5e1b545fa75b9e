// Package lifecycle drives a single conversion job from upload through
// polling to a terminal state.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"doc2txt/internal/client"
	"doc2txt/internal/jobs"
	"doc2txt/internal/metrics"
)

// Transport is the remote side of the lifecycle. *client.Client
// implements it.
type Transport interface {
	Submit(ctx context.Context, file client.Upload, mode string, opts ...client.RequestOption) (string, error)
	CheckStatus(ctx context.Context, jobID string, opts ...client.RequestOption) (client.StatusResult, error)
	FetchResult(ctx context.Context, jobID string, opts ...client.RequestOption) (string, error)
	Cancel(ctx context.Context, jobID string, opts ...client.RequestOption) (client.StatusResult, error)
}

// JobSet persists the ids of jobs that have not reached a terminal state.
// *session.JobSet implements it.
type JobSet interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Latest(ctx context.Context) (string, error)
}

type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now for timestamps and the poll timeout.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator owns the state machine for one active job at a time.
type Coordinator struct {
	cfg       Config
	transport Transport
	set       JobSet
	renderer  Renderer
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	state      State
	job        *jobs.Job
	errMsg     string
	run        uint64
	stopRun    context.CancelFunc
	cancelling bool
	closed     bool
	changed    chan struct{}
	observers  []Observer
	wg         sync.WaitGroup
}

func New(cfg Config, transport Transport, set JobSet, renderer Renderer, opts ...Option) *Coordinator {
	if renderer == nil {
		renderer = nopRenderer{}
	}
	c := &Coordinator{
		cfg:       cfg,
		transport: transport,
		set:       set,
		renderer:  renderer,
		logger:    slog.Default(),
		now:       time.Now,
		state:     StateIdle,
		changed:   make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Observe registers o for job notifications.
func (c *Coordinator) Observe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Snapshot returns a copy of the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{State: c.state, Error: c.errMsg}
	if c.job != nil {
		j := *c.job
		s.Job = &j
	}
	return s
}

// Submit validates file, uploads it and starts polling the returned job.
// It blocks only for the upload; polling continues in the background.
func (c *Coordinator) Submit(ctx context.Context, file client.Upload, mode string) (string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.state.Active() {
		c.mu.Unlock()
		return "", ErrBusy
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		return "", ErrNotIdle
	}

	if verr := c.cfg.validate(file); verr != nil {
		metrics.RecordValidationFailure(verr.Reason)
		c.logger.Info("lifecycle.validation_failed", "file", file.Name, "reason", verr.Reason)
		c.failLocked(verr.Message)
		c.mu.Unlock()
		return "", verr
	}

	c.setState(StateAwaitingSubmission)
	c.renderer.ShowStatus(jobs.Job{Mode: jobs.Mode(mode), Status: jobs.StatusPending, Message: "Uploading " + file.Name})
	c.mu.Unlock()

	c.logger.Info("lifecycle.submit", "file", file.Name, "size", file.Size, "mode", mode)
	id, err := c.transport.Submit(ctx, file, mode)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Warn("lifecycle.submit_failed", "file", file.Name, "error", err)
		metrics.RecordJobOutcome(string(StateFailed))
		c.failLocked(err.Error())
		return "", err
	}

	now := c.now()
	c.job = &jobs.Job{
		ID:          id,
		Mode:        jobs.Mode(mode),
		Status:      jobs.StatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := c.set.Add(ctx, id); err != nil {
		c.logger.Warn("lifecycle.session_add_failed", "job_id", id, "error", err)
	}

	if c.closed {
		// Closed during the upload: keep the id for a later Resume.
		c.setState(StateIdle)
		return id, nil
	}

	c.startLocked(id)
	return id, nil
}

// Resume starts polling the most recently added id in the Active Job Set.
// It returns "" when the set is empty. Older ids stay untouched; see Sweep.
func (c *Coordinator) Resume(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}
	if c.state.Active() {
		return "", ErrBusy
	}
	if c.state != StateIdle {
		return "", ErrNotIdle
	}

	id, err := c.set.Latest(ctx)
	if err != nil || id == "" {
		return "", err
	}

	now := c.now()
	c.job = &jobs.Job{ID: id, Status: jobs.StatusPending, SubmittedAt: now, UpdatedAt: now}
	c.logger.Info("lifecycle.resume", "job_id", id)
	c.startLocked(id)
	return id, nil
}

// Cancel asks the service to stop the polled job and returns to Idle. A
// failed remote cancel leaves the coordinator in Failed instead.
func (c *Coordinator) Cancel(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StatePolling || c.cancelling {
		c.mu.Unlock()
		return ErrNotPolling
	}
	id := c.job.ID
	c.stopLocked()
	c.cancelling = true
	c.mu.Unlock()

	c.logger.Info("lifecycle.cancel", "job_id", id)
	res, err := c.transport.Cancel(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelling = false
	c.removeJob(id)

	if err != nil {
		c.logger.Warn("lifecycle.cancel_failed", "job_id", id, "error", err)
		metrics.RecordJobOutcome(string(StateFailed))
		c.failLocked(err.Error())
		c.notifyTerminal(id, StateFailed)
		return err
	}

	metrics.RecordJobOutcome(string(StateCancelled))
	c.notifyTerminal(id, StateCancelled)
	if res.Status != jobs.StatusCancelled {
		c.logger.Info("lifecycle.cancel_status", "job_id", id, "status", res.Raw)
	}
	c.resetLocked()
	return nil
}

// Reset returns to Idle. A job being polled is abandoned and removed from
// the Active Job Set without contacting the service.
func (c *Coordinator) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAwaitingSubmission || c.cancelling {
		return ErrBusy
	}
	if c.state == StatePolling {
		id := c.job.ID
		c.stopLocked()
		c.removeJob(id)
		c.logger.Info("lifecycle.reset_active", "job_id", id)
	}
	c.resetLocked()
	return nil
}

// Sweep checks every persisted id except the one being polled and drops
// those the service reports as terminal or no longer knows. It returns
// the removed ids.
func (c *Coordinator) Sweep(ctx context.Context) ([]string, error) {
	ids, err := c.set.List(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	var active string
	if c.state.Active() && c.job != nil {
		active = c.job.ID
	}
	c.mu.Unlock()

	var removed []string
	for _, id := range ids {
		if id == active {
			continue
		}
		res, err := c.transport.CheckStatus(ctx, id)
		switch {
		case err != nil && client.IsNotFound(err):
		case err != nil:
			if ctx.Err() != nil {
				return removed, ctx.Err()
			}
			c.logger.Warn("lifecycle.sweep_check_failed", "job_id", id, "error", err)
			continue
		case !res.Status.IsTerminal():
			continue
		}
		if err := c.set.Remove(ctx, id); err != nil {
			c.logger.Warn("lifecycle.session_remove_failed", "job_id", id, "error", err)
			continue
		}
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		c.logger.Info("lifecycle.sweep", "removed", len(removed))
	}
	return removed, nil
}

// Wait blocks until no job is being submitted or polled, then returns the
// resulting state.
func (c *Coordinator) Wait(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		state, closed, ch := c.state, c.closed, c.changed
		active := state.Active() || c.cancelling
		c.mu.Unlock()

		if closed {
			return state, ErrClosed
		}
		if !active {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-ch:
		}
	}
}

// Close stops polling and waits for the loop to exit. The Active Job Set
// keeps the job so a later Resume picks it up.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopLocked()
	c.broadcast()
	c.mu.Unlock()

	c.wg.Wait()
}

// startLocked moves to Polling and launches a new poll loop for id.
func (c *Coordinator) startLocked(id string) {
	c.run++
	run := c.run
	ctx, cancel := context.WithCancel(context.Background())
	c.stopRun = cancel
	c.errMsg = ""
	c.setState(StatePolling)
	c.renderer.ShowStatus(*c.job)
	for _, o := range c.observers {
		o.OnJobStarted(id)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.poll(ctx, run, id)
	}()
}

// stopLocked invalidates the current poll loop. Responses still in flight
// are discarded when they arrive.
func (c *Coordinator) stopLocked() {
	c.run++
	if c.stopRun != nil {
		c.stopRun()
		c.stopRun = nil
	}
}

func (c *Coordinator) failLocked(message string) {
	c.errMsg = message
	if c.job != nil {
		c.job.Apply(jobs.StatusError, message, c.now())
	}
	c.setState(StateFailed)
	c.renderer.ShowError(message)
}

func (c *Coordinator) resetLocked() {
	c.job = nil
	c.errMsg = ""
	c.setState(StateIdle)
	c.renderer.Reset()
}

// removeJob drops id from the Active Job Set. Callers guarantee it runs
// once per job.
func (c *Coordinator) removeJob(id string) {
	if err := c.set.Remove(context.Background(), id); err != nil {
		c.logger.Warn("lifecycle.session_remove_failed", "job_id", id, "error", err)
	}
}

func (c *Coordinator) notifyTerminal(id string, state State) {
	for _, o := range c.observers {
		o.OnTerminal(id, state)
	}
}

func (c *Coordinator) setState(s State) {
	if c.state == s {
		return
	}
	c.logger.Debug("lifecycle.state", "from", string(c.state), "to", string(s))
	c.state = s
	c.broadcast()
}

func (c *Coordinator) broadcast() {
	close(c.changed)
	c.changed = make(chan struct{})
}
