package lifecycle

import (
	"context"
	"time"

	"doc2txt/internal/jobs"
	"doc2txt/internal/metrics"
)

// poll checks the job status until it reaches a terminal state, the
// timeout elapses or run is invalidated. Steps are strictly sequential.
func (c *Coordinator) poll(ctx context.Context, run uint64, id string) {
	start := c.now()
	logger := c.logger.With("job_id", id)
	logger.Debug("lifecycle.poll_start", "interval", c.cfg.PollInterval, "timeout", c.cfg.PollTimeout)

	for {
		if ctx.Err() != nil {
			return
		}
		if c.timedOut(start) {
			c.settle(run, id, StateFailed, TimeoutMessage, "")
			return
		}

		res, err := c.transport.CheckStatus(ctx, id)
		if !c.current(run) {
			return
		}
		if err != nil {
			logger.Warn("lifecycle.poll_failed", "error", err)
			c.settle(run, id, StateFailed, err.Error(), "")
			return
		}

		switch res.Status {
		case jobs.StatusCompleted:
			text, err := c.transport.FetchResult(ctx, id)
			if !c.current(run) {
				return
			}
			if err != nil {
				logger.Warn("lifecycle.fetch_failed", "error", err)
				c.settle(run, id, StateFailed, err.Error(), "")
				return
			}
			c.settle(run, id, StateCompleted, res.Message, text)
			return

		case jobs.StatusError:
			msg := res.Message
			if msg == "" {
				msg = DefaultFailureMessage
			}
			c.settle(run, id, StateFailed, msg, "")
			return

		case jobs.StatusCancelled:
			c.settle(run, id, StateCancelled, res.Message, "")
			return
		}

		if !c.progress(run, res.Status, res.Message) {
			return
		}
		if c.timedOut(start) {
			c.settle(run, id, StateFailed, TimeoutMessage, "")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

func (c *Coordinator) timedOut(start time.Time) bool {
	return c.cfg.PollTimeout > 0 && c.now().Sub(start) >= c.cfg.PollTimeout
}

func (c *Coordinator) current(run uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run == run
}

// progress records a non-terminal status. It returns false when run is
// stale.
func (c *Coordinator) progress(run uint64, status jobs.Status, message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		return false
	}
	c.job.Apply(status, message, c.now())
	c.renderer.ShowStatus(*c.job)
	return true
}

// settle ends the job for run: the id leaves the Active Job Set, observers
// hear about it and the coordinator moves to state. A cancel reported by
// the service resets to Idle.
func (c *Coordinator) settle(run uint64, id string, state State, message, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.run != run {
		return
	}
	c.run++
	c.stopRun = nil

	c.removeJob(id)
	metrics.RecordJobOutcome(string(state))
	c.logger.Info("lifecycle.terminal", "job_id", id, "state", string(state), "message", message)

	switch state {
	case StateCompleted:
		c.job.Apply(jobs.StatusCompleted, message, c.now())
		c.job.Result = result
		c.errMsg = ""
		c.setState(StateCompleted)
		c.renderer.ShowResult(*c.job)
		c.notifyTerminal(id, state)
	case StateCancelled:
		c.notifyTerminal(id, state)
		c.resetLocked()
	default:
		c.failLocked(message)
		c.notifyTerminal(id, state)
	}
}
