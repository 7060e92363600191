package crawler

import (
	"context"
	"sync"

	"github.com/ternarybob/venator/internal/models"
)

// Controller enforces the job state machine and exposes an in-process
// gate workers check before every fetch. Pause parks workers on a
// channel; resume releases them without polling.
type Controller struct {
	jobID string

	mu     sync.Mutex
	status models.JobStatus

	// resumeCh is open (non-nil, unclosed) while paused and closed otherwise.
	// cancelCh is closed exactly once on cancellation.
	resumeCh chan struct{}
	cancelCh chan struct{}
}

// NewController creates a controller in the pending state
func NewController(jobID string) *Controller {
	resumeCh := make(chan struct{})
	close(resumeCh) // Not paused initially
	return &Controller{
		jobID:    jobID,
		status:   models.JobStatusPending,
		resumeCh: resumeCh,
		cancelCh: make(chan struct{}),
	}
}

// Status returns the current job status
func (c *Controller) Status() models.JobStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Transition moves the job to a new state, rejecting illegal moves
func (c *Controller) Transition(to models.JobStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == to {
		return nil
	}
	if !c.status.CanTransition(to) {
		return &InvalidTransitionError{JobID: c.jobID, From: c.status, To: to}
	}

	from := c.status
	c.status = to

	switch to {
	case models.JobStatusPaused:
		c.resumeCh = make(chan struct{})
	case models.JobStatusProcessing:
		if from == models.JobStatusPaused {
			close(c.resumeCh)
		}
	case models.JobStatusCancelled:
		close(c.cancelCh)
		if from == models.JobStatusPaused {
			close(c.resumeCh)
		}
	}

	return nil
}

// Gate blocks while the job is paused and returns ErrJobCancelled once
// the job is cancelled. Workers call this before every fetch; a nil
// return means the fetch may proceed.
func (c *Controller) Gate(ctx context.Context) error {
	for {
		c.mu.Lock()
		status := c.status
		resumeCh := c.resumeCh
		cancelCh := c.cancelCh
		c.mu.Unlock()

		switch status {
		case models.JobStatusCancelled:
			return ErrJobCancelled
		case models.JobStatusPaused:
			select {
			case <-resumeCh:
				// Re-check state after release; resume and cancel both close it
			case <-cancelCh:
				return ErrJobCancelled
			case <-ctx.Done():
				return ctx.Err()
			}
		default:
			return nil
		}
	}
}

// CancelChan exposes the cancellation channel for select loops
func (c *Controller) CancelChan() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelCh
}
