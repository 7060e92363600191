package crawler

import (
	"errors"
	"fmt"

	"github.com/ternarybob/venator/internal/models"
)

var (
	// ErrJobNotFound is returned when a job ID has no stored job
	ErrJobNotFound = errors.New("job not found")

	// ErrJobCancelled is returned by the control gate when a job was cancelled
	ErrJobCancelled = errors.New("job cancelled")

	// ErrDomainBudget is returned when a domain reached its per-session request cap
	ErrDomainBudget = errors.New("domain request budget exhausted")

	// ErrSessionBudget is returned when the session-wide request cap is reached
	ErrSessionBudget = errors.New("session request budget exhausted")

	// ErrDomainBlocked is returned while a domain is inside a block window
	ErrDomainBlocked = errors.New("domain temporarily blocked")

	// ErrRetriesExhausted is returned when every retry attempt ended in a
	// retryable status, marking the URL as permanently failed
	ErrRetriesExhausted = errors.New("retry attempts exhausted")
)

// InvalidTransitionError reports an illegal job state machine transition
type InvalidTransitionError struct {
	JobID string
	From  models.JobStatus
	To    models.JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for job %s: %s -> %s", e.JobID, e.From, e.To)
}

// IsInvalidTransition reports whether err wraps an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
