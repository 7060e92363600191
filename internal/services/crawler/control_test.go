package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ternarybob/venator/internal/models"
)

func TestController_InitialState(t *testing.T) {
	c := NewController("job_1")

	if c.Status() != models.JobStatusPending {
		t.Errorf("expected pending, got %s", c.Status())
	}

	// Gate must not block while pending
	if err := c.Gate(context.Background()); err != nil {
		t.Errorf("Gate returned error in pending state: %v", err)
	}
}

func TestController_ValidTransitions(t *testing.T) {
	c := NewController("job_1")

	steps := []models.JobStatus{
		models.JobStatusProcessing,
		models.JobStatusPaused,
		models.JobStatusProcessing,
		models.JobStatusCompleted,
	}

	for _, to := range steps {
		if err := c.Transition(to); err != nil {
			t.Fatalf("transition to %s failed: %v", to, err)
		}
		if c.Status() != to {
			t.Fatalf("expected status %s, got %s", to, c.Status())
		}
	}
}

func TestController_InvalidTransition(t *testing.T) {
	c := NewController("job_1")
	if err := c.Transition(models.JobStatusProcessing); err != nil {
		t.Fatal(err)
	}
	if err := c.Transition(models.JobStatusCompleted); err != nil {
		t.Fatal(err)
	}

	err := c.Transition(models.JobStatusProcessing)
	if err == nil {
		t.Fatal("expected error resuming a completed job")
	}
	if !IsInvalidTransition(err) {
		t.Errorf("expected InvalidTransitionError, got %v", err)
	}
}

func TestController_SameStateIsNoop(t *testing.T) {
	c := NewController("job_1")
	if err := c.Transition(models.JobStatusPending); err != nil {
		t.Errorf("same-state transition should be a no-op: %v", err)
	}
}

func TestController_GateBlocksWhilePaused(t *testing.T) {
	c := NewController("job_1")
	if err := c.Transition(models.JobStatusProcessing); err != nil {
		t.Fatal(err)
	}
	if err := c.Transition(models.JobStatusPaused); err != nil {
		t.Fatal(err)
	}

	released := make(chan error, 1)
	go func() {
		released <- c.Gate(context.Background())
	}()

	select {
	case err := <-released:
		t.Fatalf("Gate returned %v while paused", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := c.Transition(models.JobStatusProcessing); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-released:
		if err != nil {
			t.Errorf("Gate returned error after resume: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Gate did not release after resume")
	}
}

func TestController_CancelReleasesPausedWorkers(t *testing.T) {
	c := NewController("job_1")
	if err := c.Transition(models.JobStatusProcessing); err != nil {
		t.Fatal(err)
	}
	if err := c.Transition(models.JobStatusPaused); err != nil {
		t.Fatal(err)
	}

	released := make(chan error, 1)
	go func() {
		released <- c.Gate(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	if err := c.Transition(models.JobStatusCancelled); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-released:
		if !errors.Is(err, ErrJobCancelled) {
			t.Errorf("expected ErrJobCancelled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Gate did not release after cancel")
	}
}

func TestController_GateRespectsContext(t *testing.T) {
	c := NewController("job_1")
	if err := c.Transition(models.JobStatusProcessing); err != nil {
		t.Fatal(err)
	}
	if err := c.Transition(models.JobStatusPaused); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Gate(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

func TestJobStatus_TerminalStates(t *testing.T) {
	terminal := []models.JobStatus{
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Errorf("%s should be terminal", status)
		}
	}

	if models.JobStatusPaused.IsTerminal() {
		t.Error("paused should not be terminal")
	}
}
