package dispatch

import (
	"context"
	"time"

	"github.com/mattjoyce/overviewd/internal/command"
)

//go:generate mockgen -destination=mocks/mock_executor.go -package=mocks github.com/mattjoyce/overviewd/internal/dispatch Executor

// Executor performs the actual work for a command type. Execute returns
// true if the command finished synchronously; otherwise it must eventually
// call done exactly once. Calling done after returning true is tolerated
// and ignored. Cancel is invoked on timeout or shutdown and must release
// any attached transition resources idempotently.
type Executor interface {
	Execute(cmd *command.Command, done func()) bool
	Cancel(cmd *command.Command, reason string)
}

// Recorder receives terminal transitions for the command journal.
// Implementations must not block the dispatch loop for long.
type Recorder interface {
	Record(ctx context.Context, cmd *command.Command, reason string) error
}

// Stats receives scheduler counters. A nil Stats is allowed.
type Stats interface {
	Submitted(t command.Type)
	Dropped(t command.Type)
	Finished(t command.Type, status command.Status, timedOut bool)
	Suppressed()
	Depth(n int)
}

// Entry is one queued command in a diagnostic snapshot.
type Entry struct {
	ID     string         `json:"id"`
	Type   command.Type   `json:"type"`
	Status command.Status `json:"status"`
	AgeMS  int64          `json:"age_ms"`
}

// Snapshot is the diagnostic dump served by the API and the status CLI.
type Snapshot struct {
	GeneratedAt    time.Time `json:"generated_at"`
	Depth          int       `json:"depth"`
	Bound          int       `json:"bound"`
	ToggleInFlight bool      `json:"toggle_in_flight"`
	FocusIndex     int       `json:"focus_index"`
	Entries        []Entry   `json:"entries"`
}

// Config carries the scheduler tunables.
type Config struct {
	// Bound is the maximum queue depth, head included.
	Bound int
	// Timeout is how long a processing command may go without a
	// completion signal before it is canceled and the queue advances.
	Timeout time.Duration
}

// DefaultConfig returns the production tunables.
func DefaultConfig() Config {
	return Config{
		Bound:   3,
		Timeout: 5000 * time.Millisecond,
	}
}
