// Package command defines the navigation command types and the per-command
// state machine shared by the dispatcher, the API, and the journal.
package command

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/overviewd/internal/anim"
)

// Type identifies one navigation action.
type Type string

const (
	TypeShow          Type = "show"
	TypeKeyboardInput Type = "keyboard_input"
	TypeHide          Type = "hide"
	TypeToggle        Type = "toggle"
	TypeHome          Type = "home"
)

func (t Type) String() string { return string(t) }

// Valid reports whether t is one of the known command types.
func (t Type) Valid() bool {
	switch t {
	case TypeShow, TypeKeyboardInput, TypeHide, TypeToggle, TypeHome:
		return true
	}
	return false
}

// ParseType maps a wire/CLI string onto a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown command type %q", s)
	}
	return t, nil
}

// Status is the lifecycle state of one command.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// Internal status codes for the atomic state machine.
const (
	stateIdle int32 = iota
	stateProcessing
	stateCompleted
	stateCanceled
)

func statusOf(s int32) Status {
	switch s {
	case stateProcessing:
		return StatusProcessing
	case stateCompleted:
		return StatusCompleted
	case stateCanceled:
		return StatusCanceled
	default:
		return StatusIdle
	}
}

// Command is one queued navigation request. Status moves forward only:
// idle, then processing, then completed or canceled. A command canceled
// while still idle skips processing. Transitions never regress.
type Command struct {
	ID        string
	Type      Type
	Seq       uint64
	CreatedAt time.Time

	state atomic.Int32

	mu       sync.Mutex
	focus    int
	session  *anim.Session
	onAttach func(*anim.Session)
}

// New creates an idle command of the given type with a fresh ID.
// seq is the scheduler's monotonic submission counter.
func New(t Type, seq uint64) *Command {
	return &Command{
		ID:        uuid.NewString(),
		Type:      t,
		Seq:       seq,
		CreatedAt: time.Now(),
	}
}

// Status returns the current lifecycle state.
func (c *Command) Status() Status {
	return statusOf(c.state.Load())
}

// Terminal reports whether the command reached completed or canceled.
func (c *Command) Terminal() bool {
	s := c.state.Load()
	return s == stateCompleted || s == stateCanceled
}

// MarkProcessing moves idle to processing. Returns false if the command
// already left idle.
func (c *Command) MarkProcessing() bool {
	return c.state.CompareAndSwap(stateIdle, stateProcessing)
}

// MarkCompleted moves processing to completed. Returns false if the
// command was not processing, so double signals collapse to a no-op.
func (c *Command) MarkCompleted() bool {
	return c.state.CompareAndSwap(stateProcessing, stateCompleted)
}

// MarkCanceled moves idle or processing to canceled. Returns false if
// the command already reached a terminal state.
func (c *Command) MarkCanceled() bool {
	if c.state.CompareAndSwap(stateIdle, stateCanceled) {
		return true
	}
	return c.state.CompareAndSwap(stateProcessing, stateCanceled)
}

// SetFocus stamps the focus index assigned at dispatch time.
func (c *Command) SetFocus(n int) {
	c.mu.Lock()
	c.focus = n
	c.mu.Unlock()
}

// Focus returns the stamped focus index.
func (c *Command) Focus() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focus
}

// AttachSession records the transition session now driven by this command
// and notifies the dispatcher's attach hook, if any.
func (c *Command) AttachSession(s *anim.Session) {
	c.mu.Lock()
	c.session = s
	hook := c.onAttach
	c.mu.Unlock()

	if hook != nil && s != nil {
		hook(s)
	}
}

// Session returns the attached transition session, or nil.
func (c *Command) Session() *anim.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// OnAttach installs the dispatcher hook invoked when a session attaches.
// Set before the executor runs; not for concurrent reinstallation.
func (c *Command) OnAttach(fn func(*anim.Session)) {
	c.mu.Lock()
	c.onAttach = fn
	c.mu.Unlock()
}

// Age is the time elapsed since submission.
func (c *Command) Age() time.Duration {
	return time.Since(c.CreatedAt)
}
