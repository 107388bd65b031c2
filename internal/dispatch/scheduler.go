package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mattjoyce/overviewd/internal/anim"
	"github.com/mattjoyce/overviewd/internal/command"
	"github.com/mattjoyce/overviewd/internal/events"
	"github.com/mattjoyce/overviewd/internal/log"
)

// Scheduler owns the queue, the single-flight invariant, the toggle rate
// limiter, and the timeout watchdog. Submit may be called from any
// goroutine; all dispatch decisions happen on the Start goroutine.
type Scheduler struct {
	cfg    Config
	exec   Executor
	rec    Recorder
	hub    *events.Hub
	stats  Stats
	logger *slog.Logger

	mu             sync.Mutex
	queue          []*command.Command
	seq            uint64
	toggleInFlight bool
	focusIndex     int

	// wake signals the run loop that the queue went non-empty.
	wake chan struct{}
}

// New creates a Scheduler. rec, hub, and stats may be nil.
func New(cfg Config, exec Executor, rec Recorder, hub *events.Hub, stats Stats) *Scheduler {
	if cfg.Bound <= 0 {
		cfg.Bound = DefaultConfig().Bound
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Scheduler{
		cfg:    cfg,
		exec:   exec,
		rec:    rec,
		hub:    hub,
		stats:  stats,
		logger: log.WithComponent("dispatch"),
		wake:   make(chan struct{}, 1),
	}
}

// Submit appends a command of the given type to the queue tail. It returns
// nil when the queue is at its bound or the type is unknown; a dropped
// submission mutates nothing and is never an error. Safe from any goroutine;
// mutex sequencing defines submission order.
func (s *Scheduler) Submit(t command.Type) *command.Command {
	if !t.Valid() {
		s.logger.Warn("rejecting unknown command type", "type", string(t))
		return nil
	}

	s.mu.Lock()
	if len(s.queue) >= s.cfg.Bound {
		s.mu.Unlock()
		s.logger.Info("queue at bound, dropping command", "type", t, "bound", s.cfg.Bound)
		if s.stats != nil {
			s.stats.Dropped(t)
		}
		s.publish("command.dropped", nil, t, "overflow")
		return nil
	}
	s.seq++
	cmd := command.New(t, s.seq)
	s.queue = append(s.queue, cmd)
	depth := len(s.queue)
	s.mu.Unlock()

	s.logger.Debug("command submitted", "command_id", cmd.ID, "type", t, "depth", depth)
	if s.stats != nil {
		s.stats.Submitted(t)
		s.stats.Depth(depth)
	}
	s.publish("command.submitted", cmd, t, "")

	// Nudge the run loop. The buffered send collapses bursts; the loop
	// drains the queue until empty per wakeup.
	select {
	case s.wake <- struct{}{}:
	default:
	}

	return cmd
}

// Start runs the dispatch loop, draining the queue head by head. This is a
// blocking call that returns when ctx is canceled. Queued commands are
// canceled on the way out.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("dispatch loop started", "bound", s.cfg.Bound, "timeout", s.cfg.Timeout)
	defer s.logger.Info("dispatch loop stopped")

	for {
		cmd := s.head()
		if cmd == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.wake:
			}
			continue
		}

		if ctx.Err() != nil {
			s.cancelHead(ctx, cmd, "shutdown")
			continue
		}

		s.dispatch(ctx, cmd)
	}
}

// CancelAll removes and cancels every queued command that is not currently
// processing. The in-flight head is untouched. No-op on an empty queue.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	keep := s.queue[:0:0]
	var removed []*command.Command
	for _, c := range s.queue {
		if c.Status() == command.StatusProcessing {
			keep = append(keep, c)
			continue
		}
		removed = append(removed, c)
	}
	s.queue = keep
	depth := len(s.queue)
	s.mu.Unlock()

	if len(removed) == 0 {
		return
	}

	s.logger.Info("canceled queued commands", "count", len(removed), "depth", depth)
	if s.stats != nil {
		s.stats.Depth(depth)
	}
	for _, c := range removed {
		if c.MarkCanceled() {
			s.finishNotify(context.Background(), c, "cancel_all", false)
		}
	}
}

// HeadIs reports whether the queue is empty or the head command's type
// matches t. Callers use it as a "safe to act" check.
func (s *Scheduler) HeadIs(t command.Type) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return true
	}
	return s.queue[0].Type == t
}

// Snapshot returns the diagnostic dump of the queue and limiter state.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		GeneratedAt:    time.Now().UTC(),
		Depth:          len(s.queue),
		Bound:          s.cfg.Bound,
		ToggleInFlight: s.toggleInFlight,
		FocusIndex:     s.focusIndex,
		Entries:        make([]Entry, 0, len(s.queue)),
	}
	for _, c := range s.queue {
		snap.Entries = append(snap.Entries, Entry{
			ID:     c.ID,
			Type:   c.Type,
			Status: c.Status(),
			AgeMS:  c.Age().Milliseconds(),
		})
	}
	return snap
}

// dispatch runs one head command to a terminal state.
func (s *Scheduler) dispatch(ctx context.Context, cmd *command.Command) {
	if !cmd.MarkProcessing() {
		// Canceled while queued. Drop it from the head and move on.
		s.pop(cmd)
		return
	}

	cmdLogger := log.WithCommand(cmd.ID).With("type", cmd.Type)
	cmdLogger.Debug("dispatching command")
	s.publish("command.processing", cmd, cmd.Type, "")

	s.applyFocus(cmd)

	if cmd.Type == command.TypeToggle {
		if s.toggleBusy() {
			// A toggle transition is still unwinding. Complete without
			// touching the executor so a second animation never starts.
			cmdLogger.Debug("toggle suppressed, transition in flight")
			if s.stats != nil {
				s.stats.Suppressed()
			}
			if cmd.MarkCompleted() {
				s.pop(cmd)
				s.finishNotify(ctx, cmd, "suppressed", false)
			}
			return
		}
		// The flag is set when the executor attaches a transition session
		// and cleared only by that session's end listener. The generic
		// completion path below never clears it: the transition can
		// outlive the logical completion signal.
		cmd.OnAttach(func(sess *anim.Session) {
			s.setToggleInFlight(true)
			sess.AddEndListener(func(bool) {
				s.setToggleInFlight(false)
			})
		})
	}

	done := make(chan struct{})
	var once sync.Once
	complete := func() {
		once.Do(func() { close(done) })
	}

	if s.safeExecute(cmd, complete, cmdLogger) {
		complete()
	}

	timer := time.NewTimer(s.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-done:
		if cmd.MarkCompleted() {
			s.pop(cmd)
			s.finishNotify(ctx, cmd, "", false)
			cmdLogger.Debug("command completed")
		}
	case <-timer.C:
		cmdLogger.Warn("command timed out, forcing advance", "timeout", s.cfg.Timeout)
		s.cancelInFlight(ctx, cmd, "timeout", true)
	case <-ctx.Done():
		s.cancelInFlight(ctx, cmd, "shutdown", false)
	}
}

// cancelHead cancels a head command that never got dispatched, used on
// shutdown drain.
func (s *Scheduler) cancelHead(ctx context.Context, cmd *command.Command, reason string) {
	if cmd.MarkCanceled() {
		s.finishNotify(ctx, cmd, reason, false)
	}
	s.pop(cmd)
}

// cancelInFlight cancels the processing head: status, executor hook,
// attached session, then forced advance.
func (s *Scheduler) cancelInFlight(ctx context.Context, cmd *command.Command, reason string, timedOut bool) {
	if !cmd.MarkCanceled() {
		// Completion won the race against the timer.
		s.pop(cmd)
		s.finishNotify(ctx, cmd, "", false)
		return
	}

	s.safeCancel(cmd, reason)
	if sess := cmd.Session(); sess != nil {
		// Ending the session fires its listeners, which keeps the toggle
		// flag live even on the cancel path.
		sess.Cancel()
	}

	s.pop(cmd)
	s.finishNotify(ctx, cmd, reason, timedOut)
}

// safeExecute invokes the executor, converting a panic into synchronous
// completion so the queue keeps moving.
func (s *Scheduler) safeExecute(cmd *command.Command, complete func(), logger *slog.Logger) (syncDone bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("executor panicked, treating as synchronous completion", "panic", r)
			syncDone = true
		}
	}()
	return s.exec.Execute(cmd, complete)
}

func (s *Scheduler) safeCancel(cmd *command.Command, reason string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("executor cancel panicked", "command_id", cmd.ID, "panic", r)
		}
	}()
	s.exec.Cancel(cmd, reason)
}

// applyFocus does the per-type focus bookkeeping at dispatch time.
func (s *Scheduler) applyFocus(cmd *command.Command) {
	switch cmd.Type {
	case command.TypeKeyboardInput:
		s.mu.Lock()
		s.focusIndex++
		f := s.focusIndex
		s.mu.Unlock()
		cmd.SetFocus(f)
	case command.TypeHide, command.TypeHome:
		s.mu.Lock()
		s.focusIndex = 0
		s.mu.Unlock()
	}
}

// head returns the current queue head without removing it.
func (s *Scheduler) head() *command.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil
	}
	return s.queue[0]
}

// pop removes cmd from the head if it is still the head. CancelAll may
// have removed it already; the identity check keeps this idempotent.
func (s *Scheduler) pop(cmd *command.Command) {
	s.mu.Lock()
	if len(s.queue) > 0 && s.queue[0] == cmd {
		s.queue = s.queue[1:]
	}
	depth := len(s.queue)
	s.mu.Unlock()

	if s.stats != nil {
		s.stats.Depth(depth)
	}
}

// finishNotify fans a terminal transition out to stats, the event hub, and
// the journal.
func (s *Scheduler) finishNotify(ctx context.Context, cmd *command.Command, reason string, timedOut bool) {
	status := cmd.Status()
	if s.stats != nil {
		s.stats.Finished(cmd.Type, status, timedOut)
	}

	event := "command.completed"
	if status == command.StatusCanceled {
		event = "command.canceled"
	}
	s.publish(event, cmd, cmd.Type, reason)

	if s.rec != nil {
		if err := s.rec.Record(ctx, cmd, reason); err != nil {
			s.logger.Error("failed to record command", "command_id", cmd.ID, "error", err)
		}
	}
}

func (s *Scheduler) toggleBusy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toggleInFlight
}

func (s *Scheduler) setToggleInFlight(v bool) {
	s.mu.Lock()
	s.toggleInFlight = v
	s.mu.Unlock()
}

// publish sends a lifecycle event to the hub. cmd may be nil for drops.
func (s *Scheduler) publish(event string, cmd *command.Command, t command.Type, reason string) {
	if s.hub == nil {
		return
	}
	data := map[string]any{"type": t}
	if cmd != nil {
		data["id"] = cmd.ID
		data["status"] = cmd.Status()
	}
	if reason != "" {
		data["reason"] = reason
	}
	s.hub.Publish(event, data)
}
