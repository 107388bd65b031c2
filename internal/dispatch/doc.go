// Package dispatch owns the navigation command queue. It serializes
// submissions from any goroutine into a single ordered execution stream,
// enforces the queue bound with silent drop, rate-limits overlapping
// toggle transitions, and force-advances past a stuck executor after a
// deadline so the queue can never wedge.
package dispatch
