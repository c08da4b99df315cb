// Package pipeline implements the Pipeline Runtime of spec.md §4.6: the
// per-run state machine, the single-step execution engine, fan-out
// expansion with dedup, and batch status rollup.
package pipeline

import (
	"fmt"

	"enrichpipe.io/engine/internal/domain"
)

// transitions enumerates every legal run-status move. Once a run reaches a
// terminal status it is never reopened (spec.md §4.6).
var transitions = map[domain.RunStatus]map[domain.RunStatus]bool{
	domain.RunQueued: {
		domain.RunRunning: true,
	},
	domain.RunRunning: {
		domain.RunSucceeded: true,
		domain.RunFailed:    true,
		domain.RunSkipped:   true,
	},
}

// Transition validates a run-status move, rejecting anything not in the
// table above — in particular any move out of a terminal status.
func Transition(from, to domain.RunStatus) error {
	if from.IsTerminal() {
		return fmt.Errorf("pipeline run already terminal at %q, cannot move to %q", from, to)
	}
	allowed, ok := transitions[from]
	if !ok || !allowed[to] {
		return fmt.Errorf("illegal pipeline run transition %q -> %q", from, to)
	}
	return nil
}
