// Package sim provides the run-mode coordination the CLI driver needs
// on top of internal/coherence and internal/pe: round-robin
// single-step turn-taking, and the configuration surface the run and
// step subcommands validate against.
package sim

import "sync"

// StepCoordinator gives single-step mode a deterministic, observable
// execution order: registered participants advance one instruction at
// a time in round-robin turn, rather than racing ahead as in run-all
// mode. Each participant calls WaitForTurn from its own goroutine; the
// coordinator does not drive them from a single goroutine, it only
// lets exactly one of them proceed at a time. It uses a wait/mark-done handshake
// per turn instead of a cycle-based timing model: the "turn" a caller
// waits for is a logical counter, not a clock.
type StepCoordinator struct {
	mu   sync.Mutex
	cond *sync.Cond

	order    []string
	turnIdx  int
	turn     int
	finished map[string]bool
	stopped  bool
}

// NewStepCoordinator creates a coordinator that advances participantIDs
// in the given order, one per turn.
func NewStepCoordinator(participantIDs []string) *StepCoordinator {
	sc := &StepCoordinator{
		order:    append([]string(nil), participantIDs...),
		finished: make(map[string]bool, len(participantIDs)),
	}
	sc.cond = sync.NewCond(&sc.mu)
	return sc
}

// WaitForTurn blocks until it is participantID's turn to execute one
// instruction, then returns the current turn number. Returns -1 if the
// coordinator has been stopped or every participant has finished.
func (sc *StepCoordinator) WaitForTurn(participantID string) int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for {
		if sc.stopped || sc.allFinishedLocked() {
			return -1
		}
		if len(sc.order) > 0 && sc.order[sc.turnIdx] == participantID {
			return sc.turn
		}
		sc.cond.Wait()
	}
}

// MarkTurnDone records that participantID finished its instruction for
// the current turn and advances to the next participant. finished
// marks the participant as having no more work, removing it from
// future rotation.
func (sc *StepCoordinator) MarkTurnDone(participantID string, finished bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if finished {
		sc.finished[participantID] = true
	}
	sc.advanceLocked()
	sc.cond.Broadcast()
}

// Stop notifies all waiters that the coordinator is shutting down.
func (sc *StepCoordinator) Stop() {
	sc.mu.Lock()
	sc.stopped = true
	sc.cond.Broadcast()
	sc.mu.Unlock()
}

// Turn returns the current turn number.
func (sc *StepCoordinator) Turn() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.turn
}

func (sc *StepCoordinator) allFinishedLocked() bool {
	if len(sc.order) == 0 {
		return true
	}
	for _, id := range sc.order {
		if !sc.finished[id] {
			return false
		}
	}
	return true
}

// advanceLocked moves turnIdx to the next not-yet-finished participant,
// incrementing turn each time it wraps the rotation.
func (sc *StepCoordinator) advanceLocked() {
	if len(sc.order) == 0 {
		return
	}
	for i := 0; i < len(sc.order); i++ {
		sc.turnIdx = (sc.turnIdx + 1) % len(sc.order)
		if sc.turnIdx == 0 {
			sc.turn++
		}
		if !sc.finished[sc.order[sc.turnIdx]] {
			return
		}
	}
}
