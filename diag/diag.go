// Package diag exposes negotiation progress as a side channel, the way
// server/fastview's ViewComponent in the reinforcement-learning pack
// exposes a single fanned-in channel of view updates for a client to
// subscribe to, instead of requiring a caller to poll shared state.
//
// negotiate.Negotiator.Observe registers a Reporter that receives one Round
// value per recursive negotiation step; nothing downstream of Negotiate
// blocks on a Reporter that no caller drains, since Emit drops a Round
// rather than stalling the negotiation loop.
package diag

import (
	"github.com/kmallik/agnes-go/safetygame"
	channerics "github.com/niceyeti/channerics/channels"
)

// Round is one recursive_negotiation step's diagnostics: which component
// was just spoiled against, the resulting outcome, the sizes of the
// monitors and spoiler automata built along the way, and the bisimulation
// bound in effect.
type Round struct {
	Depth           int
	Component       int
	Outcome         safetygame.SpoilerOutcome
	SafetyMonitor   int
	LivenessMonitor int
	SpoilerStates   int
	GuaranteeStates int
}

// Reporter is a buffered side channel a negotiation emits Round values on.
// A Reporter that nobody reads from does not block Emit: rounds beyond the
// buffer capacity are dropped rather than stalling the negotiation loop,
// since diagnostics are best-effort observability, not part of the
// negotiation's control flow.
type Reporter struct {
	rounds chan Round
}

// NewReporter builds a Reporter with the given buffer capacity. A capacity
// of 0 is valid; every Emit past that point is dropped immediately.
func NewReporter(capacity int) *Reporter {
	return &Reporter{rounds: make(chan Round, capacity)}
}

// Emit records one round of diagnostics, dropping it silently if the
// buffer is full.
func (r *Reporter) Emit(round Round) {
	select {
	case r.rounds <- round:
	default:
	}
}

// Rounds returns the read-only channel of emitted rounds.
func (r *Reporter) Rounds() <-chan Round {
	return r.rounds
}

// Close signals that no further rounds will be emitted.
func (r *Reporter) Close() {
	close(r.rounds)
}

// Merge fans multiple Reporters' channels into one, the way fastview's
// ViewComponent merges per-view update channels into a single client-facing
// stream. Useful when a harness negotiates several independent component
// pairs concurrently and wants one combined diagnostics stream.
func Merge(reporters ...*Reporter) <-chan Round {
	chans := make([]<-chan Round, len(reporters))
	for i, r := range reporters {
		chans[i] = r.Rounds()
	}
	return channerics.Merge[Round](chans)
}
