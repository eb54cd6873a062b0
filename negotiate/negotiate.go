// Package negotiate orchestrates the iterative-deepening search for a pair
// of assume-guarantee contracts between two components: repeatedly spoil
// each component's current guarantee against the other's, fold the spoiler
// into the opposing guarantee, and stop either when both components are
// simultaneously spoiler-free (a contract exists) or when some component's
// initial states are outright lost (no contract can exist).
package negotiate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/diag"
	"github.com/kmallik/agnes-go/livenessgame"
	"github.com/kmallik/agnes-go/monitor"
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/safetygame"
	"github.com/kmallik/agnes-go/spoilers"
	"github.com/kmallik/agnes-go/stateset"
)

// OutcomeKind classifies the result of a negotiation attempt.
type OutcomeKind int

const (
	// Inconclusive means the search exhausted its depth bound without
	// reaching a verdict either way; a larger max_depth might resolve it.
	Inconclusive OutcomeKind = iota
	// ContractDoesNotExist means either that some component's initial states
	// are lost regardless of what the other component promises, or that a
	// round ran out without a verdict and with kNow unchanged from the
	// previous round (saturation): in both cases a larger bisimulation bound
	// is not tried.
	ContractDoesNotExist
	// Success means both components simultaneously stopped producing
	// spoilers against each other's current guarantee: Guarantees holds a
	// witnessing contract.
	Success
)

// Outcome is the result of IterativeDeepeningSearch.
type Outcome struct {
	Kind       OutcomeKind
	Depth      int
	Guarantees [2]*safetyautomaton.Automaton
}

// maxRoundsPerDepth bounds recursiveNegotiation's round count as a backstop
// against a non-terminating oscillation that a bounded-bisimulation bug
// could otherwise produce; a genuine negotiation converges long before this
// many rounds, since each round either ends the search or shrinks the
// spoiler language by at least one bisimulation class.
const maxRoundsPerDepth = 10000

// Negotiator holds the two components under negotiation and the safety and
// liveness objectives each must meet, and runs the search described in
// IterativeDeepeningSearch.
type Negotiator struct {
	components [2]*component.Component
	safe       [2]stateset.Set
	target     [2]stateset.Set
	maxDepth   int

	guarantees [2]*safetyautomaton.Automaton
	reporter   *diag.Reporter

	// kNow[c] is the bisimulation bound at which component c's spoiler was
	// first folded into the opposing guarantee during the current outer
	// (IterativeDeepeningSearch) round, or -1 if component c's spoiler has
	// not been folded yet this round. IterativeDeepeningSearch compares
	// kNow against the previous round's value to detect saturation: if
	// neither component ever wrote at a new depth, growing k further cannot
	// change the outcome (spec.md §4.7, Testable Property #9).
	kNow [2]int
}

// New builds a Negotiator for the given component pair, each with its own
// safety-set and liveness-target, bounding the search at maxDepth rounds of
// bisimulation refinement.
func New(components [2]*component.Component, safe, target [2]stateset.Set, maxDepth int) *Negotiator {
	return &Negotiator{
		components: components,
		safe:       safe,
		target:     target,
		maxDepth:   maxDepth,
	}
}

// Observe attaches a diagnostics Reporter: every recursive negotiation step
// from this point on emits a diag.Round describing the component just
// spoiled, the outcome, and the monitor/spoiler sizes involved. Passing nil
// detaches any previously attached Reporter.
func (n *Negotiator) Observe(r *diag.Reporter) {
	n.reporter = r
}

// reset restores both guarantees to the universal automaton over their own
// component's output alphabet (guarantees[c] is checked against
// components[c].Output, and consumed as the other component's assumption —
// so a well-formed pair requires components[c].NumDisturbance() to equal
// components[1-c].NumOutputs()).
func (n *Negotiator) reset() {
	n.guarantees[0] = safetyautomaton.AcceptsAll(n.components[0].NumOutputs())
	n.guarantees[1] = safetyautomaton.AcceptsAll(n.components[1].NumOutputs())
}

// IterativeDeepeningSearch runs recursive_negotiation with growing
// bisimulation bounds k = 0, 1, ..., maxDepth, resetting both guarantees and
// both components' kNow witness to -1 before each attempt. It returns as
// soon as an attempt is conclusive (Success, or ContractDoesNotExist via an
// outright LostInit). An attempt that instead runs out of rounds without
// either verdict is checked for saturation: if this round's kNow matches the
// previous round's on both components, no component ever folded a spoiler
// at a new depth, so a larger k cannot change the outcome either and the
// search reports ContractDoesNotExist (spec.md §4.7, §7 SaturatedNoSolution,
// Testable Property #9). Otherwise the search proceeds to k+1; exhausting
// maxDepth without ever saturating or converging reports Inconclusive.
func (n *Negotiator) IterativeDeepeningSearch() Outcome {
	var kOld [2]int
	haveKOld := false
	for k := 0; k <= n.maxDepth; k++ {
		n.reset()
		n.kNow = [2]int{-1, -1}
		outcome := n.recursiveNegotiation(k, 0, 0, 0)
		if outcome.Kind != Inconclusive {
			return outcome
		}
		if haveKOld && n.kNow == kOld {
			return Outcome{Kind: ContractDoesNotExist, Depth: k}
		}
		kOld = n.kNow
		haveKOld = true
	}
	return Outcome{Kind: Inconclusive}
}

// recursiveNegotiation alternates spoiling component c's guarantee against
// the other's, updating guarantees[1-c] in place, until either component is
// lost (ContractDoesNotExist), both components produce no spoiler twice in a
// row (Success, done counts consecutive spoiler-free rounds), or rounds runs
// out (Inconclusive, a bound-k-specific non-convergence, not a verdict).
func (n *Negotiator) recursiveNegotiation(k, c, done, rounds int) Outcome {
	if rounds >= maxRoundsPerDepth {
		return Outcome{Kind: Inconclusive}
	}

	outcome, spoiler := n.computeSpoilersOverall(k, c)
	switch outcome {
	case safetygame.LostInit:
		return Outcome{Kind: ContractDoesNotExist}
	case safetygame.SureAllInit:
		done++
		if done >= 2 {
			return Outcome{Kind: Success, Depth: k, Guarantees: n.guarantees}
		}
		return n.recursiveNegotiation(k, 1-c, done, rounds+1)
	default: // Partial
		bounded := spoilers.Minimize(spoiler, k)
		product, err := safetyautomaton.Product(n.guarantees[1-c], bounded)
		if err != nil {
			panic("negotiate: guarantee and spoiler alphabets diverged: " + err.Error())
		}
		n.guarantees[1-c] = spoilers.Minimize(product.Trim(), -1)
		if n.kNow[c] == -1 {
			n.kNow[c] = k
		}
		return n.recursiveNegotiation(k, 1-c, 0, rounds+1)
	}
}

// computeSpoilersOverall builds component c's safety and liveness monitors
// against the current guarantee pair, solves both games, and combines their
// spoilers into a single overall spoiler automaton over c's disturbance
// alphabet. The liveness branch restricts its arena to the safety branch's
// winning region, so it runs after the safety branch has finished.
func (n *Negotiator) computeSpoilersOverall(k, c int) (safetygame.SpoilerOutcome, *safetyautomaton.Automaton) {
	comp := n.components[c]
	assume := n.guarantees[1-c]
	guarantee := n.guarantees[c]

	var safetyOutcome safetygame.SpoilerOutcome
	var safetySpoiler *safetyautomaton.Automaton
	var safetyMonitor *monitor.Monitor
	var sureSafe, maybeSafe []stateset.Set

	var livTrivial bool
	var livSpoiler *safetyautomaton.Automaton

	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		var err error
		safetyMonitor, err = monitor.NewUnrestricted(comp, assume, guarantee)
		if err != nil {
			return err
		}
		sureSafe = safetygame.SolveSure(safetyMonitor, n.safe[c])
		maybeSafe = safetygame.SolveMaybe(safetyMonitor, n.safe[c])
		safetyOutcome, safetySpoiler = safetygame.FindSpoilers(safetyMonitor, sureSafe, maybeSafe)
		return nil
	})
	// The liveness branch depends on the safety solution (it restricts the
	// arena's allowed joint inputs to the safety game's winning region), so
	// it cannot start until the safety goroutine above finishes; it is run
	// after the join below instead of inside the errgroup.
	if err := g.Wait(); err != nil {
		panic("negotiate: safety monitor construction failed (component alphabets do not match): " + err.Error())
	}

	if safetyOutcome == safetygame.LostInit {
		n.emit(diag.Round{
			Depth:           k,
			Component:       c,
			Outcome:         safetygame.LostInit,
			SafetyMonitor:   int(safetyMonitor.NumStates()),
			GuaranteeStates: int(guarantee.NumStates()),
		})
		return safetygame.LostInit, nil
	}

	var allowedJoint []stateset.Set
	if safetyOutcome == safetygame.SureAllInit {
		// sureSafe holds control inputs; widen each allowed control u to
		// every joint input (u, w) over the disturbance alphabet.
		allowedJoint = make([]stateset.Set, len(sureSafe))
		for s, ctrls := range sureSafe {
			allowedJoint[s] = stateset.New()
			for u := range ctrls {
				for w := uint32(0); w < comp.NumDisturbance(); w++ {
					allowedJoint[s].Add(safetyMonitor.JointAddr(u, w))
				}
			}
		}
	} else {
		allowedJoint = maybeSafe
	}
	livenessMonitor, err := monitor.New(comp, assume, guarantee, nil, allowedJoint)
	if err != nil {
		panic("negotiate: liveness monitor construction failed on an alphabet that the safety monitor already validated: " + err.Error())
	}

	target := livenessgame.Target(livenessMonitor, n.target[c])
	avoid := stateset.New(monitor.RejectG)
	sureWin, sureD := livenessgame.SolveSure(livenessMonitor, target, avoid)
	maybeWin, maybeD := livenessgame.SolveMaybe(livenessMonitor, target, avoid)
	livTrivial, livSpoiler = livenessgame.FindSpoilers(livenessMonitor, target, sureWin, maybeWin, sureD, maybeD)

	if safetyOutcome == safetygame.SureAllInit && livTrivial {
		n.emit(diag.Round{
			Depth:           k,
			Component:       c,
			Outcome:         safetygame.SureAllInit,
			SafetyMonitor:   int(safetyMonitor.NumStates()),
			LivenessMonitor: int(livenessMonitor.NumStates()),
			GuaranteeStates: int(guarantee.NumStates()),
		})
		return safetygame.SureAllInit, nil
	}

	safetySpoilerMin := spoilers.Minimize(safetySpoiler.Trim(), -1)
	livSpoilerMin := spoilers.Minimize(livSpoiler.Trim(), -1)

	overall, err := safetyautomaton.Product(safetySpoilerMin, livSpoilerMin)
	if err != nil {
		panic("negotiate: safety and liveness spoilers built on mismatched disturbance alphabets: " + err.Error())
	}
	overall = spoilers.Minimize(overall.Trim(), -1)
	n.emit(diag.Round{
		Depth:           k,
		Component:       c,
		Outcome:         safetygame.Partial,
		SafetyMonitor:   int(safetyMonitor.NumStates()),
		LivenessMonitor: int(livenessMonitor.NumStates()),
		SpoilerStates:   int(overall.NumStates()),
		GuaranteeStates: int(guarantee.NumStates()),
	})
	return safetygame.Partial, overall
}

// emit forwards a diagnostics round to the attached Reporter, if any.
func (n *Negotiator) emit(round diag.Round) {
	if n.reporter != nil {
		n.reporter.Emit(round)
	}
}
