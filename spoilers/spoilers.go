// Package spoilers implements bounded-bisimulation minimization of a safety
// automaton: a quotient construction that grows an "exposed" frontier
// outward from the reject state, one bisimulation round at a time, and
// collapses every state not yet reached by the frontier into a single
// catch-all class.
//
// Two automata are k-bounded-bisimilar when they reject exactly the same
// strings of length <= k. Running the refinement to saturation (no more
// states get exposed) gives every state that can reach the reject state its
// own singleton class; the states that cannot reach it stay together in the
// catch-all class. At that point the minimized automaton accepts exactly the
// same language as the original.
// Negotiate uses the bounded form to keep the iterative-deepening
// counterexample ("spoiler") automata small, and the saturated form where
// it needs an exact quotient.
package spoilers

import (
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/stateset"
)

// Minimizer incrementally refines the trivial two-class partition
// {reject} / {everything else} of a safety automaton into finer classes,
// tracking how many refinement rounds (k) have been applied.
type Minimizer struct {
	full *safetyautomaton.Automaton

	quotient    []stateset.Set // abstract class index -> member concrete states
	invQuotient []stateset.Set // concrete state -> {abstract class index}
	refined     stateset.Set   // abstract class indices whose members are "exposed"
	k           int

	mini *safetyautomaton.Automaton
}

// NewMinimizer builds the initial, coarsest partition of full: class 0 is
// the reject state alone (already exposed), class 1 is every other state.
func NewMinimizer(full *safetyautomaton.Automaton) *Minimizer {
	n := full.NumStates()
	quotient := []stateset.Set{stateset.New(safetyautomaton.RejectState), stateset.New()}
	invQuotient := make([]stateset.Set, n)
	invQuotient[safetyautomaton.RejectState] = stateset.New(0)
	for s := uint32(1); s < n; s++ {
		quotient[1].Add(s)
		invQuotient[s] = stateset.New(1)
	}
	m := &Minimizer{
		full:        full,
		quotient:    quotient,
		invQuotient: invQuotient,
		refined:     stateset.New(0),
	}
	m.rebuildMini()
	return m
}

// K returns the number of refinement rounds applied so far.
func (m *Minimizer) K() int { return m.k }

// Minimized returns the current quotient automaton.
func (m *Minimizer) Minimized() *safetyautomaton.Automaton { return m.mini }

// refineOnce runs one round of the distance-based refinement: it computes
// the existential predecessor of the exposed region, splits off every
// not-yet-exposed state that can reach it in one step into its own
// singleton class, and leaves the rest in the (shrunk) catch-all class.
// It is a no-op, reporting no progress via K, once the frontier is empty.
func (m *Minimizer) refineOnce() {
	exposed := stateset.New()
	for ia := range m.refined {
		for ic := range m.quotient[ia] {
			exposed.Add(ic)
		}
	}
	frontier := stateset.Difference(m.full.Pre(exposed), exposed)
	if len(frontier) == 0 {
		return
	}
	m.k++

	bulkIdx := len(m.quotient) - 1
	bulk := m.quotient[bulkIdx].Clone()
	m.quotient = m.quotient[:bulkIdx]

	for ic := range frontier {
		bulk.Remove(ic)
		newIdx := uint32(len(m.quotient))
		m.quotient = append(m.quotient, stateset.New(ic))
		m.invQuotient[ic] = stateset.New(newIdx)
		m.refined.Add(newIdx)
	}
	bulkIdx = len(m.quotient)
	m.quotient = append(m.quotient, bulk)
	for ic := range bulk {
		m.invQuotient[ic] = stateset.New(uint32(bulkIdx))
	}

	m.rebuildMini()
}

// rebuildMini recomputes the minimized automaton's transition relation from
// the current quotient: class q has an edge to class q' on input j iff some
// concrete member of q has an edge to some concrete member of q' on j.
func (m *Minimizer) rebuildMini() {
	numStates := uint32(len(m.quotient))
	numInputs := m.full.NumInputs()

	post := make([]stateset.Set, numStates*numInputs)
	for qi := uint32(0); qi < numStates; qi++ {
		for j := uint32(0); j < numInputs; j++ {
			succ := stateset.New()
			for ic := range m.quotient[qi] {
				for ic2 := range m.full.Post(ic, j) {
					for ql := range m.invQuotient[ic2] {
						succ.Add(ql)
					}
				}
			}
			post[qi*numInputs+j] = succ
		}
	}

	init := stateset.New()
	for ic := range m.full.Init() {
		for ql := range m.invQuotient[ic] {
			init.Add(ql)
		}
	}

	mini, err := safetyautomaton.New(numStates, numInputs, init, post)
	if err != nil {
		panic("spoilers: quotient construction produced an inconsistent automaton: " + err.Error())
	}
	m.mini = mini
}

// BoundedBisim refines the partition for up to k rounds, stopping early if
// a round makes no progress (the partition has saturated).
func (m *Minimizer) BoundedBisim(k int) {
	for i := 0; i < k; i++ {
		before := m.k
		m.refineOnce()
		if m.k == before {
			break
		}
	}
}

// Saturate refines the partition until no round makes further progress,
// i.e. until every state that can reach the reject state occupies its own
// singleton class (states that cannot reach it remain in the catch-all
// class). At
// saturation Minimized() accepts exactly the same language as the
// automaton the Minimizer was built from.
func (m *Minimizer) Saturate() {
	for {
		before := m.k
		m.refineOnce()
		if m.k == before {
			break
		}
	}
}

// Minimize is a convenience wrapper: it builds a Minimizer for full and
// runs it for k rounds (or to saturation, if k < 0), returning the
// resulting quotient automaton.
func Minimize(full *safetyautomaton.Automaton, k int) *safetyautomaton.Automaton {
	m := NewMinimizer(full)
	if k < 0 {
		m.Saturate()
	} else {
		m.BoundedBisim(k)
	}
	return m.Minimized()
}
