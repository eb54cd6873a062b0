// Package safetyautomaton implements a nondeterministic, universal-acceptance
// safety automaton over a dense integer input alphabet.
//
// State 0 is always the absorbing reject state, with a self-loop on every
// input. A run is accepting iff every branch of it avoids state 0 forever;
// this is the "universal acceptance" condition used throughout the
// negotiation pipeline for assumptions and guarantees alike.
package safetyautomaton

import (
	"errors"
	"fmt"

	"github.com/kmallik/agnes-go/stateset"
)

// RejectState is the reserved index of the absorbing reject state.
const RejectState uint32 = 0

// Sentinel errors.
var (
	// ErrAlphabetMismatch is returned by Product when the two operand
	// automata disagree on their input alphabet size.
	ErrAlphabetMismatch = errors.New("safetyautomaton: alphabet mismatch")

	// ErrMalformed indicates an out-of-range successor index or an
	// inconsistent size in constructed/deserialized data.
	ErrMalformed = errors.New("safetyautomaton: malformed automaton")
)

// Automaton is a nondeterministic safety automaton with universal
// acceptance. Transitions map (state, input) to a set of successor
// states; state 0 is reserved for rejection and self-loops on every input.
type Automaton struct {
	numStates uint32
	numInputs uint32
	init      stateset.Set
	post      []stateset.Set // len == numStates*numInputs, addressed by Addr
}

// Addr computes the dense index of the (state, input) transition cell.
func (a *Automaton) Addr(state, input uint32) uint32 {
	return state*a.numInputs + input
}

// NumStates returns the number of states, including the reject state.
func (a *Automaton) NumStates() uint32 { return a.numStates }

// NumInputs returns the input alphabet size.
func (a *Automaton) NumInputs() uint32 { return a.numInputs }

// Init returns the set of initial states. Callers must not mutate it.
func (a *Automaton) Init() stateset.Set { return a.init }

// Post returns the successor set for (state, input). Callers must not
// mutate the returned set.
func (a *Automaton) Post(state, input uint32) stateset.Set {
	return a.post[a.Addr(state, input)]
}

// New builds an Automaton from raw attributes, validating that state 0
// self-loops on every input and that every successor index is in range.
func New(numStates, numInputs uint32, init stateset.Set, post []stateset.Set) (*Automaton, error) {
	want := int(numStates) * int(numInputs)
	if len(post) != want {
		return nil, fmt.Errorf("%w: post has %d entries, want %d", ErrMalformed, len(post), want)
	}
	a := &Automaton{
		numStates: numStates,
		numInputs: numInputs,
		init:      init.Clone(),
		post:      make([]stateset.Set, want),
	}
	for i, succ := range post {
		if succ == nil {
			a.post[i] = stateset.New()
		} else {
			a.post[i] = succ.Clone()
		}
		for s := range a.post[i] {
			if s >= numStates {
				return nil, fmt.Errorf("%w: successor %d out of range (no_states=%d)", ErrMalformed, s, numStates)
			}
		}
	}
	for j := uint32(0); j < numInputs; j++ {
		succ := a.post[a.Addr(RejectState, j)]
		if len(succ) != 1 || !succ.Has(RejectState) {
			return nil, fmt.Errorf("%w: reject state must self-loop on every input", ErrMalformed)
		}
	}
	return a, nil
}

// AcceptsAll constructs the two-state "accept every string" automaton over
// an input alphabet of size numInputs: state 1 is initial and accepting
// with a self-loop on every input, state 0 is the unreachable reject sink.
func AcceptsAll(numInputs uint32) *Automaton {
	post := make([]stateset.Set, 2*numInputs)
	for j := uint32(0); j < numInputs; j++ {
		post[j] = stateset.New(0)           // state 0, input j -> {0}
		post[numInputs+j] = stateset.New(1) // state 1, input j -> {1}
	}
	a, err := New(2, numInputs, stateset.New(1), post)
	if err != nil {
		// unreachable: the construction above is internally consistent
		panic(err)
	}
	return a
}

// Product computes the binary synchronous product of a and b under
// universal acceptance: a joint state is reject iff either coordinate is
// reject. The result has at most (|a|-1)*(|b|-1)+1 states.
func Product(a, b *Automaton) (*Automaton, error) {
	if a.numInputs != b.numInputs {
		return nil, fmt.Errorf("%w: %d vs %d", ErrAlphabetMismatch, a.numInputs, b.numInputs)
	}
	numInputs := a.numInputs
	bSpan := b.numStates - 1
	newIndex := func(i1, i2 uint32) uint32 {
		if i1 == RejectState || i2 == RejectState {
			return RejectState
		}
		return (i1-1)*bSpan + (i2 - 1) + 1
	}
	numStates := (a.numStates-1)*bSpan + 1

	init := stateset.New()
	for i1 := range a.init {
		for i2 := range b.init {
			init.Add(newIndex(i1, i2))
		}
	}

	post := make([]stateset.Set, numStates*numInputs)
	for j := uint32(0); j < numInputs; j++ {
		post[RejectState*numInputs+j] = stateset.New(RejectState)
	}
	for i1 := uint32(1); i1 < a.numStates; i1++ {
		for i2 := uint32(1); i2 < b.numStates; i2++ {
			dst := newIndex(i1, i2)
			for j := uint32(0); j < numInputs; j++ {
				succ := stateset.New()
				for s1 := range a.Post(i1, j) {
					for s2 := range b.Post(i2, j) {
						succ.Add(newIndex(s1, s2))
					}
				}
				post[dst*numInputs+j] = succ
			}
		}
	}
	return New(numStates, numInputs, init, post)
}

// Trim retains only the states reachable from init, renumbering so that
// state 0 still denotes reject. It does not alter the automaton's
// language.
func (a *Automaton) Trim() *Automaton {
	seen := stateset.New()
	queue := make([]uint32, 0, len(a.init))
	for i := range a.init {
		seen.Add(i)
		queue = append(queue, i)
	}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for j := uint32(0); j < a.numInputs; j++ {
			for succ := range a.Post(s, j) {
				if !seen.Has(succ) {
					seen.Add(succ)
					queue = append(queue, succ)
				}
			}
		}
	}

	newToOld := []uint32{RejectState}
	oldToNew := make([]uint32, a.numStates)
	for old := range seen {
		if old != RejectState {
			newToOld = append(newToOld, old)
			oldToNew[old] = uint32(len(newToOld) - 1)
		}
	}
	numStates := uint32(len(newToOld))

	init := stateset.New()
	for i := range a.init {
		init.Add(oldToNew[i])
	}

	post := make([]stateset.Set, numStates*a.numInputs)
	for newIdx, old := range newToOld {
		for j := uint32(0); j < a.numInputs; j++ {
			succ := stateset.New()
			for s := range a.Post(old, j) {
				succ.Add(oldToNew[s])
			}
			post[uint32(newIdx)*a.numInputs+j] = succ
		}
	}
	out, err := New(numStates, a.numInputs, init, post)
	if err != nil {
		panic(fmt.Errorf("safetyautomaton: trim produced an inconsistent automaton: %w", err))
	}
	return out
}

// encodeSubset packs a subset of {0,...,numStates-1} into a bitset key (bit
// i is set iff state i is a member).
func encodeSubset(s stateset.Set) uint64 {
	var d uint64
	for i := range s {
		d |= 1 << i
	}
	return d
}

// Determinize performs subset construction with the universal-acceptance
// shortcut: any successor subset containing the reject state collapses to
// the singleton reject subset. An empty successor subset (every run has
// died out) is a state of its own, distinct from the reject subset. The
// result has exactly one successor per (state, input).
func (a *Automaton) Determinize() *Automaton {
	type subset struct {
		key   uint64
		elems stateset.Set
	}
	seenKey := map[uint64]uint32{}
	var order []subset

	internSubset := func(s stateset.Set) uint32 {
		key := encodeSubset(s)
		if idx, ok := seenKey[key]; ok {
			return idx
		}
		idx := uint32(len(order))
		seenKey[key] = idx
		order = append(order, subset{key: key, elems: s})
		return idx
	}

	rejectIdx := internSubset(stateset.New(RejectState))
	_ = rejectIdx // always 0
	initIdx := internSubset(a.init.Clone())

	var detPost []uint32
	i := 0
	for i < len(order) {
		cur := order[i]
		for j := uint32(0); j < a.numInputs; j++ {
			succ := stateset.New()
			unsafe := false
			for s := range cur.elems {
				for s2 := range a.Post(s, j) {
					if s2 == RejectState {
						unsafe = true
						break
					}
					succ.Add(s2)
				}
				if unsafe {
					break
				}
			}
			if unsafe {
				succ = stateset.New(RejectState)
			}
			detPost = append(detPost, internSubset(succ))
		}
		i++
	}

	numStates := uint32(len(order))
	post := make([]stateset.Set, numStates*a.numInputs)
	for idx, dst := range detPost {
		post[idx] = stateset.New(dst)
	}
	out, err := New(numStates, a.numInputs, stateset.New(initIdx), post)
	if err != nil {
		panic(fmt.Errorf("safetyautomaton: determinize produced an inconsistent automaton: %w", err))
	}
	return out
}

// Pre computes the existential one-step predecessor of target under the
// full transition relation: the set of states from which some input leads
// to some state in target.
func (a *Automaton) Pre(target stateset.Set) stateset.Set {
	out := stateset.New()
	for s := uint32(0); s < a.numStates; s++ {
		for j := uint32(0); j < a.numInputs; j++ {
			for s2 := range a.Post(s, j) {
				if target.Has(s2) {
					out.Add(s)
					break
				}
			}
		}
	}
	return out
}

// Accepts reports whether the automaton accepts the input string w: every
// nondeterministic run over w must avoid the reject state at every step.
func (a *Automaton) Accepts(w []uint32) bool {
	frontier := a.init.Clone()
	if len(frontier) == 0 {
		return false
	}
	for _, j := range w {
		next := stateset.New()
		for s := range frontier {
			for s2 := range a.Post(s, j) {
				if s2 == RejectState {
					return false
				}
				next.Add(s2)
			}
		}
		frontier = next
		if len(frontier) == 0 {
			return true
		}
	}
	return true
}
