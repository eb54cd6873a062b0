// Package component defines the finite transition system driven by control
// and disturbance inputs that assume-guarantee negotiation operates on.
//
// A Component is a pure data object: a fixed number of states, a total
// output map, and a (possibly nondeterministic, possibly partial)
// transition relation keyed by (state, control input, disturbance input).
// Nondeterminism models the effect of an external, possibly adversarial,
// environment. Components are built once with New and never mutated.
package component

import (
	"errors"
	"fmt"

	"github.com/kmallik/agnes-go/stateset"
)

// Sentinel errors for component construction.
var (
	// ErrOutputOutOfRange indicates a state's output index is >= the
	// declared output alphabet size.
	ErrOutputOutOfRange = errors.New("component: output index out of range")

	// ErrSuccessorOutOfRange indicates a transition names a successor
	// state index that does not exist.
	ErrSuccessorOutOfRange = errors.New("component: successor state index out of range")

	// ErrNoStates indicates a component was built with zero states.
	ErrNoStates = errors.New("component: no states")
)

// Component is a finite transition system.
//
// States, control inputs, disturbance inputs and outputs are all dense
// integer ranges starting at 0. Transitions are addressed by
// (state, control, disturbance) and return a (possibly empty, possibly
// multi-valued) set of successor states.
type Component struct {
	numStates      uint32
	numControl     uint32
	numDisturbance uint32
	numOutputs     uint32

	init        stateset.Set
	stateOutput []uint32       // len == numStates
	transitions []stateset.Set // len == numStates*numControl*numDisturbance, addressed by addr()
}

// New builds a Component from its raw attributes.
//
// stateOutput must have exactly numStates entries, each < numOutputs.
// transitions is indexed the same way addr computes: transitions[i*M*P+j*P+k]
// is the (possibly empty) set of successors for (state i, control j,
// disturbance k); a nil entry is treated as the empty set (deadlock).
func New(numStates, numControl, numDisturbance, numOutputs uint32, init stateset.Set, stateOutput []uint32, transitions []stateset.Set) (*Component, error) {
	if numStates == 0 {
		return nil, ErrNoStates
	}
	if uint32(len(stateOutput)) != numStates {
		return nil, fmt.Errorf("component: state_to_output has %d entries, want %d", len(stateOutput), numStates)
	}
	for s, o := range stateOutput {
		if o >= numOutputs {
			return nil, fmt.Errorf("%w: state %d has output %d, no_outputs=%d", ErrOutputOutOfRange, s, o, numOutputs)
		}
	}
	want := int(numStates) * int(numControl) * int(numDisturbance)
	if len(transitions) != want {
		return nil, fmt.Errorf("component: transitions has %d entries, want %d", len(transitions), want)
	}
	for _, succ := range transitions {
		for s := range succ {
			if s >= numStates {
				return nil, fmt.Errorf("%w: %d", ErrSuccessorOutOfRange, s)
			}
		}
	}

	c := &Component{
		numStates:      numStates,
		numControl:     numControl,
		numDisturbance: numDisturbance,
		numOutputs:     numOutputs,
		init:           init.Clone(),
		stateOutput:    append([]uint32(nil), stateOutput...),
		transitions:    make([]stateset.Set, want),
	}
	for i, succ := range transitions {
		if succ == nil {
			c.transitions[i] = stateset.New()
		} else {
			c.transitions[i] = succ.Clone()
		}
	}
	return c, nil
}

// NumStates returns the number of component states N.
func (c *Component) NumStates() uint32 { return c.numStates }

// NumControl returns the number of control inputs M.
func (c *Component) NumControl() uint32 { return c.numControl }

// NumDisturbance returns the number of disturbance inputs P.
func (c *Component) NumDisturbance() uint32 { return c.numDisturbance }

// NumOutputs returns the number of outputs R.
func (c *Component) NumOutputs() uint32 { return c.numOutputs }

// Init returns the set of initial states. Callers must not mutate it.
func (c *Component) Init() stateset.Set { return c.init }

// Output returns the output label of state s.
func (c *Component) Output(s uint32) uint32 { return c.stateOutput[s] }

// Addr computes the dense index of the (state, control, disturbance)
// transition cell.
func (c *Component) Addr(state, ctrl, dist uint32) uint32 {
	return state*c.numControl*c.numDisturbance + ctrl*c.numDisturbance + dist
}

// Post returns the set of successor states for (state, ctrl, dist). The
// returned set may be empty (deadlock) or contain more than one state
// (nondeterminism). Callers must not mutate the returned set.
func (c *Component) Post(state, ctrl, dist uint32) stateset.Set {
	return c.transitions[c.Addr(state, ctrl, dist)]
}

// ControlOf recovers the control input index from a joint control-
// disturbance index l = ctrl*P + dist, as used by the joint-input encoding
// shared with monitor and safetygame.
func (c *Component) ControlOf(l uint32) uint32 {
	return l / c.numDisturbance
}
