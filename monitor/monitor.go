// Package monitor builds the two-player game arena a SafetyGame or
// LivenessGame solves: the synchronous product of a Component, an
// assumption automaton (over the component's disturbance alphabet) and a
// guarantee automaton (over the component's output alphabet).
//
// The arena has two absorbing sink states, RejectA (the assumption was
// violated — a win for the protagonist) and RejectG (the guarantee was
// violated — a loss), with RejectG taking priority whenever a transition
// would trigger both at once. Every other state is a triple
// (component state, assumption state, guarantee state) with both
// automaton coordinates excluding their own reject state, densely packed
// by StateIndex.
package monitor

import (
	"errors"
	"fmt"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/stateset"
)

// RejectA and RejectG are the reserved indices of the monitor's two sink
// states. RejectA models an assumption violation (a win for the
// protagonist); RejectG models a guarantee violation (a loss), and takes
// priority over RejectA whenever both would fire on the same transition.
const (
	RejectA uint32 = 0
	RejectG uint32 = 1
)

// ErrAlphabetMismatch is returned by New when the assumption's or
// guarantee's input alphabet does not match the component's disturbance or
// output alphabet, respectively.
var ErrAlphabetMismatch = errors.New("monitor: alphabet mismatch")

// Monitor is the product game arena of a Component, an assumption and a
// guarantee.
type Monitor struct {
	numStates          uint32
	numCompStates      uint32
	numAssumeStates    uint32
	numGuaranteeStates uint32
	numControl         uint32
	numDist            uint32

	init stateset.Set
	post []stateset.Set // len == numStates*numControl*numDist, addressed by Addr
	pre  []stateset.Set // same shape as post, but indexed by the successor's (state,u,w)
}

// New builds a Monitor, restricting the allowed control and joint inputs at
// each non-sink monitor state as given.
//
// allowedControl[im], if non-empty, is the set of control inputs permitted
// at monitor state im; an empty (or nil) set means "no restriction". Unlike
// allowedControl, allowedJoint[im] has no such shortcut: every permitted
// joint input (u,w), encoded via JointAddr, must be listed explicitly. Both
// slices may be nil, meaning every control and every joint input is
// permitted everywhere — this is how a Monitor is built before any
// SafetyGame strategy exists to restrict it.
func New(comp *component.Component, assume, guarantee *safetyautomaton.Automaton, allowedControl, allowedJoint []stateset.Set) (*Monitor, error) {
	if comp.NumDisturbance() != assume.NumInputs() {
		return nil, fmt.Errorf("%w: assumption alphabet %d != component disturbance alphabet %d", ErrAlphabetMismatch, assume.NumInputs(), comp.NumDisturbance())
	}
	if comp.NumOutputs() != guarantee.NumInputs() {
		return nil, fmt.Errorf("%w: guarantee alphabet %d != component output alphabet %d", ErrAlphabetMismatch, guarantee.NumInputs(), comp.NumOutputs())
	}

	na := assume.NumStates()
	ng := guarantee.NumStates()
	numCompStates := comp.NumStates()
	numControl := comp.NumControl()
	numDist := comp.NumDisturbance()
	numStates := numCompStates*(na-1)*(ng-1) + 2

	m := &Monitor{
		numStates:          numStates,
		numCompStates:      numCompStates,
		numAssumeStates:    na,
		numGuaranteeStates: ng,
		numControl:         numControl,
		numDist:            numDist,
	}

	m.init = stateset.New()
	for ic := range comp.Init() {
		for ia := range assume.Init() {
			for ig := range guarantee.Init() {
				m.init.Add(m.StateIndex(ic, ia, ig))
			}
		}
	}

	if allowedControl == nil {
		allowedControl = make([]stateset.Set, numStates)
		for i := range allowedControl {
			allowedControl[i] = stateset.New()
		}
	}
	if allowedJoint == nil {
		full := stateset.New()
		for j := uint32(0); j < numControl; j++ {
			for k := uint32(0); k < numDist; k++ {
				full.Add(m.JointAddr(j, k))
			}
		}
		allowedJoint = make([]stateset.Set, numStates)
		for i := range allowedJoint {
			allowedJoint[i] = full
		}
	}

	cellCount := numStates * numControl * numDist
	post := make([]stateset.Set, cellCount)
	pre := make([]stateset.Set, cellCount)
	for i := range post {
		post[i] = stateset.New()
		pre[i] = stateset.New()
	}

	for _, r := range [2]uint32{RejectA, RejectG} {
		for j := uint32(0); j < numControl; j++ {
			for k := uint32(0); k < numDist; k++ {
				a := m.Addr(r, j, k)
				post[a].Add(r)
				pre[a].Add(r)
			}
		}
	}

	for ic := uint32(0); ic < numCompStates; ic++ {
		for ia := uint32(1); ia < na; ia++ {
			for ig := uint32(1); ig < ng; ig++ {
				im := m.StateIndex(ic, ia, ig)
				for j := uint32(0); j < numControl; j++ {
					if len(allowedControl[im]) != 0 && !allowedControl[im].Has(j) {
						continue
					}
					for k := uint32(0); k < numDist; k++ {
						if !allowedJoint[im].Has(m.JointAddr(j, k)) {
							continue
						}
						assumePost := assume.Post(ia, k)
						if len(assumePost) == 0 {
							continue
						}
						isAssumeReject := assumePost.Has(safetyautomaton.RejectState)

						a := m.Addr(im, j, k)
						for ic2 := range comp.Post(ic, j, k) {
							o := comp.Output(ic2)
							guaranteePost := guarantee.Post(ig, o)
							if len(guaranteePost) == 0 {
								continue
							}
							isGuaranteeReject := guaranteePost.Has(safetyautomaton.RejectState)

							if isGuaranteeReject {
								if !post[a].Has(RejectG) {
									post[a].Add(RejectG)
									pre[m.Addr(RejectG, j, k)].Add(im)
								}
								continue
							}
							if isAssumeReject {
								if !post[a].Has(RejectA) {
									post[a].Add(RejectA)
									pre[m.Addr(RejectA, j, k)].Add(im)
								}
								continue
							}
							for ia2 := range assumePost {
								for ig2 := range guaranteePost {
									im2 := m.StateIndex(ic2, ia2, ig2)
									if !post[a].Has(im2) {
										post[a].Add(im2)
										pre[m.Addr(im2, j, k)].Add(im)
									}
								}
							}
						}
					}
				}
			}
		}
	}

	m.post = post
	m.pre = pre
	return m, nil
}

// NewUnrestricted builds a Monitor with every control and joint input
// permitted everywhere — the form used before any SafetyGame strategy
// exists to restrict the arena.
func NewUnrestricted(comp *component.Component, assume, guarantee *safetyautomaton.Automaton) (*Monitor, error) {
	return New(comp, assume, guarantee, nil, nil)
}

// Addr computes the dense index of the (state, control, disturbance)
// transition cell.
func (m *Monitor) Addr(state, ctrl, dist uint32) uint32 {
	return state*m.numControl*m.numDist + ctrl*m.numDist + dist
}

// JointAddr encodes a (control, disturbance) pair as a single index, used
// by New's allowedJoint parameter and by LivenessGame/SafetyGame's joint
// winning-action sets.
func (m *Monitor) JointAddr(ctrl, dist uint32) uint32 {
	return ctrl*m.numDist + dist
}

// StateIndex computes the monitor state for a (component, assumption,
// guarantee) triple, applying the guarantee-over-assumption reject
// priority: a guarantee reject state (ig == 0) always maps to RejectG,
// even if ia is also 0.
func (m *Monitor) StateIndex(ic, ia, ig uint32) uint32 {
	if ig == safetyautomaton.RejectState {
		return RejectG
	}
	if ia == safetyautomaton.RejectState {
		return RejectA
	}
	return ic*(m.numAssumeStates-1)*(m.numGuaranteeStates-1) + (ia-1)*(m.numGuaranteeStates-1) + (ig - 1) + 2
}

// ComponentState recovers the component-state coordinate of a non-sink
// monitor state. ok is false for RejectA and RejectG, which have no
// corresponding component state.
func (m *Monitor) ComponentState(im uint32) (ic uint32, ok bool) {
	if im == RejectA || im == RejectG {
		return 0, false
	}
	return (im - 2) / ((m.numAssumeStates - 1) * (m.numGuaranteeStates - 1)), true
}

// NumStates returns the total number of monitor states, including the two
// sinks.
func (m *Monitor) NumStates() uint32 { return m.numStates }

// NumCompStates returns the number of component states.
func (m *Monitor) NumCompStates() uint32 { return m.numCompStates }

// NumAssumeStates returns the number of assumption-automaton states.
func (m *Monitor) NumAssumeStates() uint32 { return m.numAssumeStates }

// NumGuaranteeStates returns the number of guarantee-automaton states.
func (m *Monitor) NumGuaranteeStates() uint32 { return m.numGuaranteeStates }

// NumControl returns the number of control inputs.
func (m *Monitor) NumControl() uint32 { return m.numControl }

// NumDist returns the number of disturbance inputs.
func (m *Monitor) NumDist() uint32 { return m.numDist }

// Init returns the set of initial monitor states. Callers must not mutate
// it.
func (m *Monitor) Init() stateset.Set { return m.init }

// Post returns the successor set of monitor state s under joint input
// (ctrl, dist). Callers must not mutate the returned set.
func (m *Monitor) Post(s, ctrl, dist uint32) stateset.Set {
	return m.post[m.Addr(s, ctrl, dist)]
}

// Pre returns the set of monitor states with an edge into s under joint
// input (ctrl, dist). Callers must not mutate the returned set.
func (m *Monitor) Pre(s, ctrl, dist uint32) stateset.Set {
	return m.pre[m.Addr(s, ctrl, dist)]
}

// NoPost returns the arity (branching factor) of the (s, ctrl, dist) cell.
func (m *Monitor) NoPost(s, ctrl, dist uint32) int {
	return len(m.post[m.Addr(s, ctrl, dist)])
}

// ReachableSetFromInit computes the set of monitor states reachable from
// Init by breadth-first search through Post.
func (m *Monitor) ReachableSetFromInit() stateset.Set {
	seen := m.init.Clone()
	queue := m.init.Slice()
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for j := uint32(0); j < m.numControl; j++ {
			for k := uint32(0); k < m.numDist; k++ {
				for s2 := range m.Post(s, j, k) {
					if !seen.Has(s2) {
						seen.Add(s2)
						queue = append(queue, s2)
					}
				}
			}
		}
	}
	return seen
}
