// Package safetygame solves sure- and maybe-winning safety games on a
// Monitor, and extracts the resulting spoiler language as a
// safetyautomaton.Automaton.
//
// Sure winning asks for a strategy that keeps every run inside a safe
// component-state set against an adversarial disturbance, except where the
// assumption is cooperatively violated first (reject_A is always safe).
// Maybe winning asks the same question against a cooperative disturbance.
// The gap between the two winning regions is exactly what a spoiler
// automaton captures: the disturbance behavior the other component must
// promise to avoid for the negotiation to make progress.
package safetygame

import (
	"github.com/kmallik/agnes-go/monitor"
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/stateset"
)

// SpoilerOutcome classifies the result of FindSpoilers.
type SpoilerOutcome int

const (
	// LostInit means some initial state is not even maybe-winning: the
	// game is lost regardless of what the other component promises, so
	// no spoiler is meaningful and the universal automaton is returned.
	LostInit SpoilerOutcome = iota
	// Partial means the spoiler automaton captures a genuine gap between
	// sure and maybe winning at some reachable state.
	Partial
	// SureAllInit means every initial state is already sure-winning, so
	// there is nothing left to spoil.
	SureAllInit
)

func allControls(m *monitor.Monitor) stateset.Set {
	s := stateset.New()
	for j := uint32(0); j < m.NumControl(); j++ {
		s.Add(j)
	}
	return s
}

func allJoint(m *monitor.Monitor) stateset.Set {
	s := stateset.New()
	for j := uint32(0); j < m.NumControl(); j++ {
		for k := uint32(0); k < m.NumDist(); k++ {
			s.Add(m.JointAddr(j, k))
		}
	}
	return s
}

func isDeadEnd(m *monitor.Monitor, s uint32) bool {
	for j := uint32(0); j < m.NumControl(); j++ {
		for k := uint32(0); k < m.NumDist(); k++ {
			if m.NoPost(s, j, k) != 0 {
				return false
			}
		}
	}
	return true
}

// liftSafeStates lifts a set of component-safe states to the monitor
// states built on top of them, plus reject_A, which is always safe.
func liftSafeStates(m *monitor.Monitor, compSafe stateset.Set) stateset.Set {
	out := stateset.New(monitor.RejectA)
	for s := range compSafe {
		for ia := uint32(1); ia < m.NumAssumeStates(); ia++ {
			for ig := uint32(1); ig < m.NumGuaranteeStates(); ig++ {
				out.Add(m.StateIndex(s, ia, ig))
			}
		}
	}
	return out
}

func cloneSets(s []stateset.Set) []stateset.Set {
	out := make([]stateset.Set, len(s))
	for i, set := range s {
		out[i] = set.Clone()
	}
	return out
}

// SolveMaybe computes the maybe-winning region: D[s] is the set of joint
// (control, disturbance) inputs, encoded via monitor.JointAddr, from which
// a cooperative disturbance lets the protagonist keep the play inside
// safeStates (or escape through reject_A) forever. s is maybe-winning iff
// D[s] is non-empty.
func SolveMaybe(m *monitor.Monitor, safeStates stateset.Set) []stateset.Set {
	monitorSafe := liftSafeStates(m, safeStates)
	numStates := m.NumStates()

	D := make([]stateset.Set, numStates)
	for i := range D {
		D[i] = stateset.New()
	}
	D[monitor.RejectA] = allJoint(m)

	E := stateset.New(monitor.RejectG)
	Q := []uint32{monitor.RejectG}

	for i := uint32(2); i < numStates; i++ {
		if !monitorSafe.Has(i) || isDeadEnd(m, i) {
			Q = append(Q, i)
			E.Add(i)
			continue
		}
		d := stateset.New()
		for j := uint32(0); j < m.NumControl(); j++ {
			for k := uint32(0); k < m.NumDist(); k++ {
				if m.NoPost(i, j, k) != 0 {
					d.Add(m.JointAddr(j, k))
				}
			}
		}
		D[i] = d
	}

	for len(Q) > 0 {
		x := Q[0]
		Q = Q[1:]
		for j := uint32(0); j < m.NumControl(); j++ {
			for k := uint32(0); k < m.NumDist(); k++ {
				for p := range m.Pre(x, j, k) {
					D[p].Remove(m.JointAddr(j, k))
					if len(D[p]) == 0 && !E.Has(p) {
						Q = append(Q, p)
						E.Add(p)
					}
				}
			}
		}
	}

	return D
}

// SolveSure computes the sure-winning region: D[s] is the set of control
// inputs from which the protagonist wins against every disturbance choice
// (escaping through reject_A counts as winning). s is sure-winning iff
// D[s] is non-empty.
//
// The backward attractor is nested inside an outer "friendly disturbance"
// fixpoint: a disturbance w is friendly at a predecessor p if some control
// choice at p avoids every currently-known-bad state under w, in which case
// w's edges are exempted from pruning even though they lead toward
// assumption-violating territory. The outer fixpoint grows the frontier of
// states reachable through friendly disturbances from reject_A outward,
// restarting the inner backward attractor from the saved (Q, D) pair on
// every round until the frontier stops growing.
func SolveSure(m *monitor.Monitor, safeStates stateset.Set) []stateset.Set {
	monitorSafe := liftSafeStates(m, safeStates)
	numStates := m.NumStates()

	D := make([]stateset.Set, numStates)
	for i := range D {
		D[i] = stateset.New()
	}
	D[monitor.RejectA] = allControls(m)

	E := stateset.New(monitor.RejectG)
	Q := []uint32{monitor.RejectG}

	for i := uint32(2); i < numStates; i++ {
		if !monitorSafe.Has(i) || isDeadEnd(m, i) {
			Q = append(Q, i)
			E.Add(i)
			continue
		}
		d := stateset.New()
		for j := uint32(0); j < m.NumControl(); j++ {
			hasSucc := false
			for k := uint32(0); k < m.NumDist(); k++ {
				if m.NoPost(i, j, k) != 0 {
					hasSucc = true
					break
				}
			}
			if hasSucc {
				d.Add(j)
			}
		}
		D[i] = d
	}

	friendlyDist := make([]stateset.Set, numStates)
	friendlyDistSeen := make([]stateset.Set, numStates)
	for i := range friendlyDist {
		friendlyDist[i] = stateset.New()
		friendlyDistSeen[i] = stateset.New()
	}
	frontier := stateset.New(monitor.RejectA)

	DOld := cloneSets(D)
	QOld := append([]uint32(nil), Q...)

	for {
		ww := frontier
		frontier = stateset.New()
		fixpointReached := true
		for i := range ww {
			for k := uint32(0); k < m.NumDist(); k++ {
				for j := uint32(0); j < m.NumControl(); j++ {
					for i2 := range m.Pre(i, j, k) {
						if friendlyDistSeen[i2].Has(k) {
							continue
						}
						isFriendly := false
						for j2 := uint32(0); j2 < m.NumControl(); j2++ {
							isFriendly = true
							for q := range E {
								if m.Post(i2, j2, k).Has(q) {
									isFriendly = false
									break
								}
							}
							if isFriendly {
								break
							}
						}
						if isFriendly {
							friendlyDist[i2].Add(k)
							frontier.Add(i2)
							friendlyDistSeen[i2].Add(k)
							fixpointReached = false
						}
					}
				}
			}
		}

		D = cloneSets(DOld)
		Q = append([]uint32(nil), QOld...)

		for len(Q) > 0 {
			x := Q[0]
			Q = Q[1:]
			for j := uint32(0); j < m.NumControl(); j++ {
				for k := uint32(0); k < m.NumDist(); k++ {
					for p := range m.Pre(x, j, k) {
						if friendlyDist[p].Has(k) {
							continue
						}
						D[p].Remove(j)
						if len(D[p]) == 0 && !E.Has(p) {
							Q = append(Q, p)
							E.Add(p)
						}
					}
				}
			}
		}

		if fixpointReached {
			break
		}

		nextQ := append([]uint32(nil), QOld...)
		for i := uint32(0); i < numStates; i++ {
			if frontier.Has(i) {
				if E.Has(i) {
					friendlyDist[i] = stateset.New()
					nextQ = append(nextQ, i)
					frontier.Remove(i)
				}
			}
		}
		Q = nextQ
		QOld = append([]uint32(nil), Q...)
	}

	return D
}

// FindSpoilers compares the sure- and maybe-winning regions and, when they
// differ on some reachable state, builds a safety automaton over the
// disturbance alphabet describing exactly the disturbance behavior that
// the sure strategy cannot tolerate: a spoiler string for the other
// component's guarantee.
func FindSpoilers(m *monitor.Monitor, sureWin, maybeWin []stateset.Set) (SpoilerOutcome, *safetyautomaton.Automaton) {
	allInitSure := true
	for i := range m.Init() {
		if len(sureWin[i]) == 0 {
			allInitSure = false
			break
		}
	}
	if allInitSure {
		return SureAllInit, safetyautomaton.AcceptsAll(m.NumDist())
	}

	allInitMaybe := true
	for i := range m.Init() {
		if len(maybeWin[i]) == 0 {
			allInitMaybe = false
			break
		}
	}
	if !allInitMaybe {
		return LostInit, safetyautomaton.AcceptsAll(m.NumDist())
	}

	reach := m.ReachableSetFromInit()

	newIndex := make([]uint32, m.NumStates())
	newIndex[monitor.RejectG] = safetyautomaton.RejectState
	newIndex[monitor.RejectA] = 1
	noNew := uint32(2)
	for q := uint32(2); q < m.NumStates(); q++ {
		if len(maybeWin[q]) != 0 && reach.Has(q) {
			newIndex[q] = noNew
			noNew++
		}
	}

	init := stateset.New()
	for i := range m.Init() {
		init.Add(newIndex[i])
	}

	numDist := m.NumDist()
	post := make([]stateset.Set, noNew*numDist)
	for i := range post {
		post[i] = stateset.New()
	}
	for k := uint32(0); k < numDist; k++ {
		post[safetyautomaton.RejectState*numDist+k].Add(safetyautomaton.RejectState)
		post[1*numDist+k].Add(1)
	}

	for q := uint32(2); q < m.NumStates(); q++ {
		if len(maybeWin[q]) == 0 || !reach.Has(q) {
			continue
		}
		row := newIndex[q]
		switch {
		case len(sureWin[q]) != 0:
			for u := range sureWin[q] {
				for k := uint32(0); k < numDist; k++ {
					for succ := range m.Post(q, u, k) {
						post[row*numDist+k].Add(newIndex[succ])
					}
				}
			}
		default:
			for j := uint32(0); j < m.NumControl(); j++ {
				admissible := false
				for k := uint32(0); k < numDist; k++ {
					if maybeWin[q].Has(m.JointAddr(j, k)) {
						admissible = true
						break
					}
				}
				if !admissible {
					continue
				}
				for k := uint32(0); k < numDist; k++ {
					if maybeWin[q].Has(m.JointAddr(j, k)) {
						for succ := range m.Post(q, j, k) {
							post[row*numDist+k].Add(newIndex[succ])
						}
					} else {
						post[row*numDist+k].Add(safetyautomaton.RejectState)
					}
				}
			}
		}
	}

	spoilers, err := safetyautomaton.New(noNew, numDist, init, post)
	if err != nil {
		panic("safetygame: spoiler construction produced an inconsistent automaton: " + err.Error())
	}
	return Partial, spoilers
}
