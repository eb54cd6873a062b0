// Package livenessgame solves sure- and maybe-winning Büchi games on a
// Monitor, and extracts the resulting live-lock spoiler language as a
// safetyautomaton.Automaton.
//
// A Büchi objective asks for infinitely many visits to a target set T_M
// (every component-target state paired with a live assumption/guarantee
// state, plus reject_A, which counts as an immediate win). The solver is a
// nested fixpoint: an outer friendly-disturbance loop, mirroring
// safetygame's, wraps an inner loop that alternates between picking out the
// "safe" subset of the current candidate winning region that can also reach
// a target recurrently, and resolving reachability to that subset with a
// reach-avoid game.
//
// Where sure- and maybe-winning disagree inside the reachable maybe-winning
// region, a live-lock can occur even though every individual step looks
// fine: a disturbance that never commits to spoiling the safety game can
// still stall the liveness objective forever by always picking whichever
// successor keeps the run outside the target. FindSpoilers detects these
// "bad pairs" and encodes them as a safety automaton over the disturbance
// alphabet, exactly as safetygame.FindSpoilers does for safety violations.
package livenessgame

import (
	"github.com/kmallik/agnes-go/monitor"
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/stateset"
)

const unreached = -1

// ReachAvoid is the result of a reach-avoid game: V holds the
// distance-to-target (unreached states carry -1), D holds, per state, the
// winning input set — control inputs for the sure variant, joint
// (control, disturbance) indices (via monitor.JointAddr) for the maybe
// variant.
type ReachAvoid struct {
	V []int
	D []stateset.Set
}

// Win reports whether s can reach the target at all.
func (r *ReachAvoid) Win(s uint32) bool { return r.V[s] != unreached }

func newReachAvoid(numStates uint32) *ReachAvoid {
	ra := &ReachAvoid{V: make([]int, numStates), D: make([]stateset.Set, numStates)}
	for i := range ra.V {
		ra.V[i] = unreached
	}
	for i := range ra.D {
		ra.D[i] = stateset.New()
	}
	return ra
}

func allStates(m *monitor.Monitor) stateset.Set {
	s := stateset.New()
	for i := uint32(0); i < m.NumStates(); i++ {
		s.Add(i)
	}
	return s
}

func reachable(ra *ReachAvoid) stateset.Set {
	out := stateset.New()
	for i, v := range ra.V {
		if v != unreached {
			out.Add(uint32(i))
		}
	}
	return out
}

// SolveReachAvoidSure computes, for every state, whether the protagonist has
// a control strategy reaching target within finitely many steps against
// every disturbance, except disturbances listed as friendly at a given
// state, which the protagonist may treat as if the opponent cooperated.
// avoid states are never crossed, including as intermediate hops.
func SolveReachAvoidSure(m *monitor.Monitor, target, avoid stateset.Set, friendlyDist []stateset.Set) *ReachAvoid {
	ra := newReachAvoid(m.NumStates())
	enqueued := make([]bool, m.NumStates())

	type key struct{ p, u uint32 }
	cnt := make(map[key]int)
	isFriendly := func(p, w uint32) bool { return friendlyDist != nil && friendlyDist[p].Has(w) }

	queue := make([]uint32, 0, len(target))
	for s := range target {
		if avoid.Has(s) {
			continue
		}
		ra.V[s] = 0
		enqueued[s] = true
		queue = append(queue, s)
	}

	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		for u := uint32(0); u < m.NumControl(); u++ {
			for w := uint32(0); w < m.NumDist(); w++ {
				for p := range m.Pre(x, u, w) {
					if avoid.Has(p) || isFriendly(p, w) {
						// a friendly disturbance is excused from the
						// requirement entirely: its branch never counts
						// toward p's completion, so discovering one of its
						// successors confirmed carries no information.
						continue
					}
					k := key{p, u}
					if _, ok := cnt[k]; !ok {
						total := 0
						for w2 := uint32(0); w2 < m.NumDist(); w2++ {
							if isFriendly(p, w2) {
								continue
							}
							total += len(m.Post(p, u, w2))
						}
						cnt[k] = total
					}
					cnt[k]--
					if cnt[k] <= 0 {
						ra.D[p].Add(u)
						if !enqueued[p] {
							ra.V[p] = 1 + ra.V[x]
							enqueued[p] = true
							queue = append(queue, p)
						}
					}
				}
			}
		}
	}
	return ra
}

// SolveReachAvoidMaybe computes, for every state, whether there is SOME
// control and disturbance choice reaching target while avoiding avoid —
// a cooperative (existential) reach-avoid game.
func SolveReachAvoidMaybe(m *monitor.Monitor, target, avoid stateset.Set) *ReachAvoid {
	ra := newReachAvoid(m.NumStates())
	enqueued := make([]bool, m.NumStates())

	queue := make([]uint32, 0, len(target))
	for s := range target {
		if avoid.Has(s) {
			continue
		}
		ra.V[s] = 0
		enqueued[s] = true
		queue = append(queue, s)
	}

	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]
		for u := uint32(0); u < m.NumControl(); u++ {
			for w := uint32(0); w < m.NumDist(); w++ {
				for p := range m.Pre(x, u, w) {
					if avoid.Has(p) {
						continue
					}
					ra.D[p].Add(m.JointAddr(u, w))
					if !enqueued[p] {
						ra.V[p] = 1 + ra.V[x]
						enqueued[p] = true
						queue = append(queue, p)
					}
				}
			}
		}
	}
	return ra
}

// Target builds T_M: reject_A (an immediate win) plus every monitor state
// built on a component-target state with a live assumption and guarantee
// coordinate.
func Target(m *monitor.Monitor, compTarget stateset.Set) stateset.Set {
	out := stateset.New(monitor.RejectA)
	for s := range compTarget {
		for ia := uint32(1); ia < m.NumAssumeStates(); ia++ {
			for ig := uint32(1); ig < m.NumGuaranteeStates(); ig++ {
				out.Add(m.StateIndex(s, ia, ig))
			}
		}
	}
	return out
}

// safeTargetsSure picks out the subset of target ∩ Y from which some control
// keeps every non-friendly disturbance's successors inside Y \ avoid: a
// one-step safety check layered on top of the recurring-target requirement.
func safeTargetsSure(m *monitor.Monitor, target, Y, avoid stateset.Set, friendlyDist []stateset.Set) stateset.Set {
	out := stateset.New()
	for t := range stateset.Intersect(target, Y) {
		for u := uint32(0); u < m.NumControl(); u++ {
			allSafe := true
			for w := uint32(0); w < m.NumDist(); w++ {
				if friendlyDist != nil && friendlyDist[t].Has(w) {
					continue
				}
				for t2 := range m.Post(t, u, w) {
					if avoid.Has(t2) || !Y.Has(t2) {
						allSafe = false
						break
					}
				}
				if !allSafe {
					break
				}
			}
			if allSafe {
				out.Add(t)
				break
			}
		}
	}
	return out
}

// safeTargetsMaybe picks out the subset of target ∩ Y from which some
// (control, disturbance) choice has at least one successor inside Y \ avoid:
// the cooperative analogue of safeTargetsSure.
func safeTargetsMaybe(m *monitor.Monitor, target, Y, avoid stateset.Set) stateset.Set {
	out := stateset.New()
	for t := range stateset.Intersect(target, Y) {
	search:
		for u := uint32(0); u < m.NumControl(); u++ {
			for w := uint32(0); w < m.NumDist(); w++ {
				for t2 := range m.Post(t, u, w) {
					if !avoid.Has(t2) && Y.Has(t2) {
						out.Add(t)
						break search
					}
				}
			}
		}
	}
	return out
}

func innerFixpointSure(m *monitor.Monitor, target, avoid, start stateset.Set, friendlyDist []stateset.Set) (stateset.Set, *ReachAvoid) {
	Y := start
	var ra *ReachAvoid
	for {
		safe := safeTargetsSure(m, target, Y, avoid, friendlyDist)
		ra = SolveReachAvoidSure(m, safe, avoid, friendlyDist)
		next := stateset.Intersect(reachable(ra), Y)
		if stateset.Equal(next, Y) {
			return next, ra
		}
		Y = next
	}
}

func innerFixpointMaybe(m *monitor.Monitor, target, avoid, start stateset.Set) (stateset.Set, *ReachAvoid) {
	Y := start
	var ra *ReachAvoid
	for {
		safe := safeTargetsMaybe(m, target, Y, avoid)
		ra = SolveReachAvoidMaybe(m, safe, avoid)
		next := stateset.Intersect(reachable(ra), Y)
		if stateset.Equal(next, Y) {
			return next, ra
		}
		Y = next
	}
}

// SolveSure computes the sure-Büchi-winning region and, per winning state,
// the control inputs that realize it. The outer loop mirrors
// safetygame.SolveSure's friendly-disturbance fixpoint: a disturbance is
// friendly at a predecessor if some control avoids every currently-losing
// state under it, and the frontier of friendly-reachable states grows
// outward from reject_A until no new ones are found.
func SolveSure(m *monitor.Monitor, target, avoid stateset.Set) (stateset.Set, []stateset.Set) {
	numStates := m.NumStates()
	friendlyDist := make([]stateset.Set, numStates)
	friendlyDistSeen := make([]stateset.Set, numStates)
	for i := range friendlyDist {
		friendlyDist[i] = stateset.New()
		friendlyDistSeen[i] = stateset.New()
	}

	all := allStates(m)
	frontier := stateset.New(monitor.RejectA)

	var Y stateset.Set
	var D []stateset.Set
	for {
		var ra *ReachAvoid
		Y, ra = innerFixpointSure(m, target, avoid, all, friendlyDist)
		D = ra.D

		bad := stateset.Difference(all, Y)
		ww := frontier
		frontier = stateset.New()
		grew := false
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
							for q := range bad {
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
							grew = true
						}
					}
				}
			}
		}
		frontier.Add(monitor.RejectA)
		if !grew {
			break
		}
	}
	return Y, D
}

// SolveMaybe computes the maybe-Büchi-winning region: the cooperative
// analogue of SolveSure, with no friendly-disturbance logic. The result is
// additionally restricted to the one-step predecessors of a genuine
// (non-reject_A) target member — a state that can only ever "recur" through
// reject_A's absorbing win is not a meaningful live-lock-free winner, since
// reject_A already ends the game.
func SolveMaybe(m *monitor.Monitor, target, avoid stateset.Set) (stateset.Set, []stateset.Set) {
	all := allStates(m)
	Y, ra := innerFixpointMaybe(m, target, avoid, all)
	D := ra.D

	genuine := stateset.Difference(target, stateset.New(monitor.RejectA))
	genuinePre := genuine.Clone()
	for s := range Y {
		if genuine.Has(s) {
			continue
		}
		for u := uint32(0); u < m.NumControl(); u++ {
			for w := uint32(0); w < m.NumDist(); w++ {
				for t2 := range m.Post(s, u, w) {
					if genuine.Has(t2) {
						genuinePre.Add(s)
					}
				}
			}
		}
	}
	genuinePre.Add(monitor.RejectA)

	restricted := stateset.Intersect(Y, genuinePre)
	for s := range Y {
		if !restricted.Has(s) {
			D[s] = stateset.New()
		}
	}
	return restricted, D
}

func subsetOf(s, of stateset.Set) bool {
	for e := range s {
		if !of.Has(e) {
			return false
		}
	}
	return true
}

// computeBadPairs finds live-lock pairs (s, w) inside W: state s has a
// control u whose successors all stay in good under some OTHER disturbance
// w' but escape good under w. Such a w is a spoiling disturbance at s — it
// can always be chosen to keep a cooperative-looking play from ever
// committing to the target. A deadlocked (empty) post is never treated as
// staying in good, for either w or w': it has no successor to vouch for it.
func computeBadPairs(m *monitor.Monitor, domain, good stateset.Set) []stateset.Set {
	bad := make([]stateset.Set, m.NumStates())
	for i := range bad {
		bad[i] = stateset.New()
	}
	for s := range domain {
		for w := uint32(0); w < m.NumDist(); w++ {
			for u := uint32(0); u < m.NumControl(); u++ {
				post := m.Post(s, u, w)
				if len(post) > 0 && subsetOf(post, good) {
					continue
				}
				for w2 := uint32(0); w2 < m.NumDist(); w2++ {
					if w2 == w {
						continue
					}
					post2 := m.Post(s, u, w2)
					if len(post2) > 0 && subsetOf(post2, good) {
						bad[s].Add(w)
						break
					}
				}
			}
		}
	}
	return bad
}

// FindSpoilers compares the sure- and maybe-Büchi-winning regions. When they
// agree everywhere reachable, there is no live-lock to spoil, trivial is
// true, and the universal automaton is returned; otherwise it builds a
// safety automaton over the disturbance alphabet describing the live-lock
// behavior the other component's guarantee must promise to avoid.
func FindSpoilers(m *monitor.Monitor, target stateset.Set, sureWin, maybeWin stateset.Set, sureD, maybeD []stateset.Set) (trivial bool, spoiler *safetyautomaton.Automaton) {
	W := stateset.Intersect(m.ReachableSetFromInit(), maybeWin)
	if stateset.Subset(W, sureWin) {
		return true, safetyautomaton.AcceptsAll(m.NumDist())
	}

	tCur := stateset.Intersect(target, W)
	badPairs := computeBadPairs(m, W, tCur)

	for i := 0; i < len(W)+1 && !stateset.Subset(W, tCur); i++ {
		ra := SolveReachAvoidSure(m, tCur, stateset.New(), badPairs)
		grown := stateset.New()
		for s := range W {
			for u := range ra.D[s] {
				safe := true
				for w := uint32(0); w < m.NumDist(); w++ {
					if badPairs[s].Has(w) {
						continue
					}
					if !subsetOf(m.Post(s, u, w), W) {
						safe = false
						break
					}
				}
				if safe {
					grown.Add(s)
					break
				}
			}
		}
		next := stateset.Union(tCur, grown)
		if stateset.Equal(next, tCur) {
			break
		}
		moreBad := computeBadPairs(m, W, next)
		for s := range W {
			badPairs[s] = stateset.Union(badPairs[s], moreBad[s])
		}
		tCur = next
	}

	newIndex := make([]uint32, m.NumStates())
	for i := range newIndex {
		newIndex[i] = safetyautomaton.RejectState
	}
	noNew := uint32(1)
	for s := range W {
		newIndex[s] = noNew
		noNew++
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
	}

	for s := range W {
		row := newIndex[s]
		for w := uint32(0); w < numDist; w++ {
			if badPairs[s].Has(w) {
				post[row*numDist+w].Add(safetyautomaton.RejectState)
				continue
			}
			for u := uint32(0); u < m.NumControl(); u++ {
				for succ := range m.Post(s, u, w) {
					post[row*numDist+w].Add(newIndex[succ])
				}
			}
		}
	}

	result, err := safetyautomaton.New(noNew, numDist, init, post)
	if err != nil {
		panic("livenessgame: spoiler construction produced an inconsistent automaton: " + err.Error())
	}
	return false, result
}
