// Package agnes negotiates assume-guarantee safety contracts between a
// pair of finite reactive components.
//
// Each component is a nondeterministic transition system driven by its own
// control actions and disturbed by the other component's output. Given a
// local safety set and a local Büchi target per component, Negotiate
// iteratively synthesizes a pair of safety-language contracts — an
// assumption each component may rely on about its disturbance stream, and
// a guarantee it offers back — such that the two coincide (one's guarantee
// is exactly the other's assumption) and both components win safety ∩
// Büchi under that pair.
//
// The pipeline, leaf packages first:
//
//	component      — the transition system under negotiation
//	safetyautomaton — universal-acceptance safety automata (product, trim, determinize)
//	spoilers        — bounded-bisimulation minimization of a safety automaton
//	monitor         — the (component × assumption × guarantee) game arena
//	safetygame      — sure/maybe safety solving and spoiler extraction
//	livenessgame    — sure/maybe Büchi solving and live-lock spoiler extraction
//	negotiate       — the iterative-deepening negotiation loop over the two
//
// ioformat, scenario, viz and diag are collaborators around that core: a
// persisted text-block codec, parameterized example component generators,
// an SVG arena renderer, and a side-channel diagnostics reporter,
// respectively. None of them participate in the negotiation's control
// flow.
package agnes
