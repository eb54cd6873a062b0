package livenessgame_test

import (
	"testing"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/livenessgame"
	"github.com/kmallik/agnes-go/monitor"
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/stateset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfLoopComponent is a trivial 1-state component that always revisits its
// only (target) state, so the Büchi objective is trivially sure-winning.
func selfLoopComponent(t *testing.T) *component.Component {
	t.Helper()
	c, err := component.New(1, 1, 1, 1,
		stateset.New(0),
		[]uint32{0},
		[]stateset.Set{stateset.New(0)},
	)
	require.NoError(t, err)
	return c
}

func TestSolveSureOnTrivialSelfLoopIsFullyWinning(t *testing.T) {
	comp := selfLoopComponent(t)
	assume := safetyautomaton.AcceptsAll(1)
	guarantee := safetyautomaton.AcceptsAll(1)
	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	target := livenessgame.Target(m, stateset.New(0))
	avoid := stateset.New(monitor.RejectG)

	Y, D := livenessgame.SolveSure(m, target, avoid)
	init := m.StateIndex(0, 1, 1)
	assert.True(t, Y.Has(init))
	assert.NotEmpty(t, D[init])
}

// liveLockForkComponent is a 2-state, 1-control, 2-disturbance component:
// state 0 (init, target) self-loops under disturbance 0 (revisiting the
// target forever) but moves to state 1 under disturbance 1; state 1 returns
// to state 0 under disturbance 0 but self-loops under disturbance 1 (never
// returning to the target). Since there is only one control, an adversarial
// disturbance can always pick 1 and starve the target forever, so neither
// state is sure-Büchi-winning — but a cooperative disturbance can always
// pick 0, so both are maybe-winning: a live-lock, not a safety violation.
func liveLockForkComponent(t *testing.T) *component.Component {
	t.Helper()
	c, err := component.New(2, 1, 2, 1,
		stateset.New(0),
		[]uint32{0, 0},
		[]stateset.Set{
			stateset.New(0), stateset.New(1), // state 0: w0 -> 0, w1 -> 1
			stateset.New(0), stateset.New(1), // state 1: w0 -> 0, w1 -> 1 (self)
		},
	)
	require.NoError(t, err)
	return c
}

func TestSolveSureVsMaybeExposesLiveLock(t *testing.T) {
	comp := liveLockForkComponent(t)
	assume := safetyautomaton.AcceptsAll(2)
	guarantee := safetyautomaton.AcceptsAll(1)
	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	target := livenessgame.Target(m, stateset.New(0))
	avoid := stateset.New(monitor.RejectG)

	sureWin, _ := livenessgame.SolveSure(m, target, avoid)
	maybeWin, _ := livenessgame.SolveMaybe(m, target, avoid)

	comp0 := m.StateIndex(0, 1, 1)
	comp1 := m.StateIndex(1, 1, 1)

	assert.False(t, sureWin.Has(comp0), "state 0 should not be sure-Büchi-winning: disturbance 1 can always starve the target")
	assert.False(t, sureWin.Has(comp1))
	assert.True(t, maybeWin.Has(comp0), "state 0 should be maybe-Büchi-winning: a cooperative disturbance always revisits the target")
	assert.True(t, maybeWin.Has(comp1))
}

func TestFindSpoilersCapturesLiveLock(t *testing.T) {
	comp := liveLockForkComponent(t)
	assume := safetyautomaton.AcceptsAll(2)
	guarantee := safetyautomaton.AcceptsAll(1)
	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	target := livenessgame.Target(m, stateset.New(0))
	avoid := stateset.New(monitor.RejectG)

	sureWin, sureD := livenessgame.SolveSure(m, target, avoid)
	maybeWin, maybeD := livenessgame.SolveMaybe(m, target, avoid)

	_, spoilers := livenessgame.FindSpoilers(m, target, sureWin, maybeWin, sureD, maybeD)

	// The spoiler language is exactly "never pick disturbance 1": any word
	// using only 0 is accepted (the run keeps revisiting the target), but a
	// single 1 anywhere spoils it, since that's the starving disturbance.
	assert.True(t, spoilers.Accepts(nil))
	assert.True(t, spoilers.Accepts([]uint32{0, 0, 0, 0}))
	assert.False(t, spoilers.Accepts([]uint32{1}))
	assert.False(t, spoilers.Accepts([]uint32{0, 0, 1}))
}

func TestFindSpoilersReturnsUniversalWhenNoLiveLock(t *testing.T) {
	comp := selfLoopComponent(t)
	assume := safetyautomaton.AcceptsAll(1)
	guarantee := safetyautomaton.AcceptsAll(1)
	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	target := livenessgame.Target(m, stateset.New(0))
	avoid := stateset.New(monitor.RejectG)

	sureWin, sureD := livenessgame.SolveSure(m, target, avoid)
	maybeWin, maybeD := livenessgame.SolveMaybe(m, target, avoid)

	trivial, spoilers := livenessgame.FindSpoilers(m, target, sureWin, maybeWin, sureD, maybeD)
	assert.True(t, trivial)
	assert.True(t, spoilers.Accepts(nil))
	assert.True(t, spoilers.Accepts([]uint32{0, 0, 0}))
}
