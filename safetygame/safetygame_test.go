package safetygame_test

import (
	"testing"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/monitor"
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/safetygame"
	"github.com/kmallik/agnes-go/stateset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSureAllInitWhenEverythingIsUniversallySafe(t *testing.T) {
	comp, err := component.New(1, 1, 1, 1,
		stateset.New(0),
		[]uint32{0},
		[]stateset.Set{stateset.New(0)}, // self-loop
	)
	require.NoError(t, err)
	assume := safetyautomaton.AcceptsAll(1)
	guarantee := safetyautomaton.AcceptsAll(1)
	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	safe := stateset.New(0)
	sureWin := safetygame.SolveSure(m, safe)
	maybeWin := safetygame.SolveMaybe(m, safe)

	outcome, spoilers := safetygame.FindSpoilers(m, sureWin, maybeWin)
	assert.Equal(t, safetygame.SureAllInit, outcome)
	assert.True(t, spoilers.Accepts([]uint32{0, 0, 0}))
}

func TestLostInitWhenSafeSetIsEmptyAndUnreachable(t *testing.T) {
	comp, err := component.New(1, 1, 1, 1,
		stateset.New(0),
		[]uint32{0},
		[]stateset.Set{stateset.New(0)},
	)
	require.NoError(t, err)
	assume := safetyautomaton.AcceptsAll(1)
	guarantee := safetyautomaton.AcceptsAll(1)
	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	safe := stateset.New() // nothing is safe
	sureWin := safetygame.SolveSure(m, safe)
	maybeWin := safetygame.SolveMaybe(m, safe)

	outcome, _ := safetygame.FindSpoilers(m, sureWin, maybeWin)
	assert.Equal(t, safetygame.LostInit, outcome)
}

// adversarialForkComponent builds a 2-state, 1-control, 2-disturbance
// component: state 0 (init, safe) self-loops under disturbance 0 but falls
// into the dead-end state 1 (unsafe) under disturbance 1. A sure strategy
// cannot avoid disturbance 1 (there's only one control choice), so state 0
// is maybe-winning (a cooperative disturbance always picks 0) but not
// sure-winning.
func adversarialForkComponent(t *testing.T) *component.Component {
	t.Helper()
	c, err := component.New(2, 1, 2, 1,
		stateset.New(0),
		[]uint32{0, 0},
		[]stateset.Set{
			stateset.New(0), stateset.New(1), // state 0: w0 -> 0, w1 -> 1
			stateset.New(), stateset.New(), // state 1: dead end under both
		},
	)
	require.NoError(t, err)
	return c
}

func TestFindSpoilersCapturesSureMaybeGap(t *testing.T) {
	comp := adversarialForkComponent(t)
	assume := safetyautomaton.AcceptsAll(2)
	guarantee := safetyautomaton.AcceptsAll(1)
	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	safe := stateset.New(0)
	sureWin := safetygame.SolveSure(m, safe)
	maybeWin := safetygame.SolveMaybe(m, safe)

	init := m.StateIndex(0, 1, 1)
	assert.Empty(t, sureWin[init], "state 0 should not be sure-winning: disturbance 1 is unavoidable")
	assert.NotEmpty(t, maybeWin[init], "state 0 should be maybe-winning: a cooperative disturbance always picks 0")

	outcome, spoilers := safetygame.FindSpoilers(m, sureWin, maybeWin)
	require.Equal(t, safetygame.Partial, outcome)

	assert.True(t, spoilers.Accepts(nil))
	assert.True(t, spoilers.Accepts([]uint32{0, 0, 0}))
	assert.False(t, spoilers.Accepts([]uint32{1}))
	assert.False(t, spoilers.Accepts([]uint32{0, 0, 1}))
}
