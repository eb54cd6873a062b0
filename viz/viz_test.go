package viz_test

import (
	"bytes"
	"testing"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/monitor"
	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/stateset"
	"github.com/kmallik/agnes-go/viz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoStateComp is a 2-state, 1-control, 1-disturbance, 2-output component:
// state 0 (init) moves to state 1, which then self-loops.
func twoStateComp(t *testing.T) *component.Component {
	t.Helper()
	c, err := component.New(2, 1, 1, 2,
		stateset.New(0),
		[]uint32{0, 1},
		[]stateset.Set{stateset.New(1), stateset.New(1)},
	)
	require.NoError(t, err)
	return c
}

func TestMonitorRendersNonEmptySVG(t *testing.T) {
	comp := twoStateComp(t)
	assume := safetyautomaton.AcceptsAll(1)
	guarantee := safetyautomaton.AcceptsAll(2)

	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	out := viz.Monitor(m, viz.DefaultOptions())
	assert.True(t, bytes.Contains(out, []byte("<svg")))
	assert.True(t, bytes.Contains(out, []byte("</svg>")))
}

func TestAutomatonRendersReachableStatesOnly(t *testing.T) {
	a := safetyautomaton.AcceptsAll(1)

	out := viz.Automaton(a, viz.DefaultOptions())
	assert.True(t, bytes.Contains(out, []byte("<svg")))
	assert.True(t, bytes.Contains(out, []byte("<circle")))
}

func TestMonitorWithClustersStillRenders(t *testing.T) {
	comp := twoStateComp(t)
	assume := safetyautomaton.AcceptsAll(1)
	guarantee := safetyautomaton.AcceptsAll(2)

	m, err := monitor.NewUnrestricted(comp, assume, guarantee)
	require.NoError(t, err)

	opts := viz.DefaultOptions()
	opts.Clusters = map[string][]uint32{
		"sinks": {monitor.RejectA, monitor.RejectG},
	}
	out := viz.Monitor(m, opts)
	assert.NotEmpty(t, out)
}

func TestDefaultOptionsFillsZeroFields(t *testing.T) {
	a := safetyautomaton.AcceptsAll(1)
	out := viz.Automaton(a, viz.Options{})
	assert.NotEmpty(t, out)
}
