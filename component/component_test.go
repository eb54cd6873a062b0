package component_test

import (
	"testing"

	"github.com/kmallik/agnes-go/component"
	"github.com/kmallik/agnes-go/stateset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoStateCoin builds a trivial 2-state, 1-control, 1-disturbance,
// 2-output component: state 0 outputs 0 and always moves to state 1;
// state 1 outputs 1 and deadlocks.
func twoStateCoin(t *testing.T) *component.Component {
	t.Helper()
	c, err := component.New(2, 1, 1, 2,
		stateset.New(0),
		[]uint32{0, 1},
		[]stateset.Set{
			stateset.New(1), // state 0, ctrl 0, dist 0
			stateset.New(),  // state 1, ctrl 0, dist 0
		},
	)
	require.NoError(t, err)
	return c
}

func TestNewBasics(t *testing.T) {
	c := twoStateCoin(t)
	assert.EqualValues(t, 2, c.NumStates())
	assert.EqualValues(t, 0, c.Output(0))
	assert.True(t, c.Init().Has(0))
	assert.True(t, c.Post(0, 0, 0).Has(1))
	assert.Empty(t, c.Post(1, 0, 0))
}

func TestNewRejectsOutputOutOfRange(t *testing.T) {
	_, err := component.New(1, 1, 1, 1,
		stateset.New(0),
		[]uint32{5},
		[]stateset.Set{stateset.New()},
	)
	assert.ErrorIs(t, err, component.ErrOutputOutOfRange)
}

func TestNewRejectsSuccessorOutOfRange(t *testing.T) {
	_, err := component.New(1, 1, 1, 1,
		stateset.New(0),
		[]uint32{0},
		[]stateset.Set{stateset.New(9)},
	)
	assert.ErrorIs(t, err, component.ErrSuccessorOutOfRange)
}

func TestNewRejectsZeroStates(t *testing.T) {
	_, err := component.New(0, 1, 1, 1, stateset.New(), nil, nil)
	assert.ErrorIs(t, err, component.ErrNoStates)
}

func TestControlOf(t *testing.T) {
	c, err := component.New(1, 3, 4, 1,
		stateset.New(0),
		[]uint32{0},
		make([]stateset.Set, 12),
	)
	require.NoError(t, err)
	// joint index l = ctrl*P + dist; ctrl=2, dist=1 -> l=9
	assert.EqualValues(t, 2, c.ControlOf(9))
}
