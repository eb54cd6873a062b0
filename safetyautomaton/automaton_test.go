package safetyautomaton_test

import (
	"testing"

	"github.com/kmallik/agnes-go/safetyautomaton"
	"github.com/kmallik/agnes-go/stateset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAcceptsAll(t *testing.T) {
	a := safetyautomaton.AcceptsAll(3)
	assert.True(t, a.Accepts([]uint32{0, 1, 2, 0, 0}))
	assert.True(t, a.Accepts(nil))
}

func TestNewRejectsMissingSelfLoop(t *testing.T) {
	_, err := safetyautomaton.New(2, 1, stateset.New(1), []stateset.Set{
		stateset.New(1), // state 0 should self-loop to 0, but points to 1
		stateset.New(1),
	})
	assert.ErrorIs(t, err, safetyautomaton.ErrMalformed)
}

func TestProductAlphabetMismatch(t *testing.T) {
	a := safetyautomaton.AcceptsAll(2)
	b := safetyautomaton.AcceptsAll(3)
	_, err := safetyautomaton.Product(a, b)
	assert.ErrorIs(t, err, safetyautomaton.ErrAlphabetMismatch)
}

// oneRejectOn1 builds a 2-state automaton over a 1-letter alphabet where
// state 1 (initial) transitions to the reject state on its only input —
// i.e. it rejects the singleton string {0} but accepts the empty string.
func oneRejectOn1(t *testing.T) *safetyautomaton.Automaton {
	t.Helper()
	a, err := safetyautomaton.New(2, 1, stateset.New(1), []stateset.Set{
		stateset.New(0),
		stateset.New(0),
	})
	require.NoError(t, err)
	return a
}

func TestProductLanguageIsIntersection(t *testing.T) {
	all := safetyautomaton.AcceptsAll(1)
	rej := oneRejectOn1(t)
	prod, err := safetyautomaton.Product(all, rej)
	require.NoError(t, err)
	assert.True(t, prod.Accepts(nil))
	assert.False(t, prod.Accepts([]uint32{0}))
}

func TestTrimPreservesAcceptance(t *testing.T) {
	// state 2 is unreachable from init (1); trimming must drop it without
	// changing the accepted language.
	a, err := safetyautomaton.New(3, 1, stateset.New(1), []stateset.Set{
		stateset.New(0),
		stateset.New(1),
		stateset.New(0),
	})
	require.NoError(t, err)
	trimmed := a.Trim()
	assert.EqualValues(t, 2, trimmed.NumStates())
	for _, w := range [][]uint32{nil, {0}, {0, 0}} {
		assert.Equal(t, a.Accepts(w), trimmed.Accepts(w))
	}
}

func TestDeterminizeHasOneSuccessorPerInput(t *testing.T) {
	a, err := safetyautomaton.New(3, 2, stateset.New(1, 2),
		[]stateset.Set{
			stateset.New(0), stateset.New(0), // state 0 self-loops
			stateset.New(2), stateset.New(1), // state 1
			stateset.New(1), stateset.New(0), // state 2
		},
	)
	require.NoError(t, err)
	det := a.Determinize()
	for s := uint32(0); s < det.NumStates(); s++ {
		for j := uint32(0); j < det.NumInputs(); j++ {
			assert.Len(t, det.Post(s, j), 1)
		}
	}
}

// randomSafetyAutomaton draws a small safety automaton whose reject state
// self-loops on every input, for use by rapid property checks.
func randomSafetyAutomaton(t *rapid.T) *safetyautomaton.Automaton {
	numStates := rapid.IntRange(2, 6).Draw(t, "numStates")
	numInputs := rapid.IntRange(1, 3).Draw(t, "numInputs")
	post := make([]stateset.Set, numStates*numInputs)
	for s := 0; s < numStates; s++ {
		for j := 0; j < numInputs; j++ {
			if s == 0 {
				post[s*numInputs+j] = stateset.New(0)
				continue
			}
			succ := stateset.New()
			n := rapid.IntRange(0, numStates-1).Draw(t, "fanout")
			for k := 0; k < n; k++ {
				succ.Add(uint32(rapid.IntRange(0, numStates-1).Draw(t, "succ")))
			}
			post[s*numInputs+j] = succ
		}
	}
	initSize := rapid.IntRange(1, numStates).Draw(t, "initSize")
	init := stateset.New()
	for i := 0; i < initSize; i++ {
		init.Add(uint32(rapid.IntRange(0, numStates-1).Draw(t, "initState")))
	}
	if len(init) == 0 {
		init.Add(0)
	}
	a, err := safetyautomaton.New(uint32(numStates), uint32(numInputs), init, post)
	require.NoError(t, err)
	return a
}

func randomWord(t *rapid.T, numInputs uint32, maxLen int) []uint32 {
	n := rapid.IntRange(0, maxLen).Draw(t, "wordLen")
	w := make([]uint32, n)
	for i := range w {
		w[i] = uint32(rapid.IntRange(0, int(numInputs)-1).Draw(t, "letter"))
	}
	return w
}

func TestTrimPreservesLanguageProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := randomSafetyAutomaton(t)
		trimmed := a.Trim()
		w := randomWord(t, a.NumInputs(), 6)
		if a.Accepts(w) != trimmed.Accepts(w) {
			t.Fatalf("trim changed acceptance of %v: orig=%v trimmed=%v", w, a.Accepts(w), trimmed.Accepts(w))
		}
	})
}

func TestDeterminizePreservesLanguageProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := randomSafetyAutomaton(t)
		det := a.Determinize()
		w := randomWord(t, a.NumInputs(), 6)
		if a.Accepts(w) != det.Accepts(w) {
			t.Fatalf("determinize changed acceptance of %v", w)
		}
	})
}

func TestProductLanguageProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numInputs := rapid.IntRange(1, 2).Draw(t, "numInputs")
		a := randomSafetyAutomatonWithInputs(t, numInputs)
		b := randomSafetyAutomatonWithInputs(t, numInputs)
		prod, err := safetyautomaton.Product(a, b)
		require.NoError(t, err)
		w := randomWord(t, uint32(numInputs), 6)
		want := a.Accepts(w) && b.Accepts(w)
		if prod.Accepts(w) != want {
			t.Fatalf("product acceptance mismatch on %v: got %v want %v", w, prod.Accepts(w), want)
		}
	})
}

func randomSafetyAutomatonWithInputs(t *rapid.T, numInputs int) *safetyautomaton.Automaton {
	numStates := rapid.IntRange(2, 4).Draw(t, "numStates")
	post := make([]stateset.Set, numStates*numInputs)
	for s := 0; s < numStates; s++ {
		for j := 0; j < numInputs; j++ {
			if s == 0 {
				post[s*numInputs+j] = stateset.New(0)
				continue
			}
			succ := stateset.New()
			n := rapid.IntRange(0, numStates-1).Draw(t, "fanout")
			for k := 0; k < n; k++ {
				succ.Add(uint32(rapid.IntRange(0, numStates-1).Draw(t, "succ")))
			}
			post[s*numInputs+j] = succ
		}
	}
	a, err := safetyautomaton.New(uint32(numStates), uint32(numInputs), stateset.New(1), post)
	require.NoError(t, err)
	return a
}
