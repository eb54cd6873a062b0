package diag_test

import (
	"testing"
	"time"

	"github.com/kmallik/agnes-go/diag"
	"github.com/kmallik/agnes-go/safetygame"
	"github.com/stretchr/testify/assert"
)

func TestEmitAndDrain(t *testing.T) {
	r := diag.NewReporter(4)
	r.Emit(diag.Round{Depth: 0, Component: 1, Outcome: safetygame.Partial, SpoilerStates: 3})
	r.Close()

	var got []diag.Round
	for round := range r.Rounds() {
		got = append(got, round)
	}
	if assert.Len(t, got, 1) {
		assert.Equal(t, 1, got[0].Component)
		assert.Equal(t, 3, got[0].SpoilerStates)
	}
}

func TestEmitDropsPastCapacityRatherThanBlocking(t *testing.T) {
	r := diag.NewReporter(1)
	r.Emit(diag.Round{Depth: 0})
	r.Emit(diag.Round{Depth: 1}) // buffer full: dropped, not blocked

	done := make(chan struct{})
	go func() {
		r.Emit(diag.Round{Depth: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full, undrained Reporter")
	}
}

func TestMergeFansInMultipleReporters(t *testing.T) {
	a := diag.NewReporter(2)
	b := diag.NewReporter(2)
	a.Emit(diag.Round{Component: 0})
	b.Emit(diag.Round{Component: 1})
	a.Close()
	b.Close()

	merged := diag.Merge(a, b)
	var components []int
	for round := range merged {
		components = append(components, round.Component)
	}
	assert.ElementsMatch(t, []int{0, 1}, components)
}
