package stateset_test

import (
	"testing"

	"github.com/kmallik/agnes-go/stateset"
	"github.com/stretchr/testify/assert"
)

func TestUnionIntersectDifference(t *testing.T) {
	a := stateset.New(1, 2, 3)
	b := stateset.New(2, 3, 4)

	assert.True(t, stateset.Equal(stateset.Union(a, b), stateset.New(1, 2, 3, 4)))
	assert.True(t, stateset.Equal(stateset.Intersect(a, b), stateset.New(2, 3)))
	assert.True(t, stateset.Equal(stateset.Difference(a, b), stateset.New(1)))
}

func TestSubset(t *testing.T) {
	a := stateset.New(1, 2)
	b := stateset.New(1, 2, 3)
	assert.True(t, stateset.Subset(a, b))
	assert.False(t, stateset.Subset(b, a))
}

func TestAddRemoveHas(t *testing.T) {
	s := stateset.New()
	assert.False(t, s.Has(5))
	s.Add(5)
	assert.True(t, s.Has(5))
	s.Remove(5)
	assert.False(t, s.Has(5))
}

func TestClone(t *testing.T) {
	a := stateset.New(1, 2)
	b := a.Clone()
	b.Add(3)
	assert.False(t, a.Has(3))
	assert.True(t, b.Has(3))
}
