package clu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDTWDistance_ZeroOnIdenticalSequences(t *testing.T) {
	d := &DTWDistance{}
	seq := Sequence{{0, 0}, {1, 1}, {2, 2}}
	assert.Zero(t, d.Distance(seq, seq))
}

func TestDTWDistance_IsSymmetric(t *testing.T) {
	d := &DTWDistance{}
	a := Sequence{{0, 0}, {1, 0}, {2, 1}}
	b := Sequence{{0, 1}, {1, 1}, {3, 2}, {4, 2}}
	assert.InDelta(t, d.Distance(a, b), d.Distance(b, a), 1e-9)
}

func TestDTWDistance_EmptySequences(t *testing.T) {
	d := &DTWDistance{}
	assert.Zero(t, d.Distance(Sequence{}, Sequence{}))
	assert.True(t, math.IsInf(d.Distance(Sequence{}, Sequence{{1}}), 1))
}

func TestDTWDistance_TimesCalledTracksInvocations(t *testing.T) {
	d := &DTWDistance{}
	before := d.TimesCalled()
	d.Distance(Sequence{{0}}, Sequence{{1}})
	d.Distance(Sequence{{0}}, Sequence{{1}})
	assert.Equal(t, before+2, d.TimesCalled())
}

func TestDTWDistance_ToleratesDifferentLengths(t *testing.T) {
	d := &DTWDistance{}
	a := Sequence{{0}, {0}, {0}}
	b := Sequence{{0}, {0}}
	dist := d.Distance(a, b)
	assert.GreaterOrEqual(t, dist, 0.0)
}
