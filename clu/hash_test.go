package clu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestXXHash64_IdenticalSequencesProduceIdenticalHashes(t *testing.T) {
	a := Sequence{{1, 2}, {3, 4}}
	b := Sequence{{1, 2}, {3, 4}}
	assert.Equal(t, XXHash64{}.Hash(a), XXHash64{}.Hash(b))
}

func TestXXHash64_DifferentSequencesProduceDifferentHashes(t *testing.T) {
	a := Sequence{{1, 2}, {3, 4}}
	b := Sequence{{1, 2}, {3, 5}}
	assert.NotEqual(t, XXHash64{}.Hash(a), XXHash64{}.Hash(b))
}

func TestXXHash64_PointBoundaryIsSignificant(t *testing.T) {
	// [[1,2]] and [[1],[2]] carry the same flattened coordinates but
	// different point structure, and must not collide.
	a := Sequence{{1, 2}}
	b := Sequence{{1}, {2}}
	assert.NotEqual(t, XXHash64{}.Hash(a), XXHash64{}.Hash(b))
}

func TestXXHash64_EmptySequenceIsStable(t *testing.T) {
	assert.Equal(t, XXHash64{}.Hash(Sequence{}), XXHash64{}.Hash(Sequence{}))
}
