package clu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateBuffer_AddAndGet(t *testing.T) {
	b := NewCandidateBuffer(0)
	candidateFor := map[int]struct{}{0: {}, 2: {}}
	b.Add("h1", Sequence{{1}}, candidateFor, 3)

	data, forClusters := b.Get("h1")
	assert.Equal(t, Sequence{{1}}, data)
	assert.Equal(t, candidateFor, forClusters)
	assert.Equal(t, 3, b.LastUpdateCandidate("h1"))
	assert.True(t, b.Has("h1"))
	assert.Equal(t, 1, b.Size())
}

func TestCandidateBuffer_AddDuplicatePanics(t *testing.T) {
	b := NewCandidateBuffer(0)
	b.Add("h1", Sequence{{1}}, map[int]struct{}{0: {}}, 0)
	assert.Panics(t, func() {
		b.Add("h1", Sequence{{2}}, map[int]struct{}{0: {}}, 1)
	})
}

func TestCandidateBuffer_RemoveClearsEntry(t *testing.T) {
	b := NewCandidateBuffer(0)
	b.Add("h1", Sequence{{1}}, map[int]struct{}{0: {}}, 0)
	b.Remove("h1")
	assert.False(t, b.Has("h1"))
	assert.Equal(t, 0, b.Size())
}

func TestCandidateBuffer_RemoveUntrackedPanics(t *testing.T) {
	b := NewCandidateBuffer(0)
	assert.Panics(t, func() {
		b.Remove("missing")
	})
}

func TestCandidateBuffer_CloneIsIndependent(t *testing.T) {
	b := NewCandidateBuffer(0)
	b.Add("h1", Sequence{{1}}, map[int]struct{}{0: {}}, 0)

	clone := b.clone()
	clone.Add("h2", Sequence{{2}}, map[int]struct{}{1: {}}, 1)

	assert.Equal(t, 1, b.Size())
	assert.Equal(t, 2, clone.Size())
}
