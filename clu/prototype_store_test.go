package clu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrototypeStore_FillsRepresentativeBeforeOther(t *testing.T) {
	// GIVEN a store targeting 1 representative of 3 total prototypes
	s := NewPrototypeStore(1, 3, 0)

	// WHEN the representative slot is filled
	s.AddPrototype("rep1", Sequence{{0}}, true, 0, "")

	// THEN the representative subset is initialized but the store is not
	assert.True(t, s.RepresentativePrototypesInitialized())
	assert.False(t, s.FullyInitialized())

	s.AddPrototype("other1", Sequence{{1}}, false, 1, "")
	s.AddPrototype("other2", Sequence{{2}}, false, 2, "")
	assert.True(t, s.FullyInitialized())
	assert.Equal(t, 3, s.NumPrototypes())
	assert.Equal(t, 1, s.NumRepresentativePrototypes())
	assert.Equal(t, 2, s.NumOtherPrototypes())
}

func TestPrototypeStore_AddPrototypeWithoutReplaceAfterFullyInitializedPanics(t *testing.T) {
	s := NewPrototypeStore(1, 2, 0)
	s.AddPrototype("a", Sequence{{0}}, true, 0, "")
	s.AddPrototype("o", Sequence{{5}}, false, 0, "")
	assert.True(t, s.FullyInitialized())

	assert.Panics(t, func() {
		s.AddPrototype("b", Sequence{{1}}, true, 1, "")
	})
}

func TestPrototypeStore_AddPrototypeWithReplaceSwapsSlot(t *testing.T) {
	s := NewPrototypeStore(1, 2, 0)
	s.AddPrototype("a", Sequence{{0}}, true, 0, "")
	s.AddPrototype("o", Sequence{{5}}, false, 0, "")

	s.AddPrototype("b", Sequence{{1}}, true, 5, "a")

	_, hasA := s.Lookup("a")
	assert.False(t, hasA)
	data, hasB := s.Lookup("b")
	assert.True(t, hasB)
	assert.Equal(t, Sequence{{1}}, data)
}

func TestPrototypeStore_UpdatePrototypesReturnsRemovedHashes(t *testing.T) {
	s := NewPrototypeStore(1, 2, 0)
	s.AddPrototype("a", Sequence{{0}}, true, 0, "")
	s.AddPrototype("b", Sequence{{1}}, false, 1, "")

	removed := s.UpdatePrototypes(
		map[string]Sequence{"a": {{0}}, "c": {{2}}},
		map[string]struct{}{"c": {}},
		map[string]struct{}{"a": {}},
		2,
	)

	assert.Equal(t, map[string]struct{}{"b": {}}, removed)
	assert.Equal(t, 2, s.NumPrototypes())
	_, hasC := s.Lookup("c")
	assert.True(t, hasC)
}

func TestPrototypeStore_GetPrototypePanicsOnUnknownHash(t *testing.T) {
	s := NewPrototypeStore(1, 2, 0)
	assert.Panics(t, func() {
		s.GetPrototype("missing")
	})
}

func TestPrototypeStore_CloneIsIndependent(t *testing.T) {
	s := NewPrototypeStore(1, 2, 0)
	s.AddPrototype("a", Sequence{{0}}, true, 0, "")

	clone := s.clone()
	clone.AddPrototype("b", Sequence{{1}}, false, 1, "")

	assert.Equal(t, 1, s.NumPrototypes())
	assert.Equal(t, 2, clone.NumPrototypes())
}
