package clu

import (
	"github.com/sirupsen/logrus"
)

// PrototypeStore holds the prototypes of a single cluster, split into a
// representative subset and the remaining "other" subset.
type PrototypeStore struct {
	numRepresentativePrototypes int
	numPrototypes               int

	fullyInitialized                    bool
	representativePrototypesInitialized bool
	updatingPrototypes                  bool

	lastUpdate int

	prototypes                    map[string]Sequence
	prototypeHistory              map[string]int
	representativePrototypeHashes map[string]struct{}
	otherPrototypeHashes          map[string]struct{}
}

// NewPrototypeStore creates an empty store for a cluster that will hold
// numPrototypes prototypes in total, numRepresentative of which are
// representative. tick is the creation tick, or -1 before the engine starts.
func NewPrototypeStore(numRepresentative, numPrototypes, tick int) *PrototypeStore {
	assertInvariant(0 < numRepresentative && numRepresentative < numPrototypes,
		"PrototypeStore requires 0 < numRepresentative(%d) < numPrototypes(%d)", numRepresentative, numPrototypes)
	assertInvariant(tick >= -1, "PrototypeStore requires tick >= -1, got %d", tick)
	return &PrototypeStore{
		numRepresentativePrototypes:    numRepresentative,
		numPrototypes:                  numPrototypes,
		lastUpdate:                     tick,
		prototypes:                     make(map[string]Sequence),
		prototypeHistory:               make(map[string]int),
		representativePrototypeHashes:  make(map[string]struct{}),
		otherPrototypeHashes:           make(map[string]struct{}),
	}
}

// FullyInitialized reports whether the store holds numPrototypes prototypes.
func (s *PrototypeStore) FullyInitialized() bool { return s.fullyInitialized }

// RepresentativePrototypesInitialized reports whether the representative
// subset has reached its target size.
func (s *PrototypeStore) RepresentativePrototypesInitialized() bool {
	return s.representativePrototypesInitialized
}

// UpdatingPrototypes reports whether UpdatePrototypes is mid-flight; size
// invariants on the accessors below are relaxed while true.
func (s *PrototypeStore) UpdatingPrototypes() bool { return s.updatingPrototypes }

// LastUpdate returns the tick at which the store was last changed.
func (s *PrototypeStore) LastUpdate() int { return s.lastUpdate }

// NumRepresentativePrototypes returns the current count of representative
// prototypes.
func (s *PrototypeStore) NumRepresentativePrototypes() int {
	n := len(s.representativePrototypeHashes)
	assertInvariant(!s.fullyInitialized || s.updatingPrototypes || n <= s.numPrototypes,
		"representative prototype count %d exceeds total %d", n, s.numPrototypes)
	return n
}

// NumOtherPrototypes returns the current count of non-representative prototypes.
func (s *PrototypeStore) NumOtherPrototypes() int {
	return len(s.prototypes) - len(s.representativePrototypeHashes)
}

// NumPrototypes returns the current total prototype count.
func (s *PrototypeStore) NumPrototypes() int {
	n := len(s.prototypes)
	assertInvariant(!s.fullyInitialized || s.updatingPrototypes || n >= len(s.representativePrototypeHashes),
		"total prototype count %d below representative count %d", n, len(s.representativePrototypeHashes))
	return n
}

// TargetNumPrototypes returns the configured total-prototype target P.
func (s *PrototypeStore) TargetNumPrototypes() int { return s.numPrototypes }

// TargetNumRepresentative returns the configured representative target R.
func (s *PrototypeStore) TargetNumRepresentative() int { return s.numRepresentativePrototypes }

// OtherPrototypeHashes returns the hashes of the non-representative subset.
// The returned map must not be mutated by the caller.
func (s *PrototypeStore) OtherPrototypeHashes() map[string]struct{} {
	return s.otherPrototypeHashes
}

// RepresentativePrototypeHashes returns the hashes of the representative
// subset. The returned map must not be mutated by the caller.
func (s *PrototypeStore) RepresentativePrototypeHashes() map[string]struct{} {
	return s.representativePrototypeHashes
}

// Prototypes returns the hash-to-data map of every current prototype. The
// returned map must not be mutated by the caller.
func (s *PrototypeStore) Prototypes() map[string]Sequence {
	return s.prototypes
}

// Lookup resolves a prototype hash to its sequence data, satisfying the
// SeqRef.Resolve contract.
func (s *PrototypeStore) Lookup(hash string) (Sequence, bool) {
	seq, ok := s.prototypes[hash]
	return seq, ok
}

// GetPrototype returns the data for hash, panicking if it is not a current
// prototype.
func (s *PrototypeStore) GetPrototype(hash string) Sequence {
	seq, ok := s.prototypes[hash]
	assertInvariant(ok, "GetPrototype: %q is not a current prototype", hash)
	return seq
}

// LastUpdatePrototype returns the tick at which hash was last added or
// reclassified, panicking if it is not tracked.
func (s *PrototypeStore) LastUpdatePrototype(hash string) int {
	tick, ok := s.prototypeHistory[hash]
	assertInvariant(ok, "LastUpdatePrototype: %q has no history entry", hash)
	return tick
}

// AddPrototype adds hash/data as a new prototype. If toReplaceHash is
// non-empty, that prototype is first demoted (removed from its current
// subset) to make room; otherwise the store must not yet be fully
// initialized. representative selects which subset the new prototype joins.
func (s *PrototypeStore) AddPrototype(hash string, data Sequence, representative bool, tick int, toReplaceHash string) {
	if toReplaceHash != "" {
		_, isRepresentative := s.representativePrototypeHashes[toReplaceHash]
		_, isOther := s.otherPrototypeHashes[toReplaceHash]
		assertInvariant(isRepresentative || isOther, "AddPrototype: toReplaceHash %q is not a current prototype", toReplaceHash)
		s.removePrototype(toReplaceHash, isRepresentative)
	} else {
		assertInvariant(!s.fullyInitialized, "AddPrototype: store is fully initialized, a toReplaceHash is required")
	}

	s.addPrototype(hash, representative, tick)
	s.prototypes[hash] = data

	if len(s.representativePrototypeHashes) == s.numRepresentativePrototypes && !s.representativePrototypesInitialized {
		logrus.Infof("prototype store representative-initialized at tick %d (%d representative, %d other)",
			tick, len(s.representativePrototypeHashes), len(s.otherPrototypeHashes))
		s.representativePrototypesInitialized = true
	}
	if len(s.representativePrototypeHashes)+len(s.otherPrototypeHashes) == s.numPrototypes && !s.fullyInitialized {
		logrus.Infof("prototype store fully initialized at tick %d (%d representative, %d other)",
			tick, len(s.representativePrototypeHashes), len(s.otherPrototypeHashes))
		s.fullyInitialized = true
	}
}

// UpdatePrototypes replaces the entire prototype set atomically, returning
// the hashes that were dropped. The three new sets must be mutually
// consistent: newOther and newRepresentative partition the keys of
// newPrototypes.
func (s *PrototypeStore) UpdatePrototypes(newPrototypes map[string]Sequence, newOther, newRepresentative map[string]struct{}, tick int) map[string]struct{} {
	assertInvariant(len(newPrototypes) == s.numPrototypes, "UpdatePrototypes: newPrototypes size %d != target %d", len(newPrototypes), s.numPrototypes)
	assertInvariant(len(newOther) == s.numPrototypes-s.numRepresentativePrototypes, "UpdatePrototypes: newOther size %d != target %d", len(newOther), s.numPrototypes-s.numRepresentativePrototypes)
	assertInvariant(len(newRepresentative) == s.numRepresentativePrototypes, "UpdatePrototypes: newRepresentative size %d != target %d", len(newRepresentative), s.numRepresentativePrototypes)
	for h := range newOther {
		if _, ok := newRepresentative[h]; ok {
			panic(InvariantViolation{Message: "UpdatePrototypes: newOther and newRepresentative overlap on " + h})
		}
	}
	for h := range newPrototypes {
		_, inOther := newOther[h]
		_, inRep := newRepresentative[h]
		assertInvariant(inOther || inRep, "UpdatePrototypes: %q present in newPrototypes but neither partition", h)
	}

	s.updatingPrototypes = true
	removed := make(map[string]struct{})

	for hash := range s.prototypes {
		if _, stillPresent := newPrototypes[hash]; !stillPresent {
			removed[hash] = struct{}{}
			_, wasRepresentative := s.representativePrototypeHashes[hash]
			s.removePrototype(hash, wasRepresentative)
		}
	}

	for hash := range s.representativePrototypeHashes {
		if _, demoted := newOther[hash]; demoted {
			s.prototypeHistory[hash] = tick
		}
	}
	for hash := range s.otherPrototypeHashes {
		if _, promoted := newRepresentative[hash]; promoted {
			s.prototypeHistory[hash] = tick
		}
	}

	s.prototypes = newPrototypes
	s.representativePrototypeHashes = newRepresentative
	s.otherPrototypeHashes = newOther

	for hash := range newOther {
		if _, tracked := s.prototypeHistory[hash]; !tracked {
			s.prototypeHistory[hash] = tick
		}
	}
	for hash := range newRepresentative {
		if _, tracked := s.prototypeHistory[hash]; !tracked {
			s.prototypeHistory[hash] = tick
		}
	}

	s.updatingPrototypes = false
	s.lastUpdate = tick
	return removed
}

func (s *PrototypeStore) addPrototype(hash string, representative bool, tick int) {
	_, inRep := s.representativePrototypeHashes[hash]
	_, inOther := s.otherPrototypeHashes[hash]
	assertInvariant(!inRep && !inOther, "addPrototype: %q is already a prototype", hash)

	if representative {
		assertInvariant(len(s.representativePrototypeHashes) < s.numRepresentativePrototypes,
			"addPrototype: representative subset already at target %d", s.numRepresentativePrototypes)
		s.representativePrototypeHashes[hash] = struct{}{}
	} else {
		assertInvariant(len(s.otherPrototypeHashes) < s.numPrototypes-s.numRepresentativePrototypes,
			"addPrototype: other subset already at target %d", s.numPrototypes-s.numRepresentativePrototypes)
		s.otherPrototypeHashes[hash] = struct{}{}
	}
	s.prototypeHistory[hash] = tick
	s.lastUpdate = tick
}

func (s *PrototypeStore) removePrototype(hash string, representative bool) {
	if representative {
		_, ok := s.representativePrototypeHashes[hash]
		assertInvariant(ok, "removePrototype: %q not in representative subset", hash)
		delete(s.representativePrototypeHashes, hash)
	} else {
		_, ok := s.otherPrototypeHashes[hash]
		assertInvariant(ok, "removePrototype: %q not in other subset", hash)
		delete(s.otherPrototypeHashes, hash)
	}
	delete(s.prototypes, hash)
	delete(s.prototypeHistory, hash)
}

// clone returns a deep copy for the persist=false speculative-flush path.
func (s *PrototypeStore) clone() *PrototypeStore {
	c := &PrototypeStore{
		numRepresentativePrototypes:         s.numRepresentativePrototypes,
		numPrototypes:                       s.numPrototypes,
		fullyInitialized:                    s.fullyInitialized,
		representativePrototypesInitialized: s.representativePrototypesInitialized,
		updatingPrototypes:                  s.updatingPrototypes,
		lastUpdate:                          s.lastUpdate,
		prototypes:                          make(map[string]Sequence, len(s.prototypes)),
		prototypeHistory:                    make(map[string]int, len(s.prototypeHistory)),
		representativePrototypeHashes:       make(map[string]struct{}, len(s.representativePrototypeHashes)),
		otherPrototypeHashes:                make(map[string]struct{}, len(s.otherPrototypeHashes)),
	}
	for k, v := range s.prototypes {
		seq := make(Sequence, len(v))
		copy(seq, v)
		c.prototypes[k] = seq
	}
	for k, v := range s.prototypeHistory {
		c.prototypeHistory[k] = v
	}
	for k := range s.representativePrototypeHashes {
		c.representativePrototypeHashes[k] = struct{}{}
	}
	for k := range s.otherPrototypeHashes {
		c.otherPrototypeHashes[k] = struct{}{}
	}
	return c
}
