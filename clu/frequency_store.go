package clu

import (
	"github.com/sirupsen/logrus"
)

// FrequencyStore tracks, per prototype of one cluster, how many times that
// prototype was observed as the closest prototype to an incoming sequence.
//
// A nil entry in frequencies distinguishes "never observed" from "observed
// zero times".
type FrequencyStore struct {
	numPrototypes     int
	frequencies       map[string]*int
	totalObservations int
}

// NewFrequencyStore creates an empty store sized for numPrototypes entries.
func NewFrequencyStore(numPrototypes int) *FrequencyStore {
	return &FrequencyStore{
		numPrototypes: numPrototypes,
		frequencies:   make(map[string]*int),
	}
}

// NumPrototypes returns the configured prototype-set size.
func (f *FrequencyStore) NumPrototypes() int { return f.numPrototypes }

// TotalObservations returns the sum of votes cast across every prototype.
func (f *FrequencyStore) TotalObservations() int { return f.totalObservations }

// TrackedCount returns the number of prototypes the store currently tracks.
func (f *FrequencyStore) TrackedCount() int { return len(f.frequencies) }

// Hashes returns a copy of the set of currently tracked prototype hashes.
func (f *FrequencyStore) Hashes() map[string]struct{} {
	out := make(map[string]struct{}, len(f.frequencies))
	for h := range f.frequencies {
		out[h] = struct{}{}
	}
	return out
}

// InitializePrototype adds an unobserved entry for hash.
func (f *FrequencyStore) InitializePrototype(hash string) {
	_, ok := f.frequencies[hash]
	assertInvariant(!ok, "InitializePrototype: %q already tracked", hash)
	f.frequencies[hash] = nil
}

// ClosestPrototypeObserved records numVotes additional observations of hash
// as the closest prototype to some incoming sequence.
func (f *FrequencyStore) ClosestPrototypeObserved(hash string, numVotes int) {
	count, ok := f.frequencies[hash]
	assertInvariant(ok, "ClosestPrototypeObserved: %q not tracked", hash)
	if count == nil {
		v := numVotes
		f.frequencies[hash] = &v
	} else {
		*count += numVotes
	}
	f.totalObservations += numVotes
}

// GetWeight returns hash's observed vote share, in [0,1]. A never-observed
// prototype has weight 0.
func (f *FrequencyStore) GetWeight(hash string) float64 {
	count, ok := f.frequencies[hash]
	assertInvariant(ok, "GetWeight: %q not tracked", hash)
	assertInvariant(len(f.frequencies) == f.numPrototypes, "GetWeight: store holds %d entries, expected %d", len(f.frequencies), f.numPrototypes)
	if count == nil {
		return 0
	}
	if f.totalObservations == 0 {
		return 0
	}
	return float64(*count) / float64(f.totalObservations)
}

// UpdatePrototypes reconciles the store with a new prototype set: newly
// added hashes start unobserved, and each removed hash's accumulated votes
// are redistributed across newHashes, weighted by closeness (distances
// taken from oracle, which must already hold every pair among
// newHashes ∪ removedHashes).
func (f *FrequencyStore) UpdatePrototypes(newHashes, added, removed map[string]struct{}, oracle *DistanceOracle) {
	logrus.Debugf("frequency store updating prototypes: %d added, %d removed", len(added), len(removed))

	for hash := range added {
		f.frequencies[hash] = nil
	}

	f.distributeVotes(newHashes, removed, oracle)

	assertInvariant(len(f.frequencies) == f.numPrototypes, "UpdatePrototypes: store holds %d entries, expected %d", len(f.frequencies), f.numPrototypes)
}

func (f *FrequencyStore) distributeVotes(newHashes, removed map[string]struct{}, oracle *DistanceOracle) {
	sumOfDistances := sumPairwiseDistances(newHashes, oracle)

	for toRemove := range removed {
		numVotes := f.removePrototype(toRemove)
		if numVotes == 0 {
			continue
		}

		// fraction[h] = 1 - (distance(toRemove, h) / sumOfDistances), i.e. the
		// closer h is to the removed prototype, the larger its share.
		order := make([]string, 0, len(newHashes))
		fractions := make([]float64, 0, len(newHashes))
		var fractionSum float64
		for hash := range newHashes {
			d, ok := oracle.Lookup(toRemove, hash)
			assertInvariant(ok, "distributeVotes: no cached distance between %q and %q", toRemove, hash)
			frac := 1 - d/sumOfDistances
			order = append(order, hash)
			fractions = append(fractions, frac)
			fractionSum += frac
		}

		// Truncation toward zero here means the sum of redistributed votes
		// can fall short of numVotes; the residue is permanently lost
		// rather than reconciled.
		for i, hash := range order {
			share := fractions[i] / fractionSum
			f.ClosestPrototypeObserved(hash, int(share*float64(numVotes)))
		}
	}
}

func (f *FrequencyStore) removePrototype(hash string) int {
	count, ok := f.frequencies[hash]
	assertInvariant(ok, "removePrototype: %q not tracked", hash)
	delete(f.frequencies, hash)
	if count == nil {
		return 0
	}
	f.totalObservations -= *count
	return *count
}

// sumPairwiseDistances sums the distance over every ordered pair of distinct
// hashes (each unordered pair counted twice), consulting oracle (which must
// already hold every such pair).
func sumPairwiseDistances(hashes map[string]struct{}, oracle *DistanceOracle) float64 {
	ordered := make([]string, 0, len(hashes))
	for h := range hashes {
		ordered = append(ordered, h)
	}
	var sum float64
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			d, ok := oracle.Lookup(ordered[i], ordered[j])
			assertInvariant(ok, "sumPairwiseDistances: no cached distance between %q and %q", ordered[i], ordered[j])
			sum += 2 * d // counts both (a,b) and (b,a) orderings
		}
	}
	return sum
}

// clone returns a deep copy for the persist=false speculative-flush path.
func (f *FrequencyStore) clone() *FrequencyStore {
	c := &FrequencyStore{
		numPrototypes:     f.numPrototypes,
		frequencies:       make(map[string]*int, len(f.frequencies)),
		totalObservations: f.totalObservations,
	}
	for k, v := range f.frequencies {
		if v == nil {
			c.frequencies[k] = nil
			continue
		}
		cp := *v
		c.frequencies[k] = &cp
	}
	return c
}
