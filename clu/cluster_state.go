package clu

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ClusterState owns one cluster's prototypes, observed vote frequencies and
// pairwise distance cache, and derives the statistics the clusterer needs
// to score incoming sequences against it.
//
// The derived statistics (averageSumOfDistances, averageDistance,
// averageRepresentativeness, averageDistanceRepToNonRep, errorBound,
// upperBound) are lazily computed and cached; UpdatePrototypes invalidates
// the entire cache whenever a prototype is actually replaced. A
// finer-grained invalidation scoped to only the affected prototypes would
// be possible but isn't implemented here.
type ClusterState struct {
	identifier int
	distanceFn DistanceFunc

	oracle      *DistanceOracle
	prototypes  *PrototypeStore
	frequencies *FrequencyStore

	sumOfDistancesAll map[string]float64
	sumOfDistancesRep map[string]float64

	averageSumOfDistances      *float64
	averageDistance            *float64
	averageRepresentativeness  *float64
	averageDistanceRepToNonRep *float64
	errorBound                 *float64
	upperBound                 *float64
}

// NewClusterState creates a cluster identified by id, sized for numPrototypes
// prototypes (numRepresentative of which are representative), scoring
// distances with distanceFn.
func NewClusterState(id, numRepresentative, numPrototypes int, distanceFn DistanceFunc, tick int) *ClusterState {
	return &ClusterState{
		identifier:        id,
		distanceFn:        distanceFn,
		oracle:            NewDistanceOracle(distanceFn),
		prototypes:        NewPrototypeStore(numRepresentative, numPrototypes, tick),
		frequencies:       NewFrequencyStore(numPrototypes),
		sumOfDistancesAll: make(map[string]float64),
		sumOfDistancesRep: make(map[string]float64),
	}
}

// Identifier returns the cluster's id.
func (c *ClusterState) Identifier() int { return c.identifier }

// Prototypes exposes the underlying prototype store.
func (c *ClusterState) Prototypes() *PrototypeStore { return c.prototypes }

// Frequencies exposes the underlying vote-frequency store.
func (c *ClusterState) Frequencies() *FrequencyStore { return c.frequencies }

// Oracle exposes the underlying distance cache.
func (c *ClusterState) Oracle() *DistanceOracle { return c.oracle }

// ComputeAverageDistance returns the mean distance from ref to either the
// representative subset or the full prototype set.
func (c *ClusterState) ComputeAverageDistance(ref SeqRef, representative bool) float64 {
	sum := c.SumOfDistancesOf(ref, representative)
	if representative {
		return sum / float64(c.prototypes.TargetNumRepresentative())
	}
	return sum / float64(c.prototypes.TargetNumPrototypes())
}

// IsCandidate reports whether ref should be considered a candidate
// prototype for this cluster. When clusterAssignment is
// true and the cluster's representative subset is representative enough,
// the cheaper approximate distance (against the representative subset) is
// used; otherwise the accurate distance (against every prototype) is used.
// It returns the distance used, whether ref is a candidate, and whether the
// distance was approximated.
func (c *ClusterState) IsCandidate(ref SeqRef, minRepresentativeness float64, clusterAssignment bool) (distance float64, isCandidate bool, approximated bool) {
	if clusterAssignment && c.IsRepresentativeEnough(minRepresentativeness) {
		approx := c.ComputeAverageDistance(ref, true)
		return approx, approx < c.UpperBound(), true
	}
	accurate := c.ComputeAverageDistance(ref, false)
	return accurate, accurate < c.AverageDistance(), false
}

// IsRepresentativeEnough reports whether the cluster's average
// representativeness meets the given minimum.
func (c *ClusterState) IsRepresentativeEnough(minRepresentativeness float64) bool {
	return c.AverageRepresentativeness() >= minRepresentativeness
}

// RepresentativenessOfSequence scores how well ref reflects the overall
// shape of the cluster, in terms of the cluster's own average pairwise
// spread.
func (c *ClusterState) RepresentativenessOfSequence(ref SeqRef) float64 {
	sum := c.SumOfDistancesOf(ref, false)
	return c.AverageSumOfDistances() / (2 * sum)
}

// SumOfDistancesOf returns, memoized, the sum of distances from ref to
// either the representative subset or the full prototype set. ref must
// carry a hash.
func (c *ClusterState) SumOfDistancesOf(ref SeqRef, representative bool) float64 {
	assertInvariant(ref.HasHash(), "SumOfDistancesOf requires a hashed SeqRef")
	hash := ref.Hash

	if representative {
		if sum, ok := c.sumOfDistancesRep[hash]; ok {
			return sum
		}
		sum := c.sumOfDistancesOfHelper(ref, true, false)
		c.sumOfDistancesRep[hash] = sum
		return sum
	}

	if sum, ok := c.sumOfDistancesAll[hash]; ok {
		return sum
	}
	if repSum, ok := c.sumOfDistancesRep[hash]; ok {
		nonRepSum := c.sumOfDistancesOfHelper(ref, false, true)
		total := repSum + nonRepSum
		c.sumOfDistancesAll[hash] = total
		return total
	}
	sum := c.sumOfDistancesOfHelper(ref, false, false)
	c.sumOfDistancesAll[hash] = sum
	return sum
}

func (c *ClusterState) sumOfDistancesOfHelper(ref SeqRef, representative, onlyNonRepresentative bool) float64 {
	assertInvariant(!(representative && onlyNonRepresentative), "sumOfDistancesOfHelper: representative and onlyNonRepresentative are mutually exclusive")

	var compareHashes map[string]struct{}
	switch {
	case representative:
		compareHashes = c.prototypes.RepresentativePrototypeHashes()
	case onlyNonRepresentative:
		compareHashes = c.prototypes.OtherPrototypeHashes()
	default:
		compareHashes = make(map[string]struct{}, len(c.prototypes.Prototypes()))
		for h := range c.prototypes.Prototypes() {
			compareHashes[h] = struct{}{}
		}
	}

	var sum float64
	for hash := range compareHashes {
		sum += c.oracle.Pairwise(ref, RefByHash(hash), c.prototypes)
	}
	return sum
}

// ProcessSequenceIndefinitely discards every piece of state the cluster
// holds about sequenceHash: it casts one closeness vote to whichever
// current prototype it was cached as nearest to, then purges its cached
// distances and memoized sums.
func (c *ClusterState) ProcessSequenceIndefinitely(sequenceHash string) {
	entries := c.oracle.EntriesInvolving(sequenceHash)

	others := make([]string, 0, len(entries))
	for other := range entries {
		if _, isPrototype := c.prototypes.Prototypes()[other]; isPrototype {
			others = append(others, other)
		}
	}
	sort.Strings(others)

	var closest string
	minDistance := math.Inf(1)
	for _, other := range others {
		d := entries[other]
		if d < minDistance {
			minDistance = d
			closest = other
		}
	}
	if closest != "" {
		c.frequencies.ClosestPrototypeObserved(closest, 1)
	}

	c.oracle.PurgeHash(sequenceHash)
	delete(c.sumOfDistancesAll, sequenceHash)
	delete(c.sumOfDistancesRep, sequenceHash)
}

// UpdatePrototypes swaps in a new prototype set, redistributing frequency
// votes and invalidating every derived statistic if the set actually
// changed. Returns the hashes that were dropped.
func (c *ClusterState) UpdatePrototypes(newPrototypes map[string]Sequence, newOther, newRepresentative map[string]struct{}, tick int) map[string]struct{} {
	assertInvariant(c.frequencies.TrackedCount() == c.frequencies.NumPrototypes(),
		"UpdatePrototypes: frequency store tracks %d, expected %d", c.frequencies.TrackedCount(), c.frequencies.NumPrototypes())

	newHashes := make(map[string]struct{}, len(newPrototypes))
	for h := range newPrototypes {
		newHashes[h] = struct{}{}
	}
	oldHashes := c.frequencies.Hashes()

	added := make(map[string]struct{})
	for h := range newHashes {
		if _, ok := oldHashes[h]; !ok {
			added[h] = struct{}{}
		}
	}
	removed := make(map[string]struct{})
	for h := range oldHashes {
		if _, ok := newHashes[h]; !ok {
			removed[h] = struct{}{}
		}
	}
	assertInvariant(len(added) == len(removed), "UpdatePrototypes: added count %d != removed count %d", len(added), len(removed))

	c.computeRequiredDistances(newPrototypes, removed)
	c.frequencies.UpdatePrototypes(newHashes, added, removed, c.oracle)

	result := c.prototypes.UpdatePrototypes(newPrototypes, newOther, newRepresentative, tick)
	if len(result) > 0 {
		c.invalidateDerivedStats()
	}
	return result
}

func (c *ClusterState) computeRequiredDistances(newPrototypes map[string]Sequence, removed map[string]struct{}) {
	for hashOne, dataOne := range newPrototypes {
		for removedHash := range removed {
			if _, ok := c.oracle.Lookup(hashOne, removedHash); !ok {
				d := c.distanceFn.Distance(dataOne, c.prototypes.GetPrototype(removedHash))
				c.oracle.Put(hashOne, removedHash, d)
			}
		}
		for hashTwo, dataTwo := range newPrototypes {
			if hashOne == hashTwo {
				continue
			}
			if _, ok := c.oracle.Lookup(hashOne, hashTwo); !ok {
				d := c.distanceFn.Distance(dataOne, dataTwo)
				c.oracle.Put(hashOne, hashTwo, d)
			}
		}
	}
}

func (c *ClusterState) invalidateDerivedStats() {
	c.averageSumOfDistances = nil
	c.averageDistance = nil
	c.upperBound = nil
	c.errorBound = nil
	c.averageRepresentativeness = nil
	c.averageDistanceRepToNonRep = nil
	c.sumOfDistancesAll = make(map[string]float64)
	c.sumOfDistancesRep = make(map[string]float64)
}

// AverageSumOfDistances returns the mean, over every prototype, of that
// prototype's summed distance to every other prototype.
func (c *ClusterState) AverageSumOfDistances() float64 {
	if c.averageSumOfDistances == nil {
		v := c.calculateAverageSumOfDistances(false)
		c.averageSumOfDistances = &v
	}
	return *c.averageSumOfDistances
}

func (c *ClusterState) calculateAverageSumOfDistances(representative bool) float64 {
	var hashes map[string]struct{}
	var n int
	if representative {
		hashes = c.prototypes.RepresentativePrototypeHashes()
		n = c.prototypes.TargetNumRepresentative()
	} else {
		hashes = make(map[string]struct{}, len(c.prototypes.Prototypes()))
		for h := range c.prototypes.Prototypes() {
			hashes[h] = struct{}{}
		}
		n = c.prototypes.TargetNumPrototypes()
	}
	sums := make([]float64, 0, len(hashes))
	for hash := range hashes {
		sums = append(sums, c.SumOfDistancesOf(RefByHash(hash), representative))
	}
	return floats.Sum(sums) / float64(n)
}

// AverageDistance returns the average pairwise distance between any two
// distinct prototypes in the cluster.
func (c *ClusterState) AverageDistance() float64 {
	if c.averageDistance == nil {
		v := c.AverageSumOfDistances() / float64(c.prototypes.TargetNumPrototypes()-1)
		c.averageDistance = &v
	}
	return *c.averageDistance
}

// AverageDistanceRepToNonRep returns the mean distance from a representative
// prototype to the non-representative subset.
func (c *ClusterState) AverageDistanceRepToNonRep() float64 {
	if c.averageDistanceRepToNonRep == nil {
		var sum float64
		for hash := range c.prototypes.RepresentativePrototypeHashes() {
			sum += c.sumOfDistancesOfHelper(RefByHash(hash), false, true)
		}
		v := sum / float64(c.prototypes.TargetNumRepresentative()) / float64(c.prototypes.NumOtherPrototypes())
		c.averageDistanceRepToNonRep = &v
	}
	return *c.averageDistanceRepToNonRep
}

// AverageRepresentativeness returns the mean representativeness of every
// representative prototype.
func (c *ClusterState) AverageRepresentativeness() float64 {
	if c.averageRepresentativeness == nil {
		var sum float64
		for hash := range c.prototypes.RepresentativePrototypeHashes() {
			sum += c.RepresentativenessOfSequence(RefByHash(hash))
		}
		v := sum / float64(c.prototypes.TargetNumRepresentative())
		c.averageRepresentativeness = &v
	}
	return *c.averageRepresentativeness
}

// Error returns the approximation error bound: the product of the
// representative subset's unrepresentativeness and its average distance
// to the non-representative subset.
func (c *ClusterState) Error() float64 {
	if c.errorBound == nil {
		v := (1 - c.AverageRepresentativeness()) * c.AverageDistanceRepToNonRep()
		c.errorBound = &v
	}
	return *c.errorBound
}

// UpperBound returns the distance threshold below which an approximated
// candidacy check accepts a sequence.
func (c *ClusterState) UpperBound() float64 {
	if c.upperBound == nil {
		v := c.AverageDistance() + c.Error()
		c.upperBound = &v
	}
	return *c.upperBound
}

// Clone returns a deep copy of the cluster's state for the persist=false
// speculative-flush path.
func (c *ClusterState) Clone() *ClusterState {
	clone := &ClusterState{
		identifier:        c.identifier,
		distanceFn:        c.distanceFn,
		oracle:            c.oracle.clone(),
		prototypes:        c.prototypes.clone(),
		frequencies:       c.frequencies.clone(),
		sumOfDistancesAll: make(map[string]float64, len(c.sumOfDistancesAll)),
		sumOfDistancesRep: make(map[string]float64, len(c.sumOfDistancesRep)),
	}
	for k, v := range c.sumOfDistancesAll {
		clone.sumOfDistancesAll[k] = v
	}
	for k, v := range c.sumOfDistancesRep {
		clone.sumOfDistancesRep[k] = v
	}
	if c.averageSumOfDistances != nil {
		v := *c.averageSumOfDistances
		clone.averageSumOfDistances = &v
	}
	if c.averageDistance != nil {
		v := *c.averageDistance
		clone.averageDistance = &v
	}
	if c.averageRepresentativeness != nil {
		v := *c.averageRepresentativeness
		clone.averageRepresentativeness = &v
	}
	if c.averageDistanceRepToNonRep != nil {
		v := *c.averageDistanceRepToNonRep
		clone.averageDistanceRepToNonRep = &v
	}
	if c.errorBound != nil {
		v := *c.errorBound
		clone.errorBound = &v
	}
	if c.upperBound != nil {
		v := *c.upperBound
		clone.upperBound = &v
	}
	return clone
}
