package clu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// absDistance is a deterministic 1-D distance function used only to make
// test expectations hand-computable.
type absDistance struct{}

func (absDistance) Distance(a, b Sequence) float64 {
	return math.Abs(a[0][0] - b[0][0])
}

// newTestCluster builds a fully initialized 2-prototype, 1-representative
// cluster with prototypes "a"={{0}} (representative) and "b"={{10}} (other).
func newTestCluster() *ClusterState {
	c := NewClusterState(0, 1, 2, absDistance{}, 0)
	c.Prototypes().AddPrototype("a", Sequence{{0}}, true, 0, "")
	c.Prototypes().AddPrototype("b", Sequence{{10}}, false, 0, "")
	c.Frequencies().InitializePrototype("a")
	c.Frequencies().InitializePrototype("b")
	return c
}

func TestClusterState_SumOfDistancesOf(t *testing.T) {
	c := newTestCluster()
	assert.InDelta(t, 10, c.SumOfDistancesOf(RefByHash("a"), false), 1e-9)
	assert.InDelta(t, 0, c.SumOfDistancesOf(RefByHash("a"), true), 1e-9)
}

func TestClusterState_ComputeAverageDistance(t *testing.T) {
	c := newTestCluster()
	assert.InDelta(t, 5, c.ComputeAverageDistance(RefByHash("a"), false), 1e-9)
	assert.InDelta(t, 0, c.ComputeAverageDistance(RefByHash("a"), true), 1e-9)
}

func TestClusterState_DerivedStatistics(t *testing.T) {
	c := newTestCluster()
	assert.InDelta(t, 10, c.AverageSumOfDistances(), 1e-9)
	assert.InDelta(t, 10, c.AverageDistance(), 1e-9)
	assert.InDelta(t, 10, c.AverageDistanceRepToNonRep(), 1e-9)
	assert.InDelta(t, 0.5, c.AverageRepresentativeness(), 1e-9)
	assert.InDelta(t, 5, c.Error(), 1e-9)
	assert.InDelta(t, 15, c.UpperBound(), 1e-9)
}

func TestClusterState_IsCandidate_ApproximatedWhenRepresentativeEnough(t *testing.T) {
	c := newTestCluster()
	ref := RefBoth("x", Sequence{{1}})

	distance, isCandidate, approximated := c.IsCandidate(ref, 0.4, true)
	assert.InDelta(t, 1, distance, 1e-9)
	assert.True(t, isCandidate)
	assert.True(t, approximated)
}

func TestClusterState_IsCandidate_AccurateWhenNotApproximating(t *testing.T) {
	c := newTestCluster()
	ref := RefBoth("x", Sequence{{1}})

	distance, isCandidate, approximated := c.IsCandidate(ref, 0.4, false)
	assert.InDelta(t, 5, distance, 1e-9)
	assert.True(t, isCandidate)
	assert.False(t, approximated)
}

func TestClusterState_ProcessSequenceIndefinitely_VotesForClosestPrototype(t *testing.T) {
	c := newTestCluster()
	ref := RefBoth("x", Sequence{{1}})
	// Populate the oracle with x's distances to every prototype, as the
	// clusterer would via IsCandidate/ComputeDistanceToClusters.
	c.IsCandidate(ref, 0.4, false)

	c.ProcessSequenceIndefinitely("x")

	assert.Equal(t, 1, c.Frequencies().TotalObservations())
	assert.InDelta(t, 1, c.Frequencies().GetWeight("a"), 1e-9)
	assert.Zero(t, c.Frequencies().GetWeight("b"))
	assert.Empty(t, c.Oracle().EntriesInvolving("x"))
}

func TestClusterState_UpdatePrototypes_InvalidatesDerivedStats(t *testing.T) {
	c := newTestCluster()
	_ = c.AverageDistance() // force memoization

	removed := c.UpdatePrototypes(
		map[string]Sequence{"a": {{0}}, "c": {{3}}},
		map[string]struct{}{"c": {}},
		map[string]struct{}{"a": {}},
		5,
	)

	assert.Equal(t, map[string]struct{}{"b": {}}, removed)
	_, hasB := c.Prototypes().Lookup("b")
	assert.False(t, hasB)
	// New average must be recomputed against {a, c}, not the stale {a, b} value.
	assert.InDelta(t, 3, c.AverageDistance(), 1e-9)
}

func TestClusterState_CloneDoesNotShareMutableState(t *testing.T) {
	c := newTestCluster()
	_ = c.AverageDistance()

	clone := c.Clone()
	clone.UpdatePrototypes(
		map[string]Sequence{"a": {{0}}, "c": {{3}}},
		map[string]struct{}{"c": {}},
		map[string]struct{}{"a": {}},
		5,
	)

	_, originalHasB := c.Prototypes().Lookup("b")
	assert.True(t, originalHasB)
	_, cloneHasB := clone.Prototypes().Lookup("b")
	assert.False(t, cloneHasB)
}
