package clu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestScenario_WellSeparatedClustersClassifyByDistance fills two clusters
// from well-separated groups and checks that sequences far outside either
// cluster's own candidate threshold, but clearly nearer one group than the
// other, are labelled to the nearer cluster without ever entering the
// candidate buffer.
func TestScenario_WellSeparatedClustersClassifyByDistance(t *testing.T) {
	cfg := Config{K: 2, P: 2, R: 1, B: 0, MinRepresentativeness: 0, PrototypeValueRatio: 1, BufferingEnabled: false, MaxPerTick: 1}
	c, err := NewClusterer(cfg, absDistance{}, XXHash64{}, LinearPrototypeValue{Ratio: 1}, nil)
	assert.NoError(t, err)

	c.ProcessSequence(RefBoth("a0", Sequence{{0}}), true)
	c.ProcessSequence(RefBoth("a1", Sequence{{2}}), true)
	c.ProcessSequence(RefBoth("b0", Sequence{{100}}), true)
	c.ProcessSequence(RefBoth("b1", Sequence{{102}}), true)

	c.ProcessSequence(RefBoth("nearA1", Sequence{{-3}}), true)
	c.ProcessSequence(RefBoth("nearA2", Sequence{{-5}}), true)
	c.ProcessSequence(RefBoth("nearB", Sequence{{105}}), true)

	assert.False(t, c.buffer.Has("nearA1"))
	assert.False(t, c.buffer.Has("nearA2"))
	assert.False(t, c.buffer.Has("nearB"))

	labels := c.Labels()
	assert.Equal(t, 0, labels["nearA1"])
	assert.Equal(t, 0, labels["nearA2"])
	assert.Equal(t, 1, labels["nearB"])
}

// TestScenario_BufferFlushPromotesWinnerAndLosersGetLabelled exercises the
// candidate-buffer path end to end: a three-prototype cluster is fed a
// deliberately centroid-like candidate (strictly more representative than
// the existing prototypes) alongside two weaker candidates. Filling the
// buffer to capacity forces a flush; the centroid-like candidate must
// displace the weakest existing prototype, and the other two must remain
// unpromoted and labelled to the cluster.
func TestScenario_BufferFlushPromotesWinnerAndLosersGetLabelled(t *testing.T) {
	cfg := Config{K: 2, P: 3, R: 1, B: 3, MinRepresentativeness: 0, PrototypeValueRatio: 1, BufferingEnabled: true, MaxPerTick: 1}
	c, err := NewClusterer(cfg, &DTWDistance{}, XXHash64{}, LinearPrototypeValue{Ratio: 1}, nil)
	assert.NoError(t, err)

	// Fill cluster 0 as a triangle: (0,0), (10,0), (5,20).
	c.ProcessSequence(RefBoth("p0", Sequence{{0, 0}}), true)
	c.ProcessSequence(RefBoth("p1", Sequence{{10, 0}}), true)
	c.ProcessSequence(RefBoth("p2", Sequence{{5, 20}}), true)

	// Fill cluster 1 far away with the same triangle shape, so none of the
	// candidates below ever qualify as candidates for it.
	c.ProcessSequence(RefBoth("q0", Sequence{{1000, 0}}), true)
	c.ProcessSequence(RefBoth("q1", Sequence{{1010, 0}}), true)
	c.ProcessSequence(RefBoth("q2", Sequence{{1005, 20}}), true)

	// win sits near the triangle's centroid: its sum of distances to the
	// three existing prototypes is smaller than any existing prototype's
	// own sum, so its representativeness strictly exceeds theirs.
	c.ProcessSequence(RefBoth("win", Sequence{{5, 20.0 / 3.0}}), true)
	// lose1 and lose2 sit far below the triangle: still close enough to
	// qualify as candidates, but clearly less representative than p0/p1/p2.
	c.ProcessSequence(RefBoth("lose1", Sequence{{5, -9}}), true)
	c.ProcessSequence(RefBoth("lose2", Sequence{{5, -8.5}}), true) // buffer reaches B=3, auto-flush

	cluster0 := c.Clusters()[0]
	_, winIsPrototype := cluster0.Prototypes().Lookup("win")
	assert.True(t, winIsPrototype, "the centroid-like candidate must be promoted")
	_, p2StillPrototype := cluster0.Prototypes().Lookup("p2")
	assert.False(t, p2StillPrototype, "the weakest original prototype must be displaced")

	labels := c.Labels()
	assert.Equal(t, 0, labels["p2"])
	assert.Equal(t, 0, labels["lose1"])
	assert.Equal(t, 0, labels["lose2"])

	_, lose1IsPrototype := cluster0.Prototypes().Lookup("lose1")
	assert.False(t, lose1IsPrototype)
	_, lose2IsPrototype := cluster0.Prototypes().Lookup("lose2")
	assert.False(t, lose2IsPrototype)

	assert.Len(t, c.BufferedSequences(), 3)
}

// TestScenario_AmbiguousApproximateDistanceFallsBackToExactAssignment
// builds two clusters whose representative prototypes are equidistant from
// an incoming sequence (so the approximate distance ties and the clusters'
// error bounds make that tie ambiguous), while their full prototype sets
// put the sequence clearly closer to one of them. The final assignment
// must follow the exact computation rather than the tied approximation,
// and the sequence must not be recorded as clustered by approximation.
func TestScenario_AmbiguousApproximateDistanceFallsBackToExactAssignment(t *testing.T) {
	cfg := Config{K: 2, P: 2, R: 1, B: 0, MinRepresentativeness: 0, PrototypeValueRatio: 1, BufferingEnabled: false, ApproximateClusterAssignment: true, MaxPerTick: 1}
	c, err := NewClusterer(cfg, absDistance{}, XXHash64{}, LinearPrototypeValue{Ratio: 1}, nil)
	assert.NoError(t, err)

	// Cluster 0: representative at 0, other at 10.
	c.ProcessSequence(RefBoth("a", Sequence{{0}}), true)
	c.ProcessSequence(RefBoth("b", Sequence{{10}}), true)
	// Cluster 1: representative at 30, other at 40.
	c.ProcessSequence(RefBoth("e", Sequence{{30}}), true)
	c.ProcessSequence(RefBoth("f", Sequence{{40}}), true)

	// x=15 is exactly 15 from both representatives (a tie within each
	// cluster's error bound of 5), but its exact average distance to
	// cluster 0 (10) is strictly less than to cluster 1 (20), and it falls
	// just short of either cluster's candidacy threshold (15 == UpperBound,
	// not <), so it reaches assignment directly rather than the buffer.
	c.ProcessSequence(RefBoth("x", Sequence{{15}}), true)

	assert.False(t, c.buffer.Has("x"))
	assert.Equal(t, 0, c.Labels()["x"])
	_, wasApproximated := c.ClusteredByApproximation()["x"]
	assert.False(t, wasApproximated, "an ambiguous approximate distance must not be recorded as an approximate assignment")
}

// TestScenario_DuplicateIngestionIsANoOp feeds the same hash twice; the
// second call must leave labels and counters completely unchanged.
func TestScenario_DuplicateIngestionIsANoOp(t *testing.T) {
	cfg := Config{K: 1, P: 2, R: 1, B: 5, MinRepresentativeness: 0, PrototypeValueRatio: 1, BufferingEnabled: true, MaxPerTick: 1}
	c, err := NewClusterer(cfg, absDistance{}, XXHash64{}, LinearPrototypeValue{Ratio: 1}, nil)
	assert.NoError(t, err)

	c.ProcessSequence(RefBoth("p0", Sequence{{0}}), true)
	c.ProcessSequence(RefBoth("p1", Sequence{{10}}), true)
	c.ProcessSequence(RefBoth("x", Sequence{{50}}), true)

	before := c.Labels()
	beforeProcessed := c.NumFullyProcessed()
	beforeFinish := c.finish

	c.ProcessSequence(RefBoth("x", Sequence{{50}}), true)

	assert.Equal(t, before, c.Labels())
	assert.Equal(t, beforeProcessed, c.NumFullyProcessed())
	assert.Equal(t, beforeFinish, c.finish)
}
