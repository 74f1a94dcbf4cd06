// Package trace provides decision-trace recording for the clustering engine.
// This package has no dependency on clu — it stores pure data types so a
// host can import it without pulling in the clusterer itself.
package trace

// CandidacyRecord captures a single candidacy evaluation: whether a
// sequence was close enough to a cluster to become a candidate prototype.
type CandidacyRecord struct {
	Tick                  int
	SequenceHash          string
	ClusterID             int
	Distance              float64
	MinRepresentativeness float64
	Candidate             bool
	Approximated          bool
}

// AmbiguityRecord captures a pairwise ambiguity check between the two
// closest clusters during assignment, and how it was resolved.
type AmbiguityRecord struct {
	Tick         int
	SequenceHash string
	ClusterOne   int
	DistanceOne  float64
	ErrorOne     float64
	ClusterTwo   int
	DistanceTwo  float64
	ErrorTwo     float64
	Ambiguous    bool
	Winner       int
	ByAccurate   bool // true if the ambiguity was broken by an exact recompute
}

// FlushRecord captures the outcome of one cluster's prototype-set update
// during a buffer flush.
type FlushRecord struct {
	Tick      int
	ClusterID int
	Persist   bool
	Promoted  []string // hashes newly promoted to prototype
	Removed   []string // hashes demoted out of the prototype set
}
