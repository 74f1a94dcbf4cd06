package clu

import (
	"math"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/seqclu/seqclu-pv/clu/trace"
)

// Clusterer is the owner of all per-run state for one SeqClu-PV execution:
// the K ClusterStates, the candidate buffer, the labels map, the tick
// counter and the run configuration. There is exactly one logical owner
// of state, and every exported method runs to completion without
// suspension.
type Clusterer struct {
	config         Config
	distanceFn     DistanceFunc
	hashFn         HashFunc
	prototypeValue PrototypeValue
	source         StreamSource

	clusters []*ClusterState
	buffer   *CandidateBuffer

	labels                   map[string]int
	bufferedSequences        map[string]struct{}
	clusteredByApproximation map[string]struct{}

	tick              int
	finish            bool
	numFullyProcessed int

	tracer *trace.Recorder
}

// NewClusterer validates cfg and builds a Clusterer with K freshly
// initialized, empty clusters.
func NewClusterer(cfg Config, distanceFn DistanceFunc, hashFn HashFunc, value PrototypeValue, source StreamSource) (*Clusterer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Clusterer{
		config:                   cfg,
		distanceFn:               distanceFn,
		hashFn:                   hashFn,
		prototypeValue:           value,
		source:                   source,
		buffer:                   NewCandidateBuffer(-1),
		labels:                   make(map[string]int),
		bufferedSequences:        make(map[string]struct{}),
		clusteredByApproximation: make(map[string]struct{}),
		tick:                     -1,
	}
	c.clusters = make([]*ClusterState, cfg.K)
	for i := 0; i < cfg.K; i++ {
		c.clusters[i] = NewClusterState(i, cfg.R, cfg.P, distanceFn, -1)
	}
	return c, nil
}

// Clusters returns the live cluster states. Callers must not mutate them
// directly.
func (c *Clusterer) Clusters() []*ClusterState { return c.clusters }

// SetTracer attaches a decision-trace recorder. A nil recorder (the
// default) disables tracing with no overhead beyond a nil check.
func (c *Clusterer) SetTracer(tracer *trace.Recorder) { c.tracer = tracer }

// Tick returns the current tick counter.
func (c *Clusterer) Tick() int { return c.tick }

// Finish reports whether the engine has observed stream exhaustion.
func (c *Clusterer) Finish() bool { return c.finish }

// NumFullyProcessed returns the count of sequences that have received a
// final label (excluding sequences that are themselves prototypes).
func (c *Clusterer) NumFullyProcessed() int { return c.numFullyProcessed }

// Labels returns a copy of the predicted label for every labelled sequence:
// fully processed non-prototype sequences, prototypes dropped by a buffer
// flush, and buffered candidates a flush promoted to prototypes. Prototypes
// placed during the initial fill are not included (see FinalLabels).
func (c *Clusterer) Labels() map[string]int {
	out := make(map[string]int, len(c.labels))
	for h, id := range c.labels {
		out[h] = id
	}
	return out
}

// BufferedSequences returns a copy of the set of sequence hashes that have
// ever entered the candidate buffer.
func (c *Clusterer) BufferedSequences() map[string]struct{} {
	out := make(map[string]struct{}, len(c.bufferedSequences))
	for h := range c.bufferedSequences {
		out[h] = struct{}{}
	}
	return out
}

// ClusteredByApproximation returns a copy of the set of sequence hashes
// whose final cluster assignment relied on the approximate (representative
// subset) distance rather than an exact one.
func (c *Clusterer) ClusteredByApproximation() map[string]struct{} {
	out := make(map[string]struct{}, len(c.clusteredByApproximation))
	for h := range c.clusteredByApproximation {
		out[h] = struct{}{}
	}
	return out
}

// FullyInitialized reports whether every cluster holds a full prototype set.
func (c *Clusterer) FullyInitialized() bool {
	for _, cluster := range c.clusters {
		if !cluster.Prototypes().FullyInitialized() {
			return false
		}
	}
	return true
}

// AlreadyProcessed reports whether hash is a current prototype of any
// cluster, is currently buffered, or already carries a final label.
func (c *Clusterer) AlreadyProcessed(hash string) bool {
	for _, cluster := range c.clusters {
		if _, ok := cluster.Prototypes().Prototypes()[hash]; ok {
			return true
		}
	}
	if c.buffer.Has(hash) {
		return true
	}
	_, labelled := c.labels[hash]
	return labelled
}

// FinalLabels returns a copy of Labels additionally populated with every
// current prototype hash, mapped to its owning cluster's id.
func (c *Clusterer) FinalLabels() map[string]int {
	out := c.Labels()
	for _, cluster := range c.clusters {
		for hash := range cluster.Prototypes().Prototypes() {
			out[hash] = cluster.Identifier()
		}
	}
	return out
}

// FinalLabelNames is FinalLabels translated through Config.ClassLabels,
// when configured; otherwise the decimal cluster id is used as the name.
func (c *Clusterer) FinalLabelNames() map[string]string {
	final := c.FinalLabels()
	out := make(map[string]string, len(final))
	for hash, id := range final {
		if len(c.config.ClassLabels) == c.config.K {
			out[hash] = c.config.ClassLabels[id]
		} else {
			out[hash] = strconv.Itoa(id)
		}
	}
	return out
}

// ProcessSequence ingests one sequence, either filling the initial
// prototype sets, buffering it as a multi-cluster candidate, or assigning
// it a final label outright. A sequence already processed is silently
// ignored. ref must carry a hash.
func (c *Clusterer) ProcessSequence(ref SeqRef, considerCandidacy bool) {
	assertInvariant(ref.HasHash(), "ProcessSequence requires a hashed SeqRef")
	hash := ref.Hash
	if c.AlreadyProcessed(hash) {
		return
	}

	if !c.FullyInitialized() {
		for _, cluster := range c.clusters {
			if cluster.Prototypes().FullyInitialized() {
				continue
			}
			if !cluster.Prototypes().RepresentativePrototypesInitialized() {
				cluster.Prototypes().AddPrototype(hash, ref.Data, true, c.tick, "")
			} else {
				cluster.Prototypes().AddPrototype(hash, ref.Data, false, c.tick, "")
			}
			cluster.Frequencies().InitializePrototype(hash)
			return
		}
		return
	}

	var distances []distanceRecord
	if considerCandidacy {
		var candidateFor map[int]struct{}
		distances, candidateFor = determineCandidacy(c.buffer, c.clusters, ref, c.config.MinRepresentativeness, c.config.ApproximateClusterAssignment, c.tracer, c.tick)
		logrus.Debugf("candidacy determined for %q: %v", hash, candidateFor)

		if len(candidateFor) > 0 {
			if c.config.BufferingEnabled {
				c.bufferedSequences[hash] = struct{}{}
			}
			c.buffer.Add(hash, ref.Data, candidateFor, c.tick)
			if c.bufferFull() || !c.config.BufferingEnabled {
				logrus.Debugf("forcefully emptying candidate buffer at tick %d", c.tick)
				c.FlushBuffer(true, c.tick)
			}
			return
		}
	} else {
		distances = computeDistanceToClusters(c.clusters, ref, c.config.ApproximateClusterAssignment)
	}

	c.labelSequence(c.clusters, ref, distances, c.labels, true)
}

func (c *Clusterer) bufferFull() bool {
	return c.buffer.Size() >= c.config.B
}

// FlushBuffer forcefully drains the candidate buffer, promoting winning
// candidates to prototypes per cluster and labelling everything else. When
// persist is false, the operation runs against deep copies of every
// cluster and the buffer, and returns the resulting clusters without
// mutating the Clusterer's own state at all (including labels and
// counters).
func (c *Clusterer) FlushBuffer(persist bool, tick int) []*ClusterState {
	var clusters []*ClusterState
	var buffer *CandidateBuffer
	var labels map[string]int

	if persist {
		clusters = c.clusters
		buffer = c.buffer
		labels = c.labels
	} else {
		clusters = make([]*ClusterState, len(c.clusters))
		for i, cluster := range c.clusters {
			clusters[i] = cluster.Clone()
		}
		buffer = c.buffer.clone()
		labels = make(map[string]int)
	}

	c.processCandidates(clusters, buffer, labels, tick, persist)
	return clusters
}

type candidateItem struct {
	hash string
	data Sequence
}

func (c *Clusterer) processCandidates(clusters []*ClusterState, buffer *CandidateBuffer, labels map[string]int, tick int, persist bool) {
	promotedTo := make(map[string][]int)

	bufferedHashes := buffer.Hashes()
	sort.Strings(bufferedHashes)

	for clusterIdx := 0; clusterIdx < len(clusters); clusterIdx++ {
		var candidatesForCluster []candidateItem
		for _, hash := range bufferedHashes {
			data, candidateFor := buffer.Get(hash)
			if _, ok := candidateFor[clusterIdx]; ok {
				candidatesForCluster = append(candidatesForCluster, candidateItem{hash: hash, data: data})
			}
		}
		if len(candidatesForCluster) == 0 {
			continue
		}

		removed := processCandidatesForCluster(clusters[clusterIdx], candidatesForCluster, c.config.P, c.config.R, c.prototypeValue, tick)
		for hash := range removed {
			labels[hash] = clusterIdx
		}
		var promoted []string
		for _, item := range candidatesForCluster {
			if _, stillPrototype := clusters[clusterIdx].Prototypes().Prototypes()[item.hash]; stillPrototype {
				promotedTo[item.hash] = append(promotedTo[item.hash], clusterIdx)
				promoted = append(promoted, item.hash)
			}
		}
		if len(promoted) > 0 || len(removed) > 0 {
			removedHashes := make([]string, 0, len(removed))
			for hash := range removed {
				removedHashes = append(removedHashes, hash)
			}
			c.tracer.RecordFlush(trace.FlushRecord{
				Tick:      tick,
				ClusterID: clusterIdx,
				Persist:   persist,
				Promoted:  promoted,
				Removed:   removedHashes,
			})
		}
	}

	for hash, clusterIDs := range promotedTo {
		assertInvariant(len(clusterIDs) <= 1, "candidate %q was promoted to prototypes of multiple clusters: %v", hash, clusterIDs)
	}

	for _, hash := range bufferedHashes {
		data, _ := buffer.Get(hash)
		isPrototype := false
		for _, cluster := range clusters {
			if _, ok := cluster.Prototypes().Prototypes()[hash]; ok {
				labels[hash] = cluster.Identifier()
				isPrototype = true
				break
			}
		}
		if !isPrototype {
			ref := RefBoth(hash, data)
			distances := computeDistanceToClusters(clusters, ref, c.config.ApproximateClusterAssignment)
			c.labelSequence(clusters, ref, distances, labels, persist)
		}
		buffer.Remove(hash)
	}
}

func (c *Clusterer) labelSequence(clusters []*ClusterState, ref SeqRef, distances []distanceRecord, labels map[string]int, persist bool) {
	winner, byApproximation := assignToCluster(clusters, ref, distances, c.config.ApproximateClusterAssignment, c.tracer, c.tick)
	if byApproximation && persist {
		c.clusteredByApproximation[ref.Hash] = struct{}{}
	}
	labels[ref.Hash] = winner
	clusters[winner].ProcessSequenceIndefinitely(ref.Hash)
	if persist {
		c.numFullyProcessed++
	}
}

// distanceRecord pairs a cluster id with a (possibly approximate) distance
// to it and the error bound on that distance.
type distanceRecord struct {
	clusterID int
	distance  float64
	errBound  float64
}

func computeDistanceToClusters(clusters []*ClusterState, ref SeqRef, clusterAssignment bool) []distanceRecord {
	result := make([]distanceRecord, 0, len(clusters))
	for _, cluster := range clusters {
		assertInvariant(cluster.Prototypes().FullyInitialized(), "computeDistanceToClusters: cluster %d is not fully initialized", cluster.Identifier())
		distance := cluster.ComputeAverageDistance(ref, clusterAssignment)
		var errBound float64
		if clusterAssignment {
			errBound = cluster.Error()
		}
		result = append(result, distanceRecord{clusterID: cluster.Identifier(), distance: distance, errBound: errBound})
	}
	return result
}

func determineCandidacy(buffer *CandidateBuffer, clusters []*ClusterState, ref SeqRef, minRepresentativeness float64, clusterAssignment bool, tracer *trace.Recorder, tick int) ([]distanceRecord, map[int]struct{}) {
	result := make([]distanceRecord, 0, len(clusters))
	candidateFor := make(map[int]struct{})
	for _, cluster := range clusters {
		assertInvariant(cluster.Prototypes().FullyInitialized(), "determineCandidacy: cluster %d is not fully initialized", cluster.Identifier())
		distance, candidacy, isApproximation := cluster.IsCandidate(ref, minRepresentativeness, clusterAssignment)
		var errBound float64
		if isApproximation {
			errBound = cluster.Error()
		}
		result = append(result, distanceRecord{clusterID: cluster.Identifier(), distance: distance, errBound: errBound})
		tracer.RecordCandidacy(trace.CandidacyRecord{
			Tick:                  tick,
			SequenceHash:          ref.Hash,
			ClusterID:             cluster.Identifier(),
			Distance:              distance,
			MinRepresentativeness: minRepresentativeness,
			Candidate:             candidacy,
			Approximated:          isApproximation,
		})

		if _, isPrototype := cluster.Prototypes().Prototypes()[ref.Hash]; isPrototype {
			continue
		}
		if buffer.Has(ref.Hash) {
			continue
		}
		if candidacy {
			candidateFor[cluster.Identifier()] = struct{}{}
		}
	}
	return result, candidateFor
}

// assignToCluster picks the winning cluster from distances, expanding an
// ambiguity set around the closest cluster when clusterAssignment enables
// approximation, and resolving ties with exact distances.
func assignToCluster(clusters []*ClusterState, ref SeqRef, distances []distanceRecord, clusterAssignment bool, tracer *trace.Recorder, tick int) (winner int, byApproximation bool) {
	sorted := make([]distanceRecord, len(distances))
	copy(sorted, distances)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].distance != sorted[j].distance {
			return sorted[i].distance < sorted[j].distance
		}
		return sorted[i].clusterID < sorted[j].clusterID
	})

	if !clusterAssignment {
		return sorted[0].clusterID, false
	}

	best := sorted[0]
	ambiguous := map[int]struct{}{best.clusterID: {}}
	for i := 1; i < len(sorted); i++ {
		other := sorted[i]
		if isAmbiguous(best.distance, best.errBound, other.distance, other.errBound) {
			ambiguous[other.clusterID] = struct{}{}
		}
	}
	if len(ambiguous) == 1 {
		return best.clusterID, true
	}

	ambiguousClusters := make([]*ClusterState, 0, len(ambiguous))
	for _, cluster := range clusters {
		if _, ok := ambiguous[cluster.Identifier()]; ok {
			ambiguousClusters = append(ambiguousClusters, cluster)
		}
	}
	winner = assignToClusterAccurate(ambiguousClusters, ref)
	if len(sorted) > 1 {
		second := sorted[1]
		tracer.RecordAmbiguity(trace.AmbiguityRecord{
			Tick:         tick,
			SequenceHash: ref.Hash,
			ClusterOne:   best.clusterID,
			DistanceOne:  best.distance,
			ErrorOne:     best.errBound,
			ClusterTwo:   second.clusterID,
			DistanceTwo:  second.distance,
			ErrorTwo:     second.errBound,
			Ambiguous:    true,
			Winner:       winner,
			ByAccurate:   true,
		})
	}
	return winner, false
}

func assignToClusterAccurate(clusters []*ClusterState, ref SeqRef) int {
	label := -1
	minDistance := math.Inf(1)
	for _, cluster := range clusters {
		distance := cluster.SumOfDistancesOf(ref, false)
		if distance < minDistance {
			label = cluster.Identifier()
			minDistance = distance
		}
	}
	return label
}

func isAmbiguous(distanceOne, errorOne, distanceTwo, errorTwo float64) bool {
	difference := math.Abs(distanceOne - distanceTwo)
	return difference <= math.Max(errorOne, errorTwo)
}

type prototypeValueItem struct {
	hash        string
	data        Sequence
	isCandidate bool
	value       float64
}

// processCandidatesForCluster scores every buffered candidate for cluster
// and every current prototype by prototypeValue, keeps the top
// numPrototypes, and splits them into representative/other halves. Returns
// the hashes that were dropped.
func processCandidatesForCluster(cluster *ClusterState, candidates []candidateItem, numPrototypes, numRepresentative int, value PrototypeValue, tick int) map[string]struct{} {
	items := make([]prototypeValueItem, 0, len(candidates)+cluster.Prototypes().NumPrototypes())

	for _, cand := range candidates {
		representativeness := cluster.RepresentativenessOfSequence(RefBoth(cand.hash, cand.data))
		items = append(items, prototypeValueItem{
			hash:        cand.hash,
			data:        cand.data,
			isCandidate: true,
			value:       value.Evaluate(representativeness, 0),
		})
	}

	for hash, data := range cluster.Prototypes().Prototypes() {
		representativeness := cluster.RepresentativenessOfSequence(RefByHash(hash))
		weight := cluster.Frequencies().GetWeight(hash)
		items = append(items, prototypeValueItem{
			hash:  hash,
			data:  data,
			value: value.Evaluate(representativeness, weight),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].value != items[j].value {
			return items[i].value < items[j].value
		}
		return items[i].hash < items[j].hash
	})

	top := items[len(items)-numPrototypes:]
	newPrototypes := make(map[string]Sequence, len(top))
	newOther := make(map[string]struct{})
	newRepresentative := make(map[string]struct{})
	for i, item := range top {
		newPrototypes[item.hash] = item.data
		if i >= len(top)-numRepresentative {
			newRepresentative[item.hash] = struct{}{}
		} else {
			newOther[item.hash] = struct{}{}
		}
	}

	return cluster.UpdatePrototypes(newPrototypes, newOther, newRepresentative, tick)
}
