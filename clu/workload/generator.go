// Package workload provides default clu.StreamSource implementations: a
// seeded synthetic sequence generator and a CSV trace replay source.
package workload

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/seqclu/seqclu-pv/clu"
)

// subsystemGenerator names the RNG partition used by Generator, giving it
// per-subsystem RNG isolation so a host mixing a Generator with other
// seeded subsystems (e.g. a routing or admission policy) cannot have its
// draws perturbed by them or vice versa.
const subsystemGenerator = "workload.generator"

// SimulationKey uniquely identifies a reproducible generator run: the same
// key and GeneratorSpec must produce byte-identical sequences.
type SimulationKey int64

// PartitionedRNG hands out deterministic, isolated RNG instances keyed by
// subsystem name, so adding a new draw site elsewhere never perturbs an
// existing one's sequence of random numbers.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, subsystems: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the cached RNG for name, deriving a fresh one on
// first use by XOR-ing the master key with an FNV-1a hash of the name.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derived := int64(p.key) ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derived))
	p.subsystems[name] = rng
	return rng
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}

// GeneratorSpec configures Generator: a random-walk, per-class noisy
// trajectory generator suited to arbitrary dimensionality.
type GeneratorSpec struct {
	Seed int64

	NumClasses    int // number of distinct latent classes (clusters) to emit from
	Dimensions    int // dimensionality d of each point
	SequenceLen   int // number of points per generated sequence
	TotalSequences int // total sequences to emit before exhaustion
	MaxPerTick    int // AdvanceTick emits randint(1, MaxPerTick) sequences

	// StepScale controls the random-walk step size per class; each class
	// additionally gets a fixed per-dimension drift so classes separate.
	StepScale float64
	// Noise is additive per-point noise.
	Noise float64
}

// Validate reports a clu.ConfigError for any out-of-range field.
func (s GeneratorSpec) Validate() error {
	if s.NumClasses <= 0 {
		return clu.ConfigError{Field: "NumClasses", Message: fmt.Sprintf("must be > 0, got %d", s.NumClasses)}
	}
	if s.Dimensions <= 0 {
		return clu.ConfigError{Field: "Dimensions", Message: fmt.Sprintf("must be > 0, got %d", s.Dimensions)}
	}
	if s.SequenceLen <= 0 {
		return clu.ConfigError{Field: "SequenceLen", Message: fmt.Sprintf("must be > 0, got %d", s.SequenceLen)}
	}
	if s.TotalSequences <= 0 {
		return clu.ConfigError{Field: "TotalSequences", Message: fmt.Sprintf("must be > 0, got %d", s.TotalSequences)}
	}
	if s.MaxPerTick <= 0 {
		return clu.ConfigError{Field: "MaxPerTick", Message: fmt.Sprintf("must be > 0, got %d", s.MaxPerTick)}
	}
	return nil
}

// Generator is a seeded synthetic clu.StreamSource: each of NumClasses
// latent classes walks a random path through Dimensions-space with a
// fixed per-class drift, so sequences from the same class are close under
// typical distance functions and sequences from different classes
// separate. Each AdvanceTick call releases randint(1, MaxPerTick)
// pre-generated sequences until the total pool is exhausted.
type Generator struct {
	spec    GeneratorSpec
	rng     *rand.Rand
	drift   []clu.Point // per-class fixed drift vector
	pos     int         // next sequence index to emit
	classOf []int       // class assigned to sequence i, for ActualLabels
	emitted []clu.Sequence
}

// NewGenerator builds a Generator and predraws its entire sequence set up
// front, mirroring FakeDataSource.generateData's eager generation (the
// original generates the whole data set before any advanceTick call).
func NewGenerator(spec GeneratorSpec) (*Generator, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	prng := NewPartitionedRNG(SimulationKey(spec.Seed))
	rng := prng.ForSubsystem(subsystemGenerator)

	driftDist := distuv.Normal{Mu: 0, Sigma: spec.StepScale * 4, Src: rng}
	drift := make([]clu.Point, spec.NumClasses)
	for c := 0; c < spec.NumClasses; c++ {
		d := make(clu.Point, spec.Dimensions)
		for i := range d {
			d[i] = driftDist.Rand()
		}
		drift[c] = d
	}

	g := &Generator{spec: spec, rng: rng, drift: drift}
	g.emitted = make([]clu.Sequence, spec.TotalSequences)
	g.classOf = make([]int, spec.TotalSequences)
	for i := 0; i < spec.TotalSequences; i++ {
		class := i % spec.NumClasses
		g.classOf[i] = class
		g.emitted[i] = g.walk(class)
	}
	return g, nil
}

// walk generates one noisy random-walk sequence for the given class.
func (g *Generator) walk(class int) clu.Sequence {
	seq := make(clu.Sequence, g.spec.SequenceLen)
	point := make(clu.Point, g.spec.Dimensions)
	for t := 0; t < g.spec.SequenceLen; t++ {
		next := make(clu.Point, g.spec.Dimensions)
		for d := 0; d < g.spec.Dimensions; d++ {
			stepDist := distuv.Normal{Mu: g.drift[class][d], Sigma: g.spec.StepScale, Src: g.rng}
			noiseDist := distuv.Uniform{Min: -g.spec.Noise, Max: g.spec.Noise, Src: g.rng}
			next[d] = point[d] + stepDist.Rand() + noiseDist.Rand()
		}
		point = next
		seq[t] = append(clu.Point{}, point...)
	}
	return seq
}

// AdvanceTick implements clu.StreamSource: randint(1, MaxPerTick)
// sequences are released per call, matching FakeDataSource.advanceTick,
// and an empty batch is returned once the predrawn set is consumed.
func (g *Generator) AdvanceTick() []clu.StreamItem {
	if g.pos >= len(g.emitted) {
		return nil
	}
	n := 1 + g.rng.Intn(g.spec.MaxPerTick)
	if g.pos+n > len(g.emitted) {
		n = len(g.emitted) - g.pos
	}
	batch := make([]clu.StreamItem, n)
	for i := 0; i < n; i++ {
		batch[i] = clu.StreamItem{Sequence: g.emitted[g.pos+i]}
	}
	g.pos += n
	return batch
}

// ActualLabels returns the ground-truth class for every sequence this
// Generator has produced, keyed by hash under hashFn. Mirrors the
// original's FakeDataSource.actualLabels, used by a host to score
// clustering accuracy against a known answer.
func (g *Generator) ActualLabels(hashFn clu.HashFunc) map[string]int {
	out := make(map[string]int, len(g.emitted))
	for i, seq := range g.emitted {
		out[hashFn.Hash(seq)] = g.classOf[i]
	}
	return out
}
