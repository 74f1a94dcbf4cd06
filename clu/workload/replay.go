package workload

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/seqclu/seqclu-pv/clu"
)

// replayColumns is the fixed CSV header a replay file must start with.
// Row format: sequence_id, dims, then dims*points floating point values
// flattened point-major (point 0's coordinates, then point 1's, ...).
var replayColumns = []string{"sequence_id", "dims"}

// ReplayRecord is one parsed row of a replay trace: an externally supplied
// sequence identifier and its reconstructed points.
type ReplayRecord struct {
	SequenceID string
	Sequence   clu.Sequence
}

// LoadReplayCSV parses a CSV trace into ReplayRecords. Every row must carry
// at least the fixed columns plus dims*k values for some whole number of
// points k; a row violating that shape is a parse error for that row,
// wrapped with its row number.
func LoadReplayCSV(r io.Reader) ([]ReplayRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) < len(replayColumns) || header[0] != replayColumns[0] || header[1] != replayColumns[1] {
		return nil, fmt.Errorf("CSV header must start with %v, got %v", replayColumns, header)
	}

	var records []ReplayRecord
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", rowNum, err)
		}
		rec, err := parseReplayRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

func parseReplayRow(row []string) (*ReplayRecord, error) {
	if len(row) < 2 {
		return nil, fmt.Errorf("expected at least %d columns, got %d", len(replayColumns), len(row))
	}
	id := row[0]
	dims, err := strconv.Atoi(row[1])
	if err != nil {
		return nil, fmt.Errorf("parsing dims %q: %w", row[1], err)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("dims must be > 0, got %d", dims)
	}
	values := row[2:]
	if len(values)%dims != 0 {
		return nil, fmt.Errorf("value count %d is not a multiple of dims %d", len(values), dims)
	}
	numPoints := len(values) / dims
	seq := make(clu.Sequence, numPoints)
	for p := 0; p < numPoints; p++ {
		point := make(clu.Point, dims)
		for d := 0; d < dims; d++ {
			v, err := strconv.ParseFloat(values[p*dims+d], 64)
			if err != nil {
				return nil, fmt.Errorf("parsing point %d dim %d %q: %w", p, d, values[p*dims+d], err)
			}
			point[d] = v
		}
		seq[p] = point
	}
	return &ReplayRecord{SequenceID: id, Sequence: seq}, nil
}

// ReplaySource is a clu.StreamSource that replays a predetermined,
// ordered list of sequences at a fixed maximum batch size per tick,
// mirroring FakeDataSource.advanceTick but over externally supplied data
// rather than generated data.
type ReplaySource struct {
	records    []ReplayRecord
	hashFn     clu.HashFunc
	maxPerTick int
	rng        *rand.Rand
	pos        int
}

// NewReplaySource builds a ReplaySource over records, drawing batch sizes
// uniformly from [1, maxPerTick] using a seeded RNG so replay batching is
// itself reproducible.
func NewReplaySource(records []ReplayRecord, hashFn clu.HashFunc, maxPerTick int, seed int64) (*ReplaySource, error) {
	if maxPerTick <= 0 {
		return nil, clu.ConfigError{Field: "maxPerTick", Message: fmt.Sprintf("must be > 0, got %d", maxPerTick)}
	}
	prng := NewPartitionedRNG(SimulationKey(seed))
	return &ReplaySource{
		records:    records,
		hashFn:     hashFn,
		maxPerTick: maxPerTick,
		rng:        prng.ForSubsystem("workload.replay"),
	}, nil
}

// AdvanceTick implements clu.StreamSource.
func (s *ReplaySource) AdvanceTick() []clu.StreamItem {
	if s.pos >= len(s.records) {
		return nil
	}
	n := 1 + s.rng.Intn(s.maxPerTick)
	if s.pos+n > len(s.records) {
		n = len(s.records) - s.pos
	}
	batch := make([]clu.StreamItem, n)
	for i := 0; i < n; i++ {
		rec := s.records[s.pos+i]
		batch[i] = clu.StreamItem{Hash: s.hashFn.Hash(rec.Sequence), Sequence: rec.Sequence}
	}
	s.pos += n
	return batch
}

// Remaining reports how many records have not yet been emitted.
func (s *ReplaySource) Remaining() int { return len(s.records) - s.pos }
