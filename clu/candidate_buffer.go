package clu

// candidateEntry pairs a buffered sequence's data with the set of cluster
// identifiers it is currently a candidate prototype for.
type candidateEntry struct {
	data         Sequence
	candidateFor map[int]struct{}
}

// CandidateBuffer holds sequences that are candidate prototypes for one or
// more clusters but have not yet been promoted or discarded.
type CandidateBuffer struct {
	candidates       map[string]candidateEntry
	candidateHistory map[string]int
	lastUpdate       int
}

// NewCandidateBuffer creates an empty buffer. tick is the creation tick, or
// -1 before the engine starts.
func NewCandidateBuffer(tick int) *CandidateBuffer {
	return &CandidateBuffer{
		candidates:       make(map[string]candidateEntry),
		candidateHistory: make(map[string]int),
		lastUpdate:       tick,
	}
}

// LastUpdate returns the tick of the most recent Add (Remove does not
// change it).
func (b *CandidateBuffer) LastUpdate() int { return b.lastUpdate }

// Size returns the number of sequences currently buffered.
func (b *CandidateBuffer) Size() int { return len(b.candidates) }

// Hashes returns every currently buffered candidate hash.
func (b *CandidateBuffer) Hashes() []string {
	out := make([]string, 0, len(b.candidates))
	for h := range b.candidates {
		out = append(out, h)
	}
	return out
}

// Add buffers hash/data as a candidate for the given cluster identifiers.
func (b *CandidateBuffer) Add(hash string, data Sequence, candidateFor map[int]struct{}, tick int) {
	_, ok := b.candidates[hash]
	assertInvariant(!ok, "Add: %q is already buffered", hash)
	b.candidates[hash] = candidateEntry{data: data, candidateFor: candidateFor}
	b.candidateHistory[hash] = tick
	b.lastUpdate = tick
}

// Get returns a candidate's data and the clusters it is a candidate for.
func (b *CandidateBuffer) Get(hash string) (Sequence, map[int]struct{}) {
	entry, ok := b.candidates[hash]
	assertInvariant(ok, "Get: %q is not buffered", hash)
	return entry.data, entry.candidateFor
}

// LastUpdateCandidate returns the tick at which hash was buffered.
func (b *CandidateBuffer) LastUpdateCandidate(hash string) int {
	tick, ok := b.candidateHistory[hash]
	assertInvariant(ok, "LastUpdateCandidate: %q has no history entry", hash)
	return tick
}

// Remove discards hash from the buffer, once it has been promoted to a
// prototype or permanently rejected.
func (b *CandidateBuffer) Remove(hash string) {
	_, ok := b.candidates[hash]
	assertInvariant(ok, "Remove: %q is not buffered", hash)
	delete(b.candidates, hash)
	delete(b.candidateHistory, hash)
}

// Has reports whether hash is currently buffered.
func (b *CandidateBuffer) Has(hash string) bool {
	_, ok := b.candidates[hash]
	return ok
}

// clone returns a deep copy for the persist=false speculative-flush path.
func (b *CandidateBuffer) clone() *CandidateBuffer {
	c := &CandidateBuffer{
		candidates:       make(map[string]candidateEntry, len(b.candidates)),
		candidateHistory: make(map[string]int, len(b.candidateHistory)),
		lastUpdate:       b.lastUpdate,
	}
	for hash, entry := range b.candidates {
		data := make(Sequence, len(entry.data))
		copy(data, entry.data)
		candidateFor := make(map[int]struct{}, len(entry.candidateFor))
		for id := range entry.candidateFor {
			candidateFor[id] = struct{}{}
		}
		c.candidates[hash] = candidateEntry{data: data, candidateFor: candidateFor}
	}
	for hash, tick := range b.candidateHistory {
		c.candidateHistory[hash] = tick
	}
	return c
}
