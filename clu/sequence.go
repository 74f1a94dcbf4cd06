package clu

// Point is a single d-dimensional sample of a Sequence.
type Point []float64

// Sequence is an ordered vector of d-dimensional points. Length varies
// across sequences; identity is established externally via a content
// hash (see HashFunc), not by the slice itself.
type Sequence []Point

// SeqRef is the tagged (optional_hash, optional_data) variant described
// in the SeqClu-PV design notes. At least one of Hash or Data must be
// resolvable to bytes; Resolve consults the owning PrototypeStore when
// Data is absent.
type SeqRef struct {
	Hash    string // empty means "not yet known"
	Data    Sequence
	hasHash bool
	hasData bool
}

// RefByHash builds a SeqRef that must be resolved via a PrototypeStore lookup.
func RefByHash(hash string) SeqRef {
	return SeqRef{Hash: hash, hasHash: true}
}

// RefByData builds a SeqRef carrying inline sequence data and no known hash.
func RefByData(data Sequence) SeqRef {
	return SeqRef{Data: data, hasData: true}
}

// RefBoth builds a SeqRef carrying both a known hash and inline data.
func RefBoth(hash string, data Sequence) SeqRef {
	return SeqRef{Hash: hash, Data: data, hasHash: true, hasData: true}
}

// HasHash reports whether the reference carries a known hash.
func (r SeqRef) HasHash() bool { return r.hasHash }

// HasData reports whether the reference carries inline sequence data.
func (r SeqRef) HasData() bool { return r.hasData }

// Resolve returns the sequence data for this reference, consulting store
// (which may be nil) when Data is absent. It panics with InvariantViolation
// if neither side can be resolved to data.
func (r SeqRef) Resolve(store *PrototypeStore) Sequence {
	if r.hasData {
		return r.Data
	}
	if r.hasHash && store != nil {
		if seq, ok := store.Lookup(r.Hash); ok {
			return seq
		}
	}
	panic(InvariantViolation{Message: "SeqRef cannot be resolved to sequence data: neither data nor a known prototype hash is present"})
}
