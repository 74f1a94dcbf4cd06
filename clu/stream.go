package clu

// StreamItem is a single (hash, sequence) pair produced by a StreamSource,
// in arrival order.
type StreamItem struct {
	Hash     string
	Sequence Sequence
}

// StreamSource produces batches of arriving sequences. AdvanceTick returns
// a non-empty batch, or an empty slice to signal exhaustion. Batch size is
// drawn by the source itself, not dictated by the caller; Scheduler does
// not bound it and does not read Config.MaxPerTick.
type StreamSource interface {
	AdvanceTick() []StreamItem
}
