package indexer

import "fmt"

// BlockRange bounds the receipts a run keeps. A zero To leaves the range open.
type BlockRange struct {
	From uint64
	To   uint64
}

func (r BlockRange) Validate() error {
	if r.To != 0 && r.To < r.From {
		return fmt.Errorf("to block must be >= from block")
	}
	return nil
}

// Contains reports whether height lies inside the range.
func (r BlockRange) Contains(height uint64) bool {
	if height < r.From {
		return false
	}
	return r.To == 0 || height <= r.To
}

// Past reports whether height lies beyond the end of the range.
func (r BlockRange) Past(height uint64) bool {
	return r.To != 0 && height > r.To
}

// Before reports whether height lies below the start of the range.
func (r BlockRange) Before(height uint64) bool {
	return height < r.From
}

// Exhausted reports whether a feed walked in the given order can hold no
// more receipts of the range once it reaches height.
func (r BlockRange) Exhausted(height uint64, descending bool) bool {
	if descending {
		return r.Before(height)
	}
	return r.Past(height)
}
