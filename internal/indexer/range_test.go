package indexer

import "testing"

func TestBlockRangeContains(t *testing.T) {
	r := BlockRange{From: 100, To: 105}
	cases := map[uint64]bool{99: false, 100: true, 103: true, 105: true, 106: false}
	for height, want := range cases {
		if got := r.Contains(height); got != want {
			t.Fatalf("height %d: expected %v, got %v", height, want, got)
		}
	}
	if r.Past(105) || !r.Past(106) || r.Past(1) {
		t.Fatalf("unexpected Past results")
	}
}

func TestBlockRangeOpenEnded(t *testing.T) {
	r := BlockRange{From: 5}
	if !r.Contains(5) || !r.Contains(1 << 62) || r.Contains(4) {
		t.Fatalf("unexpected open range behavior")
	}
	if r.Past(1 << 62) {
		t.Fatalf("open range has no end")
	}
}

func TestBlockRangeValidate(t *testing.T) {
	if err := (BlockRange{From: 10, To: 5}).Validate(); err == nil {
		t.Fatalf("expected error for inverted range")
	}
	if err := (BlockRange{From: 10}).Validate(); err != nil {
		t.Fatalf("open range should be valid: %v", err)
	}
	if err := (BlockRange{From: 5, To: 5}).Validate(); err != nil {
		t.Fatalf("single block range should be valid: %v", err)
	}
}

func TestBlockRangeExhausted(t *testing.T) {
	r := BlockRange{From: 100, To: 105}
	if r.Exhausted(105, false) || !r.Exhausted(106, false) || r.Exhausted(99, false) {
		t.Fatalf("unexpected ascending results")
	}
	if r.Exhausted(106, true) || r.Exhausted(100, true) || !r.Exhausted(99, true) {
		t.Fatalf("unexpected descending results")
	}
	if (BlockRange{}).Exhausted(0, true) {
		t.Fatalf("range without start is never exhausted descending")
	}
}
