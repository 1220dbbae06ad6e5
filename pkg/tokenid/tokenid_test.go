package tokenid

import (
	"errors"
	"testing"
)

var sampleSeries = []uint64{0, 1, 2, 255, 256, 1000, MaxSeries - 1, MaxSeries}
var sampleEditions = []uint64{0, 1, 7, 255, 4096, MaxEdition - 1, MaxEdition}
var sampleSequences = []uint64{0, 1, 99, 1 << 16, 1<<31 + 5, MaxSequence - 1, MaxSequence}

func TestSeriesAndEdition_RoundTrip(t *testing.T) {
	for _, s := range sampleSeries {
		for _, e := range sampleEditions {
			packed, err := JoinSeriesAndEdition(s, e)
			if err != nil {
				t.Fatalf("Join(%d, %d): %v", s, e, err)
			}
			gs, ge, err := SplitSeriesAndEdition(packed)
			if err != nil {
				t.Fatalf("Split(%#x): %v", packed, err)
			}
			if gs != s || ge != e {
				t.Errorf("Split(Join(%d, %d)) = (%d, %d)", s, e, gs, ge)
			}
		}
	}
}

func TestSeriesEditionAndVariant_RoundTrip(t *testing.T) {
	for _, s := range sampleSeries {
		for _, e := range sampleEditions {
			for _, v := range sampleSequences {
				packed, err := JoinSeriesEditionAndVariant(s, e, v)
				if err != nil {
					t.Fatalf("Join3(%d, %d, %d): %v", s, e, v, err)
				}
				gs, ge, gv := SplitSeriesEditionAndVariant(packed)
				if gs != s || ge != e || gv != v {
					t.Errorf("Split3(Join3(%d, %d, %d)) = (%d, %d, %d)", s, e, v, gs, ge, gv)
				}
			}
		}
	}
}

func TestPack_Distinct(t *testing.T) {
	seen := make(map[uint64][3]uint64)
	for _, s := range sampleSeries {
		for _, e := range sampleEditions {
			for _, n := range sampleSequences {
				id, err := Pack(s, e, n)
				if err != nil {
					t.Fatalf("Pack: %v", err)
				}
				if prev, ok := seen[id]; ok {
					t.Fatalf("Pack(%d,%d,%d) collides with %v", s, e, n, prev)
				}
				seen[id] = [3]uint64{s, e, n}
			}
		}
	}
}

func TestOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"join series", func() error { _, err := JoinSeriesAndEdition(MaxSeries+1, 0); return err }},
		{"join edition", func() error { _, err := JoinSeriesAndEdition(0, MaxEdition+1); return err }},
		{"join3 series", func() error { _, err := JoinSeriesEditionAndVariant(MaxSeries+1, 0, 0); return err }},
		{"join3 edition", func() error { _, err := JoinSeriesEditionAndVariant(0, MaxEdition+1, 0); return err }},
		{"join3 variant", func() error { _, err := JoinSeriesEditionAndVariant(0, 0, MaxVariant+1); return err }},
		{"pack sequence", func() error { _, err := Pack(1, 1, MaxSequence+1); return err }},
		{"split stray bits", func() error { _, _, err := SplitSeriesAndEdition(1 << 32); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, ErrFieldOutOfRange) {
				t.Errorf("err = %v, want ErrFieldOutOfRange", err)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	id, err := Pack(1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if want := uint64(1)<<48 | uint64(2)<<32 | 3; id != want {
		t.Errorf("Pack(1,2,3) = %#x, want %#x", id, want)
	}
	key, _ := JoinSeriesAndEdition(1, 2)
	if key != 1<<16|2 {
		t.Errorf("JoinSeriesAndEdition(1,2) = %#x", key)
	}
	if got := String(id); got != "1/2/#3" {
		t.Errorf("String = %q", got)
	}
}
