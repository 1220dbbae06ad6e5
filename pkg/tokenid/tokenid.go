// Package tokenid packs series, edition and sequence (or variant) numbers
// into a single uint64 identifier and back.
//
// Layout, most significant bits first:
//
//	| series (16) | edition (16) | sequence / variant (32) |
//
// The two-field composite key uses the same series and edition widths and
// occupies the low 32 bits: series<<16 | edition.
package tokenid

import (
	"errors"
	"fmt"
)

// Field widths in bits.
const (
	SeriesBits   = 16
	EditionBits  = 16
	SequenceBits = 32
)

// Maximum value of each field.
const (
	MaxSeries   = 1<<SeriesBits - 1
	MaxEdition  = 1<<EditionBits - 1
	MaxSequence = 1<<SequenceBits - 1
	MaxVariant  = MaxSequence
)

const (
	editionShift = SequenceBits
	seriesShift  = SequenceBits + EditionBits
)

// ErrFieldOutOfRange is returned when a field does not fit its bit width.
var ErrFieldOutOfRange = errors.New("field out of range")

func check(name string, v, max uint64) error {
	if v > max {
		return fmt.Errorf("%s %d exceeds %d: %w", name, v, max, ErrFieldOutOfRange)
	}
	return nil
}

// JoinSeriesAndEdition builds the composite (series, edition) key.
func JoinSeriesAndEdition(series, edition uint64) (uint64, error) {
	if err := check("series", series, MaxSeries); err != nil {
		return 0, err
	}
	if err := check("edition", edition, MaxEdition); err != nil {
		return 0, err
	}
	return series<<EditionBits | edition, nil
}

// SplitSeriesAndEdition is the inverse of JoinSeriesAndEdition. A key with
// bits set above the series field is rejected.
func SplitSeriesAndEdition(packed uint64) (series, edition uint64, err error) {
	if packed>>(SeriesBits+EditionBits) != 0 {
		return 0, 0, fmt.Errorf("composite key %#x has bits above %d: %w",
			packed, SeriesBits+EditionBits, ErrFieldOutOfRange)
	}
	return packed >> EditionBits, packed & MaxEdition, nil
}

// JoinSeriesEditionAndVariant builds the three-field (series, edition,
// variant) key.
func JoinSeriesEditionAndVariant(series, edition, variant uint64) (uint64, error) {
	if err := check("series", series, MaxSeries); err != nil {
		return 0, err
	}
	if err := check("edition", edition, MaxEdition); err != nil {
		return 0, err
	}
	if err := check("variant", variant, MaxVariant); err != nil {
		return 0, err
	}
	return series<<seriesShift | edition<<editionShift | variant, nil
}

// SplitSeriesEditionAndVariant is the inverse of JoinSeriesEditionAndVariant.
// Every uint64 decodes, since the three fields cover all 64 bits.
func SplitSeriesEditionAndVariant(packed uint64) (series, edition, variant uint64) {
	return packed >> seriesShift, packed >> editionShift & MaxEdition, packed & MaxVariant
}

// Pack derives a token identifier from its series, edition and sequence.
func Pack(series, edition, sequence uint64) (uint64, error) {
	if err := check("sequence", sequence, MaxSequence); err != nil {
		// Report the sequence field by name rather than "variant".
		return 0, err
	}
	return JoinSeriesEditionAndVariant(series, edition, sequence)
}

// Unpack splits a token identifier into series, edition and sequence.
func Unpack(id uint64) (series, edition, sequence uint64) {
	return SplitSeriesEditionAndVariant(id)
}

// String formats a token identifier as "series/edition/#sequence".
func String(id uint64) string {
	s, e, n := Unpack(id)
	return fmt.Sprintf("%d/%d/#%d", s, e, n)
}
