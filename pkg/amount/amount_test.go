package amount

import (
	"errors"
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		a, b uint64
		want uint64
		err  error
	}{
		{0, 0, 0, nil},
		{1, 2, 3, nil},
		{math.MaxUint64 - 1, 1, math.MaxUint64, nil},
		{math.MaxUint64, 1, 0, ErrOverflow},
		{math.MaxUint64 / 2, math.MaxUint64/2 + 2, 0, ErrOverflow},
	}
	for _, tt := range tests {
		got, err := Add(tt.a, tt.b)
		if !errors.Is(err, tt.err) {
			t.Errorf("Add(%d, %d) err = %v, want %v", tt.a, tt.b, err, tt.err)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("Add(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSub(t *testing.T) {
	if got, err := Sub(10, 3); err != nil || got != 7 {
		t.Errorf("Sub(10, 3) = %d, %v", got, err)
	}
	if _, err := Sub(3, 10); !errors.Is(err, ErrUnderflow) {
		t.Errorf("Sub(3, 10) err = %v, want ErrUnderflow", err)
	}
}

func TestMul(t *testing.T) {
	tests := []struct {
		a, b uint64
		want uint64
		err  error
	}{
		{0, math.MaxUint64, 0, nil},
		{10, 1_000_000, 10_000_000, nil},
		{1 << 32, 1 << 31, 1 << 63, nil},
		{1 << 32, 1 << 32, 0, ErrOverflow},
		{math.MaxUint64, 2, 0, ErrOverflow},
	}
	for _, tt := range tests {
		got, err := Mul(tt.a, tt.b)
		if !errors.Is(err, tt.err) {
			t.Errorf("Mul(%d, %d) err = %v, want %v", tt.a, tt.b, err, tt.err)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("Mul(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
