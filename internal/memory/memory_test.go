package memory

import (
	"errors"
	"math"
	"testing"
)

func TestReadWriteWordRoundTrip(t *testing.T) {
	m := New(DefaultWords)

	if err := m.WriteWord(0x18, 0xdeadbeef); err != nil {
		t.Fatalf("WriteWord returned error: %v", err)
	}
	got, err := m.ReadWord(0x18)
	if err != nil {
		t.Fatalf("ReadWord returned error: %v", err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("expected 0xdeadbeef, got 0x%x", got)
	}

	stats := m.Stats()
	if stats.Writes != 1 || stats.Reads != 1 {
		t.Fatalf("expected 1 read and 1 write, got %+v", stats)
	}
}

func TestReadWriteDoubleBitExact(t *testing.T) {
	m := New(DefaultWords)
	cases := []float64{3.14159, -0.0, 0.0, math.Inf(1), math.Inf(-1)}

	for _, v := range cases {
		if err := m.WriteDouble(0x40, v); err != nil {
			t.Fatalf("WriteDouble(%v) returned error: %v", v, err)
		}
		got, err := m.ReadDouble(0x40)
		if err != nil {
			t.Fatalf("ReadDouble returned error: %v", err)
		}
		if math.Float64bits(got) != math.Float64bits(v) {
			t.Fatalf("expected bit-exact %v, got %v", v, got)
		}
	}

	nan := math.NaN()
	if err := m.WriteDouble(0x40, nan); err != nil {
		t.Fatalf("WriteDouble(NaN) returned error: %v", err)
	}
	got, err := m.ReadDouble(0x40)
	if err != nil {
		t.Fatalf("ReadDouble returned error: %v", err)
	}
	if math.Float64bits(got) != math.Float64bits(nan) {
		t.Fatalf("expected bit-exact NaN payload, got different bits")
	}
}

func TestUnalignedAccessFails(t *testing.T) {
	m := New(DefaultWords)

	if _, err := m.ReadWord(0x3); err == nil {
		t.Fatalf("expected error for unaligned read")
	} else if !errors.As(err, &ErrUnaligned{}) {
		t.Fatalf("expected ErrUnaligned, got %v", err)
	}

	if err := m.WriteWord(0x5, 1); err == nil {
		t.Fatalf("expected error for unaligned write")
	}

	if stats := m.Stats(); stats.Reads != 0 || stats.Writes != 0 {
		t.Fatalf("expected no side effects from failed access, got %+v", stats)
	}
}

func TestOutOfRangeAccessFails(t *testing.T) {
	m := New(4)

	addr := uint64(4 * WordSize)
	if _, err := m.ReadWord(addr); err == nil {
		t.Fatalf("expected error for out-of-range read")
	} else if !errors.As(err, &ErrOutOfRange{}) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestResetStats(t *testing.T) {
	m := New(DefaultWords)
	_ = m.WriteWord(0, 1)
	_, _ = m.ReadWord(0)

	m.ResetStats()

	if stats := m.Stats(); stats.Reads != 0 || stats.Writes != 0 {
		t.Fatalf("expected zeroed stats after reset, got %+v", stats)
	}
}
