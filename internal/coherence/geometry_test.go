package coherence

import "testing"

func TestGeometryDecode(t *testing.T) {
	cases := []struct {
		addr       uint64
		set        uint32
		tag        uint64
		byteOff    uint32
		wordOff    uint32
		base       uint64
	}{
		{addr: 0x0000, set: 0, tag: 0, byteOff: 0, wordOff: 0, base: 0x0000},
		{addr: 0x0008, set: 0, tag: 0, byteOff: 8, wordOff: 1, base: 0x0000},
		{addr: 0x0018, set: 0, tag: 0, byteOff: 24, wordOff: 3, base: 0x0000},
		{addr: 0x0020, set: 1, tag: 0, byteOff: 0, wordOff: 0, base: 0x0020},
		{addr: 0x0100, set: 0, tag: 1, byteOff: 0, wordOff: 0, base: 0x0100},
		{addr: 0x0200, set: 0, tag: 2, byteOff: 0, wordOff: 0, base: 0x0200},
	}

	for _, c := range cases {
		if got := setIndex(c.addr); got != c.set {
			t.Errorf("setIndex(0x%x) = %d, want %d", c.addr, got, c.set)
		}
		if got := tagOf(c.addr); got != c.tag {
			t.Errorf("tagOf(0x%x) = %d, want %d", c.addr, got, c.tag)
		}
		if got := byteOffset(c.addr); got != c.byteOff {
			t.Errorf("byteOffset(0x%x) = %d, want %d", c.addr, got, c.byteOff)
		}
		if got := wordOffset(c.addr); got != c.wordOff {
			t.Errorf("wordOffset(0x%x) = %d, want %d", c.addr, got, c.wordOff)
		}
		if got := lineBase(c.addr); got != c.base {
			t.Errorf("lineBase(0x%x) = 0x%x, want 0x%x", c.addr, got, c.base)
		}
	}
}

func TestSameSetStride(t *testing.T) {
	// Line size (32) * number of sets (8) = 256: addresses 256 bytes
	// apart collide in the same set but carry different tags.
	if setIndex(0x0000) != setIndex(0x0100) {
		t.Fatalf("expected 0x0000 and 0x0100 to map to the same set")
	}
	if tagOf(0x0000) == tagOf(0x0100) {
		t.Fatalf("expected 0x0000 and 0x0100 to carry different tags")
	}
}

func TestLineBaseFromTagAndSetRoundTrip(t *testing.T) {
	addrs := []uint64{0x0000, 0x0020, 0x0100, 0x0200, 0x1234500}
	for _, addr := range addrs {
		base := lineBase(addr)
		tag := tagOf(addr)
		set := setIndex(addr)
		if got := lineBaseFromTagAndSet(tag, set); got != base {
			t.Errorf("lineBaseFromTagAndSet(%d, %d) = 0x%x, want 0x%x", tag, set, got, base)
		}
	}
}
