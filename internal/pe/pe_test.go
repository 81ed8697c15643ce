package pe

import (
	"testing"

	"github.com/example/coresim/internal/coherence"
)

type fakeMem struct{ words []uint64 }

func (m *fakeMem) ReadWord(addr uint64) (uint64, error) {
	return m.words[addr/coherence.WordSize], nil
}

func (m *fakeMem) WriteWord(addr uint64, v uint64) error {
	m.words[addr/coherence.WordSize] = v
	return nil
}

func newTestElement() (*Element, *coherence.Cache) {
	mem := &fakeMem{words: make([]uint64, 64)}
	c := coherence.NewCache(mem)
	e := New(1)
	e.AttachCache(c)
	return e, c
}

func TestLoadStoreWordIndexAddressing(t *testing.T) {
	e, _ := newTestElement()

	// R0 holds the word index 2; STORE writes R1's value there.
	if err := e.SetRegister(0, 2); err != nil {
		t.Fatalf("set r0: %v", err)
	}
	if err := e.SetRegister(1, 777); err != nil {
		t.Fatalf("set r1: %v", err)
	}
	e.LoadProgram([]Instruction{
		{Op: STORE, RegDest: 0, RegSrc1: 1},
		{Op: LOAD, RegDest: 2, RegSrc1: 0},
	})

	if err := e.ExecuteNext(); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := e.ExecuteNext(); err != nil {
		t.Fatalf("load: %v", err)
	}

	got, err := e.GetRegister(2)
	if err != nil {
		t.Fatalf("get r2: %v", err)
	}
	if got != 777 {
		t.Fatalf("got %d, want 777", got)
	}
	if e.WriteOps() != 1 || e.ReadOps() != 1 {
		t.Fatalf("unexpected op counts: read=%d write=%d", e.ReadOps(), e.WriteOps())
	}
	if !e.HasFinished() {
		t.Fatalf("expected program to be finished")
	}
}

func TestFloatingPointArithmetic(t *testing.T) {
	e, _ := newTestElement()

	if err := e.SetRegisterDouble(0, 2.5); err != nil {
		t.Fatalf("set r0: %v", err)
	}
	if err := e.SetRegisterDouble(1, 4.0); err != nil {
		t.Fatalf("set r1: %v", err)
	}
	e.LoadProgram([]Instruction{
		{Op: FMUL, RegDest: 2, RegSrc1: 0, RegSrc2: 1},
		{Op: FADD, RegDest: 3, RegSrc1: 2, RegSrc2: 0},
	})

	if err := e.ExecuteNext(); err != nil {
		t.Fatalf("fmul: %v", err)
	}
	if err := e.ExecuteNext(); err != nil {
		t.Fatalf("fadd: %v", err)
	}

	product, err := e.GetRegisterDouble(2)
	if err != nil {
		t.Fatalf("get r2: %v", err)
	}
	if product != 10.0 {
		t.Fatalf("got %v, want 10.0", product)
	}
	sum, err := e.GetRegisterDouble(3)
	if err != nil {
		t.Fatalf("get r3: %v", err)
	}
	if sum != 12.5 {
		t.Fatalf("got %v, want 12.5", sum)
	}
}

func TestJNZLoop(t *testing.T) {
	e, _ := newTestElement()

	if err := e.SetRegister(0, 3); err != nil {
		t.Fatalf("set r0: %v", err)
	}
	e.LoadProgram([]Instruction{
		{Op: DEC, RegDest: 0},
		{Op: JNZ, RegDest: 0, Label: 0},
	})

	for i := 0; i < 6 && !e.HasFinished(); i++ {
		if err := e.ExecuteNext(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	v, err := e.GetRegister(0)
	if err != nil {
		t.Fatalf("get r0: %v", err)
	}
	if v != 0 {
		t.Fatalf("got %d, want 0", v)
	}
	if !e.HasFinished() {
		t.Fatalf("expected the loop to fall through once r0 hits 0")
	}
}

func TestInvalidRegisterIndex(t *testing.T) {
	e, _ := newTestElement()
	if err := e.SetRegister(8, 1); err == nil {
		t.Fatalf("expected an error for out-of-range register")
	}
	if _, err := e.GetRegister(-1); err == nil {
		t.Fatalf("expected an error for out-of-range register")
	}
}

func TestResetClearsRegistersPCAndStats(t *testing.T) {
	e, _ := newTestElement()
	if err := e.SetRegister(0, 5); err != nil {
		t.Fatalf("set r0: %v", err)
	}
	e.LoadProgram([]Instruction{{Op: INC, RegDest: 0}})
	if err := e.ExecuteNext(); err != nil {
		t.Fatalf("exec: %v", err)
	}

	e.Reset()

	v, _ := e.GetRegister(0)
	if v != 0 {
		t.Fatalf("expected register cleared, got %d", v)
	}
	if e.HasFinished() {
		t.Fatalf("expected pc rewound with the program still loaded")
	}
	if e.ReadOps() != 0 || e.WriteOps() != 0 {
		t.Fatalf("expected stats cleared")
	}
}
