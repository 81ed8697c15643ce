// Package workload builds and runs the parallel dot-product demo that
// exercises the full coherence stack end to end: each processing
// element reduces its own slice of two vectors, and the per-PE partial
// sums are combined once every element has finished.
package workload

import (
	"fmt"
	"sync"

	"github.com/example/coresim/internal/coherence"
	"github.com/example/coresim/internal/memory"
	"github.com/example/coresim/internal/pe"
)

// Register conventions used by BuildDotProductProgram:
//
//	R0: current word index into this PE's slice of A
//	R1: current word index into this PE's slice of B
//	R2: word index of this PE's partial-sum slot
//	R3: remaining iteration count
//	R4: running accumulator
//	R5: A[i] scratch
//	R6: B[i] scratch
//	R7: A[i]*B[i] scratch
const (
	regA       = 0
	regB       = 1
	regPartial = 2
	regCount   = 3
	regAccum   = 4
	regATemp   = 5
	regBTemp   = 6
	regProduct = 7
)

// DotProductConfig parameterizes one PE's slice of a BuildDotProductProgram
// run.
type DotProductConfig struct {
	// SliceLen is the number of vector elements this PE reduces.
	SliceLen int
}

// BuildDotProductProgram emits an instruction sequence that seeds the
// accumulator from the caller-initialized partial-sum slot, then loops
// accumulating A[i]*B[i] until the count register R3 reaches zero, then
// stores the result back. The loop count comes from R3, which the caller
// seeds (BuildWiring sets it to perPE); cfg.SliceLen does not change the
// emitted instructions.
func BuildDotProductProgram(cfg DotProductConfig) []pe.Instruction {
	code := []pe.Instruction{
		{Op: pe.LOAD, RegDest: regAccum, RegSrc1: regPartial},
	}
	loopStart := len(code)

	code = append(code,
		pe.Instruction{Op: pe.LOAD, RegDest: regATemp, RegSrc1: regA},
		pe.Instruction{Op: pe.LOAD, RegDest: regBTemp, RegSrc1: regB},
		pe.Instruction{Op: pe.FMUL, RegDest: regProduct, RegSrc1: regATemp, RegSrc2: regBTemp},
		pe.Instruction{Op: pe.FADD, RegDest: regAccum, RegSrc1: regAccum, RegSrc2: regProduct},
		pe.Instruction{Op: pe.INC, RegDest: regA},
		pe.Instruction{Op: pe.INC, RegDest: regB},
		pe.Instruction{Op: pe.DEC, RegDest: regCount},
		pe.Instruction{Op: pe.JNZ, RegDest: regCount, Label: loopStart},
	)

	code = append(code, pe.Instruction{Op: pe.STORE, RegDest: regPartial, RegSrc1: regAccum})
	return code
}

// partialSumStrideWords separates each PE's partial-sum slot by a full
// line (32 bytes == 4 words) so no two PEs' slots ever share a line and
// contend for it under false sharing.
const partialSumStrideWords = coherence.WordsPerLine

// AddressLayout is the word-addressed memory map RunParallelDotProduct
// and BuildWiring use: vector A, then vector B, then one partial-sum
// slot per PE, each on its own cache line. Exported so every caller
// that needs to size backing memory or locate a PE's operands derives
// the same addresses from the same arithmetic, instead of each
// re-deriving (and risking disagreeing about) the layout.
type AddressLayout struct {
	ABaseWord       uint64
	BBaseWord       uint64
	PartialBaseWord uint64
	TotalWords      int
}

// ComputeAddressLayout returns the address layout for numPEs processing
// elements each reducing a perPE-element slice.
func ComputeAddressLayout(numPEs, perPE int) AddressLayout {
	vectorLen := numPEs * perPE
	aBase := uint64(0)
	bBase := uint64(vectorLen)
	partialBase := bBase + uint64(vectorLen)
	return AddressLayout{
		ABaseWord:       aBase,
		BBaseWord:       bBase,
		PartialBaseWord: partialBase,
		TotalWords:      int(partialBase) + numPEs*partialSumStrideWords,
	}
}

// Option configures BuildWiring and RunParallelDotProduct.
type Option func(*wiringConfig)

type wiringConfig struct {
	logHook func(string)
}

// WithLogHook attaches a log callback to every cache and to the shared
// interconnect via coherence.WithLog/WithBusLog, so every per-cache and
// per-bus transition in the wiring reports through the same hook.
func WithLogHook(hook func(string)) Option {
	return func(c *wiringConfig) { c.logHook = hook }
}

// RunStats summarizes one RunParallelDotProduct call: the per-PE read
// and write operation counts and the aggregate coherence statistics
// across every cache that took part.
type RunStats struct {
	PEReadOps  []uint64
	PEWriteOps []uint64
	Cache      []coherence.Stats
}

// Wiring bundles the backing memory, interconnect, caches, and
// processing elements BuildWiring assembles. Exported so drivers that
// schedule PE execution themselves (e.g. a single-stepping round-robin
// loop) can reuse the exact same construction and address layout that
// RunParallelDotProduct uses, rather than re-deriving it by hand.
type Wiring struct {
	Mem      *memory.Memory
	Bus      *coherence.Interconnect
	Caches   []*coherence.Cache
	Elements []*pe.Element
	Layout   AddressLayout
}

// BuildWiring constructs and seeds backing memory, an interconnect, and
// one cache plus processing element per PE for the parallel dot-product
// workload, without executing any instructions. Every PE's registers
// are loaded and its program is ready to run via repeated calls to
// ExecuteNext.
func BuildWiring(numPEs, perPE int, opts ...Option) (*Wiring, error) {
	if numPEs <= 0 || perPE <= 0 {
		return nil, fmt.Errorf("workload: numPEs and perPE must be positive, got %d and %d", numPEs, perPE)
	}

	var cfg wiringConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	layout := ComputeAddressLayout(numPEs, perPE)
	mem := memory.New(layout.TotalWords)

	vectorLen := numPEs * perPE
	for i := 0; i < vectorLen; i++ {
		a := float64(i + 1)
		b := 2.0
		if err := mem.WriteDouble((layout.ABaseWord+uint64(i))*coherence.WordSize, a); err != nil {
			return nil, err
		}
		if err := mem.WriteDouble((layout.BBaseWord+uint64(i))*coherence.WordSize, b); err != nil {
			return nil, err
		}
	}
	for i := 0; i < numPEs; i++ {
		slot := layout.PartialBaseWord + uint64(i*partialSumStrideWords)
		if err := mem.WriteDouble(slot*coherence.WordSize, 0.0); err != nil {
			return nil, err
		}
	}

	var busOpts []coherence.BusOption
	if cfg.logHook != nil {
		busOpts = append(busOpts, coherence.WithBusLog(cfg.logHook))
	}
	bus := coherence.NewInterconnect(busOpts...)

	elements := make([]*pe.Element, numPEs)
	caches := make([]*coherence.Cache, numPEs)

	for i := 0; i < numPEs; i++ {
		cacheOpts := []coherence.CacheOption{coherence.WithID(i), coherence.WithBus(bus)}
		if cfg.logHook != nil {
			cacheOpts = append(cacheOpts, coherence.WithLog(cfg.logHook))
		}
		c := coherence.NewCache(mem, cacheOpts...)
		e := pe.New(i)
		e.AttachCache(c)

		if err := e.SetRegister(regA, layout.ABaseWord+uint64(i*perPE)); err != nil {
			return nil, err
		}
		if err := e.SetRegister(regB, layout.BBaseWord+uint64(i*perPE)); err != nil {
			return nil, err
		}
		if err := e.SetRegister(regPartial, layout.PartialBaseWord+uint64(i*partialSumStrideWords)); err != nil {
			return nil, err
		}
		if err := e.SetRegister(regCount, uint64(perPE)); err != nil {
			return nil, err
		}
		e.LoadProgram(BuildDotProductProgram(DotProductConfig{SliceLen: perPE}))

		elements[i] = e
		caches[i] = c
	}

	return &Wiring{Mem: mem, Bus: bus, Caches: caches, Elements: elements, Layout: layout}, nil
}

// SumResults flushes every cache in w and reads back each PE's
// partial-sum slot, returning the aggregate dot product and per-PE and
// per-cache statistics. Call this once every PE has run its program to
// completion, however that execution was scheduled.
func SumResults(w *Wiring) (float64, RunStats, error) {
	for _, c := range w.Caches {
		if err := c.FlushAll(); err != nil {
			return 0, RunStats{}, err
		}
	}

	numPEs := len(w.Elements)
	var total float64
	stats := RunStats{
		PEReadOps:  make([]uint64, numPEs),
		PEWriteOps: make([]uint64, numPEs),
		Cache:      make([]coherence.Stats, numPEs),
	}
	for i := 0; i < numPEs; i++ {
		slot := w.Layout.PartialBaseWord + uint64(i*partialSumStrideWords)
		v, err := w.Mem.ReadDouble(slot * coherence.WordSize)
		if err != nil {
			return 0, RunStats{}, err
		}
		total += v
		stats.PEReadOps[i] = w.Elements[i].ReadOps()
		stats.PEWriteOps[i] = w.Elements[i].WriteOps()
		stats.Cache[i] = w.Caches[i].GetStats()
	}
	return total, stats, nil
}

// RunParallelDotProduct wires numPEs processing elements, each with its
// own cache attached to a shared interconnect and a shared backing
// memory, seeds two vectors of length numPEs*perPE in memory, runs each
// PE's slice of the dot product on its own goroutine (run-all mode:
// parallel OS threads, no cooperative scheduling), and returns the
// summed result once every PE has finished and every cache has been
// flushed.
func RunParallelDotProduct(numPEs, perPE int, opts ...Option) (float64, RunStats, error) {
	w, err := BuildWiring(numPEs, perPE, opts...)
	if err != nil {
		return 0, RunStats{}, err
	}

	var wg sync.WaitGroup
	errs := make([]error, numPEs)
	for i := 0; i < numPEs; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			e := w.Elements[idx]
			for !e.HasFinished() {
				if err := e.ExecuteNext(); err != nil {
					errs[idx] = err
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return 0, RunStats{}, err
		}
	}

	return SumResults(w)
}
