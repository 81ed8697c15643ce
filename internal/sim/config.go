package sim

import (
	"errors"
	"fmt"

	"github.com/example/coresim/internal/coherence"
)

// DefaultMemoryWords is the backing memory size used when Config leaves
// MemoryWords unset.
const DefaultMemoryWords = 4096

// RunMode selects how processing elements are driven.
type RunMode string

const (
	// ModeRunAll launches one goroutine per processing element with no
	// cooperative scheduling: parallel OS threads racing the bus.
	ModeRunAll RunMode = "run-all"
	// ModeStep runs one instruction at a time in round-robin turn via
	// StepCoordinator. Each processing element still has its own
	// goroutine that waits for its turn; no single goroutine drives them
	// all.
	ModeStep RunMode = "step"
)

// Config is the simulation driver's top-level configuration surface:
// processing element count, memory size in words, workload vector
// length, and run mode.
type Config struct {
	NumPEs       int
	MemoryWords  int
	VectorPerPE  int
	Mode         RunMode
}

// ValidateConfig applies structural checks to cfg and fills in defaults
// where the zero value isn't meaningful.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if cfg.NumPEs <= 0 {
		return fmt.Errorf("NumPEs must be positive, got %d", cfg.NumPEs)
	}
	if cfg.VectorPerPE <= 0 {
		return fmt.Errorf("VectorPerPE must be positive, got %d", cfg.VectorPerPE)
	}

	switch cfg.Mode {
	case ModeRunAll, ModeStep:
	case "":
		cfg.Mode = ModeRunAll
	default:
		return fmt.Errorf("unknown run mode %q", cfg.Mode)
	}

	if cfg.MemoryWords <= 0 {
		cfg.MemoryWords = DefaultMemoryWords
	}

	// Vectors A and B (VectorPerPE words per PE each) plus one
	// partial-sum slot per PE, each slot padded out to a full cache
	// line (coherence.WordsPerLine words) to keep PEs' partial sums off
	// each other's lines.
	minWords := 2*cfg.NumPEs*cfg.VectorPerPE + cfg.NumPEs*coherence.WordsPerLine
	if cfg.MemoryWords < minWords {
		return fmt.Errorf("MemoryWords %d too small to hold vectors A and B (%d words each) plus %d-word partial-sum slots for %d PEs, need at least %d", cfg.MemoryWords, cfg.VectorPerPE, coherence.WordsPerLine, cfg.NumPEs, minWords)
	}

	return nil
}
