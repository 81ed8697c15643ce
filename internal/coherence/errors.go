package coherence

import "fmt"

// ErrUnaligned is returned when a load or store address is not a
// multiple of WordSize.
type ErrUnaligned struct{ Addr uint64 }

func (e ErrUnaligned) Error() string {
	return fmt.Sprintf("coherence: address 0x%x is not %d-byte aligned", e.Addr, WordSize)
}

// ErrInvalidIndex is returned by the inspection API when a set or way
// index is out of range.
type ErrInvalidIndex struct {
	Set, Way int
}

func (e ErrInvalidIndex) Error() string {
	return fmt.Sprintf("coherence: invalid set/way index (%d, %d)", e.Set, e.Way)
}
