package coherence

// Stats are the monotonic counters a cache maintains, reset only on
// explicit request.
type Stats struct {
	Hits       uint64
	Misses     uint64
	LineFills  uint64
	Writebacks uint64
	MemReads   uint64
	MemWrites  uint64

	BusRd        uint64
	BusRdX       uint64
	BusInvalidate uint64

	SnoopToInvalid uint64
	SnoopToShared  uint64
	SnoopFlushes   uint64
}
