package coherence

// Fixed cache geometry: 32-byte lines, 16 lines total, 2-way
// set-associative, 8 sets, 8-byte words. None of these are runtime
// parameters, every cache instance shares this geometry.
const (
	LineSizeBytes = 32
	NumLines      = 16
	Ways          = 2
	Sets          = NumLines / Ways // 8
	OffsetBits    = 5               // log2(LineSizeBytes)
	IndexBits     = 3               // log2(Sets)
	WordSize      = 8
	WordsPerLine  = LineSizeBytes / WordSize // 4

	offsetMask = uint64(1)<<OffsetBits - 1
	indexMask  = uint64(1)<<IndexBits - 1
)

// lineBase clears the offset bits, yielding the 32-byte-aligned base
// address of the line containing addr.
func lineBase(addr uint64) uint64 {
	return addr &^ offsetMask
}

// setIndex extracts the set index (0..Sets-1) from addr.
func setIndex(addr uint64) uint32 {
	return uint32((addr >> OffsetBits) & indexMask)
}

// tagOf extracts the tag (the address bits above the offset and index
// fields) from addr.
func tagOf(addr uint64) uint64 {
	return addr >> (OffsetBits + IndexBits)
}

// byteOffset extracts the offset within the line (0..LineSizeBytes-1).
func byteOffset(addr uint64) uint32 {
	return uint32(addr & offsetMask)
}

// wordOffset extracts the word index within the line (0..WordsPerLine-1).
func wordOffset(addr uint64) uint32 {
	return byteOffset(addr) / WordSize
}

// lineBaseFromTagAndSet reconstructs a line's base address from its tag
// and set index, the inverse of tagOf/setIndex, used when a victim's
// old line must be written back before it is overwritten.
func lineBaseFromTagAndSet(tag uint64, set uint32) uint64 {
	return (tag << (OffsetBits + IndexBits)) | (uint64(set) << OffsetBits)
}
