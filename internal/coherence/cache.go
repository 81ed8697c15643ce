package coherence

import (
	"math"
	"sync"
)

// MemoryBacking is the capability a cache consumes from backing memory:
// aligned 64-bit word reads and writes, safe for concurrent callers.
type MemoryBacking interface {
	ReadWord(addr uint64) (uint64, error)
	WriteWord(addr uint64, value uint64) error
}

// Cache is a private, set-associative, write-back cache kept coherent
// with its peers by a snooping MESI protocol.
//
// Every mutating operation holds mu in disjoint phases separated by a
// bus emission performed with no cache lock held: two phases, or three
// for a Shared-state store whose line is lost during the upgrade and
// re-runs the miss path. This is the lock-order discipline that lets a peer's snoop handler
// acquire its own cache lock without risking a lock-ordering cycle
// with this cache's lock.
type Cache struct {
	mu  sync.Mutex
	id  int
	mem MemoryBacking
	bus *Interconnect

	sets    [Sets]set
	useTick uint64
	stats   Stats

	logFn func(string)
}

// CacheOption configures a Cache at construction time.
type CacheOption func(*Cache)

// WithID sets the cache's opaque integer identity, applied at
// construction instead of after the fact.
func WithID(id int) CacheOption {
	return func(c *Cache) { c.id = id }
}

// WithBus attaches the cache to an interconnect and registers it as a
// snoop target. A cache without a bus behaves as a single-agent system
// and never emits bus messages; a missing interconnect is not an
// error.
func WithBus(bus *Interconnect) CacheOption {
	return func(c *Cache) {
		c.bus = bus
		if bus != nil {
			bus.Attach(c)
		}
	}
}

// WithLog attaches a callback receiving a human-readable string for
// every local MESI transition and bus emission this cache performs.
// The log format is not part of the contract.
func WithLog(fn func(string)) CacheOption {
	return func(c *Cache) { c.logFn = fn }
}

// NewCache creates an empty cache (every line Invalid) backed by mem.
func NewCache(mem MemoryBacking, opts ...CacheOption) *Cache {
	c := &Cache{mem: mem}
	for i := range c.sets {
		for w := range c.sets[i].ways {
			c.sets[i].ways[w].mesi = MESIInvalid
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the cache's opaque integer identity (implements BusClient).
func (c *Cache) ID() int {
	return c.id
}

// SetID changes the cache's opaque integer identity.
func (c *Cache) SetID(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// AttachToBus attaches the cache to bus, registering it to receive
// future broadcasts. Passing nil detaches bus emission (the cache
// reverts to single-agent behavior) without affecting prior
// registrations on the old bus.
func (c *Cache) AttachToBus(bus *Interconnect) {
	c.mu.Lock()
	c.bus = bus
	c.mu.Unlock()
	if bus != nil {
		bus.Attach(c)
	}
}

func (c *Cache) log(s string) {
	if c.logFn != nil {
		c.logFn(s)
	}
}

// emit sends msg on the bus, if attached, and updates the matching
// emission counter. Callers must NOT hold the cache lock: emit may run
// concurrently with snoop handlers that acquire it.
func (c *Cache) emit(msg BusMessage, base uint64) {
	if c.bus == nil {
		return
	}
	c.mu.Lock()
	switch msg {
	case BusRd:
		c.stats.BusRd++
	case BusRdX:
		c.stats.BusRdX++
	case Invalidate:
		c.stats.BusInvalidate++
	}
	c.mu.Unlock()
	c.bus.Broadcast(c, msg, base)
}

// findHit returns the way index of the valid line in set s tagged tag,
// or -1 if absent. Callers must hold the cache lock.
func findHit(s *set, tag uint64) int {
	for w := range s.ways {
		if s.ways[w].valid && s.ways[w].tag == tag {
			return w
		}
	}
	return -1
}

// LoadWord reads the aligned 64-bit word at addr, servicing a miss by
// filling the line from backing memory in Shared state.
func (c *Cache) LoadWord(addr uint64) (uint64, bool, error) {
	if addr%WordSize != 0 {
		return 0, false, ErrUnaligned{Addr: addr}
	}

	setIdx := setIndex(addr)
	tag := tagOf(addr)
	base := lineBase(addr)
	wOff := wordOffset(addr)

	c.mu.Lock()
	s := &c.sets[setIdx]
	if w := findHit(s, tag); w >= 0 {
		line := &s.ways[w]
		c.useTick++
		line.useTick = c.useTick
		v := line.readWord(wOff)
		c.stats.Hits++
		c.mu.Unlock()
		return v, true, nil
	}
	victim := chooseVictim(s)
	c.mu.Unlock()

	// Phase boundary: no cache lock held while the bus emission runs.
	c.emit(BusRd, base)

	c.mu.Lock()
	if _, err := c.fillLocked(setIdx, victim, base, tag, MESIShared); err != nil {
		c.mu.Unlock()
		return 0, false, err
	}
	c.stats.Misses++
	out := s.ways[victim].readWord(wOff)
	c.mu.Unlock()
	return out, false, nil
}

// StoreWord writes value to the aligned 64-bit word at addr, upgrading
// a Shared line or write-allocating on a miss.
func (c *Cache) StoreWord(addr uint64, value uint64) (bool, error) {
	if addr%WordSize != 0 {
		return false, ErrUnaligned{Addr: addr}
	}

	setIdx := setIndex(addr)
	tag := tagOf(addr)
	base := lineBase(addr)
	wOff := wordOffset(addr)

	c.mu.Lock()
	s := &c.sets[setIdx]
	w := findHit(s, tag)
	if w >= 0 {
		line := &s.ways[w]
		switch line.mesi {
		case MESIModified:
			line.writeWord(wOff, value)
			line.dirty = true
			c.useTick++
			line.useTick = c.useTick
			c.stats.Hits++
			c.mu.Unlock()
			return true, nil

		case MESIExclusive:
			line.mesi = MESIModified
			line.writeWord(wOff, value)
			line.dirty = true
			c.useTick++
			line.useTick = c.useTick
			c.stats.Hits++
			c.log(logTransition(c.id, base, MESIExclusive, MESIModified, "store hit"))
			c.mu.Unlock()
			return true, nil

		case MESIShared:
			c.mu.Unlock()
			c.emit(BusRdX, base)

			c.mu.Lock()
			if w2 := findHit(s, tag); w2 >= 0 {
				line2 := &s.ways[w2]
				line2.mesi = MESIModified
				line2.writeWord(wOff, value)
				line2.dirty = true
				c.useTick++
				line2.useTick = c.useTick
				c.stats.Hits++
				c.log(logTransition(c.id, base, MESIShared, MESIModified, "store upgrade"))
				c.mu.Unlock()
				return true, nil
			}
			// Lost to a concurrent snoop during the emission window:
			// re-resolve as a miss.
			return c.storeMissLocked(setIdx, tag, base, wOff, value)
		}
	}

	return c.storeMissLocked(setIdx, tag, base, wOff, value)
}

// storeMissLocked runs the store miss path. Callers must hold the
// cache lock on entry; it is released and reacquired around the bus
// emission, and released again before returning.
func (c *Cache) storeMissLocked(setIdx uint32, tag, base uint64, wOff uint32, value uint64) (bool, error) {
	s := &c.sets[setIdx]
	victim := chooseVictim(s)
	c.mu.Unlock()

	c.emit(BusRdX, base)

	c.mu.Lock()
	if _, err := c.fillLocked(setIdx, victim, base, tag, MESIModified); err != nil {
		c.mu.Unlock()
		return false, err
	}
	line := &s.ways[victim]
	line.writeWord(wOff, value)
	line.dirty = true
	c.stats.Misses++
	c.mu.Unlock()
	return false, nil
}

// fillLocked writes back the victim if dirty, fetches the requested
// line from memory, and installs it with the given MESI state.
// Callers must hold the cache lock; it is held throughout.
func (c *Cache) fillLocked(setIdx uint32, way int, base, tag uint64, state MESIState) (uint64, error) {
	s := &c.sets[setIdx]
	line := &s.ways[way]

	if line.valid && line.dirty {
		oldBase := lineBaseFromTagAndSet(line.tag, setIdx)
		if err := c.writeBackLocked(line, oldBase); err != nil {
			return 0, err
		}
	}

	for i := uint32(0); i < WordsPerLine; i++ {
		word, err := c.mem.ReadWord(base + uint64(i)*WordSize)
		if err != nil {
			return 0, err
		}
		c.stats.MemReads++
		line.writeWord(i, word)
	}

	line.tag = tag
	line.valid = true
	line.dirty = false
	line.mesi = state
	c.useTick++
	line.useTick = c.useTick
	c.stats.LineFills++
	c.log(logTransition(c.id, base, MESIInvalid, state, "fill"))

	return line.readWord(0), nil
}

// writeBackLocked writes line's four words to memory at base and
// clears its dirty flag. Callers must hold the cache lock.
func (c *Cache) writeBackLocked(line *Line, base uint64) error {
	for i := uint32(0); i < WordsPerLine; i++ {
		if err := c.mem.WriteWord(base+uint64(i)*WordSize, line.readWord(i)); err != nil {
			return err
		}
		c.stats.MemWrites++
	}
	c.stats.Writebacks++
	line.dirty = false
	return nil
}

// findLineByBase locates the line (if any) holding the 32-byte-aligned
// address base in this cache. Callers must hold the cache lock.
func (c *Cache) findLineByBase(base uint64) *Line {
	setIdx := setIndex(base)
	tag := tagOf(base)
	s := &c.sets[setIdx]
	if w := findHit(s, tag); w >= 0 {
		return &s.ways[w]
	}
	return nil
}

// snoop reacts to a bus message concerning the line at lineBase,
// emitted by a peer cache. Implements BusClient; invoked only by
// Interconnect.Broadcast.
func (c *Cache) snoop(msg BusMessage, lineBase uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := c.findLineByBase(lineBase)
	if line == nil || !line.valid {
		return
	}

	switch msg {
	case BusRd:
		switch line.mesi {
		case MESIModified:
			from := line.mesi
			_ = c.writeBackLocked(line, lineBase)
			c.stats.SnoopFlushes++
			line.mesi = MESIShared
			c.log(logSnoopReaction(c.id, lineBase, msg, from, MESIShared))
		case MESIExclusive:
			from := line.mesi
			line.mesi = MESIShared
			c.stats.SnoopToShared++
			c.log(logSnoopReaction(c.id, lineBase, msg, from, MESIShared))
		}
		// Shared: no change.

	case BusRdX, Invalidate:
		from := line.mesi
		if line.mesi == MESIModified {
			_ = c.writeBackLocked(line, lineBase)
			c.stats.SnoopFlushes++
		}
		line.invalidate()
		c.stats.SnoopToInvalid++
		c.log(logSnoopReaction(c.id, lineBase, msg, from, MESIInvalid))

	case Flush:
		// Observer no-op: the issuer performs the memory write itself.
	}
}

// FlushAll writes every valid dirty line back to memory and clears its
// dirty flag. MESI state is left unchanged.
func (c *Cache) FlushAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.sets {
		for w := range c.sets[s].ways {
			line := &c.sets[s].ways[w]
			if line.valid && line.dirty {
				base := lineBaseFromTagAndSet(line.tag, uint32(s))
				if err := c.writeBackLocked(line, base); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// InvalidateAll resets every line to Invalid/empty. Statistics are
// untouched.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s := range c.sets {
		for w := range c.sets[s].ways {
			c.sets[s].ways[w].invalidate()
		}
	}
}

// ResetStats zeroes every statistics counter.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}

// GetStats returns a snapshot of the current statistics.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// GetLineMESI returns the MESI state of the line containing addr, if
// resident and valid.
func (c *Cache) GetLineMESI(addr uint64) (MESIState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line := c.findLineByBase(lineBase(addr))
	if line == nil || !line.valid {
		return "", false
	}
	return line.mesi, true
}

// GetLineInfo returns the metadata of the line at (set, way) for
// inspection. set must be in [0, Sets) and way in [0, Ways).
func (c *Cache) GetLineInfo(setIdx, way int) (LineInfo, error) {
	if setIdx < 0 || setIdx >= Sets || way < 0 || way >= Ways {
		return LineInfo{}, ErrInvalidIndex{Set: setIdx, Way: way}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets[setIdx].ways[way].info(), nil
}

// LoadDouble reads the aligned 64-bit word at addr and reinterprets
// its bits as an IEEE-754 double: pure bit-aliasing, no numeric
// conversion.
func (c *Cache) LoadDouble(addr uint64) (float64, bool, error) {
	bits, hit, err := c.LoadWord(addr)
	if err != nil {
		return 0, false, err
	}
	return math.Float64frombits(bits), hit, nil
}

// StoreDouble bit-aliases value into a uint64 and stores it at addr.
func (c *Cache) StoreDouble(addr uint64, value float64) (bool, error) {
	return c.StoreWord(addr, math.Float64bits(value))
}

var _ BusClient = (*Cache)(nil)
