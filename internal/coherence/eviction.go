package coherence

// chooseVictim selects the way to evict from s: an Invalid way first
// (lowest index), otherwise the way with the smallest use-tick, ties
// broken by lower index. Callers must hold the cache lock.
func chooseVictim(s *set) int {
	for w := range s.ways {
		if !s.ways[w].valid {
			return w
		}
	}
	victim := 0
	best := s.ways[0].useTick
	for w := 1; w < Ways; w++ {
		if s.ways[w].useTick < best {
			best = s.ways[w].useTick
			victim = w
		}
	}
	return victim
}
