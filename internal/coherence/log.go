package coherence

import "fmt"

// logBroadcast renders a bus emission as a human-readable string for
// the optional observability callback. The format is not part of the
// contract.
func logBroadcast(senderID int, msg BusMessage, lineBase uint64) string {
	return fmt.Sprintf("bus: cache %d emits %s for line 0x%x", senderID, msg, lineBase)
}

// logTransition renders a local MESI transition as a human-readable
// string for the optional per-cache log-callback.
func logTransition(cacheID int, lineBase uint64, from, to MESIState, reason string) string {
	return fmt.Sprintf("cache %d: line 0x%x %s -> %s (%s)", cacheID, lineBase, from, to, reason)
}

// logSnoopReaction renders a snoop-induced reaction as a human-readable
// string.
func logSnoopReaction(cacheID int, lineBase uint64, msg BusMessage, from, to MESIState) string {
	return fmt.Sprintf("cache %d: snoop %s on line 0x%x, %s -> %s", cacheID, msg, lineBase, from, to)
}
