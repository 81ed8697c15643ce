package coherence

import "sync"

// BusClient is the capability a peer exposes to the interconnect: a
// single snoop entry point reacting to a bus message concerning a line
// it may also hold. *Cache implements this.
type BusClient interface {
	ID() int
	snoop(msg BusMessage, lineBase uint64)
}

// Interconnect is the broadcast bus: it holds non-owning references to
// every attached cache and delivers each bus message to every peer
// except the sender.
//
// Delivery discipline: Broadcast snapshots the attachment list under a
// short internal lock, releases that lock, then invokes snoop on each
// peer outside the lock. This keeps the bus lock and cache locks from
// ever forming an ordering cycle.
type Interconnect struct {
	mu      sync.Mutex
	clients []BusClient
	logFn   func(string)
}

// NewInterconnect creates an empty bus. opts may set a transition
// log callback.
func NewInterconnect(opts ...BusOption) *Interconnect {
	ic := &Interconnect{}
	for _, opt := range opts {
		opt(ic)
	}
	return ic
}

// BusOption configures an Interconnect at construction time.
type BusOption func(*Interconnect)

// WithBusLog attaches a callback invoked with a human-readable string
// for every broadcast message. The log format is not part of the
// contract, only the counters are.
func WithBusLog(fn func(string)) BusOption {
	return func(ic *Interconnect) { ic.logFn = fn }
}

// Attach registers c to receive future broadcasts.
func (ic *Interconnect) Attach(c BusClient) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.clients = append(ic.clients, c)
}

// Broadcast delivers msg concerning the line at lineBase to every
// attached client other than sender. Snoop delivery is synchronous:
// Broadcast returns only once every peer has finished reacting.
func (ic *Interconnect) Broadcast(sender BusClient, msg BusMessage, lineBase uint64) {
	ic.mu.Lock()
	peers := make([]BusClient, len(ic.clients))
	copy(peers, ic.clients)
	ic.mu.Unlock()

	senderID := -1
	if sender != nil {
		senderID = sender.ID()
	}

	for _, c := range peers {
		if c == nil || c.ID() == senderID {
			continue
		}
		c.snoop(msg, lineBase)
	}

	if ic.logFn != nil {
		ic.logFn(logBroadcast(senderID, msg, lineBase))
	}
}
