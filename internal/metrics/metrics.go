// Package metrics counts processed and failed change events, tagged by
// change kind and error kind.
package metrics

import "sync"

// Counters is a concurrent append-only counter set shared by all workers.
type Counters struct {
	mu        sync.RWMutex
	processed map[string]uint64
	failed    map[string]uint64
}

func NewCounters() *Counters {
	return &Counters{
		processed: make(map[string]uint64),
		failed:    make(map[string]uint64),
	}
}

func (c *Counters) EventProcessed(kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processed[kind]++
}

func (c *Counters) EventFailed(kind, errKind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed[kind+":"+errKind]++
}

func (c *Counters) Processed(kind string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processed[kind]
}

func (c *Counters) Failed(kind, errKind string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failed[kind+":"+errKind]
}

// Snapshot copies both counter sets, keyed by kind and kind:errKind.
func (c *Counters) Snapshot() (processed, failed map[string]uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	processed = make(map[string]uint64, len(c.processed))
	for k, v := range c.processed {
		processed[k] = v
	}
	failed = make(map[string]uint64, len(c.failed))
	for k, v := range c.failed {
		failed[k] = v
	}
	return processed, failed
}
