package replication

import (
	"encoding/json"
	"sync"

	"go-hr/internal/metrics"
)

// Entry is a viewer's copy of one request.
type Entry struct {
	Status   string          `json:"status"`
	Version  int64           `json:"version"`
	Snapshot json.RawMessage `json:"snapshot,omitempty"`
}

// Replica is a viewer-side cache merged from replication events.
type Replica struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewReplica() *Replica {
	return &Replica{entries: make(map[string]Entry)}
}

// Apply merges evt and reports whether the local copy changed. A redelivered event, or
// one older than the local copy, is discarded.
func (r *Replica) Apply(evt Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.entries[evt.RequestID]; ok {
		if evt.Version < cur.Version || (evt.Version == cur.Version && evt.Status == cur.Status) {
			metrics.ReplicationEvents.WithLabelValues(string(evt.Type), "discarded").Inc()
			return false
		}
	}
	r.entries[evt.RequestID] = Entry{Status: evt.Status, Version: evt.Version, Snapshot: evt.Snapshot}
	metrics.ReplicationEvents.WithLabelValues(string(evt.Type), "applied").Inc()
	return true
}

func (r *Replica) Get(requestID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[requestID]
	return e, ok
}

func (r *Replica) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
