package realtime

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Conn is one live transport handle for an owner. Implementations must be
// safe for concurrent WriteJSON calls; the registry delivers from arbitrary
// request goroutines.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Event is the JSON envelope of every frame pushed to a client.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Registry maps a user to their currently-open connections. One user may hold
// several handles at once (multi-device); entries live only as long as the
// process. The registry is the single shared mutable structure between the
// request path and the connection path, so every access is lock-guarded.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]map[Conn]struct{}
	owners map[Conn]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[uuid.UUID]map[Conn]struct{}),
		owners: make(map[Conn]uuid.UUID),
	}
}

// Register adds conn under the owner's bucket. Registering the same handle
// twice is a no-op.
func (r *Registry) Register(owner uuid.UUID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, ok := r.conns[owner]
	if !ok {
		bucket = make(map[Conn]struct{})
		r.conns[owner] = bucket
	}
	bucket[conn] = struct{}{}
	r.owners[conn] = owner
}

// Unregister removes conn wherever it is registered. Unknown handles are
// ignored.
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[conn]
	if !ok {
		return
	}
	delete(r.owners, conn)

	bucket := r.conns[owner]
	delete(bucket, conn)
	if len(bucket) == 0 {
		delete(r.conns, owner)
	}
}

// Deliver sends the event to every handle currently registered for owner.
// An owner with no handles is a no-op, not an error. Each handle receives the
// payload at most once per call; write failures are logged and skipped so one
// dead connection cannot block delivery to the others.
func (r *Registry) Deliver(owner uuid.UUID, event string, payload any) {
	r.mu.RLock()
	handles := make([]Conn, 0, len(r.conns[owner]))
	for conn := range r.conns[owner] {
		handles = append(handles, conn)
	}
	r.mu.RUnlock()

	frame := Event{Event: event, Data: payload}
	for _, conn := range handles {
		if err := conn.WriteJSON(frame); err != nil {
			log.Printf("realtime: failed to deliver %s to a connection of user %s: %v", event, owner, err)
		}
	}
}

// ConnectionCount reports how many handles owner currently has registered.
func (r *Registry) ConnectionCount(owner uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[owner])
}

// Close tears the registry down at shutdown, closing every live handle.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conn, owner := range r.owners {
		if err := conn.Close(); err != nil {
			log.Printf("realtime: failed to close a connection of user %s: %v", owner, err)
		}
	}
	r.conns = make(map[uuid.UUID]map[Conn]struct{})
	r.owners = make(map[Conn]uuid.UUID)
}
