package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []Event
	writes int
	failed bool
	closed bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	if c.failed {
		return errors.New("connection reset")
	}
	c.frames = append(c.frames, v.(Event))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.frames))
	copy(out, c.frames)
	return out
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	owner := uuid.New()
	conn := &fakeConn{}

	registry.Register(owner, conn)
	registry.Register(owner, conn)

	assert.Equal(t, 1, registry.ConnectionCount(owner))

	registry.Deliver(owner, EventNotification, "payload")
	assert.Len(t, conn.received(), 1)
}

func TestRegistryDeliverToMultipleDevices(t *testing.T) {
	registry := NewRegistry()
	owner := uuid.New()
	first := &fakeConn{}
	second := &fakeConn{}

	registry.Register(owner, first)
	registry.Register(owner, second)

	registry.Deliver(owner, EventNotification, map[string]string{"id": "n1"})

	require.Len(t, first.received(), 1)
	require.Len(t, second.received(), 1)
	assert.Equal(t, EventNotification, first.received()[0].Event)
	assert.Equal(t, first.received()[0], second.received()[0])
}

func TestRegistryDeliverWithoutConnectionsIsNoop(t *testing.T) {
	registry := NewRegistry()

	// Nothing registered for this user; must not panic or block.
	registry.Deliver(uuid.New(), EventNotification, "payload")
}

func TestRegistryDeliverSkipsOtherOwners(t *testing.T) {
	registry := NewRegistry()
	alice := uuid.New()
	bob := uuid.New()
	aliceConn := &fakeConn{}
	bobConn := &fakeConn{}

	registry.Register(alice, aliceConn)
	registry.Register(bob, bobConn)

	registry.Deliver(alice, EventNotification, "for alice")

	assert.Len(t, aliceConn.received(), 1)
	assert.Empty(t, bobConn.received())
}

func TestRegistryDeliverSurvivesFailedWrite(t *testing.T) {
	registry := NewRegistry()
	owner := uuid.New()
	dead := &fakeConn{failed: true}
	live := &fakeConn{}

	registry.Register(owner, dead)
	registry.Register(owner, live)

	registry.Deliver(owner, EventNotification, "payload")

	assert.Len(t, live.received(), 1)
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()
	owner := uuid.New()
	conn := &fakeConn{}

	registry.Register(owner, conn)
	registry.Unregister(conn)

	assert.Equal(t, 0, registry.ConnectionCount(owner))

	registry.Deliver(owner, EventNotification, "payload")
	assert.Empty(t, conn.received())

	// Unknown handles are ignored.
	registry.Unregister(&fakeConn{})
}

func TestRegistryClose(t *testing.T) {
	registry := NewRegistry()
	owner := uuid.New()
	conn := &fakeConn{}

	registry.Register(owner, conn)
	registry.Close()

	assert.True(t, conn.closed)
	assert.Equal(t, 0, registry.ConnectionCount(owner))
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	owner := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			registry.Register(owner, conn)
			registry.Deliver(owner, EventNotification, "payload")
			registry.Unregister(conn)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, registry.ConnectionCount(owner))
}
