package replication

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func mustEvent(t *testing.T, typ EventType, id, status string, version int64) Event {
	t.Helper()
	evt, err := NewEvent(typ, id, status, version, map[string]interface{}{"id": id, "status": status})
	require.NoError(t, err)
	return evt
}

func TestReplicaDiscardsDuplicatesAndStaleEvents(t *testing.T) {
	r := NewReplica()

	approved := mustEvent(t, EventApproved, "r1", "approved", 4)
	assert.True(t, r.Apply(approved))
	assert.False(t, r.Apply(approved), "redelivery is discarded")

	resent := mustEvent(t, EventApproved, "r1", "approved", 4)
	assert.False(t, r.Apply(resent), "same transition with a new event ID is discarded")

	assert.False(t, r.Apply(mustEvent(t, EventUpdated, "r1", "partially_approved", 3)), "older version is discarded")

	e, ok := r.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "approved", e.Status)
	assert.Equal(t, int64(4), e.Version)
}

func TestReplicaAppliesSameStatusWithNewerVersion(t *testing.T) {
	r := NewReplica()
	assert.True(t, r.Apply(mustEvent(t, EventUpdated, "r1", "partially_approved", 2)))
	assert.True(t, r.Apply(mustEvent(t, EventUpdated, "r1", "partially_approved", 3)))
	assert.Equal(t, 1, r.Len())
}

func TestMemoryBusFanOutAndCancel(t *testing.T) {
	bus := NewMemoryBus(4)
	a, cancelA := bus.Subscribe()
	b, cancelB := bus.Subscribe()
	defer cancelB()

	evt := mustEvent(t, EventNew, "r1", "draft", 1)
	require.NoError(t, bus.Publish(context.Background(), evt))

	assert.Equal(t, evt.ID, (<-a).ID)
	assert.Equal(t, evt.ID, (<-b).ID)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)

	require.NoError(t, bus.Publish(context.Background(), evt))
	assert.Equal(t, evt.ID, (<-b).ID)
}

func TestMemoryBusNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus := NewMemoryBus(1)
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = bus.Publish(context.Background(), mustEvent(t, EventUpdated, "r1", "pending", int64(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHubForwardsOnlyAppliedEventsToMatchingViewers(t *testing.T) {
	bus := NewMemoryBus(8)
	hub := NewHub(bus, zap.NewNop())
	require.NoError(t, hub.Start(context.Background()))
	defer hub.Stop(context.Background())

	all := hub.register("")
	onlyR2 := hub.register("r2")

	e1 := mustEvent(t, EventApproved, "r1", "approved", 2)
	require.NoError(t, bus.Publish(context.Background(), e1))
	require.NoError(t, bus.Publish(context.Background(), e1))
	e2 := mustEvent(t, EventRejected, "r2", "rejected", 5)
	require.NoError(t, bus.Publish(context.Background(), e2))

	var got []Event
	for len(got) < 2 {
		select {
		case raw := <-all.send:
			var evt Event
			require.NoError(t, json.Unmarshal(raw, &evt))
			got = append(got, evt)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected 2 events, got %d", len(got))
		}
	}
	assert.Equal(t, "r1", got[0].RequestID)
	assert.Equal(t, "r2", got[1].RequestID)

	select {
	case raw := <-onlyR2.send:
		var evt Event
		require.NoError(t, json.Unmarshal(raw, &evt))
		assert.Equal(t, "r2", evt.RequestID)
	case <-time.After(2 * time.Second):
		t.Fatal("filtered viewer received nothing")
	}

	select {
	case raw := <-all.send:
		t.Fatalf("duplicate forwarded: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubSeedsNewViewerWithLatestCopy(t *testing.T) {
	hub := NewHub(NewMemoryBus(1), zap.NewNop())
	hub.handle(mustEvent(t, EventApproved, "r9", "approved", 7))

	c := hub.register("r9")
	defer hub.unregister(c)

	var evt Event
	require.NoError(t, json.Unmarshal(<-c.send, &evt))
	assert.Equal(t, "approved", evt.Status)
	assert.Equal(t, int64(7), evt.Version)
}

func TestHandleFiltersByType(t *testing.T) {
	bus := NewMemoryBus(8)
	got := make(chan Event, 8)
	stop := Handle(bus, func(evt Event) { got <- evt }, EventApproved, EventRejected)

	require.NoError(t, bus.Publish(context.Background(), mustEvent(t, EventUpdated, "r1", "pending", 2)))
	require.NoError(t, bus.Publish(context.Background(), mustEvent(t, EventApproved, "r1", "approved", 3)))
	stop()
	close(got)

	var types []EventType
	for evt := range got {
		types = append(types, evt.Type)
	}
	assert.Equal(t, []EventType{EventApproved}, types)
}
