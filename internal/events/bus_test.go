package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, fields ...interface{}) {}
func (nopLogger) Info(msg string, fields ...interface{})  {}
func (nopLogger) Warn(msg string, fields ...interface{})  {}
func (nopLogger) Error(msg string, fields ...interface{}) {}

func newTestBus(t *testing.T) EventBus {
	t.Helper()

	config := DefaultEventBusConfig()
	config.EnablePersistence = false

	bus := NewEventBus(config, nopLogger{}, nil)
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		bus.Stop(ctx)
	})
	return bus
}

func TestEventBusDeliversToMatchingSubscriber(t *testing.T) {
	bus := newTestBus(t)

	var mu sync.Mutex
	var got []Event
	received := make(chan struct{}, 8)

	_, err := bus.Subscribe(context.Background(), EventFilter{
		Types: []EventType{EventSessionCreated},
	}, func(event Event) error {
		mu.Lock()
		got = append(got, event)
		mu.Unlock()
		received <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.PublishAsync(NewEvent(EventSessionCreated, "playermodule", "Session 0 created", "")))
	require.NoError(t, bus.PublishAsync(NewEvent(EventEngineDiscovered, "enginemodule", "Engine found", "")))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	// The engine event must not arrive on this subscription.
	select {
	case <-received:
		t.Fatal("filter let a non-matching event through")
	case <-time.After(100 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, EventSessionCreated, got[0].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestEventBusRejectsIncompleteEvents(t *testing.T) {
	bus := newTestBus(t)

	err := bus.PublishAsync(Event{Source: "test"})
	assert.Error(t, err)

	err = bus.PublishAsync(Event{Type: EventInfo})
	assert.Error(t, err)
}

func TestEventBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan struct{}, 8)
	sub, err := bus.Subscribe(context.Background(), EventFilter{}, func(event Event) error {
		received <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.PublishAsync(NewEvent(EventInfo, "test", "first", "")))
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	require.NoError(t, bus.Unsubscribe(sub.ID))
	require.NoError(t, bus.PublishAsync(NewEvent(EventInfo, "test", "second", "")))

	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBusStats(t *testing.T) {
	bus := newTestBus(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.PublishAsync(NewEvent(EventSessionCreated, "playermodule", "created", "")))
	}

	// Stats update on the processing goroutine.
	require.Eventually(t, func() bool {
		return bus.GetStats().TotalEvents == 3
	}, 2*time.Second, 10*time.Millisecond)

	stats := bus.GetStats()
	assert.Equal(t, int64(3), stats.EventsByType[string(EventSessionCreated)])
	assert.Equal(t, int64(3), stats.EventsBySource["playermodule"])
	assert.Len(t, stats.RecentEvents, 3)
}

func TestMatchesFilter(t *testing.T) {
	event := NewEvent(EventSessionDisposed, "playermodule", "disposed", "")
	event.Priority = PriorityNormal
	event.Tags = []string{"playback"}

	assert.True(t, MatchesFilter(event, EventFilter{}))
	assert.True(t, MatchesFilter(event, EventFilter{Types: []EventType{EventSessionDisposed}}))
	assert.False(t, MatchesFilter(event, EventFilter{Types: []EventType{EventSessionCreated}}))
	assert.True(t, MatchesFilter(event, EventFilter{Sources: []string{"playermodule"}}))
	assert.False(t, MatchesFilter(event, EventFilter{Sources: []string{"enginemodule"}}))
	assert.True(t, MatchesFilter(event, EventFilter{Tags: []string{"playback"}}))

	high := PriorityHigh
	assert.False(t, MatchesFilter(event, EventFilter{Priority: &high}))
	low := PriorityLow
	assert.True(t, MatchesFilter(event, EventFilter{Priority: &low}))
}
