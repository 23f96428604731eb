package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtree-zedis/zedis-core/errs"
)

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	bus.Publish(ServerSelected{ID: "srv1", DB: 0})
	bus.Publish(KeyScanStarted{ID: "srv1"})
	bus.Publish(KeyScanFinished{ID: "srv1"})

	first := <-sub.Events()
	second := <-sub.Events()
	third := <-sub.Events()

	assert.Equal(t, ServerSelected{ID: "srv1", DB: 0}, first)
	assert.Equal(t, KeyScanStarted{ID: "srv1"}, second)
	assert.Equal(t, KeyScanFinished{ID: "srv1"}, third)
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()
	defer a.Close()
	defer b.Close()

	bus.Publish(KeySelected{Key: "k1"})

	require.Equal(t, Event(KeySelected{Key: "k1"}), <-a.Events())
	require.Equal(t, Event(KeySelected{Key: "k1"}), <-b.Events())
}

func TestUnsubscribedSubscriberGetsNothing(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	sub.Close()

	bus.Publish(KeyDeleted{Key: "k1"})

	select {
	case <-sub.Done():
	default:
		t.Fatal("expected Done to be closed after Close")
	}
	select {
	case ev := <-sub.Events():
		t.Fatalf("expected no event after unsubscribe, got %v", ev)
	default:
	}
}

func TestNewErrorOccurredCarriesKind(t *testing.T) {
	err := errs.New(errs.KindRedis, "connection refused")
	ev := NewErrorOccurred(err)
	assert.Equal(t, errs.KindRedis, ev.Kind)
	assert.Contains(t, ev.Message, "connection refused")
}

func TestPublishDropsWhenSubscriberQueueFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < subscriberQueueDepth+10; i++ {
		bus.Publish(TaskStarted{Kind: "scan"})
	}

	count := 0
	for {
		select {
		case <-sub.Events():
			count++
		default:
			assert.Equal(t, subscriberQueueDepth, count)
			return
		}
	}
}

func TestBusCloseClosesAllSubscriptions(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	bus.Close()

	select {
	case <-sub.Done():
	default:
		t.Fatal("expected Done to be closed after bus Close")
	}
}
