// Package events implements spec §4.13: the typed domain event bus GUI
// consumers subscribe to. Grounded on the subscribe/Events()/Done()
// watcher idiom used throughout the teacher's resource watchers.
package events

import (
	"sync"

	"github.com/bigtree-zedis/zedis-core/errs"
)

// Event is the marker interface every published event satisfies.
type Event interface {
	isEvent()
}

type baseEvent struct{}

func (baseEvent) isEvent() {}

// ServerSelected fires when the active server/db pair changes.
type ServerSelected struct {
	baseEvent
	ID string
	DB int
}

// ServerInfoUpdated fires when a server's topology/access-mode snapshot
// (clientmanager.Client) is refreshed.
type ServerInfoUpdated struct {
	baseEvent
	ID string
}

// ServerRedisInfoUpdated fires when a server's INFO-derived version/stats
// snapshot is refreshed.
type ServerRedisInfoUpdated struct {
	baseEvent
	ID string
}

// KeyScanStarted fires when a fresh SCAN pass begins for a server.
type KeyScanStarted struct {
	baseEvent
	ID string
}

// KeyScanPaged fires once per SCAN page accumulated into the flat key list.
type KeyScanPaged struct {
	baseEvent
	ID string
}

// KeyScanFinished fires when a SCAN pass terminates (cursor vector zero or
// the 1,000-key responsiveness cap was hit).
type KeyScanFinished struct {
	baseEvent
	ID string
}

// KeySelected fires when the user picks a key to view/edit.
type KeySelected struct {
	baseEvent
	Key string
}

// KeyDeleted fires after a successful DEL.
type KeyDeleted struct {
	baseEvent
	Key string
}

// ValueLoaded fires after a key's value finishes its initial load.
type ValueLoaded struct {
	baseEvent
	Key string
}

// ValueUpdated fires after a successful in-place value mutation (SET/LSET/
// HSET/ZADD/...).
type ValueUpdated struct {
	baseEvent
	Key string
}

// ValueAdded fires after a new member/field is added to a collection value.
type ValueAdded struct {
	baseEvent
	Key string
}

// ValuePaginationFinished fires when a collection value's "load more"
// pathway reaches the end of its pages.
type ValuePaginationFinished struct {
	baseEvent
	Key string
}

// ErrorMessage is the machine-readable payload of ErrorOccurred.
type ErrorMessage struct {
	Kind    errs.Kind
	Message string
}

// ErrorOccurred fires on any terminal failure of a user-initiated
// operation, per spec §4.12's failure-recovery rule.
type ErrorOccurred struct {
	baseEvent
	ErrorMessage
}

// NewErrorOccurred builds an ErrorOccurred event from err, tagging it with
// err's machine-readable Kind via errs.KindOf.
func NewErrorOccurred(err error) ErrorOccurred {
	return ErrorOccurred{ErrorMessage: ErrorMessage{Kind: errs.KindOf(err), Message: err.Error()}}
}

// TerminalToggled fires when the embedded terminal panel is shown/hidden.
type TerminalToggled struct {
	baseEvent
	On bool
}

// TaskStarted fires when a long-running, cancellable operation is spawned.
type TaskStarted struct {
	baseEvent
	Kind string
}

// subscriberQueueDepth bounds how far a slow subscriber can fall behind
// before Publish starts dropping events for it rather than blocking the
// publishing task.
const subscriberQueueDepth = 256

// Subscription is a live event feed returned by Bus.Subscribe. The Events()
// channel is never closed; Done() is closed once the subscription has been
// removed by Close or by the bus shutting down.
type Subscription struct {
	bus  *Bus
	ch   chan Event
	done chan struct{}
}

// Events returns the channel events are delivered on.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Done is closed once the subscription has been removed from its bus.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close unsubscribes s from its bus. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

// Bus fans out published events to every live subscriber, in emission
// order, from within the Publish call itself (spec §4.13: "emission is
// from within the task that caused the state change" — no intermediate
// queueing goroutine).
type Bus struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{subscribers: map[*Subscription]struct{}{}}
}

// Subscribe registers a new feed. The caller must Close it when done.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		ch:   make(chan Event, subscriberQueueDepth),
		done: make(chan struct{}),
	}
	sub.bus = b

	b.mu.Lock()
	b.subscribers[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	_, ok := b.subscribers[sub]
	delete(b.subscribers, sub)
	b.mu.Unlock()
	if ok {
		close(sub.done)
	}
}

// Publish delivers ev to every current subscriber. A subscriber whose
// queue is full has the event dropped rather than stalling the publisher;
// this trades a gap in a slow UI consumer's feed for the ordering/
// liveness guarantee every other subscriber and the core itself depends
// on.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Close unsubscribes every live subscriber.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		delete(b.subscribers, sub)
		close(sub.done)
	}
}
