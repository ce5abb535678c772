package broadcast

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/apibillme/biller/internal/domain"
	"github.com/apibillme/biller/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second  // actor command timeout
	stopTimeout    = 10 * time.Second // graceful shutdown timeout

	// subscriberBufferSize bounds the per-subscriber queue. Generous on
	// purpose: a subscriber that falls this far behind is evicted rather
	// than allowed to block delivery to anyone else.
	subscriberBufferSize = 256
)

// broadcasterCmd is the command interface for the Broadcaster actor.
type broadcasterCmd interface{ isBroadcasterCmd() }

type baseBroadcasterCmd struct{}

func (baseBroadcasterCmd) isBroadcasterCmd() {}

type subscribeCmd struct {
	baseBroadcasterCmd
	label        string
	seed         []byte
	replyChannel chan *Subscriber
}

type unsubscribeCmd struct {
	baseBroadcasterCmd
	id uuid.UUID
}

type publishCmd struct {
	baseBroadcasterCmd
	event domain.Event
}

type countCmd struct {
	baseBroadcasterCmd
	replyChannel chan int
}

type stopCmd struct {
	baseBroadcasterCmd
}

// Broadcaster fans published events out to all live subscribers.
// All registry state is owned by a single goroutine fed from cmdCh,
// which serializes subscribe against publish: a subscriber never sees
// events published before its registration, and its seed event is
// always first.
type Broadcaster struct {
	cmdCh       chan broadcasterCmd
	clock       clockwork.Clock
	subscribers map[uuid.UUID]*Subscriber
	done        chan struct{}
	stopTimeout time.Duration
}

// NewBroadcaster creates a broadcaster and starts its actor goroutine.
func NewBroadcaster(clock clockwork.Clock) *Broadcaster {
	b := &Broadcaster{
		cmdCh:       make(chan broadcasterCmd, 256),
		clock:       clock,
		subscribers: make(map[uuid.UUID]*Subscriber),
		done:        make(chan struct{}),
		stopTimeout: stopTimeout,
	}
	go b.run()
	return b
}

// Subscribe registers a new subscriber whose stream starts with a seed
// event carrying the given value under the given label. Registration
// itself always succeeds; an error is returned only if the actor fails
// to answer within the command timeout.
func (b *Broadcaster) Subscribe(label string, seed []byte) (*Subscriber, error) {
	replyCh := make(chan *Subscriber, 1)
	b.cmdCh <- subscribeCmd{label: label, seed: seed, replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case sub := <-replyCh:
		return sub, nil
	case <-timer.Chan():
		return nil, fmt.Errorf("subscribe command timed out after %v", commandTimeout)
	}
}

// Unsubscribe removes a subscriber and closes its event channel.
// Idempotent: removing an already-removed subscriber is a no-op.
func (b *Broadcaster) Unsubscribe(sub *Subscriber) {
	b.cmdCh <- unsubscribeCmd{id: sub.id}
}

// Publish enqueues the event on every live subscriber. Fire-and-forget:
// it never fails as a whole, and per-subscriber delivery failures only
// remove that subscriber.
func (b *Broadcaster) Publish(name string, data []byte) {
	b.cmdCh <- publishCmd{event: domain.Event{Name: name, Data: data}}
	metrics.BroadcastEventsPublished.Inc()
}

// Count returns the number of live subscribers, or -1 if the command
// times out.
func (b *Broadcaster) Count() int {
	replyCh := make(chan int, 1)
	b.cmdCh <- countCmd{replyChannel: replyCh}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("Count timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the broadcaster, closing all subscriber channels.
// Blocks until the actor goroutine has exited or the timeout is reached.
func (b *Broadcaster) Stop() {
	b.cmdCh <- stopCmd{}

	timer := b.clock.NewTimer(b.stopTimeout)
	defer timer.Stop()

	select {
	case <-b.done:
		slog.Info("Broadcaster stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Broadcaster stop timeout exceeded", "timeout", b.stopTimeout)
	}
}

func (b *Broadcaster) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcaster panic recovered", "panic", r)
			b.closeAll()
		}
	}()
	defer close(b.done)

	for cmd := range b.cmdCh {
		switch c := cmd.(type) {
		case subscribeCmd:
			b.handleSubscribe(c)
		case unsubscribeCmd:
			b.handleUnsubscribe(c.id)
		case publishCmd:
			b.handlePublish(c.event)
		case countCmd:
			c.replyChannel <- len(b.subscribers)
		case stopCmd:
			b.closeAll()
			return
		default:
			slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (b *Broadcaster) handleSubscribe(c subscribeCmd) {
	events := make(chan domain.Event, subscriberBufferSize)
	// the buffer is fresh, so the seed send can never block
	events <- domain.Event{Name: c.label, Data: c.seed}

	sub := &Subscriber{id: uuid.New(), events: events}
	b.subscribers[sub.id] = sub

	metrics.BroadcastActiveSubscribers.Set(float64(len(b.subscribers)))
	slog.Debug("Subscriber registered", "subscriber_id", sub.id.String(), "total_subscribers", len(b.subscribers))
	c.replyChannel <- sub
}

func (b *Broadcaster) handleUnsubscribe(id uuid.UUID) {
	sub, exists := b.subscribers[id]
	if !exists {
		return
	}

	close(sub.events)
	delete(b.subscribers, id)

	metrics.BroadcastActiveSubscribers.Set(float64(len(b.subscribers)))
	slog.Debug("Subscriber removed", "subscriber_id", id.String(), "remaining_subscribers", len(b.subscribers))
}

func (b *Broadcaster) handlePublish(ev domain.Event) {
	var slow []uuid.UUID
	for id, sub := range b.subscribers {
		select {
		case sub.events <- ev:
		default:
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		slog.Warn("Evicting slow subscriber", "subscriber_id", id.String())
		metrics.BroadcastSlowSubscribersEvicted.Inc()
		b.handleUnsubscribe(id)
	}
}

func (b *Broadcaster) closeAll() {
	slog.Info("Broadcaster shutting down", "subscribers", len(b.subscribers))
	for id, sub := range b.subscribers {
		close(sub.events)
		delete(b.subscribers, id)
	}
	metrics.BroadcastActiveSubscribers.Set(0)
}
