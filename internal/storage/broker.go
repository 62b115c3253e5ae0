package storage

import (
	"context"
	"log/slog"
	"sync"
)

// Loader re-runs a subscribed query.
type Loader func(ctx context.Context) ([]Record, error)

// Broker fans collection changes out to subscribers. Backends call Notify
// after every committed write; each subscriber then re-runs its query and
// receives the full result. Notifications that arrive while a subscriber is
// busy are coalesced into one re-query.
type Broker struct {
	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool
	wg     sync.WaitGroup
}

type subscription struct {
	coll   Collection
	load   Loader
	wake   chan struct{}
	out    chan Snapshot
	cancel context.CancelFunc
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*subscription]struct{})}
}

// Subscribe registers a subscriber for c. The first snapshot is delivered
// immediately. The returned channel is closed when ctx is done or the broker
// is closed.
func (b *Broker) Subscribe(ctx context.Context, c Collection, load Loader) (<-chan Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{
		coll:   c,
		load:   load,
		wake:   make(chan struct{}, 1),
		out:    make(chan Snapshot),
		cancel: cancel,
	}
	sub.wake <- struct{}{}

	key := c.String()
	if b.subs[key] == nil {
		b.subs[key] = make(map[*subscription]struct{})
	}
	b.subs[key][sub] = struct{}{}

	b.wg.Add(1)
	go b.run(ctx, sub)
	return sub.out, nil
}

func (b *Broker) run(ctx context.Context, sub *subscription) {
	defer b.wg.Done()
	defer close(sub.out)
	defer b.remove(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.wake:
		}

		records, err := sub.load(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			slog.Warn("Subscription query failed", "collection", sub.coll.String(), "error", err)
		}
		snap := Snapshot{Collection: sub.coll, Records: records, Err: err}

		select {
		case <-ctx.Done():
			return
		case sub.out <- snap:
		}
	}
}

func (b *Broker) remove(sub *subscription) {
	sub.cancel()
	b.mu.Lock()
	defer b.mu.Unlock()
	key := sub.coll.String()
	delete(b.subs[key], sub)
	if len(b.subs[key]) == 0 {
		delete(b.subs, key)
	}
}

// Notify wakes every subscriber of c.
func (b *Broker) Notify(c Collection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[c.String()] {
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

// Close ends every subscription and waits for their goroutines to exit.
func (b *Broker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			sub.cancel()
		}
	}
	b.mu.Unlock()
	b.wg.Wait()
}
