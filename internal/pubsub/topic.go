// Package pubsub provides the change-notification primitive shared by the
// client stores: a list of callbacks with deterministic, idempotent
// unsubscribe.
package pubsub

import "sync"

// Topic delivers notifications synchronously to its subscribers in
// subscription order. The zero value is ready to use.
type Topic struct {
	mu   sync.Mutex
	next uint64
	subs []subscription
}

type subscription struct {
	id uint64
	fn func()
}

// Subscribe registers fn and returns a function that removes exactly this
// registration. Subscribing the same function twice yields two independent
// registrations. Calling the returned function more than once is a no-op.
func (t *Topic) Subscribe(fn func()) (unsubscribe func()) {
	t.mu.Lock()
	t.next++
	id := t.next
	t.subs = append(t.subs, subscription{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.subs {
		if s.id == id {
			// copy so a Notify iterating an older slice is not affected
			subs := make([]subscription, 0, len(t.subs)-1)
			subs = append(subs, t.subs[:i]...)
			t.subs = append(subs, t.subs[i+1:]...)
			return
		}
	}
}

// Notify calls every current subscriber. The lock is not held while the
// callbacks run, so a callback may subscribe or unsubscribe.
func (t *Topic) Notify() {
	t.mu.Lock()
	subs := t.subs
	t.mu.Unlock()

	for _, s := range subs {
		s.fn()
	}
}

// Len returns the number of active subscriptions.
func (t *Topic) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}
