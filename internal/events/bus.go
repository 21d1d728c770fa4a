// Package events fans state-change notifications out to UI shells.
package events

import (
	"sync"

	"github.com/harmonia-vision/harmonia/internal/model"
)

// Kind names an event stream.
type Kind string

const (
	FullStateChanged  Kind = "fullStateChanged"
	PauseStateChanged Kind = "pauseStateChanged"
)

// Event is one notification. Exactly one payload field is set, matching Kind.
type Event struct {
	Kind  Kind              `json:"kind"`
	Full  *model.FullState  `json:"full,omitempty"`
	Pause *model.PauseState `json:"pause,omitempty"`
}

// Bus delivers events synchronously to subscribers in registration order.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID int
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a func that removes it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// PublishFull sends a fullStateChanged event.
func (b *Bus) PublishFull(s model.FullState) {
	b.publish(Event{Kind: FullStateChanged, Full: &s})
}

// PublishPause sends a pauseStateChanged event.
func (b *Bus) PublishPause(s model.PauseState) {
	b.publish(Event{Kind: PauseStateChanged, Pause: &s})
}

func (b *Bus) publish(ev Event) {
	b.mu.RLock()
	subs := make([]subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
