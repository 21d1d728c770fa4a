// Package idle tracks user activity reported by UI shells and the settings watcher.
package idle

import (
	"sync"
	"time"

	"github.com/harmonia-vision/harmonia/internal/clock"
)

// Tracker implements model.IdleSource from explicit activity reports.
type Tracker struct {
	mu    sync.Mutex
	clock clock.Clock
	last  time.Time
}

// NewTracker returns a Tracker that considers the user active now.
func NewTracker(c clock.Clock) *Tracker {
	if c == nil {
		c = clock.Real{}
	}
	return &Tracker{clock: c, last: c.Now()}
}

// Touch records activity at the current time.
func (t *Tracker) Touch() {
	t.mu.Lock()
	t.last = t.clock.Now()
	t.mu.Unlock()
}

// LastActivity returns the time of the most recent Touch.
func (t *Tracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// IdleFor returns the time since the last recorded activity.
func (t *Tracker) IdleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.clock.Now().Sub(t.last)
	if d < 0 {
		return 0
	}
	return d
}
