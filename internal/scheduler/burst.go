// File: internal/scheduler/burst.go
package scheduler

import "time"

// burstWindow is a sliding window of recent key-press timestamps, used to
// classify typing as sparse or rapid. Entries older than the window are
// pruned on every access. Not safe for concurrent use; the scheduler mutex
// guards it.
type burstWindow struct {
	window time.Duration
	times  []time.Time
}

func newBurstWindow(window time.Duration) *burstWindow {
	return &burstWindow{window: window}
}

// Add prunes stale entries and records a new key press at now.
func (b *burstWindow) Add(now time.Time) {
	b.prune(now)
	b.times = append(b.times, now)
}

// Len prunes stale entries and returns the number of presses inside the
// window.
func (b *burstWindow) Len(now time.Time) int {
	b.prune(now)
	return len(b.times)
}

// Reset clears the window. Called after a successful idle capture so the next
// burst starts from a clean slate.
func (b *burstWindow) Reset() {
	b.times = b.times[:0]
}

func (b *burstWindow) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	keep := b.times[:0]
	for _, t := range b.times {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	b.times = keep
}
