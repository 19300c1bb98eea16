package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps a sliding window of prediction durations and
// serves percentile queries over it. Old samples are evicted once the
// window is full, so the reported percentiles track recent behaviour.
type LatencyTracker struct {
	mu      sync.RWMutex
	window  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a tracker holding up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{maxSize: maxSize}
}

// Observe records one duration, evicting the oldest sample when full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.window = append(l.window, d)
	if len(l.window) > l.maxSize {
		copy(l.window[0:], l.window[1:])
		l.window = l.window[:l.maxSize]
	}
}

// Percentile returns the duration at percentile p (0-100), or zero when
// no samples have been recorded yet.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.window) == 0 {
		return 0
	}

	sorted := append([]time.Duration(nil), l.window...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	index := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[index]
}

// Count returns the number of samples currently in the window.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.window)
}
