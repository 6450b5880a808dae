package worker

import (
	"sort"
	"sync"
	"time"

	"siteworks/internal/models"
)

const maxBackoff = time.Hour

type backoffEntry struct {
	failures int
	retryAt  time.Time
}

// retryBackoff holds back alerts whose last delivery failed: 2^n minutes
// after the n-th consecutive failure, never more than maxBackoff.
type retryBackoff struct {
	mu      sync.Mutex
	entries map[int]backoffEntry
}

func newRetryBackoff() *retryBackoff {
	return &retryBackoff{entries: make(map[int]backoffEntry)}
}

func (b *retryBackoff) fail(alertID int, now time.Time) backoffEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entries[alertID]
	e.failures++
	// 2^7 minutes already exceeds the cap
	e.retryAt = now.Add(min(time.Minute<<min(e.failures, 7), maxBackoff))
	b.entries[alertID] = e
	return e
}

func (b *retryBackoff) clear(alertID int) {
	b.mu.Lock()
	delete(b.entries, alertID)
	b.mu.Unlock()
}

// waiting lists alerts whose retry time has not come yet
func (b *retryBackoff) waiting(now time.Time) []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []int
	for id, e := range b.entries {
		if now.Before(e.retryAt) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// prune forgets alerts that are ready for a retry but were not due this pass:
// they were resolved or reminded elsewhere.
func (b *retryBackoff) prune(due []models.AlertReminder, now time.Time) {
	seen := make(map[int]struct{}, len(due))
	for _, r := range due {
		seen[r.Alert.ID] = struct{}{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, e := range b.entries {
		if _, ok := seen[id]; !ok && !now.Before(e.retryAt) {
			delete(b.entries, id)
		}
	}
}

func (b *retryBackoff) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
