package engine

import (
	"context"
	"sync"
	"time"

	"spinlog/internal/music"
	"spinlog/internal/scrobbler"
)

// Deliverer is the slice of the Last.fm facade the ledger needs to retry
// pending items.
type Deliverer interface {
	Scrobble(ctx context.Context, snap *music.TrackSnapshot, at time.Time) (scrobbler.Delivered, scrobbler.Outcome)
}

// Ledger tracks what this process has scrobbled and what is still owed.
// It lives for the process lifetime and never returns delivery errors;
// failed items simply stay pending.
type Ledger struct {
	mu        sync.Mutex
	delivered []scrobbler.Delivered
	pending   []*TrackState
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// AddScrobble records a successful delivery.
func (l *Ledger) AddScrobble(d scrobbler.Delivered) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delivered = append(l.delivered, d)
}

// AddPending queues a play instance whose delivery failed. Adding an
// identity that is already pending is a no-op; the first instance wins.
func (l *Ledger) AddPending(state *TrackState) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, p := range l.pending {
		if p.SameIdentity(&state.Snapshot) {
			return false
		}
	}
	l.pending = append(l.pending, state)
	return true
}

// RemovePending drops the pending entry with the given identity, if any.
func (l *Ledger) RemovePending(cleanName, artist string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(cleanName, artist)
}

func (l *Ledger) removeLocked(cleanName, artist string) {
	for i, p := range l.pending {
		if p.Snapshot.CleanName == cleanName && p.Snapshot.Artist == artist {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
	}
}

// PendingCount returns the number of queued items.
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Delivered returns a copy of the delivered sequence, oldest first.
func (l *Ledger) Delivered() []scrobbler.Delivered {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]scrobbler.Delivered, len(l.delivered))
	copy(out, l.delivered)
	return out
}

// DrainPending retries every pending item in insertion order and returns
// the instances that were delivered. The ledger only updates queue
// membership; the caller marks the instances themselves under whatever
// lock guards them. Per-item failures leave the item pending and move on
// to the next; a cancelled context stops the walk.
func (l *Ledger) DrainPending(ctx context.Context, client Deliverer) []*TrackState {
	l.mu.Lock()
	items := make([]*TrackState, len(l.pending))
	copy(items, l.pending)
	l.mu.Unlock()

	var drained []*TrackState
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		snap := item.Snapshot
		at := item.ReadyAt
		if at.IsZero() {
			at = time.Now()
		}

		rec, outcome := client.Scrobble(ctx, &snap, at)
		if outcome != scrobbler.Ok {
			continue
		}

		l.mu.Lock()
		l.removeLocked(snap.CleanName, snap.Artist)
		l.delivered = append(l.delivered, rec)
		l.mu.Unlock()
		drained = append(drained, item)
	}
	return drained
}

// Stats summarizes the session's delivered scrobbles.
type Stats struct {
	Total        int
	ArtistCounts map[string]int
	RepeatSongs  map[string]int // identity -> plays, only entries with more than one
	Pending      int
}

// Stats returns session counters derived from the ledger.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{
		Total:        len(l.delivered),
		ArtistCounts: make(map[string]int),
		RepeatSongs:  make(map[string]int),
		Pending:      len(l.pending),
	}

	plays := make(map[string]int)
	for _, d := range l.delivered {
		stats.ArtistCounts[d.Artist]++
		plays[d.Name+" - "+d.Artist]++
	}
	for song, n := range plays {
		if n > 1 {
			stats.RepeatSongs[song] = n
		}
	}
	return stats
}
