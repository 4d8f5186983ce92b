package engine

import (
	"context"
	"testing"
	"time"

	"spinlog/internal/music"
	"spinlog/internal/scrobbler"
)

// scriptedDeliverer fails identities listed in failures, succeeds otherwise.
type scriptedDeliverer struct {
	failures map[string]bool
	calls    []string
}

func (d *scriptedDeliverer) Scrobble(_ context.Context, snap *music.TrackSnapshot, at time.Time) (scrobbler.Delivered, scrobbler.Outcome) {
	d.calls = append(d.calls, snap.CleanName)
	if d.failures[snap.CleanName] {
		return scrobbler.Delivered{}, scrobbler.Transient
	}
	return scrobbler.Delivered{
		Name:   snap.CleanName,
		Artist: snap.Artist,
		Album:  snap.CleanAlbum,
		At:     at.UTC(),
	}, scrobbler.Ok
}

func pendingTrack(name, artist string) *TrackState {
	state := NewTrackState(&music.TrackSnapshot{
		Name:      name,
		Artist:    artist,
		CleanName: name,
		Playing:   true,
	})
	state.PendingDelivery = true
	state.ReadyAt = time.Now()
	return state
}

func TestLedger_AddPending_Idempotent(t *testing.T) {
	l := NewLedger()

	if !l.AddPending(pendingTrack("Roygbiv", "Boards of Canada")) {
		t.Error("first AddPending should report insertion")
	}
	if l.AddPending(pendingTrack("Roygbiv", "Boards of Canada")) {
		t.Error("second AddPending for the same identity should be a no-op")
	}
	if got := l.PendingCount(); got != 1 {
		t.Errorf("expected 1 pending, got %d", got)
	}

	l.AddPending(pendingTrack("Aquarius", "Boards of Canada"))
	if got := l.PendingCount(); got != 2 {
		t.Errorf("expected 2 pending, got %d", got)
	}
}

func TestLedger_DrainPending_Order(t *testing.T) {
	l := NewLedger()
	l.AddPending(pendingTrack("First", "A"))
	l.AddPending(pendingTrack("Second", "B"))
	l.AddPending(pendingTrack("Third", "C"))

	d := &scriptedDeliverer{}
	drained := l.DrainPending(context.Background(), d)

	if len(drained) != 3 {
		t.Errorf("expected 3 delivered, got %d", len(drained))
	}
	want := []string{"First", "Second", "Third"}
	for i, name := range want {
		if d.calls[i] != name {
			t.Errorf("call %d: expected %s, got %s", i, name, d.calls[i])
		}
	}
	if l.PendingCount() != 0 {
		t.Errorf("expected empty pending queue, got %d", l.PendingCount())
	}
	if len(l.Delivered()) != 3 {
		t.Errorf("expected 3 delivered records, got %d", len(l.Delivered()))
	}
}

func TestLedger_DrainPending_PartialFailure(t *testing.T) {
	l := NewLedger()
	l.AddPending(pendingTrack("First", "A"))
	l.AddPending(pendingTrack("Second", "B"))
	l.AddPending(pendingTrack("Third", "C"))

	d := &scriptedDeliverer{failures: map[string]bool{"Second": true}}
	drained := l.DrainPending(context.Background(), d)

	if len(drained) != 2 {
		t.Errorf("expected 2 delivered, got %d", len(drained))
	}
	if l.PendingCount() != 1 {
		t.Errorf("expected 1 still pending, got %d", l.PendingCount())
	}

	// A track is delivered exactly when it is no longer pending.
	for _, rec := range l.Delivered() {
		if rec.Name == "Second" {
			t.Error("failed item must not appear in delivered")
		}
	}
}

func TestLedger_DrainPending_CancelledContext(t *testing.T) {
	l := NewLedger()
	l.AddPending(pendingTrack("First", "A"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &scriptedDeliverer{}
	if drained := l.DrainPending(ctx, d); len(drained) != 0 {
		t.Errorf("expected 0 delivered under cancelled context, got %d", len(drained))
	}
	if len(d.calls) != 0 {
		t.Errorf("expected no delivery attempts, got %d", len(d.calls))
	}
}

func TestLedger_Stats(t *testing.T) {
	l := NewLedger()
	now := time.Now()
	l.AddScrobble(scrobbler.Delivered{Name: "Roygbiv", Artist: "Boards of Canada", At: now})
	l.AddScrobble(scrobbler.Delivered{Name: "Roygbiv", Artist: "Boards of Canada", At: now})
	l.AddScrobble(scrobbler.Delivered{Name: "Percolator", Artist: "Stereolab", At: now})
	l.AddPending(pendingTrack("Aquarius", "Boards of Canada"))

	stats := l.Stats()
	if stats.Total != 3 {
		t.Errorf("expected total 3, got %d", stats.Total)
	}
	if stats.ArtistCounts["Boards of Canada"] != 2 {
		t.Errorf("expected 2 plays for Boards of Canada, got %d", stats.ArtistCounts["Boards of Canada"])
	}
	if stats.ArtistCounts["Stereolab"] != 1 {
		t.Errorf("expected 1 play for Stereolab, got %d", stats.ArtistCounts["Stereolab"])
	}
	if len(stats.RepeatSongs) != 1 {
		t.Errorf("expected 1 repeat song, got %d", len(stats.RepeatSongs))
	}
	if stats.Pending != 1 {
		t.Errorf("expected 1 pending, got %d", stats.Pending)
	}
}
