package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"spinlog/internal/music"
	"spinlog/internal/scrobbler"
	"spinlog/pkg/lastfm"
)

// fakePoller replays a scripted snapshot sequence; the last entry repeats.
type fakePoller struct {
	mu    sync.Mutex
	queue []*music.TrackSnapshot
}

func (p *fakePoller) Poll(context.Context) (*music.TrackSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, nil
	}
	next := p.queue[0]
	if len(p.queue) > 1 {
		p.queue = p.queue[1:]
	}
	if next == nil {
		return nil, nil
	}
	copied := *next
	return &copied, nil
}

func (p *fakePoller) push(s *music.TrackSnapshot, times int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < times; i++ {
		p.queue = append(p.queue, s)
	}
}

type fakeClient struct {
	mu              sync.Mutex
	delivered       []scrobbler.Delivered
	nowPlayingCalls int
	scrobbleOutcome scrobbler.Outcome
	npOutcome       scrobbler.Outcome
	album           *lastfm.AlbumInfo
}

func (c *fakeClient) Scrobble(_ context.Context, snap *music.TrackSnapshot, at time.Time) (scrobbler.Delivered, scrobbler.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scrobbleOutcome != scrobbler.Ok {
		return scrobbler.Delivered{}, c.scrobbleOutcome
	}
	d := scrobbler.Delivered{
		Name:   snap.CleanName,
		Artist: snap.Artist,
		Album:  snap.CleanAlbum,
		At:     at.UTC(),
	}
	c.delivered = append(c.delivered, d)
	return d, scrobbler.Ok
}

func (c *fakeClient) UpdateNowPlaying(context.Context, *music.TrackSnapshot) scrobbler.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowPlayingCalls++
	return c.npOutcome
}

func (c *fakeClient) AlbumInfo(context.Context, string, string, bool, bool) (*lastfm.AlbumInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.album == nil {
		return nil, &lastfm.Error{Code: lastfm.ErrCodeInvalidParameters, Message: "not found"}
	}
	return c.album, nil
}

func (c *fakeClient) deliveredCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.delivered)
}

type fakeProbe struct {
	mu sync.Mutex
	up bool
}

func (p *fakeProbe) Up(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.up
}

func (p *fakeProbe) set(up bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.up = up
}

func testSnapshot(name, artist string, playing bool, duration time.Duration) *music.TrackSnapshot {
	return &music.TrackSnapshot{
		Name:      name,
		Artist:    artist,
		CleanName: music.CleanTitle(name),
		Playing:   playing,
		Duration:  duration,
		Source:    music.SourceAppleMusic,
	}
}

func newTestEngine(poller *fakePoller, client *fakeClient, probe *fakeProbe) *Engine {
	return New(Options{
		Poller:          poller,
		Client:          client,
		Probe:           probe,
		Logger:          zerolog.Nop(),
		ScrobbleEnabled: true,
	})
}

func tick(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Tick(context.Background())
	}
}

func TestEngine_ShortTrackScrobblesAtHalf(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Short Song", "Artist", true, 100*time.Second), 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 49)
	if got := client.deliveredCount(); got != 0 {
		t.Fatalf("expected no scrobble before threshold, got %d", got)
	}

	tick(e, 1) // time_played reaches 50 = round(100/2)
	if got := client.deliveredCount(); got != 1 {
		t.Fatalf("expected exactly one scrobble at threshold, got %d", got)
	}
	if e.Status() != "Scrobbled" {
		t.Errorf("expected status Scrobbled, got %q", e.Status())
	}

	// The same play instance must never scrobble twice.
	tick(e, 100)
	if got := client.deliveredCount(); got != 1 {
		t.Errorf("expected still one scrobble after more ticks, got %d", got)
	}
}

func TestEngine_LongTrackCappedAtTwoMinutes(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Long Song", "Artist", true, 600*time.Second), 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 119)
	if got := client.deliveredCount(); got != 0 {
		t.Fatalf("expected no scrobble before 120s cap, got %d", got)
	}
	tick(e, 1)
	if got := client.deliveredCount(); got != 1 {
		t.Fatalf("expected scrobble at 120s, got %d", got)
	}
}

func TestEngine_PauseSuspendsPlayTime(t *testing.T) {
	playing := testSnapshot("Song", "Artist", true, 200*time.Second)
	paused := testSnapshot("Song", "Artist", false, 200*time.Second)

	poller := &fakePoller{}
	poller.push(playing, 40)
	poller.push(paused, 10)
	poller.push(playing, 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 40)
	v := e.View()
	if v.Track == nil || v.Track.TimePlayed != 40 {
		t.Fatalf("expected 40s played, got %+v", v.Track)
	}

	tick(e, 10) // paused ticks
	v = e.View()
	if v.Track.TimePlayed != 40 {
		t.Errorf("play time must not advance while paused, got %d", v.Track.TimePlayed)
	}
	if e.Status() != "Paused" {
		t.Errorf("expected status Paused, got %q", e.Status())
	}

	// Threshold for 200s is 100s; 60 more playing ticks get there.
	tick(e, 59)
	if got := client.deliveredCount(); got != 0 {
		t.Fatalf("expected no scrobble at 99s played, got %d", got)
	}
	tick(e, 1)
	if got := client.deliveredCount(); got != 1 {
		t.Errorf("expected scrobble once 100s of play accumulated, got %d", got)
	}
}

func TestEngine_TrackChangeDiscardsInstance(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song A", "Artist", true, 200*time.Second), 30)
	poller.push(testSnapshot("Song B", "Artist", true, 200*time.Second), 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 31)

	if got := client.deliveredCount(); got != 0 {
		t.Errorf("expected no scrobble for the abandoned track, got %d", got)
	}
	v := e.View()
	if v.Track == nil || v.Track.Snapshot.Name != "Song B" {
		t.Fatalf("expected Song B current, got %+v", v.Track)
	}
	if v.Track.TimePlayed != 1 {
		t.Errorf("expected play time reset on identity change, got %d", v.Track.TimePlayed)
	}
}

func TestEngine_OfflineQueuesThenDrains(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song", "Artist", true, 100*time.Second), 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: false}
	e := newTestEngine(poller, client, probe)

	tick(e, 55)
	if got := client.deliveredCount(); got != 0 {
		t.Fatalf("expected no delivery while offline, got %d", got)
	}
	if e.Ledger().PendingCount() != 1 {
		t.Fatalf("expected track queued, got %d pending", e.Ledger().PendingCount())
	}
	if e.Status() != "Pending (no internet)" {
		t.Errorf("expected pending status, got %q", e.Status())
	}

	probe.set(true)
	if count := e.DrainPending(context.Background()); count != 1 {
		t.Fatalf("expected drain to deliver 1, got %d", count)
	}

	// P5: delivered exactly once and no longer pending.
	if got := client.deliveredCount(); got != 1 {
		t.Errorf("expected exactly one delivery, got %d", got)
	}
	if e.Ledger().PendingCount() != 0 {
		t.Errorf("expected empty pending queue, got %d", e.Ledger().PendingCount())
	}

	// The instance is settled; further ticks deliver nothing new.
	tick(e, 20)
	if got := client.deliveredCount(); got != 1 {
		t.Errorf("expected no re-delivery after drain, got %d", got)
	}
}

func TestEngine_EmptyPollClearsState(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song", "Artist", true, 100*time.Second), 3)
	poller.push(nil, 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 3)
	if e.View().Track == nil {
		t.Fatal("expected a current track")
	}

	tick(e, 1)
	if e.View().Track != nil {
		t.Error("expected state cleared after empty poll")
	}
	if e.Status() != "Waiting" {
		t.Errorf("expected status Waiting, got %q", e.Status())
	}
}

func TestEngine_ToggleBlocksDelivery(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song", "Artist", true, 100*time.Second), 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	if enabled := e.ToggleScrobbling(); enabled {
		t.Fatal("expected toggle to disable scrobbling")
	}

	tick(e, 60)
	if got := client.deliveredCount(); got != 0 {
		t.Errorf("expected no delivery while disabled, got %d", got)
	}

	if enabled := e.ToggleScrobbling(); !enabled {
		t.Fatal("expected toggle to re-enable scrobbling")
	}
	tick(e, 1)
	if got := client.deliveredCount(); got != 1 {
		t.Errorf("expected delivery after re-enable, got %d", got)
	}
}

func TestEngine_PermanentErrorDisablesSubmission(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song", "Artist", true, 100*time.Second), 1)

	client := &fakeClient{scrobbleOutcome: scrobbler.Permanent}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 60)

	// Submission latched off; flipping the client back to healthy changes
	// nothing for the rest of the process.
	client.mu.Lock()
	client.scrobbleOutcome = scrobbler.Ok
	client.mu.Unlock()

	tick(e, 60)
	if got := client.deliveredCount(); got != 0 {
		t.Errorf("expected no deliveries after permanent error, got %d", got)
	}
}

func TestEngine_ForceScrobble(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song", "Artist", true, 300*time.Second), 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 5) // far below threshold

	if !e.ForceScrobble(context.Background()) {
		t.Fatal("expected force scrobble to succeed")
	}
	if got := client.deliveredCount(); got != 1 {
		t.Fatalf("expected one delivery, got %d", got)
	}

	// Already scrobbled: the guard refuses a second delivery.
	if e.ForceScrobble(context.Background()) {
		t.Error("expected second force scrobble to be refused")
	}
}

func TestEngine_ForceScrobbleConcurrentWithTicks(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song", "Artist", true, 600*time.Second), 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 5)

	// Force-scrobbles race against a free-running tick loop; the engine
	// must serialize them against the tick and deliver the instance at
	// most once.
	done := make(chan struct{})
	go func() {
		defer close(done)
		tick(e, 60)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.ForceScrobble(context.Background())
		}()
	}
	wg.Wait()
	<-done

	if got := client.deliveredCount(); got != 1 {
		t.Errorf("expected exactly one delivery, got %d", got)
	}
}

func TestEngine_NowPlayingPushedOnce(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song", "Artist", true, 300*time.Second), 1)

	client := &fakeClient{}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 10)
	client.mu.Lock()
	calls := client.nowPlayingCalls
	client.mu.Unlock()
	if calls != 1 {
		t.Errorf("expected one now-playing push, got %d", calls)
	}
}

func TestEngine_NowPlayingRetriedAfterTransientFailure(t *testing.T) {
	poller := &fakePoller{}
	poller.push(testSnapshot("Song", "Artist", true, 300*time.Second), 1)

	client := &fakeClient{npOutcome: scrobbler.Transient}
	probe := &fakeProbe{up: true}
	e := newTestEngine(poller, client, probe)

	tick(e, 3)
	client.mu.Lock()
	failed := client.nowPlayingCalls
	client.npOutcome = scrobbler.Ok
	client.mu.Unlock()
	if failed != 3 {
		t.Fatalf("expected a retry per tick while failing, got %d", failed)
	}

	tick(e, 3)
	client.mu.Lock()
	total := client.nowPlayingCalls
	client.mu.Unlock()
	if total != 4 {
		t.Errorf("expected exactly one more push after recovery, got %d total", total)
	}
}
