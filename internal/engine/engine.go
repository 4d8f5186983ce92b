package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"spinlog/internal/music"
	"spinlog/internal/netcheck"
	"spinlog/internal/scrobbler"
	"spinlog/internal/store"
	"spinlog/pkg/lastfm"
)

const (
	// DefaultTickInterval is the poll cadence.
	DefaultTickInterval = 1 * time.Second

	pollTimeout     = 3 * time.Second
	shutdownTimeout = 10 * time.Second
)

// Client is the slice of the Last.fm facade the engine depends on.
type Client interface {
	Deliverer
	UpdateNowPlaying(ctx context.Context, snap *music.TrackSnapshot) scrobbler.Outcome
	AlbumInfo(ctx context.Context, artist, album string, withTracks, withTags bool) (*lastfm.AlbumInfo, error)
}

// ScrobbleStore persists delivered scrobbles for offline analytics.
type ScrobbleStore interface {
	InsertMany(ctx context.Context, scrobbles []store.Scrobble) error
}

// Options configures an Engine.
type Options struct {
	Poller music.Poller
	Client Client
	Probe  netcheck.Probe
	Store  ScrobbleStore // optional; nil disables local persistence
	Logger zerolog.Logger

	// ScrobbleEnabled is the initial position of the user toggle.
	ScrobbleEnabled bool

	// TickInterval overrides the poll cadence; zero means the default.
	TickInterval time.Duration
}

// Engine owns the scrobbling control loop: it polls the player, tracks the
// play in progress, pushes now-playing updates, and delivers scrobbles once
// a track crosses its threshold.
type Engine struct {
	poller   music.Poller
	client   Client
	probe    netcheck.Probe
	store    ScrobbleStore
	ledger   *Ledger
	logger   zerolog.Logger
	interval time.Duration

	// tickMu serializes ticks and the out-of-band delivery paths
	// (ForceScrobble, DrainPending); no two run concurrently even when
	// the API surface triggers one on demand.
	tickMu sync.Mutex

	// mu guards the mutable view fields below. It is never held across a
	// network call.
	mu              sync.RWMutex
	state           *TrackState
	cachedAlbum     *lastfm.AlbumInfo
	scrobbleEnabled bool

	// inFlight prevents overlapping delivery attempts.
	inFlight atomic.Bool

	// submitDisabled latches on the first permanent upstream error;
	// polling continues but nothing is submitted for the rest of the
	// process.
	submitDisabled atomic.Bool
	disableOnce    sync.Once
}

// New builds an Engine from its collaborators.
func New(opts Options) *Engine {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Engine{
		poller:          opts.Poller,
		client:          opts.Client,
		probe:           opts.Probe,
		store:           opts.Store,
		ledger:          NewLedger(),
		logger:          opts.Logger.With().Str("component", "engine").Logger(),
		interval:        interval,
		scrobbleEnabled: opts.ScrobbleEnabled,
	}
}

// Ledger exposes the session ledger to the API surface.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// Run ticks until the context is cancelled, then drains pending scrobbles
// within a bounded window.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info().Dur("interval", e.interval).Msg("engine started")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one iteration of the control loop: poll, compare, apply the
// decision, accumulate play time, and deliver when ready.
func (e *Engine) Tick(ctx context.Context) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	snap := e.pollOnce(ctx)

	e.mu.Lock()
	d := Compare(snap, e.state, e.cachedAlbum)

	if d.NoSongPlaying {
		hadTrack := e.state != nil
		e.state = nil
		e.mu.Unlock()
		if hadTrack {
			e.logger.Info().Msg("playback stopped")
		}
		return
	}

	if d.SongHasChanged {
		e.state = NewTrackState(snap)
		e.logger.Info().
			Str("track", snap.CleanName).
			Str("artist", snap.Artist).
			Str("source", string(snap.Source)).
			Msg("track changed")
	}
	if d.UpdatePlayStatus {
		e.state.Snapshot.Playing = snap.Playing
		e.logger.Debug().Bool("playing", snap.Playing).Msg("play status changed")
	}
	state := e.state
	e.mu.Unlock()

	if d.UpdateAlbumMeta {
		e.refreshAlbum(ctx, snap)
	}

	if d.UpdateNowPlaying && !e.submitDisabled.Load() && e.probe.Up(ctx) {
		switch e.client.UpdateNowPlaying(ctx, &state.Snapshot) {
		case scrobbler.Ok:
			e.mu.Lock()
			state.NowPlayingPushed = true
			e.mu.Unlock()
		case scrobbler.Permanent:
			e.disableSubmission()
		}
		// Transient failures are dropped; the comparator asks again next
		// tick while the track keeps playing.
	}

	e.mu.Lock()
	if e.state != nil && e.state.Snapshot.Playing && !e.state.Scrobbled {
		e.state.TimePlayed++
		if e.state.ReadyAt.IsZero() &&
			scrobbler.ShouldScrobble(e.state.Snapshot.Duration, time.Duration(e.state.TimePlayed)*time.Second) {
			e.state.ReadyAt = time.Now()
		}
	}
	ready := e.state != nil && e.readyLocked(e.state)
	enabled := e.scrobbleEnabled && !e.submitDisabled.Load()
	e.mu.Unlock()

	if ready && enabled {
		e.deliver(ctx, state)
	}
}

// pollOnce queries the poller under its deadline. Any failure reads as
// "nothing playing".
func (e *Engine) pollOnce(ctx context.Context) *music.TrackSnapshot {
	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	snap, err := e.poller.Poll(pollCtx)
	if err != nil {
		e.logger.Info().Err(err).Msg("poll failed")
		return nil
	}
	return snap
}

func (e *Engine) readyLocked(state *TrackState) bool {
	return state.Snapshot.Playing && !state.Scrobbled &&
		scrobbler.ShouldScrobble(state.Snapshot.Duration, time.Duration(state.TimePlayed)*time.Second)
}

// deliver attempts to scrobble the instance, routing failures to the
// pending queue. Guarded so a slow attempt can never overlap the next.
func (e *Engine) deliver(ctx context.Context, state *TrackState) {
	if !e.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer e.inFlight.Store(false)

	if !e.probe.Up(ctx) {
		e.markPending(state)
		return
	}

	// Copy under the lock; a concurrent tick may mutate the instance
	// while the submission is on the wire.
	e.mu.Lock()
	snap := state.Snapshot
	at := state.ReadyAt
	e.mu.Unlock()
	if at.IsZero() {
		at = time.Now()
	}

	delivered, outcome := e.client.Scrobble(ctx, &snap, at)
	switch outcome {
	case scrobbler.Ok:
		e.mu.Lock()
		state.Scrobbled = true
		state.PendingDelivery = false
		e.mu.Unlock()
		e.ledger.RemovePending(snap.CleanName, snap.Artist)
		e.ledger.AddScrobble(delivered)
		e.logger.Info().
			Str("track", delivered.Name).
			Str("artist", delivered.Artist).
			Msg("scrobbled")
		e.persist(ctx, delivered)
	case scrobbler.Transient:
		e.markPending(state)
	case scrobbler.Permanent:
		e.disableSubmission()
	}
}

func (e *Engine) markPending(state *TrackState) {
	e.mu.Lock()
	state.PendingDelivery = true
	e.mu.Unlock()
	if e.ledger.AddPending(state) {
		e.logger.Warn().
			Str("track", state.Snapshot.CleanName).
			Str("artist", state.Snapshot.Artist).
			Msg("delivery deferred, track queued")
	}
}

// persist writes a delivered scrobble to the local store. Store problems
// never affect delivery.
func (e *Engine) persist(ctx context.Context, d scrobbler.Delivered) {
	if e.store == nil {
		return
	}
	err := e.store.InsertMany(ctx, []store.Scrobble{{
		TrackName:   d.Name,
		ArtistName:  d.Artist,
		AlbumName:   d.Album,
		ScrobbledAt: d.At,
	}})
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to persist scrobble locally")
	}
}

func (e *Engine) refreshAlbum(ctx context.Context, snap *music.TrackSnapshot) {
	if snap.Album == "" {
		e.mu.Lock()
		e.cachedAlbum = nil
		e.mu.Unlock()
		return
	}

	album, err := e.client.AlbumInfo(ctx, snap.Artist, snap.Album, true, true)
	if err != nil {
		e.logger.Debug().Err(err).Str("album", snap.Album).Msg("album lookup failed")
		return
	}
	e.mu.Lock()
	e.cachedAlbum = album
	e.mu.Unlock()
}

func (e *Engine) disableSubmission() {
	e.submitDisabled.Store(true)
	e.disableOnce.Do(func() {
		e.logger.Error().Msg("permanent Last.fm error, submissions disabled for this process")
	})
}

// shutdown runs the final pending drain within the shutdown window.
// Whatever fails to deliver is discarded with a warning.
func (e *Engine) shutdown() {
	pending := e.ledger.PendingCount()
	if pending == 0 || e.submitDisabled.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	e.logger.Info().Int("pending", pending).Msg("draining pending scrobbles before shutdown")
	delivered := e.DrainPending(ctx)
	if left := e.ledger.PendingCount(); left > 0 {
		e.logger.Warn().Int("discarded", left).Msg("pending scrobbles not delivered before shutdown")
	} else {
		e.logger.Info().Int("delivered", delivered).Msg("pending scrobbles drained")
	}
}

// DrainPending retries queued scrobbles now, if the network is reachable.
// Serialized against ticks and the engine's own delivery attempts.
func (e *Engine) DrainPending(ctx context.Context) int {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	if !e.inFlight.CompareAndSwap(false, true) {
		return 0
	}
	defer e.inFlight.Store(false)

	if !e.probe.Up(ctx) {
		return 0
	}

	drained := e.ledger.DrainPending(ctx, e.client)
	if len(drained) > 0 {
		e.mu.Lock()
		for _, item := range drained {
			item.Scrobbled = true
			item.PendingDelivery = false
		}
		e.mu.Unlock()

		e.logger.Info().Int("count", len(drained)).Msg("pending scrobbles delivered")
		delivered := e.ledger.Delivered()
		for _, d := range delivered[len(delivered)-len(drained):] {
			e.persist(ctx, d)
		}
	}
	return len(drained)
}

// ForceScrobble delivers the current track immediately, regardless of play
// time. The usual guards apply: a track is delivered at most once and
// nothing is sent while submissions are disabled.
func (e *Engine) ForceScrobble(ctx context.Context) bool {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	e.mu.Lock()
	state := e.state
	enabled := e.scrobbleEnabled && !e.submitDisabled.Load()
	if state == nil || state.Scrobbled || !enabled {
		e.mu.Unlock()
		return false
	}
	if state.ReadyAt.IsZero() {
		state.ReadyAt = time.Now()
	}
	e.mu.Unlock()

	e.deliver(ctx, state)

	e.mu.RLock()
	defer e.mu.RUnlock()
	return state.Scrobbled
}

// ToggleScrobbling flips the user-facing toggle and returns the new value.
func (e *Engine) ToggleScrobbling() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scrobbleEnabled = !e.scrobbleEnabled
	e.logger.Info().Bool("enabled", e.scrobbleEnabled).Msg("scrobbling toggled")
	return e.scrobbleEnabled
}

// ScrobblingEnabled reports the position of the user-facing toggle.
func (e *Engine) ScrobblingEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.scrobbleEnabled
}

// View is a consistent snapshot of the engine for the API and TUI.
type View struct {
	Track           *TrackState // copy; nil when nothing is playing
	Album           *lastfm.AlbumInfo
	ScrobbleEnabled bool
	Status          string
}

// View returns the current engine state for display.
func (e *Engine) View() View {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v := View{
		Album:           e.cachedAlbum,
		ScrobbleEnabled: e.scrobbleEnabled,
		Status:          e.statusLocked(),
	}
	if e.state != nil {
		copied := *e.state
		v.Track = &copied
	}
	return v
}

// Status returns the one-line status string shown by the TUI and API.
func (e *Engine) Status() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statusLocked()
}

func (e *Engine) statusLocked() string {
	switch {
	case e.state == nil:
		return "Waiting"
	case e.state.Scrobbled:
		return "Scrobbled"
	case e.state.PendingDelivery:
		return "Pending (no internet)"
	case e.state.Snapshot.Playing:
		return "Playing"
	default:
		return "Paused"
	}
}
