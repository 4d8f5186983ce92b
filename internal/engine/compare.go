package engine

import (
	"time"

	"spinlog/internal/music"
	"spinlog/pkg/lastfm"
)

// TrackState is the engine's model of the play in progress. A new instance
// is created whenever the playing identity changes; instances are never
// reused across identities.
type TrackState struct {
	Snapshot music.TrackSnapshot

	// TimePlayed accumulates whole seconds of observed playback. It only
	// moves forward within one instance and starts at zero for a new one.
	TimePlayed int

	// Scrobbled flips to true at most once per instance.
	Scrobbled bool

	// NowPlayingPushed records that the now-playing update was accepted
	// for this instance.
	NowPlayingPushed bool

	// PendingDelivery marks an instance that crossed its threshold but
	// could not be delivered yet.
	PendingDelivery bool

	// ReadyAt is the wall-clock instant the threshold was first crossed.
	// It becomes the scrobble timestamp, including for late deliveries.
	ReadyAt time.Time
}

// NewTrackState starts a fresh play instance from a snapshot.
func NewTrackState(snap *music.TrackSnapshot) *TrackState {
	return &TrackState{Snapshot: *snap}
}

// SameIdentity reports whether the snapshot refers to the same play
// identity, compared on (normalized title, artist).
func (s *TrackState) SameIdentity(snap *music.TrackSnapshot) bool {
	return s.Snapshot.CleanName == snap.CleanName && s.Snapshot.Artist == snap.Artist
}

// Decision is the comparator's verdict for one poll. The booleans are not
// mutually exclusive except NoSongPlaying, which excludes all others.
type Decision struct {
	NoSongPlaying    bool
	IsSameSong       bool
	SongHasChanged   bool
	UpdatePlayStatus bool
	UpdateNowPlaying bool
	UpdateAlbumMeta  bool
}

// Compare relates a poll result to the current state. It performs no I/O
// and the same inputs always produce the same decision.
func Compare(poll *music.TrackSnapshot, state *TrackState, cachedAlbum *lastfm.AlbumInfo) Decision {
	if poll == nil || (poll.Name == "" && poll.Artist == "") {
		return Decision{NoSongPlaying: true}
	}

	var d Decision

	same := state != nil && state.SameIdentity(poll)
	if same {
		d.IsSameSong = true
		d.UpdatePlayStatus = poll.Playing != state.Snapshot.Playing
		// Retry the now-playing push while this instance keeps playing and
		// an earlier attempt has not landed.
		d.UpdateNowPlaying = state.Snapshot.Playing && !state.NowPlayingPushed
		return d
	}

	d.SongHasChanged = true
	d.UpdateNowPlaying = true
	d.UpdateAlbumMeta = cachedAlbum == nil || cachedAlbum.Title != poll.Album
	return d
}
