package lastfm

import (
	"time"
)

// Track represents a music track for scrobbling or now playing updates.
type Track struct {
	Artist      string // Required: artist name
	Track       string // Required: track name
	Album       string // Optional: album name
	AlbumArtist string // Optional: album artist, if different from track artist
	Duration    int    // Optional: track duration in seconds
	TrackNumber int    // Optional: track number on album
	MBTrackID   string // Optional: MusicBrainz track ID
}

// Scrobble represents a single scrobble with its timestamp.
type Scrobble struct {
	Track     Track
	Timestamp time.Time
}

// Token represents an authentication token from auth.getToken.
type Token struct {
	Token string
}

// Session represents an authenticated session.
type Session struct {
	Key        string // Session key for authenticated requests
	Username   string // Last.fm username
	Subscriber bool   // Whether the user is a subscriber
}

// NowPlayingResponse represents the response from track.updateNowPlaying.
type NowPlayingResponse struct {
	Artist         string
	Track          string
	Album          string
	AlbumArtist    string
	IgnoredMessage IgnoredMessage
}

// IgnoredMessage explains why a scrobble or now-playing update was dropped
// by Last.fm.
type IgnoredMessage struct {
	Code int
	Text string
}

// ScrobbleResponse represents the response from track.scrobble.
type ScrobbleResponse struct {
	Accepted  int
	Ignored   int
	Scrobbles []AcceptedScrobble
}

// AcceptedScrobble is one entry of a scrobble batch response.
type AcceptedScrobble struct {
	Artist         string
	Track          string
	Album          string
	Timestamp      int64
	IgnoredMessage IgnoredMessage
}

// PlayedTrack is one entry of the user's listening history, as returned by
// user.getRecentTracks and user.getTrackScrobbles.
type PlayedTrack struct {
	Artist     string
	Name       string
	Album      string
	MBID       string
	NowPlaying bool      // entry is the currently playing track, not history
	PlayedAt   time.Time // UTC; zero when NowPlaying
}

// RecentTracksPage is one page of user.getRecentTracks.
type RecentTracksPage struct {
	Tracks     []PlayedTrack
	Page       int
	TotalPages int
	Total      int
}

// UserInfo represents a Last.fm account summary from user.getInfo.
type UserInfo struct {
	Name        string
	RealName    string
	URL         string
	Country     string
	ImageURL    string
	Playcount   int64
	TrackCount  int64
	AlbumCount  int64
	ArtistCount int64
	Registered  time.Time
	Subscriber  bool
}

// AlbumInfo represents album metadata from album.getInfo.
type AlbumInfo struct {
	Title         string
	Artist        string
	MBID          string
	URL           string
	ImageURL      string
	Listeners     int64
	Playcount     int64
	UserPlaycount int64
	Wiki          string
	Tracks        []AlbumTrack // populated when requested
	Tags          []Tag        // populated when requested
}

// AlbumTrack is one track of an album, in album order.
type AlbumTrack struct {
	Rank     int
	Name     string
	Duration int // seconds; 0 when unknown
}

// Tag is a weighted Last.fm tag.
type Tag struct {
	Name string
	URL  string
}

// ChartAlbum is one entry of a weekly album chart.
type ChartAlbum struct {
	Rank      int
	Artist    string
	Name      string
	MBID      string
	Playcount int
}
