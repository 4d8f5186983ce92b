package engine

import (
	"testing"
	"time"

	"spinlog/internal/music"
	"spinlog/pkg/lastfm"
)

func snap(name, artist string, playing bool) *music.TrackSnapshot {
	return &music.TrackSnapshot{
		Name:      name,
		Artist:    artist,
		CleanName: music.CleanTitle(name),
		Playing:   playing,
		Duration:  200 * time.Second,
	}
}

func TestCompare(t *testing.T) {
	playingState := NewTrackState(snap("Roygbiv", "Boards of Canada", true))
	pausedState := NewTrackState(snap("Roygbiv", "Boards of Canada", false))
	pushedState := NewTrackState(snap("Roygbiv", "Boards of Canada", true))
	pushedState.NowPlayingPushed = true

	tests := []struct {
		name        string
		poll        *music.TrackSnapshot
		state       *TrackState
		cachedAlbum *lastfm.AlbumInfo
		want        Decision
	}{
		{
			name: "nil poll",
			poll: nil,
			want: Decision{NoSongPlaying: true},
		},
		{
			name: "empty identity",
			poll: &music.TrackSnapshot{},
			want: Decision{NoSongPlaying: true},
		},
		{
			name:  "first song",
			poll:  snap("Roygbiv", "Boards of Canada", true),
			state: nil,
			want:  Decision{SongHasChanged: true, UpdateNowPlaying: true, UpdateAlbumMeta: true},
		},
		{
			name:  "same song still playing, push already sent",
			poll:  snap("Roygbiv", "Boards of Canada", true),
			state: pushedState,
			want:  Decision{IsSameSong: true},
		},
		{
			name:  "same song still playing, push outstanding",
			poll:  snap("Roygbiv", "Boards of Canada", true),
			state: playingState,
			want:  Decision{IsSameSong: true, UpdateNowPlaying: true},
		},
		{
			name:  "same song paused",
			poll:  snap("Roygbiv", "Boards of Canada", false),
			state: pushedState,
			want:  Decision{IsSameSong: true, UpdatePlayStatus: true},
		},
		{
			name:  "same song resumed",
			poll:  snap("Roygbiv", "Boards of Canada", true),
			state: pausedState,
			want:  Decision{IsSameSong: true, UpdatePlayStatus: true},
		},
		{
			name:  "different song",
			poll:  snap("Aquarius", "Boards of Canada", true),
			state: playingState,
			want:  Decision{SongHasChanged: true, UpdateNowPlaying: true, UpdateAlbumMeta: true},
		},
		{
			name:  "same title different artist",
			poll:  snap("Roygbiv", "Someone Else", true),
			state: playingState,
			want:  Decision{SongHasChanged: true, UpdateNowPlaying: true, UpdateAlbumMeta: true},
		},
		{
			name:        "song change with matching cached album",
			poll:        withAlbum(snap("Aquarius", "Boards of Canada", true), "Music Has the Right to Children"),
			state:       playingState,
			cachedAlbum: &lastfm.AlbumInfo{Title: "Music Has the Right to Children"},
			want:        Decision{SongHasChanged: true, UpdateNowPlaying: true},
		},
		{
			name:        "song change with stale cached album",
			poll:        withAlbum(snap("1969", "Boards of Canada", true), "Geogaddi"),
			state:       playingState,
			cachedAlbum: &lastfm.AlbumInfo{Title: "Music Has the Right to Children"},
			want:        Decision{SongHasChanged: true, UpdateNowPlaying: true, UpdateAlbumMeta: true},
		},
		{
			name:  "remastered variant matches by clean title",
			poll:  snap("Roygbiv (Remastered 2013)", "Boards of Canada", true),
			state: pushedState,
			want:  Decision{IsSameSong: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.poll, tt.state, tt.cachedAlbum)
			if got != tt.want {
				t.Errorf("Compare() = %+v, want %+v", got, tt.want)
			}

			// Identical inputs always produce identical decisions.
			if again := Compare(tt.poll, tt.state, tt.cachedAlbum); again != got {
				t.Errorf("Compare() not repeatable: %+v then %+v", got, again)
			}
		})
	}
}

func withAlbum(s *music.TrackSnapshot, album string) *music.TrackSnapshot {
	s.Album = album
	s.CleanAlbum = music.CleanTitle(album)
	return s
}
