package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// ScrobbleService provides scrobbling operations for the Last.fm API.
type ScrobbleService struct {
	client *Client
}

const (
	// MaxBatchSize is the maximum number of scrobbles allowed in a single
	// track.scrobble request.
	MaxBatchSize = 50
)

// UpdateNowPlaying updates the "now playing" status on Last.fm.
//
// This should be called when a track starts playing. It does not count as
// a scrobble and does not affect play counts.
//
// Requires authentication.
func (s *ScrobbleService) UpdateNowPlaying(ctx context.Context, track Track) (*NowPlayingResponse, error) {
	params := map[string]string{
		"artist": track.Artist,
		"track":  track.Track,
	}
	addOptionalTrackParams(params, "", track)

	resp, err := s.client.call(ctx, "track.updateNowPlaying", params, true)
	if err != nil {
		return nil, err
	}

	nowPlaying, err := unmarshalNowPlaying(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse now playing response: %w", err)
	}

	return nowPlaying, nil
}

// Scrobble submits a single scrobble to Last.fm.
//
// Per Last.fm's rules a track should only be scrobbled once it has played
// for half its duration or the scrobble threshold, whichever comes first.
//
// Requires authentication.
func (s *ScrobbleService) Scrobble(ctx context.Context, track Track, timestamp time.Time) (*ScrobbleResponse, error) {
	return s.ScrobbleBatch(ctx, []Scrobble{{Track: track, Timestamp: timestamp}})
}

// ScrobbleBatch submits up to MaxBatchSize scrobbles in a single request.
// A larger batch is truncated to the first MaxBatchSize entries.
//
// Requires authentication.
func (s *ScrobbleService) ScrobbleBatch(ctx context.Context, scrobbles []Scrobble) (*ScrobbleResponse, error) {
	if len(scrobbles) == 0 {
		return &ScrobbleResponse{}, nil
	}
	if len(scrobbles) > MaxBatchSize {
		scrobbles = scrobbles[:MaxBatchSize]
	}

	params := map[string]string{}
	for i, scrobble := range scrobbles {
		idx := fmt.Sprintf("[%d]", i)
		params["artist"+idx] = scrobble.Track.Artist
		params["track"+idx] = scrobble.Track.Track
		params["timestamp"+idx] = strconv.FormatInt(scrobble.Timestamp.Unix(), 10)
		addOptionalTrackParams(params, idx, scrobble.Track)
	}

	resp, err := s.client.call(ctx, "track.scrobble", params, true)
	if err != nil {
		return nil, err
	}

	scrobbleResp, err := unmarshalScrobbles(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse scrobble response: %w", err)
	}

	return scrobbleResp, nil
}

// addOptionalTrackParams adds the non-required track fields under the
// given batch index suffix ("" for single-track methods).
func addOptionalTrackParams(params map[string]string, idx string, track Track) {
	if track.Album != "" {
		params["album"+idx] = track.Album
	}
	if track.AlbumArtist != "" {
		params["albumArtist"+idx] = track.AlbumArtist
	}
	if track.Duration > 0 {
		params["duration"+idx] = strconv.Itoa(track.Duration)
	}
	if track.TrackNumber > 0 {
		params["trackNumber"+idx] = strconv.Itoa(track.TrackNumber)
	}
	if track.MBTrackID != "" {
		params["mbid"+idx] = track.MBTrackID
	}
}

// nowPlayingResponse represents the XML response from track.updateNowPlaying.
type nowPlayingResponse struct {
	Artist         string `xml:"nowplaying>artist"`
	Track          string `xml:"nowplaying>track"`
	Album          string `xml:"nowplaying>album"`
	AlbumArtist    string `xml:"nowplaying>albumArtist"`
	IgnoredMessage struct {
		Code int    `xml:"code,attr"`
		Text string `xml:",chardata"`
	} `xml:"nowplaying>ignoredMessage"`
}

func unmarshalNowPlaying(data []byte) (*NowPlayingResponse, error) {
	var resp nowPlayingResponse
	if err := xml.Unmarshal(wrapInner(data), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal now playing response: %w", err)
	}

	return &NowPlayingResponse{
		Artist:      resp.Artist,
		Track:       resp.Track,
		Album:       resp.Album,
		AlbumArtist: resp.AlbumArtist,
		IgnoredMessage: IgnoredMessage{
			Code: resp.IgnoredMessage.Code,
			Text: resp.IgnoredMessage.Text,
		},
	}, nil
}

// scrobbleResponse represents the XML response from track.scrobble.
type scrobbleResponse struct {
	Scrobbles struct {
		Accepted  string `xml:"accepted,attr"`
		Ignored   string `xml:"ignored,attr"`
		Scrobbles []struct {
			Artist         string `xml:"artist"`
			Track          string `xml:"track"`
			Album          string `xml:"album"`
			Timestamp      string `xml:"timestamp"`
			IgnoredMessage struct {
				Code int    `xml:"code,attr"`
				Text string `xml:",chardata"`
			} `xml:"ignoredMessage"`
		} `xml:"scrobble"`
	} `xml:"scrobbles"`
}

func unmarshalScrobbles(data []byte) (*ScrobbleResponse, error) {
	var resp scrobbleResponse
	if err := xml.Unmarshal(wrapInner(data), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scrobble response: %w", err)
	}

	accepted, _ := strconv.Atoi(resp.Scrobbles.Accepted)
	ignored, _ := strconv.Atoi(resp.Scrobbles.Ignored)

	result := &ScrobbleResponse{
		Accepted:  accepted,
		Ignored:   ignored,
		Scrobbles: make([]AcceptedScrobble, len(resp.Scrobbles.Scrobbles)),
	}

	for i, s := range resp.Scrobbles.Scrobbles {
		timestamp, _ := strconv.ParseInt(s.Timestamp, 10, 64)
		result.Scrobbles[i] = AcceptedScrobble{
			Artist:    s.Artist,
			Track:     s.Track,
			Album:     s.Album,
			Timestamp: timestamp,
			IgnoredMessage: IgnoredMessage{
				Code: s.IgnoredMessage.Code,
				Text: s.IgnoredMessage.Text,
			},
		}
	}

	return result, nil
}
