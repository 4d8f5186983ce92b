package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
)

// AlbumService reads album metadata from Last.fm.
type AlbumService struct {
	client *Client
}

// AlbumInfoParams selects which optional sections of an album lookup to
// keep. The API always ships the full payload; unwanted sections are
// dropped before the result is returned.
type AlbumInfoParams struct {
	WithTracks bool
	WithTags   bool
}

// GetInfo returns metadata for an album. Track listing and top tags are
// included per params. When a username is configured, UserPlaycount
// reflects that user's plays of the album.
func (s *AlbumService) GetInfo(ctx context.Context, artist, album string, p AlbumInfoParams) (*AlbumInfo, error) {
	params := map[string]string{
		"artist":      artist,
		"album":       album,
		"autocorrect": "1",
	}
	if s.client.username != "" {
		params["username"] = s.client.username
	}

	resp, err := s.client.get(ctx, "album.getInfo", params)
	if err != nil {
		return nil, err
	}

	info, err := unmarshalAlbumInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse album info response: %w", err)
	}

	if !p.WithTracks {
		info.Tracks = nil
	}
	if !p.WithTags {
		info.Tags = nil
	}
	return info, nil
}

type albumInfoResponse struct {
	Album struct {
		Name      string     `xml:"name"`
		Artist    string     `xml:"artist"`
		MBID      string     `xml:"mbid"`
		URL       string     `xml:"url"`
		Images    []imageXML `xml:"image"`
		Listeners string     `xml:"listeners"`
		Playcount string     `xml:"playcount"`
		UserPlays string     `xml:"userplaycount"`
		Tracks    []struct {
			Rank     string `xml:"rank,attr"`
			Name     string `xml:"name"`
			Duration string `xml:"duration"`
		} `xml:"tracks>track"`
		Tags []struct {
			Name string `xml:"name"`
			URL  string `xml:"url"`
		} `xml:"tags>tag"`
		Wiki struct {
			Summary string `xml:"summary"`
		} `xml:"wiki"`
	} `xml:"album"`
}

func unmarshalAlbumInfo(data []byte) (*AlbumInfo, error) {
	var resp albumInfoResponse
	if err := xml.Unmarshal(wrapInner(data), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal album info response: %w", err)
	}

	info := &AlbumInfo{
		Title:    resp.Album.Name,
		Artist:   resp.Album.Artist,
		MBID:     resp.Album.MBID,
		URL:      resp.Album.URL,
		ImageURL: largestImage(resp.Album.Images),
		Wiki:     resp.Album.Wiki.Summary,
		Tracks:   make([]AlbumTrack, len(resp.Album.Tracks)),
		Tags:     make([]Tag, len(resp.Album.Tags)),
	}
	info.Listeners, _ = strconv.ParseInt(resp.Album.Listeners, 10, 64)
	info.Playcount, _ = strconv.ParseInt(resp.Album.Playcount, 10, 64)
	info.UserPlaycount, _ = strconv.ParseInt(resp.Album.UserPlays, 10, 64)

	for i, t := range resp.Album.Tracks {
		track := AlbumTrack{Name: t.Name}
		track.Rank, _ = strconv.Atoi(t.Rank)
		track.Duration, _ = strconv.Atoi(t.Duration)
		info.Tracks[i] = track
	}
	for i, t := range resp.Album.Tags {
		info.Tags[i] = Tag{Name: t.Name, URL: t.URL}
	}

	return info, nil
}
