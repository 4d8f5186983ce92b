package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"
)

// UserService reads a user's profile and listening history.
type UserService struct {
	client *Client
}

// MaxRecentTracksLimit is the largest page size user.getRecentTracks accepts.
const MaxRecentTracksLimit = 200

// RecentTracksParams narrows a user.getRecentTracks request.
type RecentTracksParams struct {
	Limit int       // page size, capped at MaxRecentTracksLimit; 0 means the API default
	Page  int       // 1-based page number; 0 means the first page
	From  time.Time // only tracks played after this instant, when non-zero
	To    time.Time // only tracks played before this instant, when non-zero
}

// GetRecentTracks returns one page of the user's listening history, most
// recent first. A currently playing track appears as the first entry with
// NowPlaying set and a zero PlayedAt.
func (s *UserService) GetRecentTracks(ctx context.Context, p RecentTracksParams) (*RecentTracksPage, error) {
	if s.client.username == "" {
		return nil, ErrNoUsername
	}

	limit := p.Limit
	if limit > MaxRecentTracksLimit {
		limit = MaxRecentTracksLimit
	}

	params := map[string]string{
		"user": s.client.username,
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if p.Page > 0 {
		params["page"] = strconv.Itoa(p.Page)
	}
	if !p.From.IsZero() {
		params["from"] = strconv.FormatInt(p.From.Unix(), 10)
	}
	if !p.To.IsZero() {
		params["to"] = strconv.FormatInt(p.To.Unix(), 10)
	}

	resp, err := s.client.get(ctx, "user.getRecentTracks", params)
	if err != nil {
		return nil, err
	}

	page, err := unmarshalRecentTracks(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse recent tracks response: %w", err)
	}

	return page, nil
}

// GetInfo returns the configured user's profile summary.
func (s *UserService) GetInfo(ctx context.Context) (*UserInfo, error) {
	if s.client.username == "" {
		return nil, ErrNoUsername
	}

	resp, err := s.client.get(ctx, "user.getInfo", map[string]string{
		"user": s.client.username,
	})
	if err != nil {
		return nil, err
	}

	info, err := unmarshalUserInfo(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse user info response: %w", err)
	}

	return info, nil
}

// GetTrackScrobbles returns the user's scrobbles of one specific track,
// most recent first.
func (s *UserService) GetTrackScrobbles(ctx context.Context, artist, track string, page int) (*RecentTracksPage, error) {
	if s.client.username == "" {
		return nil, ErrNoUsername
	}

	params := map[string]string{
		"user":   s.client.username,
		"artist": artist,
		"track":  track,
	}
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}

	resp, err := s.client.get(ctx, "user.getTrackScrobbles", params)
	if err != nil {
		return nil, err
	}

	result, err := unmarshalTrackScrobbles(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse track scrobbles response: %w", err)
	}

	return result, nil
}

// GetWeeklyAlbumChart returns the user's album chart ordered by playcount.
// Zero from/to select the most recent chart week; otherwise Last.fm snaps
// the range to its historical chart boundaries.
func (s *UserService) GetWeeklyAlbumChart(ctx context.Context, from, to time.Time) ([]ChartAlbum, error) {
	if s.client.username == "" {
		return nil, ErrNoUsername
	}

	params := map[string]string{
		"user": s.client.username,
	}
	if !from.IsZero() {
		params["from"] = strconv.FormatInt(from.Unix(), 10)
	}
	if !to.IsZero() {
		params["to"] = strconv.FormatInt(to.Unix(), 10)
	}

	resp, err := s.client.get(ctx, "user.getWeeklyAlbumChart", params)
	if err != nil {
		return nil, err
	}

	chart, err := unmarshalWeeklyAlbumChart(resp)
	if err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse weekly album chart response: %w", err)
	}

	return chart, nil
}

// playedTrackXML is the shared track shape of user.getRecentTracks and
// user.getTrackScrobbles responses.
type playedTrackXML struct {
	NowPlaying string `xml:"nowplaying,attr"`
	Artist     struct {
		Name string `xml:",chardata"`
	} `xml:"artist"`
	Name  string `xml:"name"`
	Album struct {
		Name string `xml:",chardata"`
	} `xml:"album"`
	MBID string `xml:"mbid"`
	Date struct {
		UTS string `xml:"uts,attr"`
	} `xml:"date"`
}

func (t playedTrackXML) toPlayedTrack() PlayedTrack {
	played := PlayedTrack{
		Artist:     t.Artist.Name,
		Name:       t.Name,
		Album:      t.Album.Name,
		MBID:       t.MBID,
		NowPlaying: t.NowPlaying == "true",
	}
	if uts, err := strconv.ParseInt(t.Date.UTS, 10, 64); err == nil {
		played.PlayedAt = time.Unix(uts, 0).UTC()
	}
	return played
}

type recentTracksResponse struct {
	RecentTracks struct {
		Page       string           `xml:"page,attr"`
		TotalPages string           `xml:"totalPages,attr"`
		Total      string           `xml:"total,attr"`
		Tracks     []playedTrackXML `xml:"track"`
	} `xml:"recenttracks"`
}

func unmarshalRecentTracks(data []byte) (*RecentTracksPage, error) {
	var resp recentTracksResponse
	if err := xml.Unmarshal(wrapInner(data), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recent tracks response: %w", err)
	}

	page := &RecentTracksPage{
		Tracks: make([]PlayedTrack, len(resp.RecentTracks.Tracks)),
	}
	page.Page, _ = strconv.Atoi(resp.RecentTracks.Page)
	page.TotalPages, _ = strconv.Atoi(resp.RecentTracks.TotalPages)
	page.Total, _ = strconv.Atoi(resp.RecentTracks.Total)

	for i, t := range resp.RecentTracks.Tracks {
		page.Tracks[i] = t.toPlayedTrack()
	}

	return page, nil
}

type trackScrobblesResponse struct {
	TrackScrobbles struct {
		Page       string           `xml:"page,attr"`
		TotalPages string           `xml:"totalPages,attr"`
		Total      string           `xml:"total,attr"`
		Tracks     []playedTrackXML `xml:"track"`
	} `xml:"trackscrobbles"`
}

func unmarshalTrackScrobbles(data []byte) (*RecentTracksPage, error) {
	var resp trackScrobblesResponse
	if err := xml.Unmarshal(wrapInner(data), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal track scrobbles response: %w", err)
	}

	page := &RecentTracksPage{
		Tracks: make([]PlayedTrack, len(resp.TrackScrobbles.Tracks)),
	}
	page.Page, _ = strconv.Atoi(resp.TrackScrobbles.Page)
	page.TotalPages, _ = strconv.Atoi(resp.TrackScrobbles.TotalPages)
	page.Total, _ = strconv.Atoi(resp.TrackScrobbles.Total)

	for i, t := range resp.TrackScrobbles.Tracks {
		page.Tracks[i] = t.toPlayedTrack()
	}

	return page, nil
}

type userInfoResponse struct {
	User struct {
		Name       string     `xml:"name"`
		RealName   string     `xml:"realname"`
		URL        string     `xml:"url"`
		Country    string     `xml:"country"`
		Images     []imageXML `xml:"image"`
		Playcount  string     `xml:"playcount"`
		Tracks     string     `xml:"track_count"`
		Albums     string     `xml:"album_count"`
		Artists    string     `xml:"artist_count"`
		Subscriber string     `xml:"subscriber"`
		Registered struct {
			Unixtime string `xml:"unixtime,attr"`
		} `xml:"registered"`
	} `xml:"user"`
}

type imageXML struct {
	Size string `xml:"size,attr"`
	URL  string `xml:",chardata"`
}

// largestImage prefers the extralarge rendition, falling back to the last
// image listed.
func largestImage(images []imageXML) string {
	url := ""
	for _, img := range images {
		url = img.URL
		if img.Size == "extralarge" {
			return img.URL
		}
	}
	return url
}

func unmarshalUserInfo(data []byte) (*UserInfo, error) {
	var resp userInfoResponse
	if err := xml.Unmarshal(wrapInner(data), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info response: %w", err)
	}

	info := &UserInfo{
		Name:       resp.User.Name,
		RealName:   resp.User.RealName,
		URL:        resp.User.URL,
		Country:    resp.User.Country,
		ImageURL:   largestImage(resp.User.Images),
		Subscriber: resp.User.Subscriber == "1",
	}
	info.Playcount, _ = strconv.ParseInt(resp.User.Playcount, 10, 64)
	info.TrackCount, _ = strconv.ParseInt(resp.User.Tracks, 10, 64)
	info.AlbumCount, _ = strconv.ParseInt(resp.User.Albums, 10, 64)
	info.ArtistCount, _ = strconv.ParseInt(resp.User.Artists, 10, 64)
	if uts, err := strconv.ParseInt(resp.User.Registered.Unixtime, 10, 64); err == nil {
		info.Registered = time.Unix(uts, 0).UTC()
	}

	return info, nil
}

type weeklyAlbumChartResponse struct {
	Chart struct {
		Albums []struct {
			Rank   string `xml:"rank,attr"`
			Artist struct {
				Name string `xml:",chardata"`
			} `xml:"artist"`
			Name      string `xml:"name"`
			MBID      string `xml:"mbid"`
			Playcount string `xml:"playcount"`
		} `xml:"album"`
	} `xml:"weeklyalbumchart"`
}

func unmarshalWeeklyAlbumChart(data []byte) ([]ChartAlbum, error) {
	var resp weeklyAlbumChartResponse
	if err := xml.Unmarshal(wrapInner(data), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weekly album chart response: %w", err)
	}

	chart := make([]ChartAlbum, len(resp.Chart.Albums))
	for i, a := range resp.Chart.Albums {
		chart[i] = ChartAlbum{
			Artist: a.Artist.Name,
			Name:   a.Name,
			MBID:   a.MBID,
		}
		chart[i].Rank, _ = strconv.Atoi(a.Rank)
		chart[i].Playcount, _ = strconv.Atoi(a.Playcount)
	}

	return chart, nil
}
