package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"spinlog/internal/backfill"
	"spinlog/internal/engine"
	"spinlog/internal/store"
	"spinlog/pkg/lastfm"
)

const defaultTopLimit = 10

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type trackJSON struct {
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album,omitempty"`
	CleanName  string `json:"clean_name"`
	Playing    bool   `json:"playing"`
	Duration   int    `json:"duration_seconds"`
	TimePlayed int    `json:"time_played_seconds"`
	Scrobbled  bool   `json:"scrobbled"`
	Source     string `json:"source"`
}

type albumJSON struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	URL       string `json:"url,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Playcount int64  `json:"playcount"`
}

func trackFromState(state *engine.TrackState) *trackJSON {
	if state == nil {
		return nil
	}
	return &trackJSON{
		Name:       state.Snapshot.Name,
		Artist:     state.Snapshot.Artist,
		Album:      state.Snapshot.Album,
		CleanName:  state.Snapshot.CleanName,
		Playing:    state.Snapshot.Playing,
		Duration:   int(state.Snapshot.Duration.Seconds()),
		TimePlayed: state.TimePlayed,
		Scrobbled:  state.Scrobbled,
		Source:     string(state.Snapshot.Source),
	}
}

func albumFromInfo(info *lastfm.AlbumInfo) *albumJSON {
	if info == nil {
		return nil
	}
	return &albumJSON{
		Title:     info.Title,
		Artist:    info.Artist,
		URL:       info.URL,
		ImageURL:  info.ImageURL,
		Playcount: info.Playcount,
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	view := s.engine.View()

	resp := struct {
		Track           *trackJSON       `json:"track"`
		Album           *albumJSON       `json:"album"`
		ScrobbleEnabled bool             `json:"scrobble_enabled"`
		Status          string           `json:"status"`
		User            *lastfm.UserInfo `json:"user,omitempty"`
	}{
		Track:           trackFromState(view.Track),
		Album:           albumFromInfo(view.Album),
		ScrobbleEnabled: view.ScrobbleEnabled,
		Status:          view.Status,
	}

	// User summary is decoration; a Last.fm hiccup never fails the state
	// endpoint.
	if user, err := s.client.UserInfo(r.Context()); err == nil {
		resp.User = user
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePollSong(w http.ResponseWriter, r *http.Request) {
	s.engine.Tick(r.Context())
	view := s.engine.View()
	writeJSON(w, http.StatusOK, struct {
		Track  *trackJSON `json:"track"`
		Album  *albumJSON `json:"album"`
		Status string     `json:"status"`
	}{
		Track:  trackFromState(view.Track),
		Album:  albumFromInfo(view.Album),
		Status: view.Status,
	})
}

func (s *Server) handleScrobbleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"scrobble_enabled": s.engine.ScrobblingEnabled(),
	})
}

func (s *Server) handleScrobbleToggle(w http.ResponseWriter, _ *http.Request) {
	enabled := s.engine.ToggleScrobbling()
	writeJSON(w, http.StatusOK, map[string]bool{"scrobble_enabled": enabled})
}

func (s *Server) handleForceScrobble(w http.ResponseWriter, r *http.Request) {
	if !s.engine.ForceScrobble(r.Context()) {
		writeError(w, http.StatusConflict, "nothing eligible to scrobble")
		return
	}
	view := s.engine.View()
	writeJSON(w, http.StatusOK, struct {
		Track  *trackJSON `json:"track"`
		Status string     `json:"status"`
	}{
		Track:  trackFromState(view.Track),
		Status: view.Status,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var opts backfill.Options
	if v := r.URL.Query().Get("time_from"); v != "" {
		from, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "time_from must be YYYY-MM-DD")
			return
		}
		opts.From = from
	}
	if v := r.URL.Query().Get("time_to"); v != "" {
		to, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "time_to must be YYYY-MM-DD")
			return
		}
		// Inclusive day bound.
		opts.To = to.Add(24*time.Hour - time.Second)
	}

	result, err := s.backfill.Run(r.Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("backfill failed")
		writeError(w, http.StatusBadGateway, "backfill failed")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Fetched  int `json:"fetched"`
		Inserted int `json:"inserted"`
	}{result.Fetched, result.Inserted})
}

type playedJSON struct {
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	ScrobbledAt string `json:"scrobbled_at,omitempty"`
	NowPlaying  bool   `json:"now_playing,omitempty"`
}

func (s *Server) playedFromPage(page *lastfm.RecentTracksPage) []playedJSON {
	out := make([]playedJSON, len(page.Tracks))
	for i, t := range page.Tracks {
		out[i] = playedJSON{
			Name:       t.Name,
			Artist:     t.Artist,
			Album:      t.Album,
			NowPlaying: t.NowPlaying,
		}
		if !t.PlayedAt.IsZero() {
			out[i].ScrobbledAt = t.PlayedAt.Format(s.datetimeFormat)
		}
	}
	return out
}

func (s *Server) handleTrackScrobbles(w http.ResponseWriter, r *http.Request) {
	view := s.engine.View()
	if view.Track == nil {
		writeError(w, http.StatusNotFound, "no song playing")
		return
	}

	snap := view.Track.Snapshot
	page, err := s.client.TrackScrobbles(r.Context(), snap.Artist, snap.CleanName)
	if err != nil {
		s.logger.Warn().Err(err).Msg("track scrobbles lookup failed")
		writeError(w, http.StatusBadGateway, "lastfm request failed")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Track  string       `json:"track"`
		Artist string       `json:"artist"`
		Total  int          `json:"total"`
		Plays  []playedJSON `json:"plays"`
	}{snap.CleanName, snap.Artist, page.Total, s.playedFromPage(page)})
}

func (s *Server) handleWeeklyAlbumChart(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	if v := r.URL.Query().Get("from_date"); v != "" {
		var err error
		if from, err = time.Parse("2006-01-02", v); err != nil {
			writeError(w, http.StatusBadRequest, "from_date must be YYYY-MM-DD")
			return
		}
	}
	if v := r.URL.Query().Get("to_date"); v != "" {
		var err error
		if to, err = time.Parse("2006-01-02", v); err != nil {
			writeError(w, http.StatusBadRequest, "to_date must be YYYY-MM-DD")
			return
		}
	}

	albums, err := s.client.WeeklyAlbumChart(r.Context(), from, to)
	if err != nil {
		s.logger.Warn().Err(err).Msg("weekly album chart failed")
		writeError(w, http.StatusBadGateway, "lastfm request failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]lastfm.ChartAlbum{"albums": albums})
}

func (s *Server) handleRecentTracks(w http.ResponseWriter, r *http.Request) {
	params := lastfm.RecentTracksParams{}
	if v := r.URL.Query().Get("limit"); v != "" {
		params.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("page"); v != "" {
		params.Page, _ = strconv.Atoi(v)
	}

	page, err := s.client.RecentTracks(r.Context(), params)
	if err != nil {
		s.logger.Warn().Err(err).Msg("recent tracks lookup failed")
		writeError(w, http.StatusBadGateway, "lastfm request failed")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User   string       `json:"user"`
		Total  int          `json:"total"`
		Tracks []playedJSON `json:"tracks"`
	}{s.client.Username(), page.Total, s.playedFromPage(page)})
}

func (s *Server) handleStatsOverview(w http.ResponseWriter, r *http.Request) {
	year := time.Now().UTC().Year()
	if v := r.URL.Query().Get("year"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		year = parsed
	}

	overview, err := s.stats.YearOverview(r.Context(), year, defaultTopLimit)
	if err != nil {
		s.logger.Warn().Err(err).Msg("overview query failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"warning": "stats are temporarily unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleStatsArtist(w http.ResponseWriter, r *http.Request) {
	artist := r.URL.Query().Get("artist")
	if artist == "" {
		writeError(w, http.StatusBadRequest, "artist query parameter is required")
		return
	}

	unavailable := func(err error) {
		s.logger.Warn().Err(err).Str("artist", artist).Msg("artist stats query failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"warning": "stats are temporarily unavailable",
		})
	}

	tracks, err := s.stats.TopTracksByArtist(r.Context(), artist, defaultTopLimit)
	if err != nil {
		unavailable(err)
		return
	}
	albums, err := s.stats.TopAlbumsByArtist(r.Context(), artist, defaultTopLimit)
	if err != nil {
		unavailable(err)
		return
	}
	years, err := s.stats.ArtistCountsByYear(r.Context(), artist)
	if err != nil {
		unavailable(err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Artist    string            `json:"artist"`
		TopTracks []store.NameCount `json:"top_tracks"`
		TopAlbums []store.NameCount `json:"top_albums"`
		ByYear    []store.YearCount `json:"by_year"`
	}{artist, tracks, albums, years})
}
