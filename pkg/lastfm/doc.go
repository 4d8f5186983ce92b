// Package lastfm provides a client library for the Last.fm API 2.0.
//
// The package covers the operations a scrobbling agent needs:
// authentication (token flow and username/password-hash mobile sessions),
// scrobbling (track.scrobble, track.updateNowPlaying), user history
// (user.getRecentTracks, user.getTrackScrobbles, user.getInfo,
// user.getWeeklyAlbumChart) and album metadata (album.getInfo).
//
// Create a client with your API credentials:
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    APIKey:    "your-api-key",
//	    APISecret: "your-api-secret",
//	    Username:  "your-username",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// For a headless agent the mobile session flow authenticates directly from
// stored credentials:
//
//	session, err := client.Auth().GetMobileSession(ctx, username, lastfm.MD5(password))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client.SetSessionKey(session.Key)
//
// All methods accept a context.Context for cancellation and timeouts, and
// requests retry temporary failures with exponential backoff. Errors carry
// the Last.fm error code as *lastfm.Error; Temporary() distinguishes
// transient service failures from permanent ones:
//
//	_, err := client.Scrobble().Scrobble(ctx, track, time.Now())
//	var lfmErr *lastfm.Error
//	if errors.As(err, &lfmErr) && lfmErr.Temporary() {
//	    // retry later
//	}
package lastfm
