package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
)

// AuthService provides authentication operations for the Last.fm API.
type AuthService struct {
	client *Client
}

// GetToken requests an authentication token from Last.fm.
//
// This is the first step of the desktop authentication flow. After
// obtaining a token, the user must authorize it by visiting the URL
// returned by GetAuthURL, then the token is exchanged via GetSession.
func (a *AuthService) GetToken(ctx context.Context) (*Token, error) {
	resp, err := a.client.call(ctx, "auth.getToken", nil, false)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Token string `xml:"token"`
	}
	if err := xml.Unmarshal(wrapInner(resp), &parsed); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse token response: %w", err)
	}
	if parsed.Token == "" {
		return nil, fmt.Errorf("lastfm: empty token in response")
	}

	return &Token{Token: parsed.Token}, nil
}

// GetAuthURL returns the URL where the user authorizes the token.
func (a *AuthService) GetAuthURL(token string) string {
	return "https://www.last.fm/api/auth/?api_key=" + a.client.apiKey + "&token=" + token
}

// GetSession exchanges an authorized token for a session key.
//
// The session key does not expire and should be stored for future use.
func (a *AuthService) GetSession(ctx context.Context, token string) (*Session, error) {
	params := map[string]string{"token": token}

	resp, err := a.client.call(ctx, "auth.getSession", params, false)
	if err != nil {
		return nil, err
	}
	return parseSession(resp)
}

// GetMobileSession authenticates with a username and MD5 password hash in
// a single signed request, without a browser round-trip. This is the flow a
// headless agent uses at startup. Pass MD5(password) as passwordHash; the
// plain password is never sent or retained.
func (a *AuthService) GetMobileSession(ctx context.Context, username, passwordHash string) (*Session, error) {
	params := map[string]string{
		"username":  username,
		"authToken": MD5(username + passwordHash),
	}

	resp, err := a.client.call(ctx, "auth.getMobileSession", params, false)
	if err != nil {
		return nil, err
	}
	return parseSession(resp)
}

func parseSession(data []byte) (*Session, error) {
	var parsed struct {
		Session struct {
			Name       string `xml:"name"`
			Key        string `xml:"key"`
			Subscriber int    `xml:"subscriber"`
		} `xml:"session"`
	}
	if err := xml.Unmarshal(wrapInner(data), &parsed); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse session response: %w", err)
	}
	if parsed.Session.Key == "" {
		return nil, fmt.Errorf("lastfm: empty session key in response")
	}

	return &Session{
		Key:        parsed.Session.Key,
		Username:   parsed.Session.Name,
		Subscriber: parsed.Session.Subscriber == 1,
	}, nil
}

// wrapInner wraps the innerxml of the <lfm> envelope in a synthetic root
// element so it unmarshals into a plain struct.
func wrapInner(data []byte) []byte {
	wrapped := make([]byte, 0, len(data)+13)
	wrapped = append(wrapped, "<root>"...)
	wrapped = append(wrapped, data...)
	wrapped = append(wrapped, "</root>"...)
	return wrapped
}
