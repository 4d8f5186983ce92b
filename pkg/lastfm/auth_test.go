package lastfm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuthService_GetMobileSession(t *testing.T) {
	const (
		username     = "testuser"
		passwordHash = "5f4dcc3b5aa765d61d8327deb882cf99" // MD5("password")
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if method := r.FormValue("method"); method != "auth.getMobileSession" {
			t.Errorf("expected method auth.getMobileSession, got %s", method)
		}
		if user := r.FormValue("username"); user != username {
			t.Errorf("expected username %s, got %s", username, user)
		}
		if got, want := r.FormValue("authToken"), MD5(username+passwordHash); got != want {
			t.Errorf("expected authToken %s, got %s", want, got)
		}
		if r.FormValue("sk") != "" {
			t.Error("session creation must not send a session key")
		}
		if r.FormValue("api_sig") == "" {
			t.Error("expected session creation to be signed")
		}

		response := `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<session>
		<name>testuser</name>
		<key>mobile-session-key</key>
		<subscriber>0</subscriber>
	</session>
</lfm>`
		if _, err := w.Write([]byte(response)); err != nil {
			t.Fatalf("failed to write response body: %v", err)
		}
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:    "test-api-key",
		APISecret: "test-secret",
		BaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	session, err := client.Auth().GetMobileSession(context.Background(), username, passwordHash)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.Key != "mobile-session-key" {
		t.Errorf("expected session key mobile-session-key, got %s", session.Key)
	}
	if session.Username != "testuser" {
		t.Errorf("expected username testuser, got %s", session.Username)
	}
	if session.Subscriber {
		t.Error("expected subscriber false")
	}
}

func TestAuthService_GetMobileSession_BadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := `<?xml version="1.0" encoding="utf-8"?>
<lfm status="failed">
	<error code="4">Authentication Failed - You do not have permissions to access the service</error>
</lfm>`
		if _, err := w.Write([]byte(response)); err != nil {
			t.Fatalf("failed to write response body: %v", err)
		}
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:    "test-api-key",
		APISecret: "test-secret",
		BaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = client.Auth().GetMobileSession(context.Background(), "testuser", "deadbeef")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "error 4") {
		t.Errorf("expected authentication error, got %v", err)
	}
}

func TestAuthService_GetToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if method := r.FormValue("method"); method != "auth.getToken" {
			t.Errorf("expected method auth.getToken, got %s", method)
		}

		response := `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<token>test-token-12345</token>
</lfm>`
		if _, err := w.Write([]byte(response)); err != nil {
			t.Fatalf("failed to write response body: %v", err)
		}
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:    "test-api-key",
		APISecret: "test-secret",
		BaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	token, err := client.Auth().GetToken(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.Token != "test-token-12345" {
		t.Errorf("expected token test-token-12345, got %s", token.Token)
	}
}

func TestAuthService_GetAuthURL(t *testing.T) {
	client, err := NewClient(Config{
		APIKey:    "test-api-key",
		APISecret: "test-secret",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	url := client.Auth().GetAuthURL("tok-1")
	if !strings.Contains(url, "api_key=test-api-key") || !strings.Contains(url, "token=tok-1") {
		t.Errorf("unexpected auth URL: %s", url)
	}
}

func TestAuthService_GetSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if method := r.FormValue("method"); method != "auth.getSession" {
			t.Errorf("expected method auth.getSession, got %s", method)
		}
		if token := r.FormValue("token"); token != "tok-1" {
			t.Errorf("expected token tok-1, got %s", token)
		}

		response := `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
	<session>
		<name>testuser</name>
		<key>desktop-session-key</key>
		<subscriber>1</subscriber>
	</session>
</lfm>`
		if _, err := w.Write([]byte(response)); err != nil {
			t.Fatalf("failed to write response body: %v", err)
		}
	}))
	defer server.Close()

	client, err := NewClient(Config{
		APIKey:    "test-api-key",
		APISecret: "test-secret",
		BaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	session, err := client.Auth().GetSession(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Key != "desktop-session-key" {
		t.Errorf("expected session key desktop-session-key, got %s", session.Key)
	}
	if !session.Subscriber {
		t.Error("expected subscriber true")
	}
}

func TestCalculateSignature(t *testing.T) {
	params := map[string]string{
		"method":  "auth.getMobileSession",
		"api_key": "key",
		"b":       "2",
		"a":       "1",
	}

	// MD5 of the alphabetically sorted key+value concatenation plus secret.
	want := MD5("a1api_keykeyb2methodauth.getMobileSession" + "secret")
	if got := calculateSignature(params, "secret"); got != want {
		t.Errorf("expected signature %s, got %s", want, got)
	}
}

func TestMD5(t *testing.T) {
	if got := MD5("password"); got != "5f4dcc3b5aa765d61d8327deb882cf99" {
		t.Errorf("unexpected digest: %s", got)
	}
}
