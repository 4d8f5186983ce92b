package launchd

import (
	"strings"
	"testing"
)

func TestGeneratePlist(t *testing.T) {
	plist, err := GeneratePlist(Config{
		BinaryPath:       "/usr/local/bin/spinlog",
		Integration:      "spotify",
		LogPath:          "/tmp/logs",
		WorkingDirectory: "/Users/someone",
	})
	if err != nil {
		t.Fatalf("GeneratePlist failed: %v", err)
	}

	for _, want := range []string{
		"<string>" + Label + "</string>",
		"<string>/usr/local/bin/spinlog</string>",
		"<string>agent</string>",
		"<string>spotify</string>",
		"<string>/tmp/logs/spinlog.log</string>",
		"<string>/Users/someone</string>",
	} {
		if !strings.Contains(plist, want) {
			t.Errorf("plist missing %q", want)
		}
	}
}

func TestGeneratePlistDefaultsIntegration(t *testing.T) {
	plist, err := GeneratePlist(Config{BinaryPath: "/bin/spinlog"})
	if err != nil {
		t.Fatalf("GeneratePlist failed: %v", err)
	}
	if !strings.Contains(plist, "<string>apple_music</string>") {
		t.Error("expected apple_music as the default integration")
	}
}
