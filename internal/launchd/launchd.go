// Package launchd installs the agent as a macOS launchd user agent.
package launchd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

// Label identifies the launchd agent.
const Label = "com.spinlog.agent"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>` + Label + `</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinaryPath}}</string>
		<string>agent</string>
		<string>--integration</string>
		<string>{{.Integration}}</string>
		<string>--log-file</string>
		<string>{{.LogPath}}/spinlog.log</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}/spinlog.out</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}/spinlog.err</string>
	<key>WorkingDirectory</key>
	<string>{{.WorkingDirectory}}</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>PATH</key>
		<string>/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin</string>
	</dict>
</dict>
</plist>
`

// Config holds the values substituted into the plist.
type Config struct {
	BinaryPath       string
	Integration      string
	LogPath          string
	WorkingDirectory string
}

// GeneratePlist renders the launchd plist for the agent.
func GeneratePlist(cfg Config) (string, error) {
	if cfg.Integration == "" {
		cfg.Integration = "apple_music"
	}

	tmpl, err := template.New("plist").Parse(plistTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse plist template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to execute plist template: %w", err)
	}
	return buf.String(), nil
}

// PlistPath returns where the plist is installed.
func PlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
}

// DefaultLogPath returns the default directory for agent logs.
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "spinlog", "logs"), nil
}

func guiDomain() (string, error) {
	out, err := exec.Command("id", "-u").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get user ID: %w", err)
	}
	return "gui/" + strings.TrimSpace(string(out)), nil
}

// Load registers the agent with launchctl and starts it.
func Load(plistPath string) error {
	domain, err := guiDomain()
	if err != nil {
		return err
	}

	out, err := exec.Command("launchctl", "bootstrap", domain, plistPath).CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			return fmt.Errorf("launchctl bootstrap failed: %s", strings.TrimSpace(string(out)))
		}
		return fmt.Errorf("failed to run launchctl bootstrap: %w", err)
	}
	return nil
}

// Unload stops the agent and removes it from launchctl. A missing service
// is not an error.
func Unload() error {
	domain, err := guiDomain()
	if err != nil {
		return err
	}

	out, err := exec.Command("launchctl", "bootout", domain+"/"+Label).CombinedOutput()
	if err != nil && len(out) > 0 {
		msg := strings.TrimSpace(string(out))
		if !strings.Contains(msg, "Could not find service") {
			return fmt.Errorf("launchctl bootout failed: %s", msg)
		}
	}
	return nil
}
