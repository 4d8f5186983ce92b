package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"spinlog/internal/launchd"
)

var installIntegration string

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the spinlog agent as a launchd agent",
	Long: `Install the spinlog agent as a launchd agent that runs on login.

This command will:
  - Generate a launchd plist for the spinlog agent
  - Install it to ~/Library/LaunchAgents/
  - Load the agent with launchctl
  - Start scrobbling in the background`,
	RunE: func(cmd *cobra.Command, args []string) error {
		binaryPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		binaryPath, err = filepath.EvalSymlinks(binaryPath)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}

		logPath, err := launchd.DefaultLogPath()
		if err != nil {
			return fmt.Errorf("failed to get log path: %w", err)
		}
		if err := os.MkdirAll(logPath, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		plistContent, err := launchd.GeneratePlist(launchd.Config{
			BinaryPath:       binaryPath,
			Integration:      installIntegration,
			LogPath:          logPath,
			WorkingDirectory: home,
		})
		if err != nil {
			return fmt.Errorf("failed to generate plist: %w", err)
		}

		plistPath, err := launchd.PlistPath()
		if err != nil {
			return fmt.Errorf("failed to get plist path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
			return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
		}

		if _, err := os.Stat(plistPath); err == nil {
			fmt.Println("Agent is already installed. Uninstalling first...")
			if err := launchd.Unload(); err != nil {
				fmt.Printf("Warning: failed to unload existing agent: %v\n", err)
			}
		}

		if err := os.WriteFile(plistPath, []byte(plistContent), 0644); err != nil {
			return fmt.Errorf("failed to write plist file: %w", err)
		}
		fmt.Printf("✓ Installed plist to %s\n", plistPath)

		if err := launchd.Load(plistPath); err != nil {
			return fmt.Errorf("failed to load agent: %w", err)
		}

		fmt.Println("✓ Agent loaded and started successfully")
		fmt.Printf("✓ Logs will be written to %s\n", logPath)
		fmt.Println("\nspinlog is now running and will start automatically on login.")
		fmt.Println("\nYou can check the agent status with:")
		fmt.Println("  launchctl list | grep spinlog")
		fmt.Println("\nTo uninstall, run:")
		fmt.Println("  spinlog uninstall")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().StringVar(&installIntegration, "integration", "apple_music", "Player to watch (apple_music or spotify)")
}
