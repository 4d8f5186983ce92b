package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spinlog/internal/launchd"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the spinlog agent from launchd",
	Long: `Uninstall the spinlog agent from launchd.

This command will:
  - Stop the running agent (if any)
  - Unload the agent from launchd
  - Remove the plist file from ~/Library/LaunchAgents/`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plistPath, err := launchd.PlistPath()
		if err != nil {
			return fmt.Errorf("failed to get plist path: %w", err)
		}

		if _, err := os.Stat(plistPath); os.IsNotExist(err) {
			fmt.Println("Agent is not installed (plist not found)")
			return nil
		}

		fmt.Println("Stopping agent...")
		if err := launchd.Unload(); err != nil {
			fmt.Printf("Warning: failed to unload agent: %v\n", err)
			fmt.Println("Continuing with plist removal...")
		} else {
			fmt.Println("✓ Agent stopped")
		}

		if err := os.Remove(plistPath); err != nil {
			return fmt.Errorf("failed to remove plist file: %w", err)
		}
		fmt.Printf("✓ Removed plist from %s\n", plistPath)
		fmt.Println("\nspinlog will no longer run automatically on login.")
		fmt.Println("To reinstall, run:")
		fmt.Println("  spinlog install")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
