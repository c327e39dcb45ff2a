package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parlor/parlor/internal/config"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ Parlor Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 Parlor Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + configPath + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (" + configPath + ")")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Println("API Key: ? Unable to load config")
			return
		}
		if cfg.Providers.OpenAI.APIKey != "" {
			fmt.Println("API Key: ✓ Found")
		} else {
			fmt.Println("API Key: ✗ Not found")
		}

		if _, err := os.Stat(cfg.Paths.DBPath); err == nil {
			fmt.Println("Store:   ✓ Found (" + cfg.Paths.DBPath + ")")
		} else {
			fmt.Println("Store:   ✗ Not created yet")
		}

		fmt.Printf("Roster:  %d agents, %d channels configured\n",
			len(cfg.Roster.Agents), len(cfg.Roster.Channels))
		if cfg.Sinks.Slack.Enabled {
			fmt.Println("Slack:   ✓ Enabled")
		}
		if cfg.Sinks.Kafka.Enabled {
			fmt.Println("Kafka:   ✓ Enabled")
		}
		fmt.Println("Status:  Ready")
	},
}
