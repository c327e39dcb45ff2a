package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/parlor/parlor/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"  ____            _\n" +
		" |  _ \\ __ _ _ __| | ___  _ __\n" +
		" | |_) / _` | '__| |/ _ \\| '__|\n" +
		" |  __/ (_| | |  | | (_) | |\n" +
		" |_|   \\__,_|_|  |_|\\___/|_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "parlor",
	Short: "Parlor - multi-agent conversation rooms",
	Long:  color.CyanString(logo) + "\nChannels where a human and a cast of LLM agents talk, argue, and keep grudges.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}
