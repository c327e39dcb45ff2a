package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/parlor/parlor/internal/config"
	"github.com/parlor/parlor/internal/store"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List agents and their relationship state",
	Run:   runAgents,
}

func runAgents(cmd *cobra.Command, args []string) {
	printHeader("🎭 Parlor Agents")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	st, err := store.Open(cfg.Paths.DBPath)
	if err != nil {
		fmt.Printf("Store error: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	agents, err := st.ListAgents()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if len(agents) == 0 {
		fmt.Println("No agents yet. Declare them under roster.agents in config.json.")
		return
	}

	for _, a := range agents {
		c := agentColor(a.StyleFG, a.StyleBG)
		state := "enabled"
		if !a.Enabled {
			state = "disabled"
		}
		fmt.Printf("%s  (%s, %s)\n", c.Sprint(a.Name), a.Model, state)
		if a.Diary != "" {
			fmt.Printf("  diary: %s\n", truncate(a.Diary, 100))
		}
		for name, v := range a.Opinions {
			fmt.Printf("  opinion of %-12s %3d\n", name+":", v)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
