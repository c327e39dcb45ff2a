package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/parlor/parlor/internal/orchestrator"
	"github.com/parlor/parlor/internal/store"
)

var (
	chatChannel   string
	chatHumanName string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agents in a channel",
	Run:   runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatChannel, "channel", "c", "parlor", "Channel name")
	chatCmd.Flags().StringVarP(&chatHumanName, "name", "n", "Human", "Your display name")
}

func runChat(cmd *cobra.Command, args []string) {
	printHeader("💬 Parlor Chat")

	rt, err := buildRuntime()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	ch, err := findOrCreateChannel(rt.store, chatChannel)
	if err != nil {
		fmt.Printf("Channel error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Channel: %s (%d members). Type a message, or /quit to leave.\n\n", ch.Name, len(ch.Members))

	cb := terminalCallbacks(rt.store)

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("%s> ", chatHumanName)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			break
		}

		trigger := &store.Message{
			ID:         uuid.NewString(),
			SenderKind: store.SenderHuman,
			SenderName: chatHumanName,
			Content:    line,
		}
		if err := rt.orch.ProcessTurn(ctx, ch.ID, trigger, cb); err != nil {
			fmt.Printf("Turn error: %v\n", err)
		}
	}
}

// terminalCallbacks renders turn events for an interactive terminal. Streamed
// replies print incrementally in the agent's self-chosen colors; the final
// reply event just closes the line.
func terminalCallbacks(st *store.Store) orchestrator.Callbacks {
	dim := color.New(color.Faint)

	var mu sync.Mutex
	streamed := map[string]bool{} // message ids that already printed chunks
	styles := map[string]*color.Color{}

	styleFor := func(agentName string) *color.Color {
		if c, ok := styles[agentName]; ok {
			return c
		}
		c := color.New()
		if a, err := st.GetAgentByName(agentName); err == nil {
			c = agentColor(a.StyleFG, a.StyleBG)
		}
		styles[agentName] = c
		return c
	}

	var currentAgent string

	return orchestrator.Callbacks{
		OnAgentBusy: func(agentName string, busy bool) {
			mu.Lock()
			defer mu.Unlock()
			if busy {
				currentAgent = agentName
				// Colors may have changed since the last reply.
				delete(styles, agentName)
			}
		},
		OnReplyChunk: func(channelID, messageID, text string) {
			mu.Lock()
			defer mu.Unlock()
			if !streamed[messageID] {
				streamed[messageID] = true
				fmt.Printf("%s: ", styleFor(currentAgent).Sprint(currentAgent))
			}
			fmt.Print(styleFor(currentAgent).Sprint(text))
		},
		OnReply: func(m *store.Message) {
			mu.Lock()
			defer mu.Unlock()
			if streamed[m.ID] {
				fmt.Println()
				return
			}
			fmt.Printf("%s: %s\n", styleFor(m.SenderName).Sprint(m.SenderName), styleFor(m.SenderName).Sprint(m.Content))
		},
		OnSystemNotice: func(m *store.Message) {
			mu.Lock()
			defer mu.Unlock()
			dim.Printf("(system) %s\n", m.Content)
		},
		OnToolEvent: func(m *store.Message) {
			mu.Lock()
			defer mu.Unlock()
			label := m.ToolName
			if m.IsError {
				label += " error"
			}
			dim.Printf("[%s] %s\n", label, truncate(m.Content, 200))
		},
	}
}

// findOrCreateChannel resolves a channel by name, creating a group channel
// with every enabled agent as a member when it does not exist yet.
func findOrCreateChannel(st *store.Store, name string) (*store.Channel, error) {
	chans, err := st.ListChannels()
	if err != nil {
		return nil, err
	}
	for _, ch := range chans {
		if ch.Name == name {
			return ch, nil
		}
	}

	agents, err := st.ListAgents()
	if err != nil {
		return nil, err
	}
	var members []string
	for _, a := range agents {
		if a.Enabled {
			members = append(members, a.Name)
		}
	}
	ch := &store.Channel{
		ID:      uuid.NewString(),
		Name:    name,
		Type:    store.ChannelGroup,
		Members: members,
	}
	if err := st.SaveChannel(ch); err != nil {
		return nil, err
	}
	return ch, nil
}
