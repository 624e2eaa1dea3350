package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/arloq/docchat/internal"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	sessionsAll bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List available sessions",
	Long:  `List your chat sessions, most recently updated first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var sessions []internal.SessionInfo
		cursor := ""
		for {
			page, err := client.ListSessions(cmd.Context(), projectID, cursor)
			if err != nil {
				return fmt.Errorf("failed to load sessions: %w", err)
			}
			sessions = append(sessions, page.Sessions...)
			cursor = page.NextCursor
			if cursor == "" || !sessionsAll {
				break
			}
		}

		displaySessions(sessions, cursor != "")
		return nil
	},
}

func displaySessions(sessions []internal.SessionInfo, truncated bool) {
	if len(sessions) == 0 {
		fmt.Println(headerStyle.Render("📋 No sessions found"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions)))
	fmt.Println(header)
	fmt.Println()

	// Use tabwriter for aligned columns with better spacing
	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Agent")+"\t"+titleStyle.Render("Updated")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 100))

	for _, info := range sessions {
		name := info.SessionName
		if name == "" {
			name = "Untitled"
		}
		if len(name) > 50 {
			name = name[:47] + "..."
		}
		nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
		name = nameStyle.Render(name)

		agent := describeMode(info.Mode())

		updated := dateStyle.Render("—")
		if !info.UpdatedAt.IsZero() {
			updated = dateStyle.Render(relativeDate(info.UpdatedAt))
		}

		shortID := info.SessionID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		id := idStyle.Render(shortID)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", id, name, agent, updated)
	}

	_ = w.Flush()
	fmt.Println()
	if truncated {
		fmt.Println(idStyle.Render("More sessions available; rerun with --all"))
	}
	fmt.Println(idStyle.Render("💡 Tip: Use the full ID (e.g., ") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(sessions[0].SessionID) +
		idStyle.Render(") with `docchat show <id>`"))
}

func describeMode(mode internal.AgentMode) string {
	switch mode.Kind {
	case internal.AgentNamed:
		return agentStyle.Render(mode.AgentID)
	case internal.AgentResearch:
		return agentStyle.Render("research")
	case internal.AgentVoice:
		return agentStyle.Render("voice/" + string(mode.VoiceModel))
	default:
		return dateStyle.Render("default")
	}
}

func relativeDate(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <name>",
	Short: "Rename a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.RenameSession(cmd.Context(), projectID, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to rename session: %w", err)
		}
		fmt.Printf("Renamed %s to %q\n", args[0], args[1])
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		if err := client.DeleteSession(cmd.Context(), projectID, args[0]); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.Flags().BoolVar(&sessionsAll, "all", false, "Fetch every listing page")
}
