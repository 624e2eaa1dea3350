package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/arloq/docchat/internal"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	showLimit       int
	showFromArchive bool
	showNoCache     bool
)

var sessionHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("212")).
	Padding(0, 1).
	MarginBottom(1)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Replay a session's transcript",
	Long: `Display a persisted session with its tool activity reconstructed.

Transcripts come from the cache when available, otherwise from the agent
runtime. With --from-archive the local archive is read instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		if showFromArchive {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			session, err := archive.LoadTranscript(sessionID)
			if err != nil {
				return err
			}
			if session == nil {
				return fmt.Errorf("session %s is not archived", sessionID)
			}
			displayTranscript(session.Info, session.Messages)
			return nil
		}

		info, msgs, err := fetchTranscript(cmd.Context(), sessionID)
		if err != nil {
			return err
		}
		displayTranscript(info, msgs)
		return nil
	},
}

// fetchTranscript loads a session's records (cache first, then the agent
// runtime) and rehydrates them into transcript messages.
func fetchTranscript(ctx context.Context, sessionID string) (internal.SessionInfo, []internal.Message, error) {
	var cache internal.TranscriptCache
	if !showNoCache {
		var err error
		cache, err = newCache()
		if err != nil {
			internal.LogWarn("Cache unavailable: %v", err)
		}
	}
	if cache != nil {
		defer func() { _ = cache.Close() }()
	}

	info := internal.SessionInfo{SessionID: sessionID}

	if cache != nil {
		cached, err := cache.Get(ctx, sessionID)
		if err != nil {
			internal.LogDebug("Cache read failed: %v", err)
		}
		if cached != nil {
			internal.LogInfo("Loaded %d record(s) from cache", len(cached.Records))
			info.SessionName = cached.SessionName
			info.AgentID = cached.AgentID
			return info, internal.NewRehydrator().Rehydrate(cached.Records), nil
		}
	}

	client, err := newAPIClient()
	if err != nil {
		return info, nil, err
	}

	var history *internal.HistoryResponse
	err = internal.ShowProgress(ctx, "Fetching session history", func() error {
		var fetchErr error
		history, fetchErr = client.SessionHistory(ctx, projectID, sessionID)
		return fetchErr
	})
	if err != nil {
		return info, nil, fmt.Errorf("failed to load session history: %w", err)
	}
	if len(history.Messages) == 0 {
		return info, nil, fmt.Errorf("session %s: %w", sessionID, internal.ErrEmptySession)
	}

	if cache != nil {
		err := cache.Put(ctx, &internal.CachedTranscript{
			SessionID: sessionID,
			FetchedAt: time.Now(),
			Records:   history.Messages,
		})
		if err != nil {
			internal.LogDebug("Cache write failed: %v", err)
		}
	}

	return info, internal.NewRehydrator().Rehydrate(history.Messages), nil
}

func displayTranscript(info internal.SessionInfo, msgs []internal.Message) {
	title := info.SessionName
	if title == "" {
		title = info.SessionID
	}
	fmt.Println(sessionHeaderStyle.Render("💬 " + title))

	start := 0
	if showLimit > 0 && len(msgs) > showLimit {
		start = len(msgs) - showLimit
		fmt.Println(idStyle.Render(fmt.Sprintf("(showing last %d of %d messages)", showLimit, len(msgs))))
	}
	for _, msg := range msgs[start:] {
		renderMessage(msg)
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "Show only the last N messages")
	showCmd.Flags().BoolVar(&showFromArchive, "from-archive", false, "Read from the local archive instead of the agent runtime")
	showCmd.Flags().BoolVar(&showNoCache, "no-cache", false, "Bypass the transcript cache")
}
