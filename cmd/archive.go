package cmd

import (
	"fmt"
	"time"

	"github.com/arloq/docchat/internal"
	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage the local session archive",
	Long: `Keep local copies of sessions in a SQLite archive.

Archived sessions survive server-side deletion and can be replayed with
"show --from-archive" or exported with "export --from-archive".`,
}

var archiveSaveCmd = &cobra.Command{
	Use:   "save <session-id>",
	Short: "Archive a session locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		info, msgs, err := fetchTranscript(cmd.Context(), sessionID)
		if err != nil {
			return err
		}

		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()

		info.UpdatedAt = time.Now()
		if err := archive.SaveSession(info, msgs); err != nil {
			return err
		}
		fmt.Printf("Archived %s (%d messages)\n", sessionID, len(msgs))
		return nil
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List archived sessions",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()

		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		sessions, err := archive.FindSessions(query)
		if err != nil {
			return err
		}
		displaySessions(sessions, false)
		return nil
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Remove a session from the archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()

		if err := archive.DeleteSession(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed %s from the archive\n", args[0])
		return nil
	},
}

var archivePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop archived sessions with duplicate transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := openArchive()
		if err != nil {
			return err
		}
		defer archive.Close()

		infos, err := archive.LoadSessions()
		if err != nil {
			return err
		}

		sessions := make([]*internal.ArchivedSession, 0, len(infos))
		for _, info := range infos {
			session, err := archive.LoadTranscript(info.SessionID)
			if err != nil || session == nil {
				continue
			}
			sessions = append(sessions, session)
		}

		unique := internal.NewDeduplicator().Deduplicate(sessions)
		keep := make(map[string]bool, len(unique))
		for _, session := range unique {
			keep[session.Info.SessionID] = true
		}

		removed := 0
		for _, session := range sessions {
			if keep[session.Info.SessionID] {
				continue
			}
			if err := archive.DeleteSession(session.Info.SessionID); err != nil {
				internal.LogWarn("Failed to remove %s: %v", session.Info.SessionID, err)
				continue
			}
			removed++
		}
		fmt.Printf("Removed %d duplicate session(s), kept %d\n", removed, len(unique))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveSaveCmd)
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveDeleteCmd)
	archiveCmd.AddCommand(archivePruneCmd)
}
