package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arloq/docchat/internal"
	"github.com/arloq/docchat/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat      string
	exportOutput      string
	exportFromArchive bool
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript",
	Long: `Export a session in JSONL, Markdown, YAML, or JSON format.

By default the transcript is fetched from the agent runtime; with
--from-archive the local archive copy is exported instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		var session *internal.ArchivedSession
		if exportFromArchive {
			archive, err := openArchive()
			if err != nil {
				return err
			}
			defer archive.Close()

			session, err = archive.LoadTranscript(sessionID)
			if err != nil {
				return err
			}
			if session == nil {
				return fmt.Errorf("session %s is not archived", sessionID)
			}
		} else {
			info, msgs, err := fetchTranscript(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
			session = &internal.ArchivedSession{Info: info, Messages: msgs}
		}

		out := os.Stdout
		if exportOutput != "" {
			path := exportOutput
			if filepath.Ext(path) == "" {
				path = fmt.Sprintf("%s.%s", path, exporter.Extension())
			}
			f, err := os.Create(path)
			if err != nil {
				return &internal.ExportError{Format: exportFormat, Path: path, Err: err}
			}
			defer f.Close()
			out = f
			defer func() {
				internal.LogInfo("Exported session %s to %s", sessionID, path)
			}()
		}

		if err := exporter.Export(session, out); err != nil {
			return &internal.ExportError{Format: exportFormat, Path: exportOutput, Err: err}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (defaults to stdout)")
	exportCmd.Flags().BoolVar(&exportFromArchive, "from-archive", false, "Export the local archive copy")
}
