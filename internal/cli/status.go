package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current or most recent indexing job's status",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := currentApp.ix.Status()

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexing: %t\n", status.IsIndexing)
	fmt.Fprintf(cmd.OutOrStdout(), "processed: %d/%d files\n", status.ProcessedFiles, status.TotalFiles)
	if status.CurrentFile != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "current file: %s\n", status.CurrentFile)
	}
	if status.Cancelled {
		fmt.Fprintln(cmd.OutOrStdout(), "cancelled: true")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "message: %s\n", status.Message)
	return nil
}
