package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel a running indexing job",
	Long:  "Cancel requests cooperative cancellation of the job in progress; it is a no-op if nothing is running.",
	RunE:  runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	currentApp.ix.Cancel()
	fmt.Fprintln(cmd.OutOrStdout(), "cancellation requested")
	return nil
}
