package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sourcelens/coderag/internal/retriever"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the indexed codebase",
	Long: `Ask answers a single question when given as an argument, or starts an
interactive prompt reading one question per line from stdin when called
with no arguments. Ctrl-C or EOF ends the interactive session.`,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			return fmt.Errorf("cli: %w", retriever.ErrEmptyQuestion)
		}
		answer, err := currentApp.retriever.Ask(cmd.Context(), question)
		if err != nil {
			return fmt.Errorf("cli: asking question: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			fmt.Fprint(out, "> ")
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		answer, err := currentApp.retriever.Ask(ctx, question)
		if err != nil {
			fmt.Fprintln(out, err)
			fmt.Fprint(out, "> ")
			continue
		}
		fmt.Fprintln(out, answer)
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
