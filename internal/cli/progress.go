package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/sourcelens/coderag/internal/indexer"
)

// CLIProgressReporter drives a terminal progress bar for an indexing run.
type CLIProgressReporter struct {
	quiet bool
	bar   *progressbar.ProgressBar
}

// NewCLIProgressReporter builds a reporter; quiet suppresses all output.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet}
}

func (c *CLIProgressReporter) Start(totalFiles int) {
	if c.quiet {
		return
	}
	c.bar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetDescription("Indexing files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { fmt.Println() }),
	)
}

func (c *CLIProgressReporter) FileProcessed(path string) {
	if c.quiet || c.bar == nil {
		return
	}
	c.bar.Add(1)
}

func (c *CLIProgressReporter) BatchEmbedded(count int) {
	if c.quiet {
		return
	}
	fmt.Printf("embedded %d chunks\n", count)
}

func (c *CLIProgressReporter) Finished(status indexer.IndexingStatus) {
	if c.quiet {
		return
	}
	fmt.Println(status.Message)
}
