package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-docbind"
)

// NewMergeCmd creates the merge command.
func NewMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <index.html>",
		Short: "Follow local links from an index file and bind everything into one PDF",
		Long: `Merge walks the local link hierarchy under an index file, renders every
reachable HTML file, and binds the results into a single PDF in reading
order. Each file appears exactly once, link cycles are harmless, and
links between merged files become internal page jumps.

A file that fails to render is skipped and reported; the merge only
fails when the index is missing or nothing rendered at all.

Examples:
  # Bind index.html and everything it links to into index.pdf
  docbind merge index.html

  # Follow links up to three hops deep and name the output
  docbind merge book/index.html -o book.pdf --depth 3

  # Render only the index file itself
  docbind merge index.html --depth 0`,
		Args: cobra.ExactArgs(1),
		RunE: runMerge,
	}

	cmd.Flags().StringP("output", "o", "", "Output PDF path (defaults to the index path with a .pdf extension)")
	cmd.Flags().IntP("depth", "d", 10, "Maximum link depth to follow from the index")

	return cmd
}

func runMerge(cmd *cobra.Command, args []string) error {
	conf, err := loadEnv()
	if err != nil {
		return err
	}
	logger := createLogger(conf)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	output, _ := cmd.Flags().GetString("output")
	depth, _ := cmd.Flags().GetInt("depth")

	b, err := docbind.NewBinder(binderOptions(cmd, conf, logger)...)
	if err != nil {
		return err
	}
	defer b.Close()

	report, err := b.MergeLinked(ctx, args[0], output, depth)
	if err != nil {
		return err
	}

	for _, broken := range report.Broken {
		logger.Warn("broken link", "source", broken.Source, "target", broken.Target)
	}
	for _, trunc := range report.Truncated {
		logger.Warn("link beyond depth limit", "source", trunc.Source, "target", trunc.Target, "depth", trunc.Depth)
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	return nil
}
