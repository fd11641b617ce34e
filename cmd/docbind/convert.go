package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-docbind"
)

// NewConvertCmd creates the convert command.
func NewConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file.html | directory>",
		Short: "Render a single HTML file or every HTML file in a directory",
		Long: `Convert renders HTML to PDF without following links. Given a file it
writes one PDF next to it (or at --output); given a directory it
renders every HTML file directly inside it into --output (the same
directory when unset).

Examples:
  # Render one file to report.pdf
  docbind convert report.html

  # Render a file to a chosen location
  docbind convert report.html -o out/report.pdf

  # Render every HTML file in pages/ into rendered/
  docbind convert pages/ -o rendered/`,
		Args: cobra.ExactArgs(1),
		RunE: runConvert,
	}

	cmd.Flags().StringP("output", "o", "", "Output PDF path, or output directory when converting a directory")

	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	conf, err := loadEnv()
	if err != nil {
		return err
	}
	logger := createLogger(conf)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	output, _ := cmd.Flags().GetString("output")

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("input %s: %w", args[0], err)
	}

	b, err := docbind.NewBinder(binderOptions(cmd, conf, logger)...)
	if err != nil {
		return err
	}
	defer b.Close()

	if info.IsDir() {
		written, err := b.ConvertDir(ctx, args[0], output)
		if err != nil {
			return err
		}
		for _, out := range written {
			fmt.Fprintln(cmd.OutOrStdout(), out)
		}
		return nil
	}

	out, err := b.ConvertFile(ctx, args[0], output)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
