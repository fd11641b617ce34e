package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-docbind"
)

// NewSampleCmd creates the sample command.
func NewSampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample [path]",
		Short: "Write a small linked HTML set for trying the merge command",
		Long: `Sample writes an index file and two linked chapter files into the
current directory (or rooted at the given path). The set contains
forward links, a back link cycle, and an external link, so it exercises
everything the merge command does:

  docbind sample
  docbind merge sample.html`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSample,
	}
	return cmd
}

func runSample(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	index, err := docbind.WriteSample(afero.NewOsFs(), path)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), index)
	return nil
}
