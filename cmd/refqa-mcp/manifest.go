package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sha1n/mcp-refqa-server/internal/corpus"
	"github.com/sha1n/mcp-refqa-server/internal/pdftext"
)

// DefaultManifestFile is where the manifest command writes by default.
const DefaultManifestFile = "references.yaml"

func newManifestCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "manifest <references-dir>",
		Short: "Write a manifest listing the reference documents in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(args[0], output, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", DefaultManifestFile, "Manifest output path")
	return cmd
}

func runManifest(dir, output string, stdout io.Writer) error {
	registry, err := pdftext.NewRegistry(pdftext.EngineLedongthuc, "")
	if err != nil {
		return err
	}

	names, err := corpus.ListDir(dir, corpus.NewFileFilter(registry.Extensions()))
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no reference documents found in %s", dir)
	}

	if err := corpus.NewManifest(names).Save(output); err != nil {
		return err
	}

	color.New(color.FgGreen).Fprintf(stdout, "Listed %d reference documents in %s\n", len(names), output)
	return nil
}
