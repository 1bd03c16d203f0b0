/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tieubaoca/research-assistant/types"
)

// batchAskCmd represents the batch-ask command
var (
	batchAskOpts askOptions
	batchAskCmd  = &cobra.Command{
		Use:   "batch-ask",
		Short: "Run the same research action on every document in a directory",
		Long: `Runs ask for each PDF and TXT file directly inside --directory, in name
order. Other files and subdirectories are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			directory, _ := cmd.Flags().GetString("directory")
			paths, err := supportedFiles(directory)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no PDF or TXT files in %s", directory)
			}
			return runAsk(cmd.Context(), &batchAskOpts, paths, cmd.OutOrStdout())
		},
	}
)

func supportedFiles(directory string) ([]string, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || types.DetectFormat(e.Name()) == types.FormatUnsupported {
			continue
		}
		paths = append(paths, filepath.Join(directory, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func init() {
	rootCmd.AddCommand(batchAskCmd)
	batchAskOpts.bind(batchAskCmd)
	batchAskCmd.Flags().StringP("directory", "d", "", "Directory with the documents")
	_ = batchAskCmd.MarkFlagRequired("directory")
}
