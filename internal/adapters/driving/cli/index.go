package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

var (
	indexGlob     string
	indexMaxFiles int
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index workspace files into the search index",
	Long: `Lists files under the given workspace path (default /) matching the
glob pattern, reads each, and adds it to the search index.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexGlob, "glob", "g", "**/*", "glob pattern for files to include")
	indexCmd.Flags().IntVarP(&indexMaxFiles, "max-files", "m", 200, "maximum number of files to index")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	base := "/"
	if len(args) > 0 {
		base = args[0]
	}

	ctx := cmd.Context()
	op := domain.OperationContext{OperationID: uuid.NewString()}
	defer workspace.EndOperation(op)

	entries, err := workspace.ListFiles(ctx, op, base, indexGlob)
	if err != nil {
		return err
	}

	indexed := 0
	total := 0
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		total++
		if indexed >= indexMaxFiles {
			continue
		}
		content, err := workspace.ReadFile(ctx, op, e.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", e.Path, err)
		}
		doc := domain.IndexedDocument{Path: e.Path, Content: content, Source: "filesystem"}
		if err := searchIndex.Upsert(ctx, doc); err != nil {
			return err
		}
		indexed++
	}

	cmd.Printf("Indexed %d of %d files\n", indexed, total)
	return nil
}
