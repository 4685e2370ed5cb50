package cli

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/workbench/internal/core/domain"
)

var (
	searchMode     string
	searchTopK     int
	searchMinScore float64
	searchWeight   float64
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed workspace documents",
	Long: `Performs search across all indexed workspace documents.
Hybrid mode blends keyword (BM25) and semantic (vector) scores.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", "hybrid", "search mode: bm25, vector, or hybrid")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 5, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "drop results scoring below this value")
	searchCmd.Flags().Float64Var(&searchWeight, "vector-weight", domain.DefaultVectorWeight, "blend weight for the vector score in hybrid mode")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	opts := domain.SearchOptions{
		Mode:         domain.SearchMode(searchMode),
		TopK:         searchTopK,
		MinScore:     searchMinScore,
		VectorWeight: searchWeight,
	}

	hits, err := searchIndex.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(hits, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	renderHits(cmd, query, hits)
	return nil
}

var (
	pathStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	snippetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(2)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func renderHits(cmd *cobra.Command, query string, hits []domain.SearchHit) {
	if len(hits) == 0 {
		cmd.Printf("No results for %q\n", query)
		return
	}

	for i, hit := range hits {
		cmd.Printf("%d. %s  %s\n",
			i+1,
			pathStyle.Render(hit.Path),
			scoreStyle.Render(fmt.Sprintf("%.3f", hit.Score)))
		cmd.Println(dimStyle.Render(fmt.Sprintf("   lines %d-%d", hit.LineStart, hit.LineEnd)))
		if hit.Snippet != "" {
			cmd.Println(snippetStyle.Render(hit.Snippet))
		}
	}
}
