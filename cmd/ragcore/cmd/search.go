package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maic-lab/ragcore/pkg/core"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	topK    int
	jsonOut bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query the current index generation",
		Long: `Rank chunks of the current generation against a query with TF-IDF
cosine scoring and print the results with their provenance label.

Examples:
  ragcore search "동사 활용"
  ragcore search "past tense endings" --top-k 3
  ragcore search "particles" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output as JSON")
	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.topK <= 0 {
		opts.topK = a.cfg.Search.DefaultTopK
	}

	engine, err := a.engine()
	if err != nil {
		return err
	}
	service := core.NewService(engine)

	hits, err := service.Search(ctx, query, opts.topK)
	if err != nil {
		return err
	}
	decision := service.DecideLabel(hits)

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Query string     `json:"query"`
			Label core.Label `json:"label"`
			Hits  []core.Hit `json:"hits"`
		}{Query: query, Label: decision.Label, Hits: hits})
	}

	if len(hits) == 0 {
		fmt.Fprintf(out, "No results for %q (label: %s)\n", query, decision.Label)
		return nil
	}

	fmt.Fprintf(out, "Found %d results for %q (label: %s)\n\n", len(hits), query, decision.Label)
	for i, h := range hits {
		fmt.Fprintf(out, "%d. %s #%d (score: %.3f)\n", i+1, h.DocumentID, h.Position, h.Score)
		fmt.Fprintf(out, "   %s\n", snippet(h.Text, 160))
	}
	return nil
}

// snippet truncates text to at most n runes on a single line.
func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
