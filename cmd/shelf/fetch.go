package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/shelf/internal/doimeta"
	"github.com/spf13/cobra"
)

var fetchOut string

func init() {
	fetchCmd.Flags().StringVarP(&fetchOut, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <doi...>",
	Short: "Fetch BibTeX for DOIs",
	Long: `Fetch citation text for one or more DOIs directly, without touching
any collection. Requests run sequentially with a polite delay between
them; a DOI that cannot be resolved is reported and skipped.

Examples:
  shelf fetch 10.1093/sysbio/syy032
  shelf fetch 10.1000/a 10.1000/b -o refs.bib`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client := doimeta.NewClient()
	pipeline := doimeta.NewPipeline(client, nil, doimeta.WithDelay(doimeta.FetchToolDelay))

	items := make([]doimeta.Item, 0, len(args))
	for _, doi := range args {
		items = append(items, doimeta.Item{DOI: doi})
	}

	var entries []string
	var failed int
	results := pipeline.EnrichBatch(ctx, items, func(i, total int, res doimeta.Result) {
		if humanOutput {
			fmt.Fprintf(os.Stderr, "Fetching %d of %d: %s\n", i, total, res.DOI)
		}
	})
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", res.DOI, res.Err)
			continue
		}
		entries = append(entries, res.BibTeX)
	}
	if len(entries) == 0 {
		exitWithError(ExitFetchError, "no DOI could be resolved")
	}

	text := strings.Join(entries, "\n\n") + "\n"
	if fetchOut == "" {
		fmt.Print(text)
		return nil
	}
	if err := os.WriteFile(fetchOut, []byte(text), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", fetchOut, err)
	}
	if humanOutput {
		fmt.Printf("Wrote %d entries to %s (%d failed)\n", len(entries), fetchOut, failed)
	} else {
		outputJSON(struct {
			Status  string `json:"status"`
			Entries int    `json:"entries"`
			Failed  int    `json:"failed"`
			Path    string `json:"path"`
		}{"fetched", len(entries), failed, fetchOut})
	}
	return nil
}
