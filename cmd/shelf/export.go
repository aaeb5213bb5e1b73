package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matsen/shelf/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportLight  bool
	exportBibtex bool
	exportTagged bool
	exportOut    string
)

func init() {
	exportCmd.Flags().BoolVar(&exportLight, "light", false, "Export the light format (DOI, comments, tags, also-read only)")
	exportCmd.Flags().BoolVar(&exportBibtex, "bibtex", false, "Export a BibTeX aggregate (re-fetched from source)")
	exportCmd.Flags().BoolVar(&exportTagged, "tagged", false, "Restrict the BibTeX aggregate to the selected tags")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the collection",
	Long: `Export the collection as the full JSON document (default), the light
document, or a BibTeX aggregate. BibTeX export re-fetches each record's
citation text from source so the output is fresh.

Examples:
  shelf export > papers.json
  shelf export --light -o papers-light.json
  shelf export --bibtex > papers.bib
  shelf export --bibtex --tagged`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportTagged && !exportBibtex {
		exitWithError(ExitError, "--tagged requires --bibtex")
	}

	a := mustOpenApp()
	defer a.Close()

	st := a.store.State()
	records := make([]export.Record, 0, st.Len())
	for _, key := range st.Keys() {
		p, _ := st.Get(key)
		records = append(records, export.Record{Key: key, Paper: p})
	}

	var data []byte
	var err error
	switch {
	case exportBibtex:
		exporter := export.NewExporter(a.pipeline.Client())
		var text string
		if exportTagged {
			text, err = exporter.BibTeXTagged(context.Background(), records, st.SelectedTagSet())
		} else {
			text, err = exporter.BibTeX(context.Background(), records)
		}
		if err != nil {
			exitWithError(ExitDataError, "exporting BibTeX: %v", err)
		}
		data = []byte(text + "\n")
	case exportLight:
		data, err = export.LightDocument(records)
	default:
		data, err = export.FullDocument(records)
	}
	if err != nil {
		exitWithError(ExitError, "exporting: %v", err)
	}

	if exportOut == "" {
		fmt.Print(string(data))
		if !exportBibtex {
			fmt.Println()
		}
		return nil
	}
	if err := os.WriteFile(exportOut, data, 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOut, err)
	}
	if humanOutput {
		fmt.Printf("Exported %d records to %s\n", len(records), exportOut)
	} else {
		outputJSON(StatusResponse{Status: "exported", Path: exportOut})
	}
	return nil
}
