package main

import (
	"fmt"
	"strings"

	"github.com/matsen/shelf/internal/doimeta"
	"github.com/matsen/shelf/internal/filter"
	"github.com/spf13/cobra"
)

var listTags string

func init() {
	listCmd.Flags().StringVar(&listTags, "tags", "", "Filter by these tags instead of the stored selection (comma-separated)")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers, tag-matching first",
	Long: `List the collection in filtered order: papers carrying a selected tag
first, the rest after (dimmed), original order preserved within each group.

Examples:
  shelf list
  shelf list --tags bayesian
  shelf list --human`,
	RunE: runList,
}

// listEntry is one row of list output.
type listEntry struct {
	Key      string   `json:"key"`
	Title    string   `json:"title"`
	Authors  string   `json:"authors,omitempty"`
	Year     string   `json:"year,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	AlsoRead []string `json:"also_read,omitempty"`
	Dimmed   bool     `json:"dimmed"`
}

func runList(cmd *cobra.Command, args []string) error {
	a := mustOpenApp()
	defer a.Close()

	st := a.store.State()
	selected := st.SelectedTagSet()
	if listTags != "" {
		selected = make(map[string]bool)
		for _, t := range splitCommaList(listTags) {
			selected[t] = true
		}
	}

	entries := filter.Apply(st.Processed(), selected)

	rows := make([]listEntry, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, listEntry{
			Key:      e.Key,
			Title:    e.BibInfo.Title,
			Authors:  doimeta.FormatAuthors(e.BibInfo.Author),
			Year:     e.BibInfo.Year,
			Tags:     e.Paper.Tags,
			AlsoRead: e.Paper.AlsoRead,
			Dimmed:   e.Dimmed,
		})
	}

	if !humanOutput {
		return outputJSON(rows)
	}

	for _, r := range rows {
		marker := "*"
		if r.Dimmed {
			marker = " "
		}
		fmt.Printf("%s %s\n", marker, r.Key)
		fmt.Printf("    %s\n", truncateString(r.Title, 70))
		if r.Authors != "" {
			line := r.Authors
			if r.Year != "" {
				line += " (" + r.Year + ")"
			}
			fmt.Printf("    %s\n", truncateString(line, 70))
		}
		if len(r.Tags) > 0 {
			fmt.Printf("    tags: %s\n", strings.Join(r.Tags, ", "))
		}
	}
	return nil
}
