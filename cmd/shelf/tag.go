package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(alsoReadCmd)
}

var tagCmd = &cobra.Command{
	Use:   "tag <key> [tags...]",
	Short: "Set a paper's tags",
	Long: `Replace a paper's tags. Tags may be given as separate arguments or
comma-separated; no arguments clears the tags.

Examples:
  shelf tag Smith2021 phylogenetics bayesian
  shelf tag Smith2021`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTag,
}

func runTag(cmd *cobra.Command, args []string) error {
	key := args[0]
	tags := flattenArgs(args[1:])

	a := mustOpenApp()
	defer a.Close()

	if err := a.store.SetTags(key, tags); err != nil {
		exitWithError(ExitDataError, "tagging %s: %v", key, err)
	}

	if humanOutput {
		fmt.Printf("Tagged %s: %s\n", key, strings.Join(tags, ", "))
	} else {
		outputJSON(StatusResponse{Status: "tagged", Key: key})
	}
	return nil
}

var selectCmd = &cobra.Command{
	Use:   "select [tags...]",
	Short: "Set the tag selection used for filtering",
	Long: `Set the selected tags. Listing and tagged export order papers with a
selected tag before the rest; no arguments clears the selection.`,
	RunE: runSelect,
}

func runSelect(cmd *cobra.Command, args []string) error {
	tags := flattenArgs(args)

	a := mustOpenApp()
	defer a.Close()

	a.store.SetSelectedTags(tags)

	if humanOutput {
		if len(tags) == 0 {
			fmt.Println("Selection cleared")
		} else {
			fmt.Printf("Selected: %s\n", strings.Join(a.store.State().SelectedTags(), ", "))
		}
	} else {
		outputJSON(struct {
			Status   string   `json:"status"`
			Selected []string `json:"selected"`
		}{"selected", a.store.State().SelectedTags()})
	}
	return nil
}

var alsoReadCmd = &cobra.Command{
	Use:   "also-read <key> [keys...]",
	Short: "Set a paper's also-read cross-references",
	Long: `Replace a paper's also-read list. Every referenced key must exist in
the collection; no arguments clears the list.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAlsoRead,
}

func runAlsoRead(cmd *cobra.Command, args []string) error {
	key := args[0]
	refs := flattenArgs(args[1:])

	a := mustOpenApp()
	defer a.Close()

	if err := a.store.SetAlsoRead(key, refs); err != nil {
		exitWithError(ExitDataError, "updating also-read for %s: %v", key, err)
	}

	if humanOutput {
		fmt.Printf("Also-read for %s: %s\n", key, strings.Join(refs, ", "))
	} else {
		outputJSON(StatusResponse{Status: "updated", Key: key})
	}
	return nil
}

// flattenArgs accepts both space-separated and comma-separated values.
func flattenArgs(args []string) []string {
	var out []string
	for _, arg := range args {
		out = append(out, splitCommaList(arg)...)
	}
	return out
}
