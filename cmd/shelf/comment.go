package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(commentCmd)
}

var commentCmd = &cobra.Command{
	Use:   "comment <key> [text...]",
	Short: "Set a paper's comment",
	Long: `Replace a paper's free-text comment. No text clears the comment.

Examples:
  shelf comment Smith2021 "Good introduction to the field"
  shelf comment Smith2021`,
	Args: cobra.MinimumNArgs(1),
	RunE: runComment,
}

func runComment(cmd *cobra.Command, args []string) error {
	key := args[0]
	text := strings.Join(args[1:], " ")

	a := mustOpenApp()
	defer a.Close()

	if err := a.store.SetComment(key, text); err != nil {
		exitWithError(ExitDataError, "commenting on %s: %v", key, err)
	}

	if humanOutput {
		fmt.Printf("Comment for %s updated\n", key)
	} else {
		outputJSON(StatusResponse{Status: "commented", Key: key})
	}
	return nil
}
