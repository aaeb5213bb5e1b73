package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(renameCmd)
}

var renameCmd = &cobra.Command{
	Use:   "rename <old-key> <new-key>",
	Short: "Rename a paper's citation key",
	Long: `Rename a paper's citation key. The cached metadata and every other
record's also-read list follow the new key in the same step.`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

func runRename(cmd *cobra.Command, args []string) error {
	oldKey, newKey := args[0], args[1]
	if newKey == "" {
		exitWithError(ExitDataError, "new citation key must not be empty")
	}

	a := mustOpenApp()
	defer a.Close()

	if err := a.store.Rename(oldKey, newKey); err != nil {
		exitWithError(ExitDataError, "renaming %s: %v", oldKey, err)
	}

	if humanOutput {
		fmt.Printf("Renamed %s to %s\n", oldKey, newKey)
	} else {
		outputJSON(StatusResponse{Status: "renamed", Key: newKey})
	}
	return nil
}
