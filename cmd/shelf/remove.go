package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove <key>",
	Aliases: []string{"rm"},
	Short:   "Remove a paper from the collection",
	Long: `Remove a paper. The deletion cascades: the cached metadata is
dropped and the key is stripped from every other record's also-read list.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	key := args[0]

	a := mustOpenApp()
	defer a.Close()

	if err := a.store.Delete(key); err != nil {
		exitWithError(ExitDataError, "removing %s: %v", key, err)
	}

	if humanOutput {
		fmt.Printf("Removed %s\n", key)
		if a.store.State().Len() == 0 {
			fmt.Println("Collection is now empty.")
		}
	} else {
		outputJSON(StatusResponse{Status: "removed", Key: key})
	}
	return nil
}
