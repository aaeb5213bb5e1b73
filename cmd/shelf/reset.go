package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetForce bool

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the collection",
	Long:  `Remove every record and the tag selection.`,
	RunE:  runReset,
}

func runReset(cmd *cobra.Command, args []string) error {
	a := mustOpenApp()
	defer a.Close()

	if !resetForce {
		n := a.store.State().Len()
		fmt.Printf("This removes all %d records. Continue? [y/N] ", n)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	a.store.Clear()

	if humanOutput {
		fmt.Println("Collection cleared")
	} else {
		outputJSON(StatusResponse{Status: "cleared"})
	}
	return nil
}
