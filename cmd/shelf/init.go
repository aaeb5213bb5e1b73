package main

import (
	"fmt"
	"os"

	"github.com/matsen/shelf/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a shelf collection in the current directory",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	if err := config.Init(cwd); err != nil {
		exitWithError(ExitError, "initializing collection: %v", err)
	}

	if humanOutput {
		fmt.Printf("Initialized shelf collection in %s\n", config.ShelfPath(cwd))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.ShelfPath(cwd)})
	}
	return nil
}
