package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show bibliographic cache occupancy",
	RunE:  runCache,
}

func runCache(cmd *cobra.Command, args []string) error {
	a := mustOpenApp()
	defer a.Close()

	stats := a.cache.Stats()
	if !humanOutput {
		return outputJSON(stats)
	}

	fmt.Printf("Cached: %d of %d\n", stats.Count, stats.Max)
	if len(stats.Keys) > 0 {
		fmt.Printf("Keys: %s\n", strings.Join(stats.Keys, ", "))
	}
	return nil
}
