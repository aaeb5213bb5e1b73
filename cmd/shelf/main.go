// Package main provides the shelf CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/matsen/shelf/internal/bibcache"
	"github.com/matsen/shelf/internal/collection"
	"github.com/matsen/shelf/internal/config"
	"github.com/matsen/shelf/internal/doimeta"
	"github.com/matsen/shelf/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "shelf",
	Short: "Citation-keyed bibliography manager",
	Long: `shelf manages a collection of paper records keyed by citation key.

Core features:
  - DOI enrichment: BibTeX, structured fields, abstracts, page numbers
  - Tags, comments, and also-read cross-references between papers
  - Full, light, and BibTeX exports
  - Collection sync through a GitHub gist

The collection lives in a .shelf directory discovered by walking up from
the working directory. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// app bundles everything a command needs: config, the persistence scopes,
// the cache, the store, and the enrichment pipeline.
type app struct {
	root     string
	cfg      *config.Config
	db       *storage.SQLiteKV
	cache    *bibcache.Cache
	store    *collection.Store
	pipeline *doimeta.Pipeline
}

// mustOpenApp locates the collection and wires the components, exiting on
// error. The caller must Close() the returned app.
func mustOpenApp() *app {
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}

	root, err := config.FindCollection(cwd)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	session, err := storage.NewFileKV(config.SessionPath(root))
	if err != nil {
		exitWithError(ExitError, "opening session store: %v", err)
	}

	db, err := storage.OpenSQLiteKV(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}

	logf := func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	cache := bibcache.New(db, bibcache.WithLogf(logf))
	store := collection.New(session, cache, collection.WithLogf(logf))
	pipeline := doimeta.NewPipeline(doimeta.NewClient(), cache)

	return &app{
		root:     root,
		cfg:      cfg,
		db:       db,
		cache:    cache,
		store:    store,
		pipeline: pipeline,
	}
}

// Close releases the app's resources.
func (a *app) Close() {
	a.db.Close()
}
