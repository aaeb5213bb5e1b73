package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/matsen/shelf/internal/export"
	"github.com/matsen/shelf/internal/gist"
	"github.com/matsen/shelf/internal/loader"
	"github.com/spf13/cobra"
)

var gistID string

func init() {
	gistCmd.PersistentFlags().StringVar(&gistID, "gist", "", "Gist ID (overrides the configured one)")
	gistCmd.AddCommand(gistPushCmd)
	gistCmd.AddCommand(gistPullCmd)
	gistCmd.AddCommand(gistStatusCmd)
	rootCmd.AddCommand(gistCmd)
}

var gistCmd = &cobra.Command{
	Use:   "gist",
	Short: "Sync the collection through a GitHub gist",
	Long: `Sync the collection document through a secret GitHub gist.

Requires a GITHUB_TOKEN with the gist scope, read from the environment or
a .env file. The gist ID is remembered in the collection config after the
first push.`,
}

// gistClient loads .env and builds an authenticated client.
func gistClient() *gist.Client {
	_ = godotenv.Load()
	return gist.NewClient()
}

// resolveGistID prefers the --gist flag over the configured ID.
func resolveGistID(a *app) string {
	if gistID != "" {
		return gistID
	}
	return a.cfg.GistID
}

var gistPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload the collection document to the gist",
	Long: `Upload the full collection document. Without a known gist ID a new
secret gist is created and its ID saved to the collection config.`,
	RunE: runGistPush,
}

func runGistPush(cmd *cobra.Command, args []string) error {
	a := mustOpenApp()
	defer a.Close()
	ctx := context.Background()
	client := gistClient()

	st := a.store.State()
	records := make([]export.Record, 0, st.Len())
	for _, key := range st.Keys() {
		p, _ := st.Get(key)
		records = append(records, export.Record{Key: key, Paper: p})
	}
	data, err := export.FullDocument(records)
	if err != nil {
		exitWithError(ExitError, "encoding collection: %v", err)
	}

	id := resolveGistID(a)
	created := false
	if id == "" {
		id, err = client.Create(ctx, a.cfg.GistFile, "shelf paper collection", data)
		created = true
	} else {
		err = client.Update(ctx, id, a.cfg.GistFile, data)
	}
	if err != nil {
		exitGistError(err)
	}

	if a.cfg.GistID != id {
		a.cfg.GistID = id
		if err := a.cfg.Save(a.root); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: saving gist ID:", err)
		}
	}

	if humanOutput {
		verb := "Updated"
		if created {
			verb = "Created"
		}
		fmt.Printf("%s gist %s (%d records)\n", verb, id, len(records))
	} else {
		outputJSON(struct {
			Status  string `json:"status"`
			GistID  string `json:"gist_id"`
			Records int    `json:"records"`
		}{"pushed", id, len(records)})
	}
	return nil
}

var gistPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Replace the collection from the gist",
	Long: `Download the collection document from the gist, replace the local
collection with it, and re-enrich every record.`,
	RunE: runGistPull,
}

func runGistPull(cmd *cobra.Command, args []string) error {
	a := mustOpenApp()
	defer a.Close()
	ctx := context.Background()
	client := gistClient()

	id := resolveGistID(a)
	if id == "" {
		exitWithError(ExitConfigError, "no gist configured; push first or pass --gist")
	}

	data, err := client.Get(ctx, id, a.cfg.GistFile)
	if err != nil {
		exitGistError(err)
	}
	papers, err := loader.Parse(data)
	if err != nil {
		exitWithError(ExitDataError, "parsing gist content: %v", err)
	}

	a.store.BulkReplace(papers)
	processPapers(ctx, a)

	if humanOutput {
		fmt.Printf("Pulled %d records from gist %s\n", a.store.State().Len(), id)
	} else {
		outputJSON(struct {
			Status  string `json:"status"`
			GistID  string `json:"gist_id"`
			Records int    `json:"records"`
		}{"pulled", id, a.store.State().Len()})
	}
	return nil
}

var gistStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session user and matching gists",
	RunE:  runGistStatus,
}

func runGistStatus(cmd *cobra.Command, args []string) error {
	a := mustOpenApp()
	defer a.Close()
	ctx := context.Background()
	client := gistClient()

	user, err := client.CheckSession(ctx)
	if err != nil {
		exitGistError(err)
	}
	infos, err := client.List(ctx, a.cfg.GistFile)
	if err != nil {
		exitGistError(err)
	}

	if !humanOutput {
		return outputJSON(struct {
			User       *gist.User  `json:"user"`
			Configured string      `json:"configured_gist,omitempty"`
			Gists      []gist.Info `json:"gists"`
		}{user, a.cfg.GistID, infos})
	}

	fmt.Printf("Signed in as %s\n", user.Login)
	if a.cfg.GistID != "" {
		fmt.Printf("Configured gist: %s\n", a.cfg.GistID)
	}
	for _, info := range infos {
		fmt.Printf("  %s  %s (updated %s)\n", info.ID, info.Description, info.UpdatedAt)
	}
	if len(infos) == 0 {
		fmt.Printf("No gists containing %s\n", a.cfg.GistFile)
	}
	return nil
}

// exitGistError maps gist client errors onto exit codes.
func exitGistError(err error) {
	code := ExitFetchError
	if errors.Is(err, gist.ErrNoToken) || errors.Is(err, gist.ErrUnauthorized) {
		code = ExitAuthError
	}
	exitWithError(code, "%v", err)
}
