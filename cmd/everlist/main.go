// Command everlist is the CLI for the everlist replicated list client.
//
// Every command is a thin consumer of the replication core: it opens a
// per-list event store, appends events or loads-and-replays the remote
// changelog, and renders the resulting materialized array.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/everlist/everlist/internal/changelog"
	"github.com/everlist/everlist/internal/config"
	"github.com/everlist/everlist/internal/replay"
	"github.com/everlist/everlist/internal/snapshot"
	"github.com/everlist/everlist/internal/store"
	"github.com/everlist/everlist/internal/ui"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "everlist",
	Short: "Replicated lists over an append-only changelog",
	Long: `everlist keeps shopping lists, daily planners, product trackers, and
tennis rosters in sync across devices through an append-only event log.

Edits are applied optimistically and posted to the remote log in the
background; views are always recomputed by replaying the full changelog.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath(), "config file")

	rootCmd.AddGroup(
		&cobra.Group{ID: "items", Title: "Item commands:"},
		&cobra.Group{ID: "lists", Title: "List commands:"},
		&cobra.Group{ID: "sync", Title: "Sync commands:"},
	)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".everlist", "config.yaml")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStore builds a store handle for one list, backed by the shared
// snapshot database. The returned func releases the database.
func openStore(cfg *config.Config, listType store.ListType, listID string, logger *log.Logger) (*store.Store, func()) {
	snaps, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening snapshot database: %v\n", err)
		os.Exit(1)
	}
	client := store.NewClient(cfg.ServerURL, logger)
	s := store.New(client, snaps, listType, listID, store.Options{
		User:   cfg.User,
		Logger: logger,
	})
	return s, func() { _ = snaps.Close() }
}

func parseListTypeFlag(cmd *cobra.Command) store.ListType {
	raw, _ := cmd.Flags().GetString("type")
	t, err := store.ParseListType(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return t
}

// printView renders a materialized view produced by replayFor.
func printView(view any) {
	switch v := view.(type) {
	case []replay.ShoppingItem:
		fmt.Print(ui.RenderShopping(v))
	case []replay.PlannerTask:
		fmt.Print(ui.RenderPlanner(v))
	case []replay.TrackedProduct:
		fmt.Print(ui.RenderTracker(v))
	case replay.TennisState:
		fmt.Print(ui.RenderTennis(v))
	}
}

// replayFor returns the domain replay of a list type as a
// view-producing function for the poller and dashboard.
func replayFor(t store.ListType) func([]changelog.Event) any {
	switch t {
	case store.TypePlanner:
		return func(ev []changelog.Event) any { return replay.Planner(ev) }
	case store.TypeTracker:
		return func(ev []changelog.Event) any { return replay.Tracker(ev) }
	case store.TypeTennis:
		return func(ev []changelog.Event) any { return replay.Tennis(ev) }
	default:
		return func(ev []changelog.Event) any { return replay.Shopping(ev) }
	}
}
