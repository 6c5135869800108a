package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/everlist/everlist/internal/changelog"
	"github.com/everlist/everlist/internal/config"
	"github.com/everlist/everlist/internal/manager"
	"github.com/everlist/everlist/internal/snapshot"
	"github.com/everlist/everlist/internal/store"
	"github.com/everlist/everlist/internal/ui"
)

var listsCmd = &cobra.Command{
	Use:     "lists",
	GroupID: "lists",
	Short:   "Show the lists registered to you",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		m, release := openManager(cfg)
		defer release()

		refs := m.Lists(cmd.Context())
		if len(refs) == 0 {
			fmt.Println("no lists")
			return
		}
		meta := m.MetadataAll(cmd.Context(), refs)
		for _, ref := range refs {
			name := meta[ref.ID].Name
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("  %s  %s  %s\n", ui.RenderTitle(name), ref.ListType, ui.RenderAccent(ref.ID))
		}
	},
}

var listsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a list and register it to you",
	Long: `Create a list and register it to you.

Two events are written in parallel: a reference on your registry log and
a list_init on the new list's own metadata log. There is no rollback; if
one post fails the logs diverge until repaired by hand.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listType := parseListTypeFlag(cmd)

		m, release := openManager(cfg)
		defer release()

		ref, ok := m.AddList(cmd.Context(), args[0], listType)
		fmt.Printf("created %s (%s)\n", args[0], ref.ID)
		if !ok {
			fmt.Fprintln(os.Stderr, "Warning: one of the two writes was not confirmed; the registry and the list may disagree")
		}
	},
}

var listsRmCmd = &cobra.Command{
	Use:   "rm <list-id>",
	Short: "Drop a list from your registry",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		m, release := openManager(cfg)
		defer release()

		if !m.RemoveList(cmd.Context(), args[0]) {
			fmt.Fprintln(os.Stderr, "Warning: write recorded locally only; the server did not confirm it")
		}
	},
}

var renameCmd = &cobra.Command{
	Use:     "rename <list-id> <name>",
	GroupID: "lists",
	Short:   "Rename a list on its metadata sub-log",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listType := parseListTypeFlag(cmd)

		s, release := openStore(cfg, listType, args[0], nil)
		defer release()

		if !s.AddEvent(changelog.OpListRenamed, "", changelog.ListRenamed{Name: args[1]}).Wait(cmd.Context()) {
			fmt.Fprintln(os.Stderr, "Warning: write recorded locally only; the server did not confirm it")
		}
	},
}

// openManager wires a list manager over the user's registry log. All
// stores share one snapshot database handle.
func openManager(cfg *config.Config) (*manager.Manager, func()) {
	snaps, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening snapshot database: %v\n", err)
		os.Exit(1)
	}
	logger := log.New(os.Stderr, "[lists] ", log.LstdFlags)
	client := store.NewClient(cfg.ServerURL, logger)

	open := func(listType store.ListType, listID string) *store.Store {
		return store.New(client, snaps, listType, listID, store.Options{
			User:   cfg.User,
			Logger: logger,
		})
	}
	registry := open(store.TypeRegistry, "user-"+cfg.User)
	return manager.New(cfg.User, registry, open, logger), func() { _ = snaps.Close() }
}

func init() {
	listsAddCmd.Flags().StringP("type", "t", "shopping", "list type (shopping, planner, tracker, tennis)")
	renameCmd.Flags().StringP("type", "t", "shopping", "list type (shopping, planner, tracker, tennis)")
	listsCmd.AddCommand(listsAddCmd, listsRmCmd)
	rootCmd.AddCommand(listsCmd, renameCmd)
}
