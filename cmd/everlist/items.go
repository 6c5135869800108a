package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/everlist/everlist/internal/changelog"
	"github.com/everlist/everlist/internal/replay"
	"github.com/everlist/everlist/internal/store"
)

var checkCmd = &cobra.Command{
	Use:     "check <list-id> <item-id>",
	GroupID: "items",
	Short:   "Mark an item checked (shopping) or completed (planner)",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		toggleItem(cmd, args, true)
	},
}

var uncheckCmd = &cobra.Command{
	Use:     "uncheck <list-id> <item-id>",
	GroupID: "items",
	Short:   "Mark an item unchecked (shopping) or uncompleted (planner)",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		toggleItem(cmd, args, false)
	},
}

func toggleItem(cmd *cobra.Command, args []string, on bool) {
	cfg := loadConfig()
	listType := parseListTypeFlag(cmd)

	var op changelog.Op
	switch {
	case listType == store.TypePlanner && on:
		op = changelog.OpCompleted
	case listType == store.TypePlanner:
		op = changelog.OpUncompleted
	case on:
		op = changelog.OpChecked
	default:
		op = changelog.OpUnchecked
	}

	s, release := openStore(cfg, listType, args[0], nil)
	defer release()

	if !s.AddEvent(op, args[1], changelog.Bare{}).Wait(cmd.Context()) {
		fmt.Fprintln(os.Stderr, "Warning: write recorded locally only; the server did not confirm it")
	}
}

var removeCmd = &cobra.Command{
	Use:     "remove <list-id> <item-id>",
	GroupID: "items",
	Short:   "Remove an item from a list",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listType := parseListTypeFlag(cmd)

		s, release := openStore(cfg, listType, args[0], nil)
		defer release()

		if !s.AddEvent(changelog.OpRemoved, args[1], changelog.Bare{}).Wait(cmd.Context()) {
			fmt.Fprintln(os.Stderr, "Warning: write recorded locally only; the server did not confirm it")
		}
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear <list-id>",
	GroupID: "items",
	Short:   "Clear all checked items from a shopping list",
	Long: `Clear all checked items from a shopping list.

The set of ids to remove is captured now, at event-creation time, and is
carried in the event payload. Replay removes exactly that set regardless
of later-arriving toggle events with earlier timestamps.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listID := args[0]

		s, release := openStore(cfg, store.TypeShopping, listID, nil)
		defer release()

		events := s.LoadChangelogFromServer(cmd.Context(), false)
		var ids []string
		for _, it := range replay.Shopping(events) {
			if it.Checked {
				ids = append(ids, it.ID)
			}
		}
		if len(ids) == 0 {
			fmt.Println("nothing to clear")
			return
		}

		pending := s.AddEvent(changelog.OpClearCompleted, "", changelog.ClearCompleted{IDs: ids})
		fmt.Printf("cleared %d items\n", len(ids))
		if !pending.Wait(cmd.Context()) {
			fmt.Fprintln(os.Stderr, "Warning: write recorded locally only; the server did not confirm it")
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{checkCmd, uncheckCmd, removeCmd} {
		c.Flags().StringP("type", "t", "shopping", "list type (shopping, planner, tracker, tennis)")
	}
	rootCmd.AddCommand(checkCmd, uncheckCmd, removeCmd, clearCmd)
}
