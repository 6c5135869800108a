package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/everlist/everlist/internal/replay"
	"github.com/everlist/everlist/internal/store"
	"github.com/everlist/everlist/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <list-id>",
	GroupID: "items",
	Short:   "Fetch, replay, and print a list",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listType := parseListTypeFlag(cmd)
		listID := args[0]

		s, release := openStore(cfg, listType, listID, nil)
		defer release()

		events := s.LoadChangelogFromServer(cmd.Context(), false)

		md := s.Metadata()
		title := md.Name
		if title == "" {
			title = listID
		}
		fmt.Printf("%s  (%s)\n", ui.RenderTitle(title), ui.RenderStatus(s.Status()))

		switch listType {
		case store.TypePlanner:
			fmt.Print(ui.RenderPlanner(replay.Planner(events)))
		case store.TypeTracker:
			fmt.Print(ui.RenderTracker(replay.Tracker(events)))
		case store.TypeTennis:
			fmt.Print(ui.RenderTennis(replay.Tennis(events)))
		default:
			fmt.Print(ui.RenderShopping(replay.Shopping(events)))
		}

		if s.Status() == store.StatusOffline || s.Status() == store.StatusError {
			fmt.Fprintln(os.Stderr, "Warning: showing last known local view")
		}
	},
}

func init() {
	showCmd.Flags().StringP("type", "t", "shopping", "list type (shopping, planner, tracker, tennis)")
	rootCmd.AddCommand(showCmd)
}
