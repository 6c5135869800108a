package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/everlist/everlist/internal/changelog"
	"github.com/everlist/everlist/internal/dashboard"
	"github.com/everlist/everlist/internal/poller"
	"github.com/everlist/everlist/internal/snapshot"
	"github.com/everlist/everlist/internal/store"
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard <list-id>...",
	GroupID: "sync",
	Short:   "Serve a realtime WebSocket view of one or more lists",
	Long: `Serve a realtime WebSocket dashboard for the given lists.

One poller runs per list; whenever a poll materializes changed content
the new view is broadcast to all connected clients, along with every
sync-status transition.

Connect a WebSocket client to ws://localhost:<port>/ws.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listType := parseListTypeFlag(cmd)
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.DashboardPort
		}

		logger := log.New(os.Stderr, "[dashboard] ", log.LstdFlags)

		server := dashboard.NewServer(&dashboard.Config{Port: port, Logger: logger})
		if err := server.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
			os.Exit(1)
		}

		snaps, err := snapshot.Open(cfg.SnapshotPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening snapshot database: %v\n", err)
			os.Exit(1)
		}
		defer snaps.Close()
		client := store.NewClient(cfg.ServerURL, logger)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		pollers := make([]*poller.Poller, 0, len(args))
		for _, listID := range args {
			listID := listID
			s := store.New(client, snaps, listType, listID, store.Options{
				User:   cfg.User,
				Logger: logger,
				OnStatus: func(st store.SyncStatus) {
					server.PublishSyncStatus(listID, string(st))
				},
			})
			p := poller.New(poller.Config{
				Interval: cfg.PollInterval,
				Fetch: func(ctx context.Context) []changelog.Event {
					return s.LoadChangelogFromServer(ctx, false)
				},
				Replay: replayFor(listType),
				Render: func(view any) {
					server.PublishListUpdate(listID, view)
				},
				Logger: logger,
			})
			p.Resume(ctx)
			pollers = append(pollers, p)
		}

		fmt.Printf("Dashboard on http://localhost:%d (ws://localhost:%d/ws)\n", port, port)
		<-ctx.Done()

		for _, p := range pollers {
			p.Pause()
		}
		if err := server.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	dashboardCmd.Flags().StringP("type", "t", "shopping", "list type (shopping, planner, tracker, tennis)")
	dashboardCmd.Flags().IntP("port", "p", 0, "port to listen on (default from config)")
	rootCmd.AddCommand(dashboardCmd)
}
