package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/everlist/everlist/internal/changelog"
	"github.com/everlist/everlist/internal/config"
	"github.com/everlist/everlist/internal/poller"
	"github.com/everlist/everlist/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon <list-id>",
	GroupID: "sync",
	Short:   "Poll a list and print it whenever its content changes",
	Long: `Poll a list at the configured interval and print its materialized view
whenever the content actually changed (no-op polls are skipped via a
content hash).

The poller mirrors the visibility model of the web clients:
  SIGUSR1 pauses polling (page hidden)
  SIGUSR2 resumes polling (page visible)

The config file is watched; changing poll_interval takes effect without
a restart.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listType := parseListTypeFlag(cmd)
		listID := args[0]

		var out io.Writer = os.Stderr
		if cfg.LogFile != "" {
			out = &lumberjack.Logger{
				Filename:   cfg.LogFile,
				MaxSize:    10, // MB
				MaxBackups: 3,
			}
		}
		logger := log.New(out, "[daemon] ", log.LstdFlags)

		s, release := openStore(cfg, listType, listID, logger)
		defer release()

		replayView := replayFor(listType)
		newPoller := func(c *config.Config) *poller.Poller {
			return poller.New(poller.Config{
				Interval: c.PollInterval,
				Fetch: func(ctx context.Context) []changelog.Event {
					return s.LoadChangelogFromServer(ctx, true)
				},
				Replay: replayView,
				Render: func(view any) {
					fmt.Printf("%s %s\n", ui.RenderAccent("updated"), listID)
					printView(view)
				},
				Logger: logger,
			})
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		p := newPoller(cfg)
		p.Resume(ctx)
		logger.Printf("polling %s every %s", listID, cfg.PollInterval)

		// Visibility signals.
		visibility := make(chan os.Signal, 1)
		signal.Notify(visibility, syscall.SIGUSR1, syscall.SIGUSR2)

		// Hot-reload the poll interval from the config file.
		stopWatch := make(chan struct{})
		reloaded := make(chan *config.Config, 1)
		go func() {
			err := config.Watch(cfgFile, logger, stopWatch, func(next *config.Config) {
				select {
				case reloaded <- next:
				default:
				}
			})
			if err != nil {
				logger.Printf("config watch unavailable: %v", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				close(stopWatch)
				p.Pause()
				logger.Println("daemon stopped")
				return

			case sig := <-visibility:
				if sig == syscall.SIGUSR1 {
					logger.Println("paused")
					p.Pause()
				} else {
					logger.Println("resumed")
					p.Resume(ctx)
				}

			case next := <-reloaded:
				if next.PollInterval == cfg.PollInterval {
					continue
				}
				logger.Printf("poll interval changed: %s -> %s", cfg.PollInterval, next.PollInterval)
				wasPolling := p.Polling()
				p.Pause()
				cfg = next
				p = newPoller(cfg)
				if wasPolling {
					p.Resume(ctx)
				}
			}
		}
	},
}

func init() {
	daemonCmd.Flags().StringP("type", "t", "shopping", "list type (shopping, planner, tracker, tennis)")
	rootCmd.AddCommand(daemonCmd)
}
