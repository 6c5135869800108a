package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/everlist/everlist/internal/changelog"
	"github.com/everlist/everlist/internal/store"
)

var importCmd = &cobra.Command{
	Use:     "import <list-id> <file>",
	GroupID: "items",
	Short:   "Bulk-import items from a tab-separated file",
	Long: `Bulk-import items from a tab-separated file, one item per line.
Column 1 is the item text; an optional column 2 becomes the status field
for tracker lists.

Writes are sequential: each event waits for server confirmation before
the next one is posted, with a fixed pause between writes to go easy on
the log service. The import stops on the first unconfirmed write.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listType := parseListTypeFlag(cmd)
		listID := args[0]
		delay, _ := cmd.Flags().GetDuration("delay")

		f, err := os.Open(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		s, release := openStore(cfg, listType, listID, nil)
		defer release()

		imported := 0
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimRight(scanner.Text(), "\r\n")
			if strings.TrimSpace(line) == "" {
				continue
			}
			cols := strings.Split(line, "\t")

			fields := map[string]any{"text": cols[0]}
			if listType == store.TypeTracker {
				fields = map[string]any{"name": cols[0]}
				if len(cols) > 1 && cols[1] != "" {
					fields["status"] = cols[1]
				}
			}

			pending := s.AddEvent(changelog.OpAdded, changelog.NewID(), changelog.Added{Fields: fields})
			if !pending.Wait(cmd.Context()) {
				fmt.Fprintf(os.Stderr, "Error: write for %q was not confirmed; stopping after %d items\n", cols[0], imported)
				os.Exit(1)
			}
			imported++

			// Server-load heuristic, not a correctness mechanism.
			time.Sleep(delay)
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", args[1], err)
			os.Exit(1)
		}

		fmt.Printf("imported %d items\n", imported)
	},
}

func init() {
	importCmd.Flags().StringP("type", "t", "shopping", "list type (shopping, planner, tracker, tennis)")
	importCmd.Flags().Duration("delay", 150*time.Millisecond, "pause between sequential writes")
	rootCmd.AddCommand(importCmd)
}
