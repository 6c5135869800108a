package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/everlist/everlist/internal/changelog"
	"github.com/everlist/everlist/internal/store"
)

var addCmd = &cobra.Command{
	Use:     "add <list-id> [text...]",
	GroupID: "items",
	Short:   "Add an item to a list",
	Long: `Add an item to a list.

The event is applied locally at once and posted to the remote log in the
background; the command waits for the post so a lost write is reported.

With no text argument an interactive form opens. For planner lists a
--due phrase like "tomorrow 9am" is resolved to a date.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		listType := parseListTypeFlag(cmd)
		listID := args[0]

		text := strings.Join(args[1:], " ")
		if text == "" {
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().Title("Item").Value(&text),
			))
			if err := form.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(os.Stderr, "Error: empty item")
			os.Exit(1)
		}

		fields := map[string]any{"text": text}
		if listType == store.TypeTracker {
			fields = map[string]any{"name": text}
		}

		if duePhrase, _ := cmd.Flags().GetString("due"); duePhrase != "" {
			due, err := parseDue(duePhrase)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fields["due"] = due
		}

		s, release := openStore(cfg, listType, listID, nil)
		defer release()

		pending := s.AddEvent(changelog.OpAdded, changelog.NewID(), changelog.Added{Fields: fields})
		fmt.Printf("added %s (%s)\n", text, pending.Event.ID)

		if !pending.Wait(cmd.Context()) {
			fmt.Fprintln(os.Stderr, "Warning: write recorded locally only; the server did not confirm it")
		}
	},
}

// parseDue resolves a natural-language date phrase to a calendar date.
func parseDue(phrase string) (string, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(phrase, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to parse due phrase: %w", err)
	}
	if r == nil {
		return "", fmt.Errorf("could not understand due phrase %q", phrase)
	}
	return r.Time.Format(changelog.DateLayout), nil
}

func init() {
	addCmd.Flags().StringP("type", "t", "shopping", "list type (shopping, planner, tracker, tennis)")
	addCmd.Flags().String("due", "", "due phrase for planner items (e.g. \"tomorrow\")")
	rootCmd.AddCommand(addCmd)
}
