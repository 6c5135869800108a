// Package ui holds terminal rendering helpers for the CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/everlist/everlist/internal/replay"
	"github.com/everlist/everlist/internal/store"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	doneStyle    = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// RenderTitle styles a list heading.
func RenderTitle(s string) string { return titleStyle.Render(s) }

// RenderAccent styles an emphasized fragment.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderStatus colors a sync-status indicator.
func RenderStatus(st store.SyncStatus) string {
	switch st {
	case store.StatusSynced:
		return okStyle.Render(string(st))
	case store.StatusOffline:
		return offlineStyle.Render(string(st))
	case store.StatusError:
		return errorStyle.Render(string(st))
	}
	return faintStyle.Render(string(st))
}

// RenderShopping formats a materialized shopping list.
func RenderShopping(items []replay.ShoppingItem) string {
	var b strings.Builder
	for _, it := range items {
		if it.Checked {
			fmt.Fprintf(&b, "  [x] %s  %s\n", doneStyle.Render(it.Text), faintStyle.Render(it.ID))
		} else {
			fmt.Fprintf(&b, "  [ ] %s  %s\n", it.Text, faintStyle.Render(it.ID))
		}
	}
	return b.String()
}

// RenderPlanner formats a materialized planner.
func RenderPlanner(tasks []replay.PlannerTask) string {
	var b strings.Builder
	for _, t := range tasks {
		mark := "[ ]"
		text := t.Text
		if t.Completed {
			mark = "[x]"
			text = doneStyle.Render(text)
		}
		fmt.Fprintf(&b, "  %s %s", mark, text)
		if t.Due != "" {
			fmt.Fprintf(&b, "  %s", faintStyle.Render("due "+t.Due))
		}
		if t.Enjoyment > 0 {
			fmt.Fprintf(&b, "  %s", accentStyle.Render(fmt.Sprintf("%.0f/5", t.Enjoyment)))
		}
		fmt.Fprintf(&b, "  %s\n", faintStyle.Render(t.ID))
	}
	return b.String()
}

// RenderTracker formats materialized product records.
func RenderTracker(products []replay.TrackedProduct) string {
	var b strings.Builder
	for _, p := range products {
		name, _ := p.Fields["name"].(string)
		status, _ := p.Fields["status"].(string)
		fmt.Fprintf(&b, "  %s", name)
		if status != "" {
			fmt.Fprintf(&b, "  %s", accentStyle.Render(status))
		}
		if len(p.Protos) > 0 {
			fmt.Fprintf(&b, "  %s", faintStyle.Render(fmt.Sprintf("%d protos", len(p.Protos))))
		}
		fmt.Fprintf(&b, "  %s\n", faintStyle.Render(p.ID))
	}
	return b.String()
}

// RenderTennis formats a materialized tennis state.
func RenderTennis(state replay.TennisState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Players") + "\n")
	for _, p := range state.Players {
		fmt.Fprintf(&b, "  %s  %s\n", p.Name, faintStyle.Render(p.ID))
	}
	b.WriteString(titleStyle.Render("Matches") + "\n")
	for _, m := range state.Matches {
		date, _ := m.Fields["date"].(string)
		location, _ := m.Fields["location"].(string)
		fmt.Fprintf(&b, "  %s %s  %s\n", date, location, faintStyle.Render(m.ID))
		for pos, a := range state.Assignments[m.ID] {
			fmt.Fprintf(&b, "    %s: %s\n", pos, strings.Join(a.Players, ", "))
		}
	}
	return b.String()
}
