// Package replay folds time-sorted changelogs into materialized views.
//
// Replay is a pure function of the *set* of events: the kernel re-sorts
// by the raw timestamp string before folding, so any permutation of the
// same events materializes identically. Materialized views are derived
// state and are recomputed in full on every call; nothing here mutates
// its input.
package replay

import (
	"sort"

	"github.com/everlist/everlist/internal/changelog"
)

// Result is the output of the base fold. Items maps entity id to the
// materialized item; Order is the explicit id sequence, maintained
// separately from the map. Sorted is the time-sorted event slice so a
// domain extension can run a second linear pass without re-sorting.
type Result[T any] struct {
	Items  map[string]T
	Order  []string
	Sorted []changelog.Event
}

// Base sorts events ascending by timestamp (lexicographic string
// compare, stable for ties) and folds the three kernel ops:
//
//   - added: items[id] = factory(event); order gains id at the end
//   - removed: delete from items; first occurrence leaves order
//   - reorder: order is replaced wholesale with the event's id list,
//     filtered to ids present in items (unknown ids dropped silently)
//
// A duplicate added for the same id overwrites the map entry but does
// NOT deduplicate order. That asymmetry is a known property of the log
// format and is asserted by tests; do not fix it here.
func Base[T any](events []changelog.Event, factory func(changelog.Event) T) Result[T] {
	sorted := make([]changelog.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TS < sorted[j].TS
	})

	items := make(map[string]T)
	var order []string

	for _, ev := range sorted {
		switch ev.Op {
		case changelog.OpAdded:
			if ev.ID == "" {
				continue
			}
			items[ev.ID] = factory(ev)
			order = append(order, ev.ID)

		case changelog.OpRemoved:
			delete(items, ev.ID)
			order = removeFirst(order, ev.ID)

		case changelog.OpReorder:
			p, ok := ev.Payload.(changelog.Reorder)
			if !ok {
				continue
			}
			next := make([]string, 0, len(p.Order))
			for _, id := range p.Order {
				if _, known := items[id]; known {
					next = append(next, id)
				}
			}
			order = next
		}
	}

	return Result[T]{Items: items, Order: order, Sorted: sorted}
}

// removeFirst deletes the first occurrence of id from order.
func removeFirst(order []string, id string) []string {
	for i, existing := range order {
		if existing == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// addedField reads a string creation field from an added-family payload.
func addedField(ev changelog.Event, key string) string {
	p, ok := ev.Payload.(changelog.Added)
	if !ok {
		return ""
	}
	s, _ := p.Fields[key].(string)
	return s
}

// addedFields returns a copy of the creation fields of an added-family
// payload, so later merges never alias the event.
func addedFields(ev changelog.Event) map[string]any {
	p, ok := ev.Payload.(changelog.Added)
	if !ok || p.Fields == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(p.Fields))
	for k, v := range p.Fields {
		out[k] = v
	}
	return out
}
