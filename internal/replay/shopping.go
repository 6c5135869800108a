package replay

import "github.com/everlist/everlist/internal/changelog"

// ShoppingItem is one materialized checklist entry.
type ShoppingItem struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Shopping materializes a shopping-list changelog. On top of the kernel
// fold it applies checked/unchecked toggles and clear_completed batches.
//
// clear_completed removes exactly the ids fixed in the event payload:
// the set captured what was checked at the moment of clearing and is
// never recomputed against replayed state, so an unchecked event with an
// earlier timestamp cannot rescue an id from the batch.
func Shopping(events []changelog.Event) []ShoppingItem {
	res := Base(events, func(ev changelog.Event) *ShoppingItem {
		return &ShoppingItem{ID: ev.ID, Text: addedField(ev, "text")}
	})

	order := res.Order
	for _, ev := range res.Sorted {
		switch ev.Op {
		case changelog.OpChecked:
			if it, ok := res.Items[ev.ID]; ok {
				it.Checked = true
			}
		case changelog.OpUnchecked:
			if it, ok := res.Items[ev.ID]; ok {
				it.Checked = false
			}
		case changelog.OpClearCompleted:
			p, ok := ev.Payload.(changelog.ClearCompleted)
			if !ok {
				continue
			}
			for _, id := range p.IDs {
				delete(res.Items, id)
				order = removeFirst(order, id)
			}
		}
	}

	out := make([]ShoppingItem, 0, len(order))
	for _, id := range order {
		if it, ok := res.Items[id]; ok {
			out = append(out, *it)
		}
	}
	return out
}
