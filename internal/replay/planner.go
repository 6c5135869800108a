package replay

import "github.com/everlist/everlist/internal/changelog"

// PlannerTask is one materialized daily-planner entry.
type PlannerTask struct {
	ID        string  `json:"id"`
	Text      string  `json:"text"`
	Due       string  `json:"due,omitempty"`
	Completed bool    `json:"completed"`
	Enjoyment float64 `json:"enjoyment,omitempty"`
}

// Planner materializes a planner changelog: completed/uncompleted
// toggles, positional moves, and enjoyment ratings on top of the kernel
// fold.
//
// A moved event prefers afterId when present. An afterId that does not
// resolve to a known task places the moved task at index 0 — a quirk the
// log format relies on, not an error.
func Planner(events []changelog.Event) []PlannerTask {
	res := Base(events, func(ev changelog.Event) *PlannerTask {
		return &PlannerTask{
			ID:   ev.ID,
			Text: addedField(ev, "text"),
			Due:  addedField(ev, "due"),
		}
	})

	order := res.Order
	for _, ev := range res.Sorted {
		switch ev.Op {
		case changelog.OpCompleted:
			if t, ok := res.Items[ev.ID]; ok {
				t.Completed = true
			}
		case changelog.OpUncompleted:
			if t, ok := res.Items[ev.ID]; ok {
				t.Completed = false
			}
		case changelog.OpEnjoyment:
			p, ok := ev.Payload.(changelog.Enjoyment)
			if !ok {
				continue
			}
			if t, ok := res.Items[ev.ID]; ok {
				t.Enjoyment = p.Rating
			}
		case changelog.OpMoved:
			p, ok := ev.Payload.(changelog.Moved)
			if !ok {
				continue
			}
			if _, known := res.Items[ev.ID]; !known {
				continue
			}
			order = moveTask(order, ev.ID, p)
		}
	}

	out := make([]PlannerTask, 0, len(order))
	for _, id := range order {
		if t, ok := res.Items[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// moveTask splices id out of order and reinserts it per the moved
// payload.
func moveTask(order []string, id string, p changelog.Moved) []string {
	order = removeFirst(order, id)

	idx := 0
	if p.AfterID != "" {
		// Unresolved afterId falls through to index 0.
		for i, existing := range order {
			if existing == p.AfterID {
				idx = i + 1
				break
			}
		}
	} else if p.ToIndex != nil {
		idx = *p.ToIndex
		if idx < 0 {
			idx = 0
		}
		if idx > len(order) {
			idx = len(order)
		}
	}

	order = append(order, "")
	copy(order[idx+1:], order[idx:])
	order[idx] = id
	return order
}
