package replay

import "github.com/everlist/everlist/internal/changelog"

// TrackedProduct is one materialized product record. Fields holds the
// flat attributes (name, status, carrier, ...); Protos is the nested
// sub-record list carried wholesale inside updated events.
type TrackedProduct struct {
	ID     string            `json:"id"`
	Fields map[string]any    `json:"fields"`
	Protos []changelog.Proto `json:"protos,omitempty"`
}

// Tracker materializes a product-tracker changelog. An updated event is
// a partial shallow merge: only the keys present on the event overwrite
// the item's fields. When the event carries a proto list, that list
// replaces the item's protos entirely — protos are not independently
// event-sourced, so there is nothing to merge.
func Tracker(events []changelog.Event) []TrackedProduct {
	res := Base(events, func(ev changelog.Event) *TrackedProduct {
		return &TrackedProduct{ID: ev.ID, Fields: addedFields(ev)}
	})

	for _, ev := range res.Sorted {
		if ev.Op != changelog.OpUpdated {
			continue
		}
		p, ok := ev.Payload.(changelog.Updated)
		if !ok {
			continue
		}
		item, ok := res.Items[ev.ID]
		if !ok {
			continue
		}
		for k, v := range p.Fields {
			item.Fields[k] = v
		}
		if p.HasProtos {
			item.Protos = append([]changelog.Proto(nil), p.Protos...)
		}
	}

	out := make([]TrackedProduct, 0, len(res.Order))
	for _, id := range res.Order {
		if item, ok := res.Items[id]; ok {
			out = append(out, *item)
		}
	}
	return out
}
