package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everlist/everlist/internal/changelog"
)

func TestTrackerPartialMerge(t *testing.T) {
	events := []changelog.Event{
		ev(changelog.OpAdded, "p1", 1, changelog.Added{Fields: map[string]any{
			"name":    "Widget",
			"status":  "ordered",
			"carrier": "UPS",
		}}),
		// Partial update: only status changes, other fields survive.
		ev(changelog.OpUpdated, "p1", 2, changelog.Updated{Fields: map[string]any{
			"status": "shipped",
		}}),
	}

	got := Tracker(events)
	require.Len(t, got, 1)
	assert.Equal(t, "Widget", got[0].Fields["name"])
	assert.Equal(t, "shipped", got[0].Fields["status"])
	assert.Equal(t, "UPS", got[0].Fields["carrier"])
	assert.Nil(t, got[0].Protos)
}

func TestTrackerProtosReplacedWholesale(t *testing.T) {
	events := []changelog.Event{
		ev(changelog.OpAdded, "p1", 1, changelog.Added{Fields: map[string]any{"name": "Widget"}}),
		ev(changelog.OpUpdated, "p1", 2, changelog.Updated{
			HasProtos: true,
			Protos: []changelog.Proto{
				{ID: "a", Label: "rev A", Status: "testing"},
				{ID: "b", Label: "rev B", Status: "draft"},
			},
		}),
		ev(changelog.OpUpdated, "p1", 3, changelog.Updated{
			HasProtos: true,
			Protos: []changelog.Proto{
				{ID: "b", Label: "rev B", Status: "approved"},
			},
		}),
	}

	got := Tracker(events)
	require.Len(t, got, 1)
	// The second proto list replaces the first entirely; rev A is gone.
	require.Len(t, got[0].Protos, 1)
	assert.Equal(t, "b", got[0].Protos[0].ID)
	assert.Equal(t, "approved", got[0].Protos[0].Status)
}

func TestTrackerUpdateWithoutProtosKeepsExisting(t *testing.T) {
	events := []changelog.Event{
		ev(changelog.OpAdded, "p1", 1, changelog.Added{Fields: map[string]any{"name": "Widget"}}),
		ev(changelog.OpUpdated, "p1", 2, changelog.Updated{
			HasProtos: true,
			Protos:    []changelog.Proto{{ID: "a", Label: "rev A"}},
		}),
		// No proto key on this event at all: existing protos survive.
		ev(changelog.OpUpdated, "p1", 3, changelog.Updated{Fields: map[string]any{"status": "done"}}),
	}

	got := Tracker(events)
	require.Len(t, got, 1)
	require.Len(t, got[0].Protos, 1)
	assert.Equal(t, "a", got[0].Protos[0].ID)
	assert.Equal(t, "done", got[0].Fields["status"])
}

func TestTrackerUpdateOnUnknownIDDropped(t *testing.T) {
	events := []changelog.Event{
		ev(changelog.OpUpdated, "ghost", 1, changelog.Updated{Fields: map[string]any{"status": "lost"}}),
	}

	assert.Empty(t, Tracker(events))
}
