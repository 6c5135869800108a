package replay

import (
	"reflect"
	"testing"

	"github.com/everlist/everlist/internal/changelog"
)

func TestShopping(t *testing.T) {
	tests := []struct {
		name   string
		events []changelog.Event
		want   []ShoppingItem
	}{
		{
			name: "add check remove",
			events: []changelog.Event{
				added("m", 1, "Milk"),
				added("e", 2, "Eggs"),
				ev(changelog.OpChecked, "m", 3, changelog.Bare{}),
				ev(changelog.OpRemoved, "e", 4, changelog.Bare{}),
			},
			want: []ShoppingItem{
				{ID: "m", Text: "Milk", Checked: true},
			},
		},
		{
			name: "check then uncheck toggles back",
			events: []changelog.Event{
				added("m", 1, "Milk"),
				ev(changelog.OpChecked, "m", 2, changelog.Bare{}),
				ev(changelog.OpUnchecked, "m", 3, changelog.Bare{}),
			},
			want: []ShoppingItem{
				{ID: "m", Text: "Milk"},
			},
		},
		{
			name: "toggle on unknown id is a no-op",
			events: []changelog.Event{
				added("m", 1, "Milk"),
				ev(changelog.OpChecked, "ghost", 2, changelog.Bare{}),
			},
			want: []ShoppingItem{
				{ID: "m", Text: "Milk"},
			},
		},
		{
			name: "reorder then clear completed",
			events: []changelog.Event{
				added("m", 1, "Milk"),
				added("e", 2, "Eggs"),
				added("b", 3, "Bread"),
				ev(changelog.OpChecked, "e", 4, changelog.Bare{}),
				ev(changelog.OpReorder, "", 5, changelog.Reorder{Order: []string{"b", "e", "m"}}),
				ev(changelog.OpClearCompleted, "", 6, changelog.ClearCompleted{IDs: []string{"e"}}),
			},
			want: []ShoppingItem{
				{ID: "b", Text: "Bread"},
				{ID: "m", Text: "Milk"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Shopping(tt.events)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Shopping() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestShoppingClearCompletedSetIsFixed(t *testing.T) {
	// The clear event captured {m} at write time. An unchecked event
	// that sorts *before* the clear does not rescue m: the batch deletes
	// exactly the ids in the payload, never a recomputed checked set.
	events := []changelog.Event{
		added("m", 1, "Milk"),
		ev(changelog.OpChecked, "m", 2, changelog.Bare{}),
		ev(changelog.OpUnchecked, "m", 3, changelog.Bare{}),
		ev(changelog.OpClearCompleted, "", 4, changelog.ClearCompleted{IDs: []string{"m"}}),
	}

	if got := Shopping(events); len(got) != 0 {
		t.Errorf("Shopping() = %+v, want empty list", got)
	}
}
