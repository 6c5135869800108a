package replay

import (
	"reflect"
	"testing"

	"github.com/everlist/everlist/internal/changelog"
)

func plannerAdded(id string, n int, text, due string) changelog.Event {
	fields := map[string]any{"text": text}
	if due != "" {
		fields["due"] = due
	}
	return ev(changelog.OpAdded, id, n, changelog.Added{Fields: fields})
}

func intPtr(n int) *int { return &n }

func plannerIDs(tasks []PlannerTask) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestPlannerCompletedAndEnjoyment(t *testing.T) {
	events := []changelog.Event{
		plannerAdded("a", 1, "Write report", "2026-08-24"),
		ev(changelog.OpCompleted, "a", 2, changelog.Bare{}),
		ev(changelog.OpEnjoyment, "a", 3, changelog.Enjoyment{Rating: 4.5}),
	}

	got := Planner(events)
	want := []PlannerTask{
		{ID: "a", Text: "Write report", Due: "2026-08-24", Completed: true, Enjoyment: 4.5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Planner() = %+v, want %+v", got, want)
	}
}

func TestPlannerMoved(t *testing.T) {
	setup := []changelog.Event{
		plannerAdded("a", 1, "a", ""),
		plannerAdded("b", 2, "b", ""),
		plannerAdded("c", 3, "c", ""),
	}

	tests := []struct {
		name string
		move changelog.Event
		want []string
	}{
		{
			name: "afterId resolves",
			move: ev(changelog.OpMoved, "a", 4, changelog.Moved{AfterID: "c"}),
			want: []string{"b", "c", "a"},
		},
		{
			name: "afterId unresolved falls to index 0",
			move: ev(changelog.OpMoved, "c", 4, changelog.Moved{AfterID: "deleted"}),
			want: []string{"c", "a", "b"},
		},
		{
			name: "toIndex used when afterId absent",
			move: ev(changelog.OpMoved, "a", 4, changelog.Moved{ToIndex: intPtr(1)}),
			want: []string{"b", "a", "c"},
		},
		{
			name: "toIndex clamped to tail",
			move: ev(changelog.OpMoved, "a", 4, changelog.Moved{ToIndex: intPtr(99)}),
			want: []string{"b", "c", "a"},
		},
		{
			name: "afterId wins over toIndex",
			move: ev(changelog.OpMoved, "a", 4, changelog.Moved{AfterID: "b", ToIndex: intPtr(2)}),
			want: []string{"b", "a", "c"},
		},
		{
			name: "move of unknown task is dropped",
			move: ev(changelog.OpMoved, "ghost", 4, changelog.Moved{AfterID: "a"}),
			want: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := append(append([]changelog.Event(nil), setup...), tt.move)
			got := plannerIDs(Planner(events))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlannerUncompletedTogglesBack(t *testing.T) {
	events := []changelog.Event{
		plannerAdded("a", 1, "a", ""),
		ev(changelog.OpCompleted, "a", 2, changelog.Bare{}),
		ev(changelog.OpUncompleted, "a", 3, changelog.Bare{}),
	}

	got := Planner(events)
	if len(got) != 1 || got[0].Completed {
		t.Errorf("Planner() = %+v, want one uncompleted task", got)
	}
}
