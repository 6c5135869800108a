package replay

import "github.com/everlist/everlist/internal/changelog"

// TennisPlayer is one roster entry.
type TennisPlayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TennisMatch is one scheduled match with its flat attributes
// (date, location, opponent, ...).
type TennisMatch struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Assignment is the set of players assigned to one position of a match.
// Legacy logs stored a bare id array for this value; the codec upgrades
// those on decode, so replay only ever sees this shape.
type Assignment struct {
	Players []string `json:"players"`
	Date    string   `json:"date,omitempty"`
}

// TennisState is the materialized view of the four coupled collections
// of a tennis roster/match changelog.
type TennisState struct {
	Players       []TennisPlayer                   `json:"players"`
	Matches       []TennisMatch                    `json:"matches"`
	Availability  map[string]map[string]bool       `json:"availability"`
	Assignments   map[string]map[string]Assignment `json:"assignments"`
	PositionTimes map[string]map[string]string     `json:"positionTimes"`
}

// Tennis materializes a tennis changelog. The kernel fold contributes
// only the time-sorted event sequence; all six op families are applied
// here. Deleting a match cascades to its availability, assignment, and
// position-time sub-maps. Events referencing unknown match or player ids
// are dropped silently, and assignment player lists are filtered to the
// known roster.
func Tennis(events []changelog.Event) TennisState {
	res := Base(events, func(changelog.Event) struct{} { return struct{}{} })

	players := make(map[string]*TennisPlayer)
	var playerOrder []string
	matches := make(map[string]*TennisMatch)
	var matchOrder []string

	state := TennisState{
		Availability:  make(map[string]map[string]bool),
		Assignments:   make(map[string]map[string]Assignment),
		PositionTimes: make(map[string]map[string]string),
	}

	for _, ev := range res.Sorted {
		switch ev.Op {
		case changelog.OpPlayerAdd:
			if ev.ID == "" {
				continue
			}
			if _, known := players[ev.ID]; !known {
				playerOrder = append(playerOrder, ev.ID)
			}
			players[ev.ID] = &TennisPlayer{ID: ev.ID, Name: addedField(ev, "name")}

		case changelog.OpPlayerRemove:
			delete(players, ev.ID)
			playerOrder = removeFirst(playerOrder, ev.ID)

		case changelog.OpPlayerRename:
			p, ok := ev.Payload.(changelog.Rename)
			if !ok {
				continue
			}
			if pl, known := players[ev.ID]; known {
				pl.Name = p.Name
			}

		case changelog.OpMatchAdd:
			if ev.ID == "" {
				continue
			}
			if _, known := matches[ev.ID]; !known {
				matchOrder = append(matchOrder, ev.ID)
			}
			matches[ev.ID] = &TennisMatch{ID: ev.ID, Fields: addedFields(ev)}

		case changelog.OpMatchRemove:
			delete(matches, ev.ID)
			matchOrder = removeFirst(matchOrder, ev.ID)
			// Cascade: the match's sub-collections go with it.
			delete(state.Availability, ev.ID)
			delete(state.Assignments, ev.ID)
			delete(state.PositionTimes, ev.ID)

		case changelog.OpMatchUpdate:
			p, ok := ev.Payload.(changelog.Updated)
			if !ok {
				continue
			}
			if m, known := matches[ev.ID]; known {
				for k, v := range p.Fields {
					m.Fields[k] = v
				}
			}

		case changelog.OpAvailabilitySet:
			p, ok := ev.Payload.(changelog.AvailabilitySet)
			if !ok {
				continue
			}
			if _, known := matches[p.Match]; !known {
				continue
			}
			if _, known := players[p.Player]; !known {
				continue
			}
			if state.Availability[p.Match] == nil {
				state.Availability[p.Match] = make(map[string]bool)
			}
			state.Availability[p.Match][p.Player] = p.Available

		case changelog.OpAssignmentSet:
			p, ok := ev.Payload.(changelog.AssignmentSet)
			if !ok {
				continue
			}
			if _, known := matches[p.Match]; !known {
				continue
			}
			assigned := make([]string, 0, len(p.Players))
			for _, id := range p.Players {
				if _, known := players[id]; known {
					assigned = append(assigned, id)
				}
			}
			if state.Assignments[p.Match] == nil {
				state.Assignments[p.Match] = make(map[string]Assignment)
			}
			state.Assignments[p.Match][p.Position] = Assignment{Players: assigned, Date: p.Date}

		case changelog.OpPositionTimeSet:
			p, ok := ev.Payload.(changelog.PositionTimeSet)
			if !ok {
				continue
			}
			if _, known := matches[p.Match]; !known {
				continue
			}
			if state.PositionTimes[p.Match] == nil {
				state.PositionTimes[p.Match] = make(map[string]string)
			}
			state.PositionTimes[p.Match][p.Position] = p.Time
		}
	}

	state.Players = make([]TennisPlayer, 0, len(playerOrder))
	for _, id := range playerOrder {
		if pl, ok := players[id]; ok {
			state.Players = append(state.Players, *pl)
		}
	}
	state.Matches = make([]TennisMatch, 0, len(matchOrder))
	for _, id := range matchOrder {
		if m, ok := matches[id]; ok {
			state.Matches = append(state.Matches, *m)
		}
	}
	return state
}
