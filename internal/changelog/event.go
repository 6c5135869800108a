// Package changelog defines the append-only event model shared by every
// list type.
//
// A changelog is the full event sequence for one list (or one list
// partition). Events are immutable once appended; every materialized view
// is recomputed from the changelog by replay and is never the source of
// truth. Ordering is driven by the raw ISO8601 timestamp string compared
// lexicographically, with ties keeping arrival order.
package changelog

// Op identifies the kind of state change an event describes.
type Op string

// Kernel ops understood by the base replay fold.
const (
	OpAdded   Op = "added"
	OpRemoved Op = "removed"
	OpReorder Op = "reorder"
)

// Shopping ops.
const (
	OpChecked        Op = "checked"
	OpUnchecked      Op = "unchecked"
	OpClearCompleted Op = "clear_completed"
)

// Planner ops.
const (
	OpCompleted   Op = "completed"
	OpUncompleted Op = "uncompleted"
	OpMoved       Op = "moved"
	OpEnjoyment   Op = "enjoyment"
)

// Tracker ops.
const (
	OpUpdated Op = "updated"
)

// Tennis ops.
const (
	OpPlayerAdd       Op = "player_add"
	OpPlayerRemove    Op = "player_remove"
	OpPlayerRename    Op = "player_rename"
	OpMatchAdd        Op = "match_add"
	OpMatchRemove     Op = "match_remove"
	OpMatchUpdate     Op = "match_update"
	OpAvailabilitySet Op = "availability_set"
	OpAssignmentSet   Op = "assignment_set"
	OpPositionTimeSet Op = "position_time_set"
)

// Metadata sub-log ops. These live on the perpetual endpoint even when a
// list's items are dated.
const (
	OpListInit    Op = "list_init"
	OpListRenamed Op = "list_renamed"
	OpHeroImage   Op = "hero_image"
)

// Registry ops used by the list manager's own log.
const (
	OpListAdded   Op = "list_added"
	OpListRemoved Op = "list_removed"
)

// Event is one immutable record in a changelog.
//
// TS is the raw ISO8601 string as written by the producing client. It is
// the sole ordering source and must never be converted to an epoch for
// comparison: replay sorts by plain string compare so that ties resolve
// the same way on every client.
type Event struct {
	Op      Op
	ID      string
	TS      string
	User    string
	Payload Payload
}

// Payload is the op-specific portion of an event. Exactly one variant
// exists per op family, plus Unknown for ops written by newer clients.
type Payload interface {
	isPayload()
}

// Bare is the payload of ops that carry nothing beyond the envelope
// (removed, checked, unchecked, completed, uncompleted, player_remove,
// match_remove, list_removed).
type Bare struct{}

// Added carries the flat creation fields of a new entity. The same shape
// serves added, player_add, and match_add; the item factory of each
// domain decides which fields it reads.
type Added struct {
	Fields map[string]any
}

// Reorder replaces the order list wholesale. Unknown ids are filtered at
// replay time, never here.
type Reorder struct {
	Order []string
}

// ClearCompleted removes the id set fixed at event-creation time. The
// set is authoritative: replay never recomputes it against current state.
type ClearCompleted struct {
	IDs []string
}

// Moved repositions a planner task. When AfterID is set it wins over
// ToIndex; an AfterID that does not resolve places the task at index 0.
type Moved struct {
	ToIndex *int
	AfterID string
}

// Enjoyment sets a numeric rating on a planner task.
type Enjoyment struct {
	Rating float64
}

// Updated performs a partial shallow merge: only keys present in Fields
// overwrite item fields. When HasProtos is true the nested proto list
// replaces the item's protos wholesale; protos are not independently
// event-sourced.
type Updated struct {
	Fields    map[string]any
	Protos    []Proto
	HasProtos bool
}

// Proto is one nested sub-record carried inside an updated event. It
// rides the wire as a JSON-serialized blob and is decoded only at the
// codec boundary.
type Proto struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// Rename changes a tennis player's name.
type Rename struct {
	Name string
}

// AvailabilitySet records one player's availability for one match.
type AvailabilitySet struct {
	Match     string
	Player    string
	Available bool
}

// AssignmentSet assigns players to a position of a match. Legacy events
// carried a bare id array; the codec upgrades those to the
// {players, date} shape so replay only ever sees this variant.
type AssignmentSet struct {
	Match    string
	Position string
	Players  []string
	Date     string
}

// PositionTimeSet records the start time of a position within a match.
type PositionTimeSet struct {
	Match    string
	Position string
	Time     string
}

// ListInit names a freshly created list on its metadata sub-log.
type ListInit struct {
	Name     string
	ListType string
}

// ListRenamed renames a list.
type ListRenamed struct {
	Name string
}

// HeroImage sets a list's hero image URL.
type HeroImage struct {
	URL string
}

// ListAdded references a list id on a user's registry log. The event's
// ID field is the pointer; no list content travels with it.
type ListAdded struct {
	ListType string
}

// Unknown preserves the fields of an op this client does not understand,
// so logs written by newer clients survive a snapshot round trip.
type Unknown struct {
	Fields map[string]any
}

func (Bare) isPayload()            {}
func (Added) isPayload()           {}
func (Reorder) isPayload()         {}
func (ClearCompleted) isPayload()  {}
func (Moved) isPayload()           {}
func (Enjoyment) isPayload()       {}
func (Updated) isPayload()         {}
func (Rename) isPayload()          {}
func (AvailabilitySet) isPayload() {}
func (AssignmentSet) isPayload()   {}
func (PositionTimeSet) isPayload() {}
func (ListInit) isPayload()        {}
func (ListRenamed) isPayload()     {}
func (HeroImage) isPayload()       {}
func (ListAdded) isPayload()       {}
func (Unknown) isPayload()         {}

// MetadataOp reports whether op belongs to the metadata sub-log. For
// dated lists these events are appended to the perpetual partition.
func MetadataOp(op Op) bool {
	switch op {
	case OpListInit, OpListRenamed, OpHeroImage:
		return true
	}
	return false
}
