package changelog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// This file is the only place wire shapes are interpreted. Remote logs
// arrive as flat JSON objects whose values may be native JSON or
// query-parameter strings, depending on how the event reached the log
// service; nested values (order arrays, proto lists, assignment shapes)
// ride as JSON-serialized blobs. Everything is normalized here so replay
// logic never parses JSON.

// envelope keys never forwarded into a payload.
var envelopeKeys = map[string]bool{
	"op":        true,
	"id":        true,
	"ts":        true,
	"timeStamp": true,
	"user":      true,
}

// DecodeEvents parses a remote or snapshot changelog: a JSON array of
// flat event objects.
func DecodeEvents(data []byte) ([]Event, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse changelog: %w", err)
	}
	events := make([]Event, 0, len(raw))
	for i, obj := range raw {
		ev, err := decodeWire(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to decode event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// EncodeEvents serializes events back to the flat-object array form used
// by the durable snapshot store.
func EncodeEvents(events []Event) ([]byte, error) {
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		obj, err := ev.wireObject()
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return json.Marshal(out)
}

// MarshalJSON encodes the event as a flat wire object.
func (e Event) MarshalJSON() ([]byte, error) {
	obj, err := e.wireObject()
	if err != nil {
		return nil, err
	}
	return json.Marshal(obj)
}

// UnmarshalJSON decodes a flat wire object into the tagged payload form.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse event: %w", err)
	}
	ev, err := decodeWire(raw)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

func decodeWire(raw map[string]json.RawMessage) (Event, error) {
	var ev Event
	if r, ok := raw["op"]; ok {
		ev.Op = Op(asString(r))
	}
	if ev.Op == "" {
		return ev, fmt.Errorf("event has no op")
	}
	// Numeric-looking ids written by older clients arrive as JSON
	// numbers; normalize to their string form.
	if r, ok := raw["id"]; ok {
		ev.ID = asString(r)
	}
	// The log service reports the append time as timeStamp; the client
	// field is ts. ts wins when both are present.
	if r, ok := raw["timeStamp"]; ok {
		ev.TS = asString(r)
	}
	if r, ok := raw["ts"]; ok {
		ev.TS = asString(r)
	}
	if r, ok := raw["user"]; ok {
		ev.User = asString(r)
	}

	rest := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if !envelopeKeys[k] {
			rest[k] = v
		}
	}

	payload, err := decodePayload(ev.Op, rest)
	if err != nil {
		return ev, err
	}
	ev.Payload = payload
	return ev, nil
}

func decodePayload(op Op, rest map[string]json.RawMessage) (Payload, error) {
	switch op {
	case OpAdded, OpPlayerAdd, OpMatchAdd:
		return Added{Fields: asFieldMap(rest)}, nil

	case OpRemoved, OpChecked, OpUnchecked, OpCompleted, OpUncompleted,
		OpPlayerRemove, OpMatchRemove, OpListRemoved:
		return Bare{}, nil

	case OpReorder:
		order, err := asStringSlice(rest["order"])
		if err != nil {
			return nil, fmt.Errorf("failed to decode reorder order: %w", err)
		}
		return Reorder{Order: order}, nil

	case OpClearCompleted:
		ids, err := asStringSlice(rest["ids"])
		if err != nil {
			return nil, fmt.Errorf("failed to decode clear_completed ids: %w", err)
		}
		return ClearCompleted{IDs: ids}, nil

	case OpMoved:
		var p Moved
		if r, ok := rest["toIndex"]; ok {
			n, err := asInt(r)
			if err != nil {
				return nil, fmt.Errorf("failed to decode moved toIndex: %w", err)
			}
			p.ToIndex = &n
		}
		if r, ok := rest["afterId"]; ok {
			p.AfterID = asString(r)
		}
		return p, nil

	case OpEnjoyment:
		rating, err := asFloat(rest["rating"])
		if err != nil {
			return nil, fmt.Errorf("failed to decode enjoyment rating: %w", err)
		}
		return Enjoyment{Rating: rating}, nil

	case OpUpdated, OpMatchUpdate:
		p := Updated{}
		if r, ok := rest["protos"]; ok {
			protos, err := asProtos(r)
			if err != nil {
				return nil, fmt.Errorf("failed to decode protos: %w", err)
			}
			p.Protos = protos
			p.HasProtos = true
			delete(rest, "protos")
		}
		p.Fields = asFieldMap(rest)
		return p, nil

	case OpPlayerRename:
		return Rename{Name: asString(rest["name"])}, nil

	case OpAvailabilitySet:
		avail, err := asBool(rest["available"])
		if err != nil {
			return nil, fmt.Errorf("failed to decode availability: %w", err)
		}
		return AvailabilitySet{
			Match:     asString(rest["match"]),
			Player:    asString(rest["player"]),
			Available: avail,
		}, nil

	case OpAssignmentSet:
		p := AssignmentSet{
			Match:    asString(rest["match"]),
			Position: asString(rest["position"]),
		}
		players, date, err := asAssignmentValue(rest["value"])
		if err != nil {
			return nil, fmt.Errorf("failed to decode assignment value: %w", err)
		}
		p.Players = players
		p.Date = date
		return p, nil

	case OpPositionTimeSet:
		return PositionTimeSet{
			Match:    asString(rest["match"]),
			Position: asString(rest["position"]),
			Time:     asString(rest["time"]),
		}, nil

	case OpListInit:
		return ListInit{
			Name:     asString(rest["name"]),
			ListType: asString(rest["listType"]),
		}, nil

	case OpListRenamed:
		return ListRenamed{Name: asString(rest["name"])}, nil

	case OpHeroImage:
		return HeroImage{URL: asString(rest["url"])}, nil

	case OpListAdded:
		return ListAdded{ListType: asString(rest["listType"])}, nil
	}

	// Forward compatibility: keep the fields of ops written by newer
	// clients so snapshots round-trip without loss.
	return Unknown{Fields: asFieldMap(rest)}, nil
}

// wireObject flattens the event into the wire shape shared by snapshots
// and the POST encoder.
func (e Event) wireObject() (map[string]any, error) {
	obj := map[string]any{
		"op":   string(e.Op),
		"ts":   e.TS,
		"user": e.User,
	}
	if e.ID != "" {
		obj["id"] = e.ID
	}
	fields, err := e.payloadFields()
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		obj[k] = v
	}
	return obj, nil
}

func (e Event) payloadFields() (map[string]any, error) {
	switch p := e.Payload.(type) {
	case nil, Bare:
		return nil, nil
	case Added:
		return p.Fields, nil
	case Reorder:
		return map[string]any{"order": p.Order}, nil
	case ClearCompleted:
		return map[string]any{"ids": p.IDs}, nil
	case Moved:
		out := map[string]any{}
		if p.ToIndex != nil {
			out["toIndex"] = *p.ToIndex
		}
		if p.AfterID != "" {
			out["afterId"] = p.AfterID
		}
		return out, nil
	case Enjoyment:
		return map[string]any{"rating": p.Rating}, nil
	case Updated:
		out := make(map[string]any, len(p.Fields)+1)
		for k, v := range p.Fields {
			out[k] = v
		}
		if p.HasProtos {
			out["protos"] = p.Protos
		}
		return out, nil
	case Rename:
		return map[string]any{"name": p.Name}, nil
	case AvailabilitySet:
		return map[string]any{
			"match":     p.Match,
			"player":    p.Player,
			"available": p.Available,
		}, nil
	case AssignmentSet:
		return map[string]any{
			"match":    p.Match,
			"position": p.Position,
			"value":    map[string]any{"players": p.Players, "date": p.Date},
		}, nil
	case PositionTimeSet:
		return map[string]any{
			"match":    p.Match,
			"position": p.Position,
			"time":     p.Time,
		}, nil
	case ListInit:
		return map[string]any{"name": p.Name, "listType": p.ListType}, nil
	case ListRenamed:
		return map[string]any{"name": p.Name}, nil
	case HeroImage:
		return map[string]any{"url": p.URL}, nil
	case ListAdded:
		return map[string]any{"listType": p.ListType}, nil
	case Unknown:
		return p.Fields, nil
	}
	return nil, fmt.Errorf("unhandled payload type %T", e.Payload)
}

// QueryValues flattens every event field into URL query parameters for
// the remote append. Non-scalar values are JSON-stringified before
// encoding.
func (e Event) QueryValues() (url.Values, error) {
	obj, err := e.wireObject()
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s, err := scalarString(obj[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", k, err)
		}
		values.Set(k, s)
	}
	return values, nil
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

// ---- tolerant wire value readers ----

// asString reads a wire value as a string, normalizing JSON numbers and
// bools to their literal form.
func asString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	return string(raw)
}

func asBool(raw json.RawMessage) (bool, error) {
	if raw == nil {
		return false, fmt.Errorf("missing value")
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseBool(s)
	}
	return false, fmt.Errorf("not a boolean: %s", raw)
}

func asFloat(raw json.RawMessage) (float64, error) {
	if raw == nil {
		return 0, fmt.Errorf("missing value")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("not a number: %s", raw)
}

func asInt(raw json.RawMessage) (int, error) {
	f, err := asFloat(raw)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// asStringSlice reads either a native JSON array or a JSON-stringified
// array riding inside a string value.
func asStringSlice(raw json.RawMessage) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	var direct []json.RawMessage
	if err := json.Unmarshal(raw, &direct); err == nil {
		out := make([]string, 0, len(direct))
		for _, el := range direct {
			out = append(out, asString(el))
		}
		return out, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return asStringSlice(json.RawMessage(s))
	}
	return nil, fmt.Errorf("not an array: %s", raw)
}

func asProtos(raw json.RawMessage) ([]Proto, error) {
	if raw == nil {
		return nil, nil
	}
	var protos []Proto
	if err := json.Unmarshal(raw, &protos); err == nil {
		return protos, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		if err := json.Unmarshal([]byte(s), &protos); err != nil {
			return nil, fmt.Errorf("failed to parse proto blob: %w", err)
		}
		return protos, nil
	}
	return nil, fmt.Errorf("not a proto list: %s", raw)
}

// asAssignmentValue reads an assignment position value in either shape:
// the legacy bare id array, or the {players, date} object. Legacy values
// upgrade transparently; the date is empty when absent.
func asAssignmentValue(raw json.RawMessage) ([]string, string, error) {
	if raw == nil {
		return nil, "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, "", nil
		}
		return asAssignmentValue(json.RawMessage(s))
	}
	var obj struct {
		Players []json.RawMessage `json:"players"`
		Date    json.RawMessage   `json:"date"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Players != nil {
		players := make([]string, 0, len(obj.Players))
		for _, el := range obj.Players {
			players = append(players, asString(el))
		}
		return players, asString(obj.Date), nil
	}
	players, err := asStringSlice(raw)
	if err != nil {
		return nil, "", fmt.Errorf("neither id array nor assignment object: %s", raw)
	}
	return players, "", nil
}

// asFieldMap decodes leftover flat fields into plain Go values, keeping
// the original keys.
func asFieldMap(rest map[string]json.RawMessage) map[string]any {
	if len(rest) == 0 {
		return nil
	}
	out := make(map[string]any, len(rest))
	for k, raw := range rest {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			v = string(raw)
		}
		out[k] = v
	}
	return out
}
