// Package manager tracks which lists belong to a user.
//
// The registry is its own independent event log keyed by user identity,
// holding only list_added/list_removed id pointers — no list content.
// Per-list descriptive metadata is fetched lazily from each list's own
// metadata sub-log and cached by list id.
package manager

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/everlist/everlist/internal/changelog"
	"github.com/everlist/everlist/internal/store"
)

// ListRef is one registry entry: a pointer to a list.
type ListRef struct {
	ID       string `json:"id"`
	ListType string `json:"listType"`
}

// OpenFunc builds a store handle for one list. The manager uses it for
// list_init writes and lazy metadata loads.
type OpenFunc func(listType store.ListType, listID string) *store.Store

// Manager owns a user's registry log and the metadata cache.
type Manager struct {
	user     string
	registry *store.Store
	open     OpenFunc
	logger   *log.Logger

	mu   sync.Mutex
	meta map[string]store.Metadata
}

// New creates a manager over the user's registry store.
func New(user string, registry *store.Store, open OpenFunc, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(os.Stderr, "[lists] ", log.LstdFlags)
	}
	return &Manager{
		user:     user,
		registry: registry,
		open:     open,
		logger:   logger,
		meta:     make(map[string]store.Metadata),
	}
}

// Lists fetches the registry log and folds it into the user's current
// list references, ordered by when they were added.
func (m *Manager) Lists(ctx context.Context) []ListRef {
	events := m.registry.LoadChangelogFromServer(ctx, true)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TS < events[j].TS
	})

	refs := make(map[string]ListRef)
	var order []string
	for _, ev := range events {
		switch ev.Op {
		case changelog.OpListAdded:
			p, ok := ev.Payload.(changelog.ListAdded)
			if !ok || ev.ID == "" {
				continue
			}
			if _, known := refs[ev.ID]; !known {
				order = append(order, ev.ID)
			}
			refs[ev.ID] = ListRef{ID: ev.ID, ListType: p.ListType}
		case changelog.OpListRemoved:
			delete(refs, ev.ID)
			for i, id := range order {
				if id == ev.ID {
					order = append(order[:i], order[i+1:]...)
					break
				}
			}
		}
	}

	out := make([]ListRef, 0, len(order))
	for _, id := range order {
		if ref, ok := refs[id]; ok {
			out = append(out, ref)
		}
	}
	return out
}

// AddList creates a new list: a reference event on the user's registry
// log and a list_init event on the new list's own metadata log, written
// in parallel. There is no transactional rollback — if either post fails
// the two logs diverge (a list can exist unreferenced, or be referenced
// without existing). The returned bool reports whether both writes were
// confirmed.
func (m *Manager) AddList(ctx context.Context, name string, listType store.ListType) (ListRef, bool) {
	id := changelog.NewID()
	ref := ListRef{ID: id, ListType: string(listType)}

	refPending := m.registry.AddEvent(changelog.OpListAdded, id, changelog.ListAdded{
		ListType: string(listType),
	})
	listStore := m.open(listType, id)
	initPending := listStore.AddEvent(changelog.OpListInit, "", changelog.ListInit{
		Name:     name,
		ListType: string(listType),
	})

	refOK := refPending.Wait(ctx)
	initOK := initPending.Wait(ctx)
	if refOK != initOK {
		m.logger.Printf("list %s diverged: reference posted=%v, init posted=%v", id, refOK, initOK)
	}

	m.mu.Lock()
	m.meta[id] = store.Metadata{Name: name, Type: string(listType)}
	m.mu.Unlock()

	return ref, refOK && initOK
}

// RemoveList drops the reference from the registry. The list's own log
// is left untouched.
func (m *Manager) RemoveList(ctx context.Context, id string) bool {
	pending := m.registry.AddEvent(changelog.OpListRemoved, id, changelog.Bare{})
	ok := pending.Wait(ctx)

	m.mu.Lock()
	delete(m.meta, id)
	m.mu.Unlock()
	return ok
}

// Metadata returns the descriptive record of one list, fetched lazily
// from that list's own metadata sub-log and cached by id.
func (m *Manager) Metadata(ctx context.Context, ref ListRef) store.Metadata {
	m.mu.Lock()
	if md, ok := m.meta[ref.ID]; ok {
		m.mu.Unlock()
		return md
	}
	m.mu.Unlock()

	listType, err := store.ParseListType(ref.ListType)
	if err != nil {
		listType = store.TypeShopping
	}
	s := m.open(listType, ref.ID)
	s.LoadChangelogFromServer(ctx, true)
	md := s.Metadata()

	m.mu.Lock()
	m.meta[ref.ID] = md
	m.mu.Unlock()
	return md
}

// MetadataAll loads metadata for every reference, fetching uncached
// lists in parallel.
func (m *Manager) MetadataAll(ctx context.Context, refs []ListRef) map[string]store.Metadata {
	out := make(map[string]store.Metadata, len(refs))
	var outMu sync.Mutex
	var wg sync.WaitGroup
	for _, ref := range refs {
		wg.Add(1)
		go func(ref ListRef) {
			defer wg.Done()
			md := m.Metadata(ctx, ref)
			outMu.Lock()
			out[ref.ID] = md
			outMu.Unlock()
		}(ref)
	}
	wg.Wait()
	return out
}
