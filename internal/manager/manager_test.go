package manager

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/everlist/everlist/internal/store"
)

// registryServer fakes the log service for the registry log and every
// per-list log, counting GETs and optionally failing chosen POST paths.
type registryServer struct {
	mu        sync.Mutex
	bodies    map[string]string
	getCounts map[string]int
	failPost  func(path string) bool

	srv *httptest.Server
}

func newRegistryServer(t *testing.T) *registryServer {
	t.Helper()
	rs := &registryServer{
		bodies:    map[string]string{},
		getCounts: map[string]int{},
	}
	rs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.mu.Lock()
		defer rs.mu.Unlock()
		if r.Method == http.MethodPost {
			if rs.failPost != nil && rs.failPost(r.URL.Path) {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
			return
		}
		rs.getCounts[r.URL.Path]++
		body, ok := rs.bodies[r.URL.Path]
		if !ok {
			body = `[]`
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(rs.srv.Close)
	return rs
}

func (rs *registryServer) set(path, body string) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.bodies[path] = body
}

func (rs *registryServer) gets(path string) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.getCounts[path]
}

func newTestManager(t *testing.T, rs *registryServer) *Manager {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	client := store.NewClient(rs.srv.URL, logger)
	opts := store.Options{
		User:   "sam",
		Logger: logger,
		Now:    func() time.Time { return time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC) },
	}
	registry := store.New(client, nil, store.TypeRegistry, "user-sam", opts)
	open := func(listType store.ListType, listID string) *store.Store {
		return store.New(client, nil, listType, listID, opts)
	}
	return New("sam", registry, open, logger)
}

func TestListsFoldsRegistryLog(t *testing.T) {
	rs := newRegistryServer(t)
	// Arrival order scrambled; the fold is by ts.
	rs.set("/lists/user-sam/events", `[
		{"op":"list_added","id":"l2","ts":"2026-08-02T00:00:00.000Z","listType":"planner"},
		{"op":"list_added","id":"l1","ts":"2026-08-01T00:00:00.000Z","listType":"shopping"},
		{"op":"list_added","id":"l3","ts":"2026-08-03T00:00:00.000Z","listType":"tennis"},
		{"op":"list_removed","id":"l2","ts":"2026-08-04T00:00:00.000Z"}
	]`)

	m := newTestManager(t, rs)
	refs := m.Lists(context.Background())

	if len(refs) != 2 {
		t.Fatalf("refs = %+v, want 2", refs)
	}
	if refs[0].ID != "l1" || refs[0].ListType != "shopping" {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].ID != "l3" || refs[1].ListType != "tennis" {
		t.Errorf("refs[1] = %+v", refs[1])
	}
}

func TestAddListDualWrite(t *testing.T) {
	rs := newRegistryServer(t)
	m := newTestManager(t, rs)

	ref, ok := m.AddList(context.Background(), "Groceries", store.TypeShopping)
	if !ok {
		t.Fatal("AddList reported unconfirmed writes against a healthy server")
	}
	if ref.ID == "" || ref.ListType != "shopping" {
		t.Errorf("ref = %+v", ref)
	}

	// The new list's metadata is cached eagerly; no GET needed.
	md := m.Metadata(context.Background(), ref)
	if md.Name != "Groceries" || md.Type != "shopping" {
		t.Errorf("metadata = %+v", md)
	}
	if got := rs.gets("/lists/" + ref.ID + "/events"); got != 0 {
		t.Errorf("metadata fetched %d times, want cached", got)
	}
}

func TestAddListDivergesWithoutRollback(t *testing.T) {
	rs := newRegistryServer(t)
	// The registry write lands, the list_init write fails: the two logs
	// diverge and stay diverged.
	rs.failPost = func(path string) bool {
		return path != "/lists/user-sam/events"
	}
	m := newTestManager(t, rs)

	ref, ok := m.AddList(context.Background(), "Groceries", store.TypeShopping)
	if ok {
		t.Fatal("AddList must report false when either write is unconfirmed")
	}
	if ref.ID == "" {
		t.Error("a ref is returned even when diverged")
	}
}

func TestRemoveList(t *testing.T) {
	rs := newRegistryServer(t)
	m := newTestManager(t, rs)

	if !m.RemoveList(context.Background(), "l1") {
		t.Error("RemoveList reported unconfirmed against a healthy server")
	}
}

func TestMetadataLazyAndCached(t *testing.T) {
	rs := newRegistryServer(t)
	rs.set("/lists/l1/events", `[
		{"op":"list_init","ts":"2026-08-01T00:00:00.000Z","name":"Groceries","listType":"shopping"},
		{"op":"list_renamed","ts":"2026-08-02T00:00:00.000Z","name":"Food"}
	]`)
	m := newTestManager(t, rs)
	ref := ListRef{ID: "l1", ListType: "shopping"}

	md := m.Metadata(context.Background(), ref)
	if md.Name != "Food" || md.Type != "shopping" {
		t.Errorf("metadata = %+v", md)
	}
	if got := rs.gets("/lists/l1/events"); got != 1 {
		t.Fatalf("first Metadata call made %d fetches", got)
	}

	m.Metadata(context.Background(), ref)
	if got := rs.gets("/lists/l1/events"); got != 1 {
		t.Errorf("second Metadata call refetched (%d fetches), want cache hit", got)
	}
}

func TestMetadataAll(t *testing.T) {
	rs := newRegistryServer(t)
	rs.set("/lists/l1/events", `[{"op":"list_init","ts":"2026-08-01T00:00:00.000Z","name":"A","listType":"shopping"}]`)
	rs.set("/lists/l2/events", `[{"op":"list_init","ts":"2026-08-01T00:00:00.000Z","name":"B","listType":"tracker"}]`)
	m := newTestManager(t, rs)

	refs := []ListRef{
		{ID: "l1", ListType: "shopping"},
		{ID: "l2", ListType: "tracker"},
	}
	all := m.MetadataAll(context.Background(), refs)

	if len(all) != 2 {
		t.Fatalf("all = %+v", all)
	}
	if all["l1"].Name != "A" || all["l2"].Name != "B" {
		t.Errorf("all = %+v", all)
	}
}

func TestMetadataUnknownTypeFallsBackToShopping(t *testing.T) {
	rs := newRegistryServer(t)
	rs.set("/lists/l9/events", `[{"op":"list_init","ts":"2026-08-01T00:00:00.000Z","name":"Old","listType":"shopping"}]`)
	m := newTestManager(t, rs)

	md := m.Metadata(context.Background(), ListRef{ID: "l9", ListType: "mystery"})
	if md.Name != "Old" {
		t.Errorf("metadata = %+v", md)
	}
	if !strings.HasPrefix(md.Type, "shopping") {
		t.Errorf("type = %q", md.Type)
	}
}
