// Package poller drives periodic resync of one list.
//
// The poller mirrors the page-visibility model of the original clients:
// it runs only while the session is "active" (Resume) and stops when it
// is not (Pause). Both transitions are idempotent. Each tick fetches the
// remote changelog, replays it, hashes the materialized view, and calls
// the render callback only when the hash changed since the last render.
// A single in-flight latch keeps fetch+replay cycles from overlapping.
package poller

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/everlist/everlist/internal/changelog"
)

// Config configures a Poller.
type Config struct {
	// Interval between resyncs (default: 30s).
	Interval time.Duration

	// Fetch retrieves the full changelog; typically
	// Store.LoadChangelogFromServer with silent=true.
	Fetch func(ctx context.Context) []changelog.Event

	// Replay materializes the fetched changelog.
	Replay func(events []changelog.Event) any

	// Render receives the materialized view when its content changed.
	Render func(view any)

	// Logger for poller activity (default: stderr logger).
	Logger *log.Logger
}

// Poller is the idle/polling state machine.
type Poller struct {
	cfg Config

	mu      sync.Mutex
	polling bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	inFlight atomic.Bool
	lastHash atomic.Uint64
	rendered atomic.Bool
}

// New creates a poller. Fetch, Replay, and Render must be set.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "[poller] ", log.LstdFlags)
	}
	return &Poller{cfg: cfg}
}

// Resume moves the poller to the polling state: an immediate poll, then
// one per interval. Calling Resume while already polling is a no-op.
func (p *Poller) Resume(ctx context.Context) {
	p.mu.Lock()
	if p.polling {
		p.mu.Unlock()
		return
	}
	p.polling = true
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.PollOnce(ctx)

	p.wg.Add(1)
	go p.loop(ctx)
}

// Pause stops the interval timer. Repeated Pause calls are no-ops; a
// poll already in flight finishes on its own.
func (p *Poller) Pause() {
	p.mu.Lock()
	if !p.polling {
		p.mu.Unlock()
		return
	}
	p.polling = false
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// Polling reports whether the poller is in the polling state.
func (p *Poller) Polling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polling
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs one fetch+replay+render cycle. If a cycle is already in
// flight the tick is skipped entirely.
func (p *Poller) PollOnce(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.cfg.Logger.Printf("sync already in flight, skipping tick")
		return
	}
	defer p.inFlight.Store(false)

	events := p.cfg.Fetch(ctx)
	view := p.cfg.Replay(events)

	h, err := contentHash(view)
	if err != nil {
		p.cfg.Logger.Printf("failed to hash materialized view: %v", err)
		return
	}
	if p.rendered.Load() && p.lastHash.Load() == h {
		return
	}
	p.lastHash.Store(h)
	p.rendered.Store(true)
	p.cfg.Render(view)
}

// contentHash is a cheap fingerprint of the materialized view: FNV-1a
// over its canonical JSON encoding.
func contentHash(view any) (uint64, error) {
	data, err := json.Marshal(view)
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	_, _ = h.Write(data)
	return h.Sum64(), nil
}
