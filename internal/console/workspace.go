package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultWorkspaceTTL is how long an idle workspace keeps its pages.
const DefaultWorkspaceTTL = 30 * time.Minute

// ErrWorkspaceClosed is returned when a disposed workspace is used.
var ErrWorkspaceClosed = errors.New("console: workspace closed")

// Workspace holds the pages one browser has mounted.
type Workspace struct {
	id       string
	catalog  *Catalog
	mu       sync.Mutex
	pages    map[string]Page
	lastSeen time.Time
	closed   bool
}

// ID returns the workspace identifier.
func (ws *Workspace) ID() string { return ws.id }

// Page returns the named page, constructing it on first use.
func (ws *Workspace) Page(name string) (Page, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if page, ok := ws.pages[name]; ok {
		return page, nil
	}
	if ws.closed {
		return nil, ErrWorkspaceClosed
	}
	page, err := ws.catalog.Build(name)
	if err != nil {
		return nil, err
	}
	ws.pages[name] = page
	return page, nil
}

// Mounted lists the pages constructed so far.
func (ws *Workspace) Mounted() []string {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	names := make([]string, 0, len(ws.pages))
	for name := range ws.pages {
		names = append(names, name)
	}
	return names
}

func (ws *Workspace) close() {
	ws.mu.Lock()
	pages := ws.pages
	ws.pages = make(map[string]Page)
	ws.closed = true
	ws.mu.Unlock()
	for _, page := range pages {
		page.Close()
	}
}

// Registry tracks workspaces and disposes the idle ones.
type Registry struct {
	catalog *Catalog
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
	gauge      func(n int)
}

// NewRegistry constructs a registry over catalog.
func NewRegistry(catalog *Catalog, ttl time.Duration, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultWorkspaceTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		catalog:    catalog,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
}

// ReportTo calls gauge with the number of live workspaces whenever it changes.
func (r *Registry) ReportTo(gauge func(n int)) {
	r.mu.Lock()
	r.gauge = gauge
	n := len(r.workspaces)
	r.mu.Unlock()
	if gauge != nil {
		gauge(n)
	}
}

// report must be called with r.mu held.
func (r *Registry) report() {
	if r.gauge != nil {
		r.gauge(len(r.workspaces))
	}
}

// Catalog returns the pages workspaces can mount.
func (r *Registry) Catalog() *Catalog { return r.catalog }

// Acquire returns the workspace for id, creating a new one with a fresh id
// when id is unknown or empty.
func (r *Registry) Acquire(id string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[id]; ok && id != "" {
		ws.mu.Lock()
		ws.lastSeen = r.now()
		ws.mu.Unlock()
		return ws, false
	}
	ws := &Workspace{
		id:       uuid.NewString(),
		catalog:  r.catalog,
		pages:    make(map[string]Page),
		lastSeen: r.now(),
	}
	r.workspaces[ws.id] = ws
	r.report()
	r.logger.Debug("workspace created", slog.String("workspace", ws.id))
	return ws, true
}

// Dispose closes every page of a workspace and forgets it.
func (r *Registry) Dispose(id string) bool {
	r.mu.Lock()
	ws, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.report()
	r.mu.Unlock()
	if !ok {
		return false
	}
	ws.close()
	r.logger.Debug("workspace disposed", slog.String("workspace", id))
	return true
}

// Len reports the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Sweep disposes workspaces idle for longer than the TTL.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	var idle []*Workspace
	r.mu.Lock()
	for id, ws := range r.workspaces {
		ws.mu.Lock()
		stale := ws.lastSeen.Before(cutoff)
		ws.mu.Unlock()
		if stale {
			idle = append(idle, ws)
			delete(r.workspaces, id)
		}
	}
	r.report()
	r.mu.Unlock()
	for _, ws := range idle {
		ws.close()
	}
	if len(idle) > 0 {
		r.logger.Info("idle workspaces disposed", slog.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps periodically until ctx is done, then disposes everything.
func (r *Registry) Run(ctx context.Context) {
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close disposes all workspaces.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.report()
	r.mu.Unlock()
	for _, ws := range all {
		ws.close()
	}
}
