// Package listing implements the list page controller shared by every
// back-office page: remote loading with fallback data, the filter, sort and
// paginate pipeline, and optimistic mutations with rollback.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"time"
)

// Config describes one list page.
type Config[T Entity] struct {
	Resource string
	Source   Source[T]

	// SearchFields returns the texts matched by the free-text search.
	SearchFields func(T) []string
	// Facets maps facet names to the value an item is matched on.
	Facets map[string]FacetFunc[T]
	// Filter is an optional predicate applied after search and facets.
	Filter      Predicate[T]
	Comparators map[string]Comparator[T]
	DefaultSort SortSpec
	PageSize    int

	// Fallback is shown until the first successful load and whenever a load
	// fails with nothing better to show.
	Fallback      []T
	FallbackStore FallbackStore[T]

	// Validate returns per-field messages; nil uses the struct's validate tags.
	Validate func(T) map[string]string
	// CanDelete returns a reason when the entity must not be deleted.
	CanDelete func(T) error
	// WithID stamps a provisional id; required for optimistic creates.
	WithID func(T, int64) T

	CreateMode Mode
	UpdateMode Mode
	DeleteMode Mode

	// ServerSearch sends search and facets to the source and refetches after
	// SearchDebounce once they change.
	ServerSearch   bool
	SearchDebounce time.Duration

	Logger   *slog.Logger
	Observer Observer
}

// Snapshot is the rendered state of a controller.
type Snapshot[T any] struct {
	Items      []T       `json:"items"`
	Pagination Summary   `json:"pagination"`
	State      LoadState `json:"state"`
	Warning    string    `json:"warning,omitempty"`
	Query      Query     `json:"query"`
	Sort       SortSpec  `json:"sort"`
}

// Controller owns one list page's collection and derived view. It is safe for
// concurrent use; network calls run without holding the lock.
type Controller[T Entity] struct {
	cfg       Config[T]
	logger    *slog.Logger
	predicate Predicate[T]
	validate  func(T) map[string]string
	debounce  *debouncer
	ctx       context.Context
	cancel    context.CancelFunc

	mu        sync.Mutex
	items     []T
	query     Query
	sort      SortSpec
	window    Window
	state     LoadState
	settled   LoadState
	warning   string
	hasLoaded bool
	// issued grows with every load and every settled mutation; a load whose
	// generation is no longer the latest is discarded.
	issued     uint64
	latestLoad uint64
	phases     map[int64]Phase
	creating   int
	nextTemp   int64
	intents    map[string]int64
	subs       map[int]func(Snapshot[T])
	nextSub    int
	closed     bool
}

// New constructs a controller seeded with cfg.Fallback.
func New[T Entity](cfg Config[T]) (*Controller[T], error) {
	if cfg.Resource == "" {
		return nil, errors.New("listing: resource name required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("listing: %s: source required", cfg.Resource)
	}
	if cfg.CreateMode == Optimistic && cfg.WithID == nil {
		return nil, fmt.Errorf("listing: %s: optimistic create requires WithID", cfg.Resource)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	validate := cfg.Validate
	if validate == nil {
		validate = func(item T) map[string]string { return ValidateStruct(item) }
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller[T]{
		cfg:       cfg,
		logger:    logger.With(slog.String("resource", cfg.Resource)),
		predicate: Match(cfg.SearchFields, cfg.Facets, cfg.Filter),
		validate:  validate,
		debounce:  newDebouncer(cfg.SearchDebounce),
		ctx:       ctx,
		cancel:    cancel,
		items:     dedupe(slices.Clone(cfg.Fallback)),
		sort:      cfg.DefaultSort,
		window:    Window{Page: DefaultPage, PageSize: cfg.PageSize},
		phases:    make(map[int64]Phase),
		intents:   make(map[string]int64),
		subs:      make(map[int]func(Snapshot[T])),
	}
	return c, nil
}

// Resource returns the configured resource name.
func (c *Controller[T]) Resource() string {
	return c.cfg.Resource
}

// Load fetches the collection. A failed fetch is not fatal: the controller
// switches to fallback data, records a warning and returns the classified
// error alongside LoadedWithFallback.
func (c *Controller[T]) Load(ctx context.Context) (LoadState, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Idle, closedError()
	}
	c.issued++
	gen := c.issued
	c.latestLoad = gen
	c.state = Loading
	params := c.paramsLocked()
	c.mu.Unlock()
	c.notify()

	items, err := c.cfg.Source.List(ctx, params)
	if err != nil {
		return c.fallBack(ctx, gen, classify(err))
	}

	c.mu.Lock()
	if gen != c.issued {
		state := c.discardLocked(gen)
		c.mu.Unlock()
		return state, nil
	}
	c.items = dedupe(items)
	c.state, c.settled = Loaded, Loaded
	c.warning = ""
	c.hasLoaded = true
	c.clampLocked()
	saved := slices.Clone(c.items)
	c.mu.Unlock()

	c.observeFetch(OutcomeLoaded)
	if c.cfg.FallbackStore != nil {
		if err := c.cfg.FallbackStore.SaveSnapshot(ctx, c.cfg.Resource, saved); err != nil {
			c.logger.Warn("save list snapshot", slog.Any("error", err))
		}
	}
	c.notify()
	return Loaded, nil
}

func (c *Controller[T]) fallBack(ctx context.Context, gen uint64, lerr *Error) (LoadState, error) {
	var (
		stored    []T
		haveStore bool
	)
	if c.cfg.FallbackStore != nil {
		items, ok, err := c.cfg.FallbackStore.LoadSnapshot(ctx, c.cfg.Resource)
		if err != nil {
			c.logger.Warn("load list snapshot", slog.Any("error", err))
		}
		stored, haveStore = items, ok && err == nil
	}

	c.mu.Lock()
	if gen != c.issued {
		state := c.discardLocked(gen)
		c.mu.Unlock()
		return state, nil
	}
	source := "seed"
	switch {
	case c.hasLoaded:
		source = "retained"
	case haveStore:
		c.items = dedupe(stored)
		source = "snapshot"
	default:
		c.items = dedupe(slices.Clone(c.cfg.Fallback))
	}
	c.state, c.settled = LoadedWithFallback, LoadedWithFallback
	c.warning = fmt.Sprintf("%s could not be refreshed (%s); showing the last known data", c.cfg.Resource, lerr.Message)
	c.clampLocked()
	c.mu.Unlock()

	c.logger.Warn("list fetch failed, using fallback",
		slog.String("kind", lerr.Kind.String()),
		slog.String("fallback", source),
		slog.Any("error", lerr))
	c.observeFetch(OutcomeFallback)
	c.notify()
	return LoadedWithFallback, lerr
}

// discardLocked drops a superseded response. When no newer load is running
// the previous settled state is restored.
func (c *Controller[T]) discardLocked(gen uint64) LoadState {
	if gen == c.latestLoad && c.state == Loading {
		c.state = c.settled
	}
	c.logger.Debug("discard stale list response", slog.Uint64("generation", gen), slog.Uint64("latest", c.issued))
	c.observeFetch(OutcomeStale)
	return c.state
}

func (c *Controller[T]) paramsLocked() url.Values {
	params := url.Values{}
	if !c.cfg.ServerSearch {
		return params
	}
	if c.query.Search != "" {
		params.Set("search", c.query.Search)
	}
	for name := range c.query.Facets {
		if v := c.query.Facet(name); v != "" {
			params.Set(name, v)
		}
	}
	return params
}

// SetSearch changes the search term. A different term returns to the first page.
func (c *Controller[T]) SetSearch(term string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	changed := c.query.Search != term
	c.query.Search = term
	if changed {
		c.window.Page = DefaultPage
	}
	c.mu.Unlock()
	if changed {
		c.scheduleRefetch()
	}
	c.notify()
}

// SetFacet constrains a facet; "" or "all" clears it. The page resets to 1.
func (c *Controller[T]) SetFacet(name, value string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	previous := c.query.Facet(name)
	if c.query.Facets == nil {
		c.query.Facets = make(map[string]string)
	}
	c.query.Facets[name] = value
	changed := previous != c.query.Facet(name)
	c.window.Page = DefaultPage
	c.mu.Unlock()
	if changed {
		c.scheduleRefetch()
	}
	c.notify()
}

func (c *Controller[T]) scheduleRefetch() {
	if !c.cfg.ServerSearch {
		return
	}
	c.debounce.trigger(func() {
		// Failures already degrade to fallback data inside Load.
		_, _ = c.Load(c.ctx)
	})
}

// SetSort selects the comparator key and direction.
func (c *Controller[T]) SetSort(key string, dir Direction) {
	c.mu.Lock()
	c.sort = SortSpec{Key: key, Dir: dir}
	c.mu.Unlock()
	c.notify()
}

// SetPage moves to page n, clamped to the available pages.
func (c *Controller[T]) SetPage(n int) {
	c.mu.Lock()
	c.window.Page = n
	c.clampLocked()
	c.mu.Unlock()
	c.notify()
}

// SetPageSize changes the page size; n must be positive.
func (c *Controller[T]) SetPageSize(n int) error {
	if n <= 0 {
		return ValidationError(map[string]string{"page_size": "must be greater than 0"})
	}
	c.mu.Lock()
	c.window.PageSize = n
	c.clampLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

// Visible returns the current page of filtered, sorted items.
func (c *Controller[T]) Visible() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, _ := c.viewLocked()
	return items
}

// Summary returns the pagination summary for the current query.
func (c *Controller[T]) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, summary := c.viewLocked()
	return summary
}

// Snapshot returns the complete rendered state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Items returns a copy of the raw collection in storage order.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Get looks an entity up by id.
func (c *Controller[T]) Get(id int64) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := indexOf(c.items, id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// State reports the loader state and its current warning.
func (c *Controller[T]) State() (LoadState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.warning
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function unregisters it.
func (c *Controller[T]) Subscribe(fn func(Snapshot[T])) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || fn == nil {
		return func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close disposes the controller: pending debounced loads are cancelled and
// subscribers dropped. Later loads and mutations fail with KindClosed.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subs = make(map[int]func(Snapshot[T]))
	c.intents = make(map[string]int64)
	c.mu.Unlock()
	c.debounce.stop()
	c.cancel()
}

func (c *Controller[T]) viewLocked() ([]T, Summary) {
	filtered := Filter(c.items, c.query, c.predicate)
	sorted := Sort(filtered, c.sort, c.cfg.Comparators)
	summary := Summarize(len(sorted), c.window)
	return Paginate(sorted, Window{Page: summary.Page, PageSize: summary.PageSize}), summary
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	items, summary := c.viewLocked()
	return Snapshot[T]{
		Items:      items,
		Pagination: summary,
		State:      c.state,
		Warning:    c.warning,
		Query:      c.query.clone(),
		Sort:       c.sort,
	}
}

// clampLocked keeps the stored page inside the filtered result.
func (c *Controller[T]) clampLocked() {
	n := len(Filter(c.items, c.query, c.predicate))
	c.window.Page = Summarize(n, c.window).Page
}

func (c *Controller[T]) notify() {
	c.mu.Lock()
	if c.closed || len(c.subs) == 0 {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	subs := make([]func(Snapshot[T]), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller[T]) observeFetch(outcome string) {
	if c.cfg.Observer != nil {
		c.cfg.Observer.FetchSettled(c.cfg.Resource, outcome)
	}
}

func (c *Controller[T]) observeMutation(op, outcome string) {
	if c.cfg.Observer != nil {
		c.cfg.Observer.MutationSettled(c.cfg.Resource, op, outcome)
	}
}

func indexOf[T Entity](items []T, id int64) int {
	return slices.IndexFunc(items, func(item T) bool { return item.EntityID() == id })
}

// dedupe keeps the last occurrence of every id at the position of its first.
func dedupe[T Entity](items []T) []T {
	out := make([]T, 0, len(items))
	pos := make(map[int64]int, len(items))
	for _, item := range items {
		if i, ok := pos[item.EntityID()]; ok {
			out[i] = item
			continue
		}
		pos[item.EntityID()] = len(out)
		out = append(out, item)
	}
	return out
}
