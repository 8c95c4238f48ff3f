package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/innkeeper/backoffice/internal/listing"
)

// View carries the list parameters of one request. Nil or zero members leave
// the current value alone.
type View struct {
	Search   *string
	Facets   map[string]string
	Sort     string
	Dir      listing.Direction
	Page     int
	PageSize int
}

// Page is a list controller with its entity type erased so that one HTTP
// surface can serve every resource.
type Page interface {
	Resource() string
	// Mount loads the page the first time it is called.
	Mount(ctx context.Context) error
	Load(ctx context.Context) (listing.LoadState, error)
	Apply(v View) error
	Snapshot() any
	Create(ctx context.Context, raw []byte) (any, error)
	Update(ctx context.Context, id int64, raw []byte) (any, error)
	RequestRemoval(id int64) (listing.Intent, error)
	Remove(ctx context.Context, id int64, token string) error
	Action(ctx context.Context, name string, id int64, raw []byte) (any, error)
	Close()
}

// Action is a resource-specific operation such as a reservation check-in.
type Action[T listing.Entity] func(ctx context.Context, ctl *listing.Controller[T], id int64, raw []byte) (T, error)

// ErrUnknownAction is returned for actions a page does not offer.
var ErrUnknownAction = errors.New("console: unknown action")

type controllerPage[T listing.Entity] struct {
	ctl     *listing.Controller[T]
	actions map[string]Action[T]
	mount   sync.Once
	// mountErr is only read after mount has run.
	mountErr error
}

// Adapt wraps a controller as a Page.
func Adapt[T listing.Entity](ctl *listing.Controller[T], actions map[string]Action[T]) Page {
	return &controllerPage[T]{ctl: ctl, actions: actions}
}

func (p *controllerPage[T]) Resource() string { return p.ctl.Resource() }

func (p *controllerPage[T]) Mount(ctx context.Context) error {
	p.mount.Do(func() {
		_, p.mountErr = p.ctl.Load(ctx)
	})
	return p.mountErr
}

func (p *controllerPage[T]) Load(ctx context.Context) (listing.LoadState, error) {
	return p.ctl.Load(ctx)
}

// Apply sets search and facets before sort and page so the page a caller asks
// for survives the page reset caused by a new search.
func (p *controllerPage[T]) Apply(v View) error {
	if v.Search != nil {
		p.ctl.SetSearch(*v.Search)
	}
	names := make([]string, 0, len(v.Facets))
	for name := range v.Facets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.ctl.SetFacet(name, v.Facets[name])
	}
	if v.Sort != "" {
		p.ctl.SetSort(v.Sort, v.Dir)
	}
	if v.PageSize != 0 {
		if err := p.ctl.SetPageSize(v.PageSize); err != nil {
			return err
		}
	}
	if v.Page != 0 {
		p.ctl.SetPage(v.Page)
	}
	return nil
}

func (p *controllerPage[T]) Snapshot() any { return p.ctl.Snapshot() }

func (p *controllerPage[T]) Create(ctx context.Context, raw []byte) (any, error) {
	var input T
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, listing.ValidationError(map[string]string{"_": "body is not valid: " + err.Error()})
	}
	return p.ctl.Create(ctx, input)
}

func (p *controllerPage[T]) Update(ctx context.Context, id int64, raw []byte) (any, error) {
	return p.ctl.Update(ctx, id, listing.JSONPatch[T](raw))
}

func (p *controllerPage[T]) RequestRemoval(id int64) (listing.Intent, error) {
	return p.ctl.RequestRemoval(id)
}

func (p *controllerPage[T]) Remove(ctx context.Context, id int64, token string) error {
	return p.ctl.Remove(ctx, id, token)
}

func (p *controllerPage[T]) Action(ctx context.Context, name string, id int64, raw []byte) (any, error) {
	run, ok := p.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w %q on %s", ErrUnknownAction, name, p.ctl.Resource())
	}
	return run(ctx, p.ctl, id, raw)
}

func (p *controllerPage[T]) Close() { p.ctl.Close() }

// Factory constructs a fresh page.
type Factory func() (Page, error)

// Catalog lists the pages a workspace can mount.
type Catalog struct {
	names     []string
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register adds a page built from cfg. cfg is called once per mount so every
// workspace gets its own controller.
func Register[T listing.Entity](c *Catalog, name string, cfg func() listing.Config[T], actions map[string]Action[T]) {
	c.Add(name, func() (Page, error) {
		ctl, err := listing.New(cfg())
		if err != nil {
			return nil, err
		}
		return Adapt(ctl, actions), nil
	})
}

// Add registers a factory; a second registration of name replaces the first.
func (c *Catalog) Add(name string, f Factory) {
	if _, ok := c.factories[name]; !ok {
		c.names = append(c.names, name)
	}
	c.factories[name] = f
}

// Names returns the registered resources in registration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Build constructs the named page.
func (c *Catalog) Build(name string) (Page, error) {
	f, ok := c.factories[name]
	if !ok {
		return nil, fmt.Errorf("console: page %q: %w", name, ErrUnknownPage)
	}
	return f()
}

// ErrUnknownPage is returned for resources missing from the catalog.
var ErrUnknownPage = errors.New("unknown page")
