// Package pages wires every back-office list page to the REST API, the
// snapshot store and the metrics observer.
package pages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/innkeeper/backoffice/internal/console"
	"github.com/innkeeper/backoffice/internal/frontoffice/reservations"
	"github.com/innkeeper/backoffice/internal/inventory/assets"
	"github.com/innkeeper/backoffice/internal/inventory/categories"
	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/cache"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
	"github.com/innkeeper/backoffice/internal/restaurant/orders"
	"github.com/innkeeper/backoffice/internal/restaurant/waiters"
	"github.com/innkeeper/backoffice/internal/rooms/beds"
	"github.com/innkeeper/backoffice/internal/rooms/classes"
	"github.com/innkeeper/backoffice/internal/rooms/facilities"
	"github.com/innkeeper/backoffice/internal/rooms/sizes"
	"github.com/innkeeper/backoffice/internal/rooms/units"
)

// Deps are shared by every page.
type Deps struct {
	Client         *restclient.Client
	Redis          *redis.Client
	SnapshotTTL    time.Duration
	PageSize       int
	SearchDebounce time.Duration
	Logger         *slog.Logger
	Observer       listing.Observer
}

// Warmer refreshes the stored snapshot of one resource and reports how many
// records it saved.
type Warmer struct {
	Resource string
	Warm     func(ctx context.Context) (int, error)
}

// Set is the catalog of pages together with their warmers.
type Set struct {
	Catalog *console.Catalog
	Warmers []Warmer
}

// New builds the page set.
func New(d Deps) *Set {
	s := &Set{Catalog: console.NewCatalog()}

	add(s, d, assets.Config(assets.NewSource(d.Client)), nil)
	add(s, d, categories.Config(categories.NewSource(d.Client)), nil)
	add(s, d, reservations.Config(reservations.NewSource(d.Client)), map[string]console.Action[reservations.Reservation]{
		"check-in": checkIn,
	})
	add(s, d, orders.Config(orders.NewSource(d.Client)), nil)
	add(s, d, waiters.Config(waiters.NewSource(d.Client)), nil)
	add(s, d, facilities.Config(facilities.NewSource(d.Client)), nil)
	add(s, d, beds.Config(beds.NewSource(d.Client)), nil)
	add(s, d, sizes.Config(sizes.NewSource(d.Client)), nil)
	add(s, d, classes.Config(classes.NewSource(d.Client)), nil)
	add(s, d, units.Config(units.NewSource(d.Client)), nil)

	return s
}

// add applies the shared settings to cfg and registers the page and its warmer.
func add[T listing.Entity](s *Set, d Deps, cfg listing.Config[T], actions map[string]console.Action[T]) {
	if d.PageSize > 0 {
		cfg.PageSize = d.PageSize
	}
	if d.SearchDebounce > 0 {
		cfg.SearchDebounce = d.SearchDebounce
	}
	cfg.Logger = d.Logger
	cfg.Observer = d.Observer
	var store *cache.SnapshotStore[T]
	if d.Redis != nil {
		store = cache.NewSnapshotStore[T](d.Redis, d.SnapshotTTL)
		cfg.FallbackStore = store
	}

	console.Register(s.Catalog, cfg.Resource, func() listing.Config[T] { return cfg }, actions)

	src := cfg.Source
	s.Warmers = append(s.Warmers, Warmer{
		Resource: cfg.Resource,
		Warm: func(ctx context.Context) (int, error) {
			items, err := src.List(ctx, url.Values{})
			if err != nil {
				return 0, fmt.Errorf("fetch %s: %w", cfg.Resource, err)
			}
			if err := store.SaveSnapshot(ctx, cfg.Resource, items); err != nil {
				return 0, err
			}
			return len(items), nil
		},
	})
}

func checkIn(ctx context.Context, ctl *listing.Controller[reservations.Reservation], id int64, raw []byte) (reservations.Reservation, error) {
	var body struct {
		RoomNumber string `json:"room_number"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return reservations.Reservation{}, listing.ValidationError(map[string]string{"_": "body is not valid: " + err.Error()})
		}
	}
	return reservations.CheckIn(ctx, ctl, id, body.RoomNumber)
}
