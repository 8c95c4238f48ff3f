// Package listingtest provides an in-memory listing.Source for page tests.
package listingtest

import (
	"context"
	"net/url"
	"slices"
	"sync"
	"testing"

	"github.com/innkeeper/backoffice/internal/listing"
	_ "github.com/innkeeper/backoffice/internal/testing/guard"
)

// Source keeps a collection in memory. Setting one of the error fields makes
// the matching operation fail with it.
type Source[T listing.Entity] struct {
	mu        sync.Mutex
	items     []T
	withID    func(T, int64) T
	nextID    int64
	ListErr   error
	CreateErr error
	UpdateErr error
	DeleteErr error
	Params    []url.Values
	Updated   []T
	Deleted   []int64
}

// NewSource seeds a source. withID stamps ids on created entities.
func NewSource[T listing.Entity](withID func(T, int64) T, items ...T) *Source[T] {
	s := &Source[T]{items: slices.Clone(items), withID: withID}
	for _, it := range items {
		s.nextID = max(s.nextID, it.EntityID())
	}
	return s
}

func (s *Source[T]) List(ctx context.Context, params url.Values) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Params = append(s.Params, params)
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	return slices.Clone(s.items), nil
}

func (s *Source[T]) Create(ctx context.Context, item T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		var zero T
		return zero, s.CreateErr
	}
	s.nextID++
	if s.withID != nil {
		item = s.withID(item, s.nextID)
	}
	s.items = append(s.items, item)
	return item, nil
}

func (s *Source[T]) Update(ctx context.Context, item T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Updated = append(s.Updated, item)
	if s.UpdateErr != nil {
		var zero T
		return zero, s.UpdateErr
	}
	for i := range s.items {
		if s.items[i].EntityID() == item.EntityID() {
			s.items[i] = item
		}
	}
	return item, nil
}

func (s *Source[T]) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, id)
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.items = slices.DeleteFunc(s.items, func(it T) bool { return it.EntityID() == id })
	return nil
}

// Queries returns the parameters of every List call so far.
func (s *Source[T]) Queries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.Params)
}

// Items returns the stored collection.
func (s *Source[T]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Controller builds and loads a controller over cfg, closing it when the
// test ends.
func Controller[T listing.Entity](tb testing.TB, cfg listing.Config[T]) *listing.Controller[T] {
	tb.Helper()
	ctl, err := listing.New(cfg)
	if err != nil {
		tb.Fatalf("new controller: %v", err)
	}
	tb.Cleanup(ctl.Close)
	if _, err := ctl.Load(context.Background()); err != nil {
		tb.Fatalf("load %s: %v", cfg.Resource, err)
	}
	return ctl
}
