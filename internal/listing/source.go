package listing

import (
	"context"
	"net/url"
)

// Entity is any record with a stable integer key.
type Entity interface {
	EntityID() int64
}

// Source is the remote side of a list page.
type Source[T any] interface {
	List(ctx context.Context, params url.Values) ([]T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, item T) (T, error)
	Delete(ctx context.Context, id int64) error
}

// FallbackStore keeps the last collection a resource loaded successfully.
type FallbackStore[T any] interface {
	LoadSnapshot(ctx context.Context, resource string) ([]T, bool, error)
	SaveSnapshot(ctx context.Context, resource string, items []T) error
}

// Observer receives settled outcomes, typically for metrics.
type Observer interface {
	FetchSettled(resource, outcome string)
	MutationSettled(resource, op, outcome string)
}

// Outcome labels passed to Observer.
const (
	OutcomeLoaded     = "loaded"
	OutcomeFallback   = "fallback"
	OutcomeStale      = "stale"
	OutcomeSuccess    = "success"
	OutcomeInvalid    = "invalid"
	OutcomeBlocked    = "blocked"
	OutcomeFailed     = "failed"
	OutcomeRolledBack = "rolled_back"
)

// Operation labels passed to Observer.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)
