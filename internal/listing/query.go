package listing

import (
	"strings"
)

// Default pagination.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// FacetAll is the facet value that leaves a facet unconstrained.
const FacetAll = "all"

// Direction is the order applied by a sort key.
type Direction int

const (
	Asc Direction = iota
	Desc
)

// ParseDirection reads "asc" or "desc"; anything else is Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	*d = ParseDirection(string(text))
	return nil
}

// SortSpec selects a comparator and its direction.
type SortSpec struct {
	Key string    `json:"key"`
	Dir Direction `json:"dir"`
}

// Query is the user-controlled filter state of a list page.
type Query struct {
	Search string            `json:"search"`
	Facets map[string]string `json:"facets,omitempty"`
}

// Facet returns the active value of a facet or "" when it does not constrain.
func (q Query) Facet(name string) string {
	v := strings.TrimSpace(q.Facets[name])
	if strings.EqualFold(v, FacetAll) {
		return ""
	}
	return v
}

func (q Query) clone() Query {
	out := Query{Search: q.Search}
	if len(q.Facets) > 0 {
		out.Facets = make(map[string]string, len(q.Facets))
		for k, v := range q.Facets {
			out.Facets[k] = v
		}
	}
	return out
}

// Window selects one page of the sorted, filtered collection.
type Window struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Summary describes the pagination state shown under a table.
type Summary struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// LoadState tracks the data loader.
type LoadState int

const (
	Idle LoadState = iota
	Loading
	Loaded
	LoadedWithFallback
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case LoadedWithFallback:
		return "loaded_with_fallback"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Mode chooses between awaiting the server and applying a change locally first.
type Mode int

const (
	// Confirmed applies the change only after the server accepted it.
	Confirmed Mode = iota
	// Optimistic applies the change immediately and rolls it back on failure.
	Optimistic
)

// Phase is the mutation state of a single entity.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}
