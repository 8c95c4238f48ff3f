package listing

import (
	"slices"
	"strings"
)

// Predicate decides whether an item survives the filter stage.
type Predicate[T any] func(item T, q Query) bool

// Comparator orders two items; negative means a sorts before b.
type Comparator[T any] func(a, b T) int

// FacetFunc extracts the value a facet is matched against.
type FacetFunc[T any] func(item T) string

// Match builds the standard list predicate: a case-folded substring search over
// the fields returned by search, exact (case-insensitive) facet matches, and an
// optional extra predicate. An empty search term and unset or "all" facets keep
// every item. Facets without an extractor do not constrain.
func Match[T any](search func(T) []string, facets map[string]FacetFunc[T], extra Predicate[T]) Predicate[T] {
	return func(item T, q Query) bool {
		if term := strings.TrimSpace(q.Search); term != "" && search != nil {
			if !Contains(term, search(item)...) {
				return false
			}
		}
		for name := range q.Facets {
			want := q.Facet(name)
			if want == "" {
				continue
			}
			get, ok := facets[name]
			if !ok || get == nil {
				continue
			}
			if !strings.EqualFold(strings.TrimSpace(get(item)), want) {
				return false
			}
		}
		if extra != nil && !extra(item, q) {
			return false
		}
		return true
	}
}

// Filter keeps the items accepted by pred, preserving their order. A nil
// predicate keeps everything.
func Filter[T any](items []T, q Query, pred Predicate[T]) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if pred == nil || pred(item, q) {
			out = append(out, item)
		}
	}
	return out
}

// Sort returns a stably sorted copy. Keys without a comparator pass the input
// through in its current order.
func Sort[T any](items []T, spec SortSpec, comparators map[string]Comparator[T]) []T {
	out := slices.Clone(items)
	if out == nil {
		out = []T{}
	}
	cmp, ok := comparators[spec.Key]
	if !ok || cmp == nil {
		return out
	}
	slices.SortStableFunc(out, func(a, b T) int {
		if spec.Dir == Desc {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return out
}

// Summarize computes pagination for total items. TotalPages is never below 1
// and Page is clamped into [1, TotalPages].
func Summarize(total int, w Window) Summary {
	size := w.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if total < 0 {
		total = 0
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	return Summary{
		Page:       ClampPage(w.Page, pages),
		PageSize:   size,
		TotalItems: total,
		TotalPages: pages,
	}
}

// ClampPage bounds page to [1, max(totalPages, 1)].
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate returns a copy of the slice selected by w after clamping.
func Paginate[T any](items []T, w Window) []T {
	s := Summarize(len(items), w)
	start := (s.Page - 1) * s.PageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+s.PageSize, len(items))
	return slices.Clone(items[start:end])
}
