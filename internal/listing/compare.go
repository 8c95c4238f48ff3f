package listing

import (
	"cmp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ByString orders by a text field using case-insensitive, digit-aware collation
// so "Room 9" sorts before "Room 10".
func ByString[T any](field func(T) string) Comparator[T] {
	col := collate.New(language.English, collate.IgnoreCase, collate.Numeric)
	var mu sync.Mutex // collators keep scratch buffers
	return func(a, b T) int {
		mu.Lock()
		defer mu.Unlock()
		return col.CompareString(field(a), field(b))
	}
}

// ByOrdered orders by a numeric or otherwise ordered field.
func ByOrdered[T any, V cmp.Ordered](field func(T) V) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(field(a), field(b))
	}
}

// ByTime orders by a timestamp; zero times sort first.
func ByTime[T any](field func(T) time.Time) Comparator[T] {
	return func(a, b T) int {
		return field(a).Compare(field(b))
	}
}

// ByDecimal orders by a monetary amount.
func ByDecimal[T any](field func(T) decimal.Decimal) Comparator[T] {
	return func(a, b T) int {
		return field(a).Cmp(field(b))
	}
}

// Contains reports whether any field contains term, ignoring case. An empty
// term matches everything.
func Contains(term string, fields ...string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	folder := cases.Fold()
	needle := folder.String(term)
	for _, field := range fields {
		if field == "" {
			continue
		}
		if strings.Contains(folder.String(field), needle) {
			return true
		}
	}
	return false
}
