// Package sizes configures the room size list page.
package sizes

import (
	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "sizes"
	Endpoint = "/room-sizes"
)

// Size is a named floor area in square metres.
type Size struct {
	ID   int64   `json:"id"`
	Name string  `json:"name" validate:"required,max=60"`
	Area float64 `json:"area" validate:"gt=0"`
}

func (s Size) EntityID() int64 { return s.ID }

func withID(s Size, id int64) Size {
	s.ID = id
	return s
}

func NewSource(client *restclient.Client) *restclient.Resource[Size] {
	return restclient.NewResource[Size](client, Endpoint)
}

func Config(src listing.Source[Size]) listing.Config[Size] {
	return listing.Config[Size]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(s Size) []string { return []string{s.Name} },
		Comparators: map[string]listing.Comparator[Size]{
			"name": listing.ByString(func(s Size) string { return s.Name }),
			"area": listing.ByOrdered(func(s Size) float64 { return s.Area }),
		},
		DefaultSort: listing.SortSpec{Key: "area"},
		WithID:      withID,
		CreateMode:  listing.Optimistic,
		UpdateMode:  listing.Optimistic,
		DeleteMode:  listing.Optimistic,
	}
}
