// Package beds configures the bed type list page.
package beds

import (
	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "beds"
	Endpoint = "/room-beds"
)

// Bed is a bed type such as Twin or King.
type Bed struct {
	ID       int64  `json:"id"`
	Name     string `json:"name" validate:"required,max=60"`
	Capacity int    `json:"capacity" validate:"gt=0,lte=6"`
}

func (b Bed) EntityID() int64 { return b.ID }

func withID(b Bed, id int64) Bed {
	b.ID = id
	return b
}

func NewSource(client *restclient.Client) *restclient.Resource[Bed] {
	return restclient.NewResource[Bed](client, Endpoint)
}

func Config(src listing.Source[Bed]) listing.Config[Bed] {
	return listing.Config[Bed]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(b Bed) []string { return []string{b.Name} },
		Comparators: map[string]listing.Comparator[Bed]{
			"name":     listing.ByString(func(b Bed) string { return b.Name }),
			"capacity": listing.ByOrdered(func(b Bed) int { return b.Capacity }),
		},
		DefaultSort: listing.SortSpec{Key: "name"},
		WithID:      withID,
		CreateMode:  listing.Optimistic,
		UpdateMode:  listing.Optimistic,
		DeleteMode:  listing.Optimistic,
	}
}
