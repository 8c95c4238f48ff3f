// Package facilities configures the room facility list page.
package facilities

import (
	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

// Resource names the page; Endpoint is its API collection.
const (
	Resource = "facilities"
	Endpoint = "/room-facilities"
)

// Facility is an amenity that can be attached to a room class.
type Facility struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=80"`
	Icon string `json:"icon,omitempty" validate:"max=40"`
}

// EntityID implements listing.Entity.
func (f Facility) EntityID() int64 { return f.ID }

func withID(f Facility, id int64) Facility {
	f.ID = id
	return f
}

// Standard lists the amenities shown while the API cannot be reached.
var Standard = []Facility{
	{ID: 1, Name: "Wi-Fi", Icon: "wifi"},
	{ID: 2, Name: "Air conditioning", Icon: "snowflake"},
	{ID: 3, Name: "Television", Icon: "tv"},
	{ID: 4, Name: "Minibar", Icon: "glass"},
	{ID: 5, Name: "Safe", Icon: "lock"},
	{ID: 6, Name: "Bathtub", Icon: "bath"},
}

// NewSource binds the facility endpoint.
func NewSource(client *restclient.Client) *restclient.Resource[Facility] {
	return restclient.NewResource[Facility](client, Endpoint)
}

// Config describes the facility page.
func Config(src listing.Source[Facility]) listing.Config[Facility] {
	return listing.Config[Facility]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(f Facility) []string { return []string{f.Name} },
		Comparators: map[string]listing.Comparator[Facility]{
			"name": listing.ByString(func(f Facility) string { return f.Name }),
		},
		DefaultSort: listing.SortSpec{Key: "name"},
		Fallback:    Standard,
		WithID:      withID,
		CreateMode:  listing.Optimistic,
		UpdateMode:  listing.Optimistic,
		DeleteMode:  listing.Optimistic,
	}
}
