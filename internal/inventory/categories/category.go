// Package categories configures the asset category page. Search runs on the
// server so the category list can grow beyond one fetch.
package categories

import (
	"fmt"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "categories"
	Endpoint = "/categories"
)

// Category groups assets.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description,omitempty" validate:"max=255"`
	AssetCount  int    `json:"asset_count"`
}

func (c Category) EntityID() int64 { return c.ID }

func withID(c Category, id int64) Category {
	c.ID = id
	return c
}

// CanDelete refuses categories that still hold assets.
func CanDelete(c Category) error {
	if c.AssetCount > 0 {
		return fmt.Errorf("category %q still holds %d assets", c.Name, c.AssetCount)
	}
	return nil
}

func NewSource(client *restclient.Client) *restclient.Resource[Category] {
	return restclient.NewResource[Category](client, Endpoint, restclient.Envelope("categories"))
}

func Config(src listing.Source[Category]) listing.Config[Category] {
	return listing.Config[Category]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(c Category) []string { return []string{c.Name, c.Description} },
		Comparators: map[string]listing.Comparator[Category]{
			"name":        listing.ByString(func(c Category) string { return c.Name }),
			"asset_count": listing.ByOrdered(func(c Category) int { return c.AssetCount }),
		},
		DefaultSort:  listing.SortSpec{Key: "name"},
		CanDelete:    CanDelete,
		WithID:       withID,
		CreateMode:   listing.Confirmed,
		UpdateMode:   listing.Optimistic,
		DeleteMode:   listing.Confirmed,
		ServerSearch: true,
	}
}
