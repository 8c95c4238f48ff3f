// Package assets configures the hotel asset register page.
package assets

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "assets"
	Endpoint = "/assets"
)

// Asset statuses.
const (
	StatusInUse       = "IN_USE"
	StatusAvailable   = "AVAILABLE"
	StatusMaintenance = "MAINTENANCE"
	StatusRetired     = "RETIRED"
)

// Asset is a tracked piece of hotel equipment or furniture.
type Asset struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code" validate:"required,max=32"`
	Name         string          `json:"name" validate:"required,max=120"`
	CategoryID   int64           `json:"category_id" validate:"gt=0"`
	CategoryName string          `json:"category_name,omitempty"`
	Location     string          `json:"location,omitempty" validate:"max=120"`
	Status       string          `json:"status" validate:"required,oneof=IN_USE AVAILABLE MAINTENANCE RETIRED"`
	PurchasedAt  time.Time       `json:"purchased_at"`
	Value        decimal.Decimal `json:"value"`
}

func (a Asset) EntityID() int64 { return a.ID }

func withID(a Asset, id int64) Asset {
	a.ID = id
	return a
}

// Validate checks struct tags, a non-negative value and a purchase date that
// is not in the future.
func Validate(a Asset) map[string]string {
	extra := map[string]string{}
	if a.Value.IsNegative() {
		extra["value"] = "must be 0 or more"
	}
	if a.PurchasedAt.After(time.Now().Add(24 * time.Hour)) {
		extra["purchased_at"] = "cannot be in the future"
	}
	return listing.MergeFields(listing.ValidateStruct(a), extra)
}

func NewSource(client *restclient.Client) *restclient.Resource[Asset] {
	return restclient.NewResource[Asset](client, Endpoint, restclient.Envelope("assets"))
}

func Config(src listing.Source[Asset]) listing.Config[Asset] {
	return listing.Config[Asset]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(a Asset) []string { return []string{a.Name, a.Code, a.Location} },
		Facets: map[string]listing.FacetFunc[Asset]{
			"status":   func(a Asset) string { return a.Status },
			"category": func(a Asset) string { return a.CategoryName },
		},
		Comparators: map[string]listing.Comparator[Asset]{
			"name":         listing.ByString(func(a Asset) string { return a.Name }),
			"code":         listing.ByString(func(a Asset) string { return a.Code }),
			"purchased_at": listing.ByTime(func(a Asset) time.Time { return a.PurchasedAt }),
			"value":        listing.ByDecimal(func(a Asset) decimal.Decimal { return a.Value }),
		},
		DefaultSort: listing.SortSpec{Key: "name"},
		Validate:    Validate,
		WithID:      withID,
		CreateMode:  listing.Confirmed,
		UpdateMode:  listing.Optimistic,
		DeleteMode:  listing.Optimistic,
	}
}
