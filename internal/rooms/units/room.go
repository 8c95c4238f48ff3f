// Package units configures the room list page.
package units

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "rooms"
	Endpoint = "/rooms"
)

// Room statuses.
const (
	StatusAvailable   = "AVAILABLE"
	StatusOccupied    = "OCCUPIED"
	StatusMaintenance = "MAINTENANCE"
)

// Room is a bookable unit.
type Room struct {
	ID        int64           `json:"id"`
	Number    string          `json:"number" validate:"required,max=10"`
	Floor     int             `json:"floor" validate:"gte=0,lte=200"`
	ClassID   int64           `json:"class_id" validate:"gt=0"`
	ClassName string          `json:"class_name,omitempty"`
	Status    string          `json:"status" validate:"required,oneof=AVAILABLE OCCUPIED MAINTENANCE"`
	Rate      decimal.Decimal `json:"rate"`
	Notes     string          `json:"notes,omitempty" validate:"max=500"`
}

func (r Room) EntityID() int64 { return r.ID }

func withID(r Room, id int64) Room {
	r.ID = id
	return r
}

// Validate checks struct tags and that the rate is not negative.
func Validate(r Room) map[string]string {
	var rate map[string]string
	if r.Rate.IsNegative() {
		rate = map[string]string{"rate": "must be 0 or more"}
	}
	return listing.MergeFields(listing.ValidateStruct(r), rate)
}

// CanDelete refuses occupied rooms.
func CanDelete(r Room) error {
	if r.Status == StatusOccupied {
		return fmt.Errorf("room %s is occupied", r.Number)
	}
	return nil
}

func NewSource(client *restclient.Client) *restclient.Resource[Room] {
	return restclient.NewResource[Room](client, Endpoint, restclient.Envelope("rooms"), restclient.DeleteByPath())
}

func Config(src listing.Source[Room]) listing.Config[Room] {
	return listing.Config[Room]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(r Room) []string { return []string{r.Number, r.ClassName} },
		Facets: map[string]listing.FacetFunc[Room]{
			"status": func(r Room) string { return r.Status },
			"class":  func(r Room) string { return r.ClassName },
			"floor":  func(r Room) string { return strconv.Itoa(r.Floor) },
		},
		Comparators: map[string]listing.Comparator[Room]{
			"number": listing.ByString(func(r Room) string { return r.Number }),
			"floor":  listing.ByOrdered(func(r Room) int { return r.Floor }),
			"rate":   listing.ByDecimal(func(r Room) decimal.Decimal { return r.Rate }),
		},
		DefaultSort: listing.SortSpec{Key: "number"},
		Validate:    Validate,
		CanDelete:   CanDelete,
		WithID:      withID,
		CreateMode:  listing.Confirmed,
		UpdateMode:  listing.Optimistic,
		DeleteMode:  listing.Confirmed,
	}
}
