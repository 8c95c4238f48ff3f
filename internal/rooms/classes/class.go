// Package classes configures the room class list page. A class groups rooms
// that share a bed type, a size, a set of facilities and a base nightly rate.
package classes

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "classes"
	Endpoint = "/room-classes"
)

// Class is a room category with its base rate.
type Class struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code" validate:"required,max=16"`
	Name        string          `json:"name" validate:"required,max=80"`
	BedID       int64           `json:"bed_id" validate:"gt=0"`
	SizeID      int64           `json:"size_id" validate:"gt=0"`
	FacilityIDs []int64         `json:"facility_ids,omitempty" validate:"dive,gt=0"`
	BaseRate    decimal.Decimal `json:"base_rate"`
	RoomCount   int             `json:"room_count"`
}

func (c Class) EntityID() int64 { return c.ID }

func withID(c Class, id int64) Class {
	c.ID = id
	return c
}

// Validate checks struct tags and that the base rate is positive.
func Validate(c Class) map[string]string {
	var rate map[string]string
	if !c.BaseRate.IsPositive() {
		rate = map[string]string{"base_rate": "must be greater than 0"}
	}
	return listing.MergeFields(listing.ValidateStruct(c), rate)
}

// CanDelete refuses classes that still have rooms.
func CanDelete(c Class) error {
	if c.RoomCount > 0 {
		return fmt.Errorf("%d rooms still belong to class %s", c.RoomCount, c.Code)
	}
	return nil
}

func NewSource(client *restclient.Client) *restclient.Resource[Class] {
	return restclient.NewResource[Class](client, Endpoint)
}

func Config(src listing.Source[Class]) listing.Config[Class] {
	return listing.Config[Class]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(c Class) []string { return []string{c.Name, c.Code} },
		Comparators: map[string]listing.Comparator[Class]{
			"name":      listing.ByString(func(c Class) string { return c.Name }),
			"base_rate": listing.ByDecimal(func(c Class) decimal.Decimal { return c.BaseRate }),
		},
		DefaultSort: listing.SortSpec{Key: "name"},
		Validate:    Validate,
		CanDelete:   CanDelete,
		WithID:      withID,
		CreateMode:  listing.Confirmed,
		UpdateMode:  listing.Optimistic,
		DeleteMode:  listing.Confirmed,
	}
}
