// Package orders configures the restaurant order page.
package orders

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "orders"
	Endpoint = "/orders"
)

// Order types.
const (
	TypeDineIn      = "DINE_IN"
	TypeRoomService = "ROOM_SERVICE"
	TypeTakeaway    = "TAKEAWAY"
)

// Order statuses.
const (
	StatusPending   = "PENDING"
	StatusPreparing = "PREPARING"
	StatusServed    = "SERVED"
	StatusPaid      = "PAID"
	StatusCancelled = "CANCELLED"
)

// Line is one dish on an order.
type Line struct {
	Name     string          `json:"name" validate:"required"`
	Quantity int             `json:"quantity" validate:"gt=0"`
	Price    decimal.Decimal `json:"price"`
}

// Order is a restaurant ticket.
type Order struct {
	ID         int64           `json:"id"`
	Code       string          `json:"code" validate:"required,max=20"`
	Table      string          `json:"table,omitempty" validate:"required_if=Type DINE_IN"`
	RoomNumber string          `json:"room_number,omitempty" validate:"required_if=Type ROOM_SERVICE"`
	Guest      string          `json:"guest,omitempty"`
	WaiterID   int64           `json:"waiter_id,omitempty"`
	WaiterName string          `json:"waiter_name,omitempty"`
	Type       string          `json:"type" validate:"required,oneof=DINE_IN ROOM_SERVICE TAKEAWAY"`
	Status     string          `json:"status" validate:"required,oneof=PENDING PREPARING SERVED PAID CANCELLED"`
	Lines      []Line          `json:"lines,omitempty" validate:"dive"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (o Order) EntityID() int64 { return o.ID }

func withID(o Order, id int64) Order {
	o.ID = id
	return o
}

// Subtotal sums the order lines.
func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Validate checks struct tags, line prices and that the total matches the
// lines when any are present.
func Validate(o Order) map[string]string {
	extra := map[string]string{}
	for i, l := range o.Lines {
		if l.Price.IsNegative() {
			extra["lines["+strconv.Itoa(i)+"].price"] = "must be 0 or more"
		}
	}
	if o.Total.IsNegative() {
		extra["total"] = "must be 0 or more"
	} else if len(o.Lines) > 0 && !o.Total.Equal(o.Subtotal()) {
		extra["total"] = "must equal the sum of the lines (" + o.Subtotal().StringFixed(2) + ")"
	}
	return listing.MergeFields(listing.ValidateStruct(o), extra)
}

// CanDelete only allows removing orders that never reached the kitchen.
func CanDelete(o Order) error {
	switch o.Status {
	case StatusPending, StatusCancelled:
		return nil
	default:
		return fmt.Errorf("order %s is %s", o.Code, o.Status)
	}
}

func NewSource(client *restclient.Client) *restclient.Resource[Order] {
	return restclient.NewResource[Order](client, Endpoint, restclient.Envelope("orders"), restclient.UpdateByPath(), restclient.DeleteByPath())
}

func Config(src listing.Source[Order]) listing.Config[Order] {
	return listing.Config[Order]{
		Resource: Resource,
		Source:   src,
		SearchFields: func(o Order) []string {
			return []string{o.Code, o.Table, o.RoomNumber, o.Guest, o.WaiterName}
		},
		Facets: map[string]listing.FacetFunc[Order]{
			"status": func(o Order) string { return o.Status },
			"type":   func(o Order) string { return o.Type },
		},
		Comparators: map[string]listing.Comparator[Order]{
			"created_at": listing.ByTime(func(o Order) time.Time { return o.CreatedAt }),
			"total":      listing.ByDecimal(func(o Order) decimal.Decimal { return o.Total }),
			"code":       listing.ByString(func(o Order) string { return o.Code }),
		},
		DefaultSort: listing.SortSpec{Key: "created_at", Dir: listing.Desc},
		Validate:    Validate,
		CanDelete:   CanDelete,
		WithID:      withID,
		CreateMode:  listing.Confirmed,
		UpdateMode:  listing.Optimistic,
		DeleteMode:  listing.Confirmed,
	}
}
