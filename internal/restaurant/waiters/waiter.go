// Package waiters configures the restaurant staff page.
package waiters

import (
	"fmt"
	"time"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "waiters"
	Endpoint = "/waiters"
)

// Waiter statuses.
const (
	StatusActive   = "ACTIVE"
	StatusOnLeave  = "ON_LEAVE"
	StatusInactive = "INACTIVE"
)

// Waiter is a member of the restaurant floor staff.
type Waiter struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name" validate:"required,max=100"`
	Phone        string    `json:"phone,omitempty" validate:"omitempty,e164"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email"`
	Status       string    `json:"status" validate:"required,oneof=ACTIVE ON_LEAVE INACTIVE"`
	Shift        string    `json:"shift,omitempty" validate:"omitempty,oneof=MORNING AFTERNOON NIGHT"`
	JoinedAt     time.Time `json:"joined_at"`
	Rating       float64   `json:"rating" validate:"gte=0,lte=5"`
	ActiveOrders int       `json:"active_orders"`
}

func (w Waiter) EntityID() int64 { return w.ID }

func withID(w Waiter, id int64) Waiter {
	w.ID = id
	return w
}

// CanDelete refuses waiters with open orders.
func CanDelete(w Waiter) error {
	if w.ActiveOrders > 0 {
		return fmt.Errorf("%s still has %d open orders", w.Name, w.ActiveOrders)
	}
	return nil
}

func NewSource(client *restclient.Client) *restclient.Resource[Waiter] {
	return restclient.NewResource[Waiter](client, Endpoint)
}

func Config(src listing.Source[Waiter]) listing.Config[Waiter] {
	return listing.Config[Waiter]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(w Waiter) []string { return []string{w.Name, w.Phone, w.Email} },
		Facets: map[string]listing.FacetFunc[Waiter]{
			"status": func(w Waiter) string { return w.Status },
			"shift":  func(w Waiter) string { return w.Shift },
		},
		Comparators: map[string]listing.Comparator[Waiter]{
			"name":      listing.ByString(func(w Waiter) string { return w.Name }),
			"joined_at": listing.ByTime(func(w Waiter) time.Time { return w.JoinedAt }),
			"rating":    listing.ByOrdered(func(w Waiter) float64 { return w.Rating }),
		},
		DefaultSort: listing.SortSpec{Key: "name"},
		CanDelete:   CanDelete,
		WithID:      withID,
		CreateMode:  listing.Optimistic,
		UpdateMode:  listing.Optimistic,
		DeleteMode:  listing.Optimistic,
	}
}
