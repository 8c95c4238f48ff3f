// Package reservations configures the front-office reservation page and the
// check-in operation performed from it.
package reservations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

const (
	Resource = "reservations"
	Endpoint = "/reservations"
)

// Reservation statuses.
const (
	StatusBooked     = "BOOKED"
	StatusCheckedIn  = "CHECKED_IN"
	StatusCheckedOut = "CHECKED_OUT"
	StatusCancelled  = "CANCELLED"
)

// Reservation is a guest booking.
type Reservation struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code" validate:"required,max=20"`
	GuestName  string    `json:"guest_name" validate:"required,max=120"`
	Phone      string    `json:"phone,omitempty" validate:"omitempty,e164"`
	Email      string    `json:"email,omitempty" validate:"omitempty,email"`
	RoomNumber string    `json:"room_number,omitempty" validate:"required_if=Status CHECKED_IN"`
	Guests     int       `json:"guests" validate:"gte=1,lte=12"`
	Status     string    `json:"status" validate:"required,oneof=BOOKED CHECKED_IN CHECKED_OUT CANCELLED"`
	CheckIn    time.Time `json:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" validate:"required"`
}

func (r Reservation) EntityID() int64 { return r.ID }

func withID(r Reservation, id int64) Reservation {
	r.ID = id
	return r
}

// Nights is the length of stay.
func (r Reservation) Nights() int {
	if !r.CheckOut.After(r.CheckIn) {
		return 0
	}
	return int(r.CheckOut.Sub(r.CheckIn).Hours()+12) / 24
}

// Validate checks struct tags and that check-out follows check-in.
func Validate(r Reservation) map[string]string {
	var stay map[string]string
	if !r.CheckIn.IsZero() && !r.CheckOut.IsZero() && !r.CheckOut.After(r.CheckIn) {
		stay = map[string]string{"check_out": "must be after check_in"}
	}
	return listing.MergeFields(listing.ValidateStruct(r), stay)
}

// CanDelete refuses reservations whose guest is in house.
func CanDelete(r Reservation) error {
	if r.Status == StatusCheckedIn {
		return fmt.Errorf("guest %s is checked in", r.GuestName)
	}
	return nil
}

// CheckIn marks a booked reservation as checked in to roomNumber. It runs as
// an optimistic update, so a rejected check-in is rolled back.
func CheckIn(ctx context.Context, ctl *listing.Controller[Reservation], id int64, roomNumber string) (Reservation, error) {
	roomNumber = strings.TrimSpace(roomNumber)
	return ctl.Update(ctx, id, func(r Reservation) (Reservation, error) {
		fields := map[string]string{}
		if r.Status != StatusBooked {
			fields["status"] = "only BOOKED reservations can be checked in"
		}
		if roomNumber == "" {
			roomNumber = r.RoomNumber
		}
		if roomNumber == "" {
			fields["room_number"] = "is required"
		}
		if len(fields) > 0 {
			return r, listing.ValidationError(fields)
		}
		r.Status = StatusCheckedIn
		r.RoomNumber = roomNumber
		return r, nil
	})
}

func NewSource(client *restclient.Client) *restclient.Resource[Reservation] {
	return restclient.NewResource[Reservation](client, Endpoint, restclient.Envelope("reservations"), restclient.UpdateByPath(), restclient.DeleteByPath())
}

func Config(src listing.Source[Reservation]) listing.Config[Reservation] {
	return listing.Config[Reservation]{
		Resource:     Resource,
		Source:       src,
		SearchFields: func(r Reservation) []string { return []string{r.GuestName, r.Code, r.Phone} },
		Facets: map[string]listing.FacetFunc[Reservation]{
			"status": func(r Reservation) string { return r.Status },
		},
		Comparators: map[string]listing.Comparator[Reservation]{
			"check_in":  listing.ByTime(func(r Reservation) time.Time { return r.CheckIn }),
			"check_out": listing.ByTime(func(r Reservation) time.Time { return r.CheckOut }),
			"guest":     listing.ByString(func(r Reservation) string { return r.GuestName }),
		},
		DefaultSort:  listing.SortSpec{Key: "check_in"},
		Validate:     Validate,
		CanDelete:    CanDelete,
		WithID:       withID,
		CreateMode:   listing.Confirmed,
		UpdateMode:   listing.Optimistic,
		DeleteMode:   listing.Confirmed,
		ServerSearch: true,
	}
}
