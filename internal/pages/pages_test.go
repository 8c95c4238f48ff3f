package pages

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innkeeper/backoffice/internal/frontoffice/reservations"
	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/cache"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
	"github.com/innkeeper/backoffice/internal/restaurant/waiters"
)

type fakeAPI struct {
	mu      sync.Mutex
	updates []reservations.Reservation
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/reservations":
		_ = json.NewEncoder(w).Encode(map[string]any{"reservations": []reservations.Reservation{{
			ID: 5, Code: "R-005", GuestName: "Sari", Guests: 2, Status: reservations.StatusBooked,
			CheckIn:  time.Date(2026, 10, 18, 14, 0, 0, 0, time.UTC),
			CheckOut: time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC),
		}}})
	case r.Method == http.MethodPut && r.URL.Path == "/api/reservations/5":
		var got reservations.Reservation
		_ = json.NewDecoder(r.Body).Decode(&got)
		f.mu.Lock()
		f.updates = append(f.updates, got)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && r.URL.Path == "/api/waiters":
		_ = json.NewEncoder(w).Encode([]waiters.Waiter{{ID: 1, Name: "Ana", Status: waiters.StatusActive}})
	case r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`[]`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newSet(t *testing.T, rc *redis.Client) (*Set, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	client, err := restclient.NewClient(srv.URL + "/api")
	require.NoError(t, err)
	return New(Deps{
		Client:      client,
		Redis:       rc,
		SnapshotTTL: time.Hour,
		PageSize:    7,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}), api
}

func TestNewRegistersEveryPage(t *testing.T) {
	set, _ := newSet(t, nil)

	assert.Equal(t, []string{
		"assets", "categories", "reservations", "orders", "waiters",
		"facilities", "beds", "sizes", "classes", "rooms",
	}, set.Catalog.Names())
	require.Len(t, set.Warmers, len(set.Catalog.Names()))
	for i, w := range set.Warmers {
		assert.Equal(t, set.Catalog.Names()[i], w.Resource)
	}
}

func TestSharedSettingsApplyToEveryPage(t *testing.T) {
	set, _ := newSet(t, nil)

	page, err := set.Catalog.Build(waiters.Resource)
	require.NoError(t, err)
	t.Cleanup(page.Close)
	require.NoError(t, page.Mount(context.Background()))

	snap, ok := page.Snapshot().(listing.Snapshot[waiters.Waiter])
	require.True(t, ok)
	assert.Equal(t, 7, snap.Pagination.PageSize)
	assert.Len(t, snap.Items, 1)
}

func TestWarmerSavesSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	set, _ := newSet(t, rc)

	var warmed bool
	for _, w := range set.Warmers {
		if w.Resource != waiters.Resource {
			continue
		}
		n, err := w.Warm(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		warmed = true
	}
	require.True(t, warmed)

	items, ok, err := cache.NewSnapshotStore[waiters.Waiter](rc, time.Hour).LoadSnapshot(context.Background(), waiters.Resource)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ana", items[0].Name)
}

func TestWarmerWithoutRedisOnlyFetches(t *testing.T) {
	set, _ := newSet(t, nil)

	n, err := set.Warmers[0].Warm(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckInAction(t *testing.T) {
	set, api := newSet(t, nil)

	page, err := set.Catalog.Build(reservations.Resource)
	require.NoError(t, err)
	t.Cleanup(page.Close)
	require.NoError(t, page.Mount(context.Background()))

	out, err := page.Action(context.Background(), "check-in", 5, []byte(`{"room_number":"204"}`))
	require.NoError(t, err)

	saved := out.(reservations.Reservation)
	assert.Equal(t, reservations.StatusCheckedIn, saved.Status)
	assert.Equal(t, "204", saved.RoomNumber)
	api.mu.Lock()
	defer api.mu.Unlock()
	require.Len(t, api.updates, 1)
	assert.Equal(t, "204", api.updates[0].RoomNumber)
}

func TestCheckInRejectsBadBody(t *testing.T) {
	set, _ := newSet(t, nil)

	page, err := set.Catalog.Build(reservations.Resource)
	require.NoError(t, err)
	t.Cleanup(page.Close)
	require.NoError(t, page.Mount(context.Background()))

	_, err = page.Action(context.Background(), "check-in", 5, []byte(`{`))
	assert.Equal(t, listing.KindValidation, listing.KindOf(err))
}
