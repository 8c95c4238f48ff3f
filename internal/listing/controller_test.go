package listing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staff struct {
	ID     int64  `json:"id"`
	Name   string `json:"name" validate:"required"`
	Status string `json:"status"`
	Rating int    `json:"rating"`
}

func (s staff) EntityID() int64 { return s.ID }

func withStaffID(s staff, id int64) staff {
	s.ID = id
	return s
}

type memorySource struct {
	mu       sync.Mutex
	items    []staff
	nextID   int64
	lists    int
	params   []url.Values
	listFn   func(ctx context.Context, call int) ([]staff, error)
	createFn func(ctx context.Context, item staff) (staff, error)
	updateFn func(ctx context.Context, item staff) (staff, error)
	deleteFn func(ctx context.Context, id int64) error
	creates  int
}

func newMemorySource(items ...staff) *memorySource {
	next := int64(0)
	for _, it := range items {
		next = max(next, it.ID)
	}
	return &memorySource{items: items, nextID: next}
}

func (m *memorySource) List(ctx context.Context, params url.Values) ([]staff, error) {
	m.mu.Lock()
	m.lists++
	call := m.lists
	m.params = append(m.params, params)
	fn := m.listFn
	items := append([]staff(nil), m.items...)
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, call)
	}
	return items, nil
}

func (m *memorySource) Create(ctx context.Context, item staff) (staff, error) {
	m.mu.Lock()
	m.creates++
	fn := m.createFn
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, item)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	item.ID = m.nextID
	m.items = append(m.items, item)
	return item, nil
}

func (m *memorySource) Update(ctx context.Context, item staff) (staff, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, item)
	}
	return item, nil
}

func (m *memorySource) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *memorySource) listCalls() (int, []url.Values) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lists, append([]url.Values(nil), m.params...)
}

type memorySnapshots struct {
	mu    sync.Mutex
	saved map[string][]staff
}

func (s *memorySnapshots) LoadSnapshot(ctx context.Context, resource string) ([]staff, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.saved[resource]
	return items, ok, nil
}

func (s *memorySnapshots) SaveSnapshot(ctx context.Context, resource string, items []staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string][]staff)
	}
	s.saved[resource] = items
	return nil
}

func staffConfig(src Source[staff]) Config[staff] {
	return Config[staff]{
		Resource:     "waiters",
		Source:       src,
		SearchFields: func(s staff) []string { return []string{s.Name} },
		Facets: map[string]FacetFunc[staff]{
			"status": func(s staff) string { return s.Status },
		},
		Comparators: map[string]Comparator[staff]{
			"name":   ByString(func(s staff) string { return s.Name }),
			"rating": ByOrdered(func(s staff) int { return s.Rating }),
		},
		WithID:     withStaffID,
		CreateMode: Optimistic,
		UpdateMode: Optimistic,
		DeleteMode: Optimistic,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newLoaded(t *testing.T, cfg Config[staff]) *Controller[staff] {
	t.Helper()
	ctl, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(ctl.Close)
	state, err := ctl.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, Loaded, state)
	return ctl
}

func ids(items []staff) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func assertUniqueIDs(t *testing.T, items []staff) {
	t.Helper()
	seen := make(map[int64]bool, len(items))
	for _, it := range items {
		require.Falsef(t, seen[it.ID], "duplicate id %d in %v", it.ID, ids(items))
		seen[it.ID] = true
	}
}

func TestStatusFacetSelectsActiveStaff(t *testing.T) {
	src := newMemorySource(
		staff{ID: 1, Name: "Ana", Status: "ACTIVE"},
		staff{ID: 2, Name: "Budi", Status: "ON_LEAVE"},
		staff{ID: 3, Name: "Citra", Status: "ACTIVE"},
	)
	ctl := newLoaded(t, staffConfig(src))
	require.NoError(t, ctl.SetPageSize(10))

	ctl.SetFacet("status", "ACTIVE")

	assert.Equal(t, []int64{1, 3}, ids(ctl.Visible()))
	assert.Equal(t, 1, ctl.Summary().TotalPages)

	ctl.SetFacet("status", "all")
	assert.Len(t, ctl.Visible(), 3)
}

func TestSearchResetsPageToFirst(t *testing.T) {
	var items []staff
	for i := 1; i <= 25; i++ {
		name := "guest " + strconv.Itoa(i)
		if i <= 4 {
			name = "vip " + strconv.Itoa(i)
		}
		items = append(items, staff{ID: int64(i), Name: name})
	}
	ctl := newLoaded(t, staffConfig(newMemorySource(items...)))

	ctl.SetPage(3)
	require.Equal(t, 3, ctl.Summary().Page)

	ctl.SetSearch("VIP")

	summary := ctl.Summary()
	assert.Equal(t, 1, summary.Page)
	assert.Equal(t, 1, summary.TotalPages)
	assert.Equal(t, 4, summary.TotalItems)
	assert.Len(t, ctl.Visible(), 4)
}

func TestRepeatedSearchKeepsPage(t *testing.T) {
	var items []staff
	for i := 1; i <= 30; i++ {
		items = append(items, staff{ID: int64(i), Name: "guest " + strconv.Itoa(i)})
	}
	ctl := newLoaded(t, staffConfig(newMemorySource(items...)))

	ctl.SetSearch("guest")
	ctl.SetPage(2)
	require.Equal(t, 2, ctl.Summary().Page)

	ctl.SetSearch("guest")
	assert.Equal(t, 2, ctl.Summary().Page)

	ctl.SetSearch("guest 1")
	assert.Equal(t, 1, ctl.Summary().Page)
}

func TestSetPageClampsToAvailablePages(t *testing.T) {
	var items []staff
	for i := 1; i <= 12; i++ {
		items = append(items, staff{ID: int64(i), Name: "n" + strconv.Itoa(i)})
	}
	ctl := newLoaded(t, staffConfig(newMemorySource(items...)))

	ctl.SetPage(99)
	assert.Equal(t, 2, ctl.Summary().Page)
	assert.Len(t, ctl.Visible(), 2)

	ctl.SetPage(-4)
	assert.Equal(t, 1, ctl.Summary().Page)

	require.NoError(t, ctl.SetPageSize(5))
	ctl.SetPage(3)
	assert.Equal(t, 3, ctl.Summary().Page)
	require.NoError(t, ctl.SetPageSize(50))
	assert.Equal(t, 1, ctl.Summary().Page)

	err := ctl.SetPageSize(0)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestEmptyResultKeepsOnePage(t *testing.T) {
	ctl := newLoaded(t, staffConfig(newMemorySource(staff{ID: 1, Name: "Ana"})))
	ctl.SetSearch("nobody")

	assert.Empty(t, ctl.Visible())
	assert.Equal(t, Summary{Page: 1, PageSize: DefaultPageSize, TotalItems: 0, TotalPages: 1}, ctl.Summary())
}

func TestLoadFailureShowsFallback(t *testing.T) {
	src := newMemorySource()
	src.listFn = func(context.Context, int) ([]staff, error) {
		return nil, errors.New("dial tcp: connection refused")
	}
	cfg := staffConfig(src)
	cfg.Fallback = []staff{{ID: 7, Name: "Seed"}}
	ctl, err := New(cfg)
	require.NoError(t, err)
	defer ctl.Close()

	state, err := ctl.Load(context.Background())

	require.Error(t, err)
	assert.Equal(t, LoadedWithFallback, state)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, []int64{7}, ids(ctl.Visible()))
	_, warning := ctl.State()
	assert.NotEmpty(t, warning)
}

func TestLoadFailureRetainsLoadedData(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "Ana"}, staff{ID: 2, Name: "Budi"})
	cfg := staffConfig(src)
	cfg.Fallback = []staff{{ID: 9, Name: "Seed"}}
	ctl := newLoaded(t, cfg)

	src.listFn = func(context.Context, int) ([]staff, error) {
		return nil, ServerError(500, "database unavailable")
	}
	state, err := ctl.Load(context.Background())

	assert.Equal(t, LoadedWithFallback, state)
	assert.Equal(t, KindServer, KindOf(err))
	assert.Equal(t, "database unavailable", Message(err))
	assert.Equal(t, []int64{1, 2}, ids(ctl.Visible()))

	src.listFn = nil
	state, err = ctl.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Loaded, state)
	_, warning := ctl.State()
	assert.Empty(t, warning)
}

func TestLoadFailureUsesStoredSnapshot(t *testing.T) {
	store := &memorySnapshots{}
	first := staffConfig(newMemorySource(staff{ID: 4, Name: "Dewi"}))
	first.FallbackStore = store
	newLoaded(t, first)

	failing := newMemorySource()
	failing.listFn = func(context.Context, int) ([]staff, error) {
		return nil, MalformedError(200, errors.New("unexpected EOF"))
	}
	second := staffConfig(failing)
	second.FallbackStore = store
	second.Fallback = []staff{{ID: 9, Name: "Seed"}}
	ctl, err := New(second)
	require.NoError(t, err)
	defer ctl.Close()

	state, err := ctl.Load(context.Background())
	assert.Equal(t, LoadedWithFallback, state)
	assert.Equal(t, MalformedMessage, Message(err))
	assert.Equal(t, []int64{4}, ids(ctl.Visible()))
}

func TestLoadFailurePrefersRetainedOverSnapshot(t *testing.T) {
	store := &memorySnapshots{}
	src := newMemorySource(staff{ID: 1, Name: "Ana"}, staff{ID: 2, Name: "Budi"})
	cfg := staffConfig(src)
	cfg.FallbackStore = store
	cfg.Fallback = []staff{{ID: 9, Name: "Seed"}}
	ctl := newLoaded(t, cfg)
	require.NoError(t, store.SaveSnapshot(context.Background(), cfg.Resource, []staff{{ID: 5, Name: "Old"}}))

	src.listFn = func(context.Context, int) ([]staff, error) {
		return nil, NetworkError(errors.New("connection reset"))
	}
	state, err := ctl.Load(context.Background())

	assert.Equal(t, LoadedWithFallback, state)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, []int64{1, 2}, ids(ctl.Visible()))
}

func TestLoadDiscardsSupersededResponse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := newMemorySource()
	src.listFn = func(ctx context.Context, call int) ([]staff, error) {
		if call == 1 {
			close(started)
			<-release
			return []staff{{ID: 1, Name: "stale"}}, nil
		}
		return []staff{{ID: 2, Name: "fresh"}}, nil
	}
	ctl, err := New(staffConfig(src))
	require.NoError(t, err)
	defer ctl.Close()

	done := make(chan LoadState, 1)
	go func() {
		state, _ := ctl.Load(context.Background())
		done <- state
	}()
	<-started

	state, err := ctl.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, Loaded, state)

	close(release)
	assert.Equal(t, Loaded, <-done)
	assert.Equal(t, []int64{2}, ids(ctl.Items()))
}

func TestLoadDeduplicatesServerRows(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "old"}, staff{ID: 2, Name: "Budi"}, staff{ID: 1, Name: "new"})
	ctl := newLoaded(t, staffConfig(src))

	items := ctl.Items()
	assertUniqueIDs(t, items)
	assert.Equal(t, []int64{1, 2}, ids(items))
	assert.Equal(t, "new", items[0].Name)
}

func TestOptimisticUpdateRollsBackOnFailure(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"}, staff{ID: 2, Name: "B"})
	inFlight := make(chan struct{})
	proceed := make(chan struct{})
	src.updateFn = func(ctx context.Context, item staff) (staff, error) {
		close(inFlight)
		<-proceed
		return staff{}, ServerError(409, "name already taken")
	}
	ctl := newLoaded(t, staffConfig(src))

	errCh := make(chan error, 1)
	go func() {
		_, err := ctl.Update(context.Background(), 2, func(s staff) (staff, error) {
			s.Name = "B2"
			return s, nil
		})
		errCh <- err
	}()

	<-inFlight
	current, _ := ctl.Get(2)
	assert.Equal(t, "B2", current.Name)
	assert.Equal(t, PhaseSubmitting, ctl.Phase(2))

	close(proceed)
	err := <-errCh

	require.Error(t, err)
	assert.Equal(t, "name already taken", Message(err))
	assert.Equal(t, []staff{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, ctl.Items())
	assert.Equal(t, PhaseIdle, ctl.Phase(2))
}

func TestConfirmedUpdateWaitsForServer(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"})
	inFlight := make(chan struct{})
	proceed := make(chan struct{})
	src.updateFn = func(ctx context.Context, item staff) (staff, error) {
		close(inFlight)
		<-proceed
		item.Rating = 5
		return item, nil
	}
	cfg := staffConfig(src)
	cfg.UpdateMode = Confirmed
	ctl := newLoaded(t, cfg)

	done := make(chan staff, 1)
	go func() {
		saved, _ := ctl.Update(context.Background(), 1, JSONPatch[staff]([]byte(`{"name":"A2"}`)))
		done <- saved
	}()
	<-inFlight
	current, _ := ctl.Get(1)
	assert.Equal(t, "A", current.Name)

	close(proceed)
	saved := <-done
	assert.Equal(t, staff{ID: 1, Name: "A2", Rating: 5}, saved)
	assert.Equal(t, []staff{saved}, ctl.Items())
}

func TestUpdateRejectsConcurrentMutation(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"})
	inFlight := make(chan struct{})
	proceed := make(chan struct{})
	src.updateFn = func(ctx context.Context, item staff) (staff, error) {
		close(inFlight)
		<-proceed
		return item, nil
	}
	ctl := newLoaded(t, staffConfig(src))

	go func() {
		_, _ = ctl.Update(context.Background(), 1, Replace(staff{ID: 1, Name: "A2"}))
	}()
	<-inFlight

	_, err := ctl.Update(context.Background(), 1, Replace(staff{ID: 1, Name: "A3"}))
	assert.Equal(t, KindBusy, KindOf(err))
	_, err = ctl.RequestRemoval(1)
	assert.Equal(t, KindBusy, KindOf(err))
	close(proceed)
}

func TestUpdateValidation(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"})
	ctl := newLoaded(t, staffConfig(src))

	_, err := ctl.Update(context.Background(), 1, JSONPatch[staff]([]byte(`{"name":""}`)))
	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindValidation, lerr.Kind)
	assert.Equal(t, "is required", lerr.Fields["name"])

	_, err = ctl.Update(context.Background(), 1, JSONPatch[staff]([]byte(`{"id":5}`)))
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "cannot be changed", lerr.Fields["id"])

	_, err = ctl.Update(context.Background(), 1, JSONPatch[staff]([]byte(`[1,2]`)))
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = ctl.Update(context.Background(), 42, Replace(staff{ID: 42, Name: "x"}))
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.Equal(t, []staff{{ID: 1, Name: "A"}}, ctl.Items())
	assert.Equal(t, PhaseIdle, ctl.Phase(1))
}

func TestOptimisticCreateReplacesProvisionalEntity(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"})
	inFlight := make(chan struct{})
	proceed := make(chan struct{})
	src.createFn = func(ctx context.Context, item staff) (staff, error) {
		close(inFlight)
		<-proceed
		item.ID = 10
		return item, nil
	}
	ctl := newLoaded(t, staffConfig(src))

	done := make(chan error, 1)
	go func() {
		_, err := ctl.Create(context.Background(), staff{Name: "New"})
		done <- err
	}()
	<-inFlight
	items := ctl.Items()
	require.Len(t, items, 2)
	assert.Less(t, items[1].ID, int64(0))
	assert.Equal(t, PhaseSubmitting, ctl.Phase(items[1].ID))
	assert.Equal(t, 1, ctl.Creating())

	close(proceed)
	require.NoError(t, <-done)
	assert.Equal(t, []staff{{ID: 1, Name: "A"}, {ID: 10, Name: "New"}}, ctl.Items())
	assert.Equal(t, 0, ctl.Creating())
}

func TestOptimisticCreateFailureRemovesProvisionalEntity(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"})
	src.createFn = func(ctx context.Context, item staff) (staff, error) {
		return staff{}, NetworkError(errors.New("timeout"))
	}
	ctl := newLoaded(t, staffConfig(src))

	_, err := ctl.Create(context.Background(), staff{Name: "New"})

	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, []staff{{ID: 1, Name: "A"}}, ctl.Items())
}

func TestCreateWithoutServerIDIsRolledBack(t *testing.T) {
	for _, mode := range []Mode{Optimistic, Confirmed} {
		src := newMemorySource(staff{ID: 1, Name: "A"})
		src.createFn = func(ctx context.Context, item staff) (staff, error) {
			return item, nil
		}
		cfg := staffConfig(src)
		cfg.CreateMode = mode
		ctl := newLoaded(t, cfg)

		_, err := ctl.Create(context.Background(), staff{Name: "Pool"})
		assert.Equal(t, KindMalformed, KindOf(err))
		_, err = ctl.Create(context.Background(), staff{Name: "Gym"})
		assert.Equal(t, KindMalformed, KindOf(err))

		assert.Equal(t, []staff{{ID: 1, Name: "A"}}, ctl.Items())
		assertUniqueIDs(t, ctl.Items())
		assert.Equal(t, 0, ctl.Creating())
	}
}

func TestCreateWhenRefreshAlreadyHoldsServerCopy(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"})
	inFlight := make(chan struct{})
	proceed := make(chan struct{})
	src.createFn = func(ctx context.Context, item staff) (staff, error) {
		close(inFlight)
		<-proceed
		item.ID = 2
		return item, nil
	}
	ctl := newLoaded(t, staffConfig(src))

	done := make(chan error, 1)
	go func() {
		_, err := ctl.Create(context.Background(), staff{Name: "B"})
		done <- err
	}()
	<-inFlight

	src.mu.Lock()
	src.items = append(src.items, staff{ID: 2, Name: "B"})
	src.mu.Unlock()
	_, err := ctl.Load(context.Background())
	require.NoError(t, err)

	close(proceed)
	require.NoError(t, <-done)
	assert.Equal(t, []int64{1, 2}, ids(ctl.Items()))
}

func TestCreateValidationFailsFast(t *testing.T) {
	src := newMemorySource()
	ctl := newLoaded(t, staffConfig(src))

	_, err := ctl.Create(context.Background(), staff{Status: "ACTIVE"})

	var lerr *Error
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, KindValidation, lerr.Kind)
	assert.Contains(t, lerr.Fields, "name")
	assert.Equal(t, 0, src.creates)
	assert.Empty(t, ctl.Items())
}

func TestConfirmedCreateInsertsServerEntity(t *testing.T) {
	src := newMemorySource(staff{ID: 3, Name: "C"})
	cfg := staffConfig(src)
	cfg.CreateMode = Confirmed
	ctl := newLoaded(t, cfg)

	created, err := ctl.Create(context.Background(), staff{Name: "D"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, []int64{3, 4}, ids(ctl.Items()))
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"}, staff{ID: 2, Name: "B"})
	deleted := 0
	src.deleteFn = func(ctx context.Context, id int64) error {
		deleted++
		return nil
	}
	ctl := newLoaded(t, staffConfig(src))

	intent, err := ctl.RequestRemoval(2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(ctl.Items()))

	err = ctl.Remove(context.Background(), 2, "not-a-token")
	assert.Equal(t, KindConfirmation, KindOf(err))
	assert.Equal(t, []int64{1, 2}, ids(ctl.Items()))

	ctl.CancelRemoval(intent.Token)
	err = ctl.Remove(context.Background(), intent.ID, intent.Token)
	assert.Equal(t, KindConfirmation, KindOf(err))
	assert.Equal(t, 0, deleted)

	intent, err = ctl.RequestRemoval(2)
	require.NoError(t, err)
	require.NoError(t, ctl.Remove(context.Background(), intent.ID, intent.Token))
	assert.Equal(t, []int64{1}, ids(ctl.Items()))
	assert.Equal(t, 1, deleted)

	err = ctl.Remove(context.Background(), intent.ID, intent.Token)
	assert.Equal(t, KindConfirmation, KindOf(err))
}

func TestRemoveRejectsTokenIssuedForAnotherEntity(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"}, staff{ID: 2, Name: "B"})
	var deleted []int64
	src.deleteFn = func(ctx context.Context, id int64) error {
		deleted = append(deleted, id)
		return nil
	}
	ctl := newLoaded(t, staffConfig(src))

	intent, err := ctl.RequestRemoval(2)
	require.NoError(t, err)

	err = ctl.Remove(context.Background(), 1, intent.Token)
	assert.Equal(t, KindConfirmation, KindOf(err))
	assert.Equal(t, []int64{1, 2}, ids(ctl.Items()))
	assert.Empty(t, deleted)

	require.NoError(t, ctl.Remove(context.Background(), 2, intent.Token))
	assert.Equal(t, []int64{1}, ids(ctl.Items()))
	assert.Equal(t, []int64{2}, deleted)
}

func TestFailedDeleteRestoresOriginalPosition(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"}, staff{ID: 2, Name: "B"}, staff{ID: 3, Name: "C"})
	src.deleteFn = func(ctx context.Context, id int64) error {
		return ServerError(500, "")
	}
	ctl := newLoaded(t, staffConfig(src))

	intent, err := ctl.RequestRemoval(2)
	require.NoError(t, err)
	err = ctl.Remove(context.Background(), intent.ID, intent.Token)

	assert.Equal(t, KindServer, KindOf(err))
	assert.Equal(t, GenericFailureMessage, Message(err))
	assert.Equal(t, []int64{1, 2, 3}, ids(ctl.Items()))
	assert.Equal(t, PhaseIdle, ctl.Phase(2))
}

func TestDeleteBlockedByDependency(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A", Status: "ACTIVE"})
	cfg := staffConfig(src)
	cfg.CanDelete = func(s staff) error {
		if s.Status == "ACTIVE" {
			return errors.New("waiter still has open orders")
		}
		return nil
	}
	ctl := newLoaded(t, cfg)

	_, err := ctl.RequestRemoval(1)

	assert.Equal(t, KindDependency, KindOf(err))
	assert.Contains(t, Message(err), "open orders")
	assert.Len(t, ctl.Items(), 1)
}

func TestMutationSequenceNeverDuplicatesIDs(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "A"}, staff{ID: 2, Name: "B"})
	fail := false
	src.createFn = func(ctx context.Context, item staff) (staff, error) {
		if fail {
			return staff{}, ServerError(500, "boom")
		}
		src.mu.Lock()
		defer src.mu.Unlock()
		src.nextID++
		item.ID = src.nextID
		return item, nil
	}
	src.updateFn = func(ctx context.Context, item staff) (staff, error) {
		if fail {
			return staff{}, NetworkError(errors.New("reset"))
		}
		return item, nil
	}
	src.deleteFn = func(ctx context.Context, id int64) error {
		if fail {
			return ServerError(503, "")
		}
		return nil
	}
	ctl := newLoaded(t, staffConfig(src))
	ctx := context.Background()

	for round := 0; round < 6; round++ {
		fail = round%2 == 1
		_, _ = ctl.Create(ctx, staff{Name: "n" + strconv.Itoa(round)})
		assertUniqueIDs(t, ctl.Items())
		_, _ = ctl.Update(ctx, 1, func(s staff) (staff, error) {
			s.Rating++
			return s, nil
		})
		assertUniqueIDs(t, ctl.Items())
		items := ctl.Items()
		last := items[len(items)-1].ID
		if last != 1 {
			if intent, err := ctl.RequestRemoval(last); err == nil {
				_ = ctl.Remove(ctx, intent.ID, intent.Token)
			}
		}
		assertUniqueIDs(t, ctl.Items())
	}
}

func TestServerSearchIsDebounced(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "Ana"})
	cfg := staffConfig(src)
	cfg.ServerSearch = true
	cfg.SearchDebounce = 20 * time.Millisecond
	ctl := newLoaded(t, cfg)

	ctl.SetSearch("a")
	ctl.SetSearch("an")
	ctl.SetSearch("ana")
	ctl.SetFacet("status", "ACTIVE")

	require.Eventually(t, func() bool {
		n, _ := src.listCalls()
		return n == 2
	}, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	n, params := src.listCalls()
	assert.Equal(t, 2, n)
	assert.Equal(t, "ana", params[1].Get("search"))
	assert.Equal(t, "ACTIVE", params[1].Get("status"))
}

func TestSubscribeReceivesSnapshotsUntilClosed(t *testing.T) {
	src := newMemorySource(staff{ID: 1, Name: "Ana"}, staff{ID: 2, Name: "Budi"})
	ctl := newLoaded(t, staffConfig(src))

	var (
		mu    sync.Mutex
		snaps []Snapshot[staff]
	)
	cancel := ctl.Subscribe(func(s Snapshot[staff]) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})
	ctl.SetSort("name", Desc)

	mu.Lock()
	require.Len(t, snaps, 1)
	assert.Equal(t, []int64{2, 1}, ids(snaps[0].Items))
	assert.Equal(t, SortSpec{Key: "name", Dir: Desc}, snaps[0].Sort)
	mu.Unlock()

	cancel()
	ctl.SetSort("name", Asc)
	mu.Lock()
	assert.Len(t, snaps, 1)
	mu.Unlock()

	ctl.Close()
	_, err := ctl.Load(context.Background())
	assert.Equal(t, KindClosed, KindOf(err))
	_, err = ctl.Create(context.Background(), staff{Name: "x"})
	assert.Equal(t, KindClosed, KindOf(err))
}

func TestNewRequiresSourceAndWithID(t *testing.T) {
	_, err := New(Config[staff]{Resource: "waiters"})
	assert.Error(t, err)

	cfg := staffConfig(newMemorySource())
	cfg.WithID = nil
	_, err = New(cfg)
	assert.Error(t, err)

	cfg.Resource = ""
	_, err = New(cfg)
	assert.Error(t, err)
}
