package categories

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innkeeper/backoffice/internal/listing"
	"github.com/innkeeper/backoffice/internal/platform/restclient"
)

func TestServerSearchReachesAPI(t *testing.T) {
	var (
		mu       sync.Mutex
		searches []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		searches = append(searches, r.URL.Query().Get("search"))
		mu.Unlock()
		all := []Category{{ID: 1, Name: "Linen"}, {ID: 2, Name: "Kitchen", AssetCount: 4}}
		if r.URL.Query().Get("search") == "kit" {
			all = all[1:]
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"categories": all})
	}))
	defer srv.Close()

	client, err := restclient.NewClient(srv.URL)
	require.NoError(t, err)
	cfg := Config(NewSource(client))
	cfg.SearchDebounce = 5 * time.Millisecond
	ctl, err := listing.New(cfg)
	require.NoError(t, err)
	defer ctl.Close()

	_, err = ctl.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ctl.Items(), 2)

	ctl.SetSearch("kit")

	require.Eventually(t, func() bool { return len(ctl.Items()) == 1 }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"", "kit"}, searches)
	mu.Unlock()
}

func TestCategoryWithAssetsCannotBeDeleted(t *testing.T) {
	err := CanDelete(Category{Name: "Kitchen", AssetCount: 4})
	assert.EqualError(t, err, `category "Kitchen" still holds 4 assets`)
	assert.NoError(t, CanDelete(Category{Name: "Linen"}))
}
