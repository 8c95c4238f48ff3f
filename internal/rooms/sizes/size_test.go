package sizes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innkeeper/backoffice/internal/testing/listingtest"
)

func TestDefaultSortIsByArea(t *testing.T) {
	src := listingtest.NewSource(withID, Size{ID: 1, Name: "Large", Area: 42}, Size{ID: 2, Name: "Small", Area: 18})
	ctl := listingtest.Controller(t, Config(src))

	visible := ctl.Visible()
	require.Len(t, visible, 2)
	assert.Equal(t, "Small", visible[0].Name)
}

func TestOptimisticCreateGetsServerID(t *testing.T) {
	src := listingtest.NewSource(withID, Size{ID: 7, Name: "Small", Area: 18})
	ctl := listingtest.Controller(t, Config(src))

	created, err := ctl.Create(context.Background(), Size{Name: "Medium", Area: 26.5})

	require.NoError(t, err)
	assert.Equal(t, int64(8), created.ID)
	for _, s := range ctl.Items() {
		assert.Positive(t, s.ID)
	}
}
