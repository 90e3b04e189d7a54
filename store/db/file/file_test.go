package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/tripsense/store"
)

func TestFileDriverRoundTrip(t *testing.T) {
	driver, err := NewDB(t.TempDir())
	require.NoError(t, err)
	defer func() { _ = driver.Close() }()

	ctx := context.Background()

	t.Run("missing document returns ErrNotFound", func(t *testing.T) {
		_, err := driver.LoadDocument(ctx, store.DocUserHistory)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("save then load", func(t *testing.T) {
		payload := []byte(`{"users":{}}`)
		require.NoError(t, driver.SaveDocument(ctx, store.DocUserHistory, payload))

		got, err := driver.LoadDocument(ctx, store.DocUserHistory)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("save replaces previous content", func(t *testing.T) {
		require.NoError(t, driver.SaveDocument(ctx, store.DocExampleCache, []byte("v1")))
		require.NoError(t, driver.SaveDocument(ctx, store.DocExampleCache, []byte("v2")))

		got, err := driver.LoadDocument(ctx, store.DocExampleCache)
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})
}

func TestFileDriverRequiresDir(t *testing.T) {
	_, err := NewDB("")
	assert.Error(t, err)
}
