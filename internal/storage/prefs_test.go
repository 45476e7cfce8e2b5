package storage

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/berrythewa/gpsio-bridge/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := Open(Config{Path: filepath.Join(t.TempDir(), "gpsio.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestBoltStore(t *testing.T) {
	store := openTestStore(t)

	t.Run("LoadDefaults", func(t *testing.T) {
		prefs, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, types.Preferences{
			Method:        "time",
			TimeSel:       "72",
			RecentSel:     "3",
			Size:          true,
			SizeSel:       "100kB",
			RemoveNumbers: true,
		}, prefs)
	})

	t.Run("PartialSave", func(t *testing.T) {
		err := store.Save(types.PreferencesPatch{
			Method:    strPtr("recent"),
			RecentSel: strPtr("5"),
			Size:      boolPtr(false),
		})
		require.NoError(t, err)

		prefs, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "recent", prefs.Method)
		assert.Equal(t, "5", prefs.RecentSel)
		assert.False(t, prefs.Size)
		// untouched keys keep their defaults
		assert.Equal(t, "72", prefs.TimeSel)
		assert.Equal(t, "100kB", prefs.SizeSel)
		assert.True(t, prefs.RemoveNumbers)
	})

	t.Run("NoValidation", func(t *testing.T) {
		require.NoError(t, store.Save(types.PreferencesPatch{TimeSel: strPtr("-1"), SizeSel: strPtr("lots")}))
		prefs, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "-1", prefs.TimeSel)
		assert.Equal(t, "lots", prefs.SizeSel)
	})

	t.Run("Reset", func(t *testing.T) {
		prefs, err := store.Reset()
		require.NoError(t, err)
		assert.Equal(t, types.DefaultPreferences(), prefs)

		loaded, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, types.DefaultPreferences(), loaded)
	})

	t.Run("CorruptValueFallsBackToDefault", func(t *testing.T) {
		require.NoError(t, store.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket([]byte(preferencesBucket)).Put([]byte(types.KeySize), []byte("not-json"))
		}))
		prefs, err := store.Load()
		require.NoError(t, err)
		assert.True(t, prefs.Size)
	})
}

func TestSessionFlag(t *testing.T) {
	store := openTestStore(t)

	shown, err := store.UpdatePopupShown()
	require.NoError(t, err)
	assert.False(t, shown)

	require.NoError(t, store.SetUpdatePopupShown(true))
	shown, err = store.UpdatePopupShown()
	require.NoError(t, err)
	assert.True(t, shown)

	require.NoError(t, store.ResetSession())
	shown, err = store.UpdatePopupShown()
	require.NoError(t, err)
	assert.False(t, shown)
}

func TestSessionResetKeepsPreferences(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Save(types.PreferencesPatch{Method: strPtr("recent")}))
	require.NoError(t, store.ResetSession())

	prefs, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "recent", prefs.Method)
}

func TestConcurrentSavesLastWriteWins(t *testing.T) {
	store := openTestStore(t)

	var wg sync.WaitGroup
	for _, v := range []string{"12", "24", "48"} {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			assert.NoError(t, store.Save(types.PreferencesPatch{TimeSel: strPtr(v)}))
		}(v)
	}
	wg.Wait()

	prefs, err := store.Load()
	require.NoError(t, err)
	assert.Contains(t, []string{"12", "24", "48"}, prefs.TimeSel)
}

func TestClosedStore(t *testing.T) {
	store, err := Open(Config{Path: filepath.Join(t.TempDir(), "gpsio.db")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Save(types.DefaultPreferences().Patch()), ErrClosed)
	assert.NoError(t, store.Close())
}
