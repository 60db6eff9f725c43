package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_InitThenAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Init(4))
	require.ErrorIs(t, s.Init(4), ErrAlreadyInitialized)

	id, err := s.Add([]float32{1, 2, 3, 4}, json.RawMessage(`{"tag":"a"}`))
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)

	rec, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3, 4}, rec.Vec)
	require.JSONEq(t, `{"tag":"a"}`, string(rec.Metadata))
}

func TestStore_AddBeforeInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Add([]float32{1, 2}, nil)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestStore_DimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(3))

	_, err = s.Add([]float32{1, 2}, nil)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestStore_UpdateDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(2))

	id, err := s.Add([]float32{1, 1}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Update(id, []float32{2, 2}, json.RawMessage(`{"v":2}`)))
	rec, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, []float32{2, 2}, rec.Vec)

	require.NoError(t, s.Delete(id))
	_, err = s.Get(id)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, s.Update(id, []float32{1, 1}, nil), ErrNotFound)
	require.ErrorIs(t, s.Delete(id), ErrNotFound)
}

func TestStore_SearchRequiresRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(2))

	_, err = s.Add([]float32{1, 1}, nil)
	require.NoError(t, err)

	_, err = s.Search([]float32{1, 1}, 1, 10)
	require.ErrorIs(t, err, ErrIndexStale)

	require.NoError(t, s.Rebuild())
	results, err := s.Search([]float32{1, 1}, 1, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// A mutation after Rebuild marks the index stale again.
	_, err = s.Add([]float32{9, 9}, nil)
	require.NoError(t, err)
	_, err = s.Search([]float32{1, 1}, 1, 10)
	require.ErrorIs(t, err, ErrIndexStale)
}

func TestStore_RebuildTranslatesLabelsBackToExternalIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(2))

	_, err = s.Add([]float32{0, 0}, json.RawMessage(`"first"`))
	require.NoError(t, err)
	secondID, err := s.Add([]float32{1, 1}, json.RawMessage(`"second"`))
	require.NoError(t, err)

	require.NoError(t, s.Delete(0))
	require.NoError(t, s.Rebuild())

	results, err := s.Search([]float32{1, 1}, 1, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, secondID, results[0].ID)
	require.JSONEq(t, `"second"`, string(results[0].Metadata))
}

func TestStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(3))

	id, err := s.Add([]float32{1, 2, 3}, json.RawMessage(`{"k":"v"}`))
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 3, reopened.Dim())
	require.Equal(t, 1, reopened.Len())

	rec, err := reopened.Get(id)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, rec.Vec)
}

func TestStore_IDsSorted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(1))

	for i := 0; i < 5; i++ {
		_, err := s.Add([]float32{float32(i)}, nil)
		require.NoError(t, err)
	}

	require.Equal(t, []uint64{0, 1, 2, 3, 4}, s.IDs())
}

func TestStore_AnalyzerNilBeforeRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(1))

	require.Nil(t, s.Analyzer())
	_, err = s.Add([]float32{1}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Rebuild())
	require.NotNil(t, s.Analyzer())
}

func TestStore_SeedPersistsAndPinsRebuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Init(4, WithSeed(42)))

	for i := 0; i < 20; i++ {
		vec := []float32{float32(i), float32(i * 2), float32(i % 3), 1}
		_, err := s.Add(vec, nil)
		require.NoError(t, err)
	}
	require.NoError(t, s.Rebuild())

	query := []float32{3, 6, 0, 1}
	want, err := s.Search(query, 5, 20)
	require.NoError(t, err)

	// Reopening the store recovers the persisted seed, so rebuilding from
	// scratch reproduces the same graph and the same search results (P6).
	reopened, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Rebuild())

	got, err := reopened.Search(query, 5, 20)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
