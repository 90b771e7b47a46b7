package localstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mesh-intelligence/bringtolife/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTemp(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), FileName), opts...)
	require.NoError(t, err)
	return s
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s := openTemp(t)
	v, err := s.Get("anything")
	require.NoError(t, err)
	assert.Empty(t, v)
	assert.Empty(t, s.Keys())

	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "no file until first write")
}

func TestSetGetRemovePersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Set("a", "3"))
	require.NoError(t, s.Remove("b"))
	require.NoError(t, s.Remove("never-set"))

	reopened, err := Open(path)
	require.NoError(t, err)
	v, err := reopened.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
	assert.Equal(t, []string{"a"}, reopened.Keys())
}

func TestSetQuotaExceeded(t *testing.T) {
	s := openTemp(t, WithQuota(16))

	require.NoError(t, s.Set("k", "small"))
	err := s.Set("big", "0123456789abcdef")
	require.ErrorIs(t, err, types.ErrStorageQuotaExceeded)

	v, err := s.Get("big")
	require.NoError(t, err)
	assert.Empty(t, v, "rejected write must not be visible")
	assert.Equal(t, int64(len("k")+len("small")), s.Usage())
}

func TestSetNoQuota(t *testing.T) {
	s := openTemp(t, WithQuota(0))
	big := make([]byte, DefaultQuotaBytes+1)
	for i := range big {
		big[i] = 'x'
	}
	require.NoError(t, s.Set("big", string(big)))
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestLegacyHistoryRoundTrip(t *testing.T) {
	s := openTemp(t)

	records, err := s.ReadLegacy()
	require.NoError(t, err)
	assert.Nil(t, records)

	staged := []json.RawMessage{
		json.RawMessage(`{"id":"1","name":"a","html":"<p>1</p>","timestamp":"2025-01-01T00:00:00.000Z"}`),
		json.RawMessage(`"not an object"`),
	}
	require.NoError(t, s.WriteLegacy(staged))

	records, err = s.ReadLegacy()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.JSONEq(t, string(staged[0]), string(records[0]))

	require.NoError(t, s.ClearLegacy())
	records, err = s.ReadLegacy()
	require.NoError(t, err)
	assert.Nil(t, records)
}

func TestReadLegacyNotAnArray(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Set(HistoryKey, `{"oops":true}`))
	_, err := s.ReadLegacy()
	assert.Error(t, err)
}
