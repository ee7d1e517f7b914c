package dbtypes

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestUUIDArrayValueAndScan(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	ids := UUIDArray{first, second}

	raw, err := ids.Value()
	require.NoError(t, err)
	require.Equal(t, "{"+first.String()+","+second.String()+"}", raw)

	var scanned UUIDArray
	require.NoError(t, scanned.Scan([]byte(raw.(string))))
	require.Equal(t, ids, scanned)
	require.True(t, scanned.Contains(second))
	require.False(t, scanned.Contains(uuid.New()))
}

func TestUUIDArrayScanEmptyForms(t *testing.T) {
	for _, src := range []any{nil, "", "{}", " { } "} {
		var a UUIDArray
		require.NoError(t, a.Scan(src))
		require.Empty(t, a)
		require.NotNil(t, a)
	}
}

func TestUUIDArrayScanQuotedElements(t *testing.T) {
	id := uuid.New()
	var a UUIDArray
	require.NoError(t, a.Scan(`{"`+id.String()+`"}`))
	require.Equal(t, UUIDArray{id}, a)
}

func TestUUIDArrayScanRejectsGarbage(t *testing.T) {
	var a UUIDArray
	require.Error(t, a.Scan("{not-a-uuid}"))
	require.Error(t, a.Scan(42))
}
