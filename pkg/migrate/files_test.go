package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateSlugsName(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := Create(dir, "Add Offer Index!", now)
	require.NoError(t, err)
	require.Equal(t, "20260304050607_add_offer_index.sql", filepath.Base(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(body), "-- +goose Up")
	require.NoError(t, Validate(os.DirFS(dir)))
}

func TestCreateRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	_, err := Create(dir, "carts", now)
	require.NoError(t, err)
	_, err = Create(dir, "carts", now)
	require.Error(t, err)
}

func TestCreateRejectsEmptySlug(t *testing.T) {
	_, err := Create(t.TempDir(), "!!!", time.Now())
	require.Error(t, err)
}

func TestValidateRejectsBadFiles(t *testing.T) {
	const ok = "-- +goose Up\n-- +goose Down\n"
	cases := map[string]fstest.MapFS{
		"bad name": {
			"add_carts.sql": {Data: []byte(ok)},
		},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte(ok)},
			"20260101000000_b.sql": {Data: []byte(ok)},
		},
		"missing down": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n")},
		},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			require.Error(t, Validate(fsys))
		})
	}
}

func TestValidateIgnoresOtherFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"README.md":            {Data: []byte("notes")},
		"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	require.NoError(t, Validate(fsys))
}
