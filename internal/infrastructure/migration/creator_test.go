package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add holds table", "add_holds_table"},
		{"Add-Holds-Table", "add_holds_table"},
		{"ADD_HOLDS_TABLE", "add_holds_table"},
		{"add__holds__table", "add_holds_table"},
		{"Zone Plantings 2", "zone_plantings_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration_NumbersAfterLatest(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000001_create_zones.up.sql", "000001_create_zones.down.sql",
		"000003_create_holds.up.sql", "000003_create_holds.down.sql",
	)

	mf, err := CreateMigration(dir, "Add hold notes", "notes column on holds")
	require.NoError(t, err)

	assert.Equal(t, uint(4), mf.Version)
	assert.Equal(t, filepath.Join(dir, "000004_add_hold_notes.up.sql"), mf.UpPath)
	assert.Equal(t, filepath.Join(dir, "000004_add_hold_notes.down.sql"), mf.DownPath)

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Add hold notes")
	assert.Contains(t, string(up), "notes column on holds")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback for Add hold notes")
}

func TestCreateMigration_EmptyDirectoryStartsAtOne(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, uint(1), mf.Version)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsUnusableName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000002_create_units.up.sql", "000002_create_units.down.sql",
		"000001_create_zones.up.sql", "000001_create_zones.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_zones", "000002_create_units"}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestShippedMigrationsArePaired(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	ups, err := ListMigrations(dir)
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for i, name := range ups {
		assert.True(t, strings.HasPrefix(name, fmt.Sprintf("%06d_", i+1)), "versions must be contiguous: %s", name)
		_, err := os.Stat(filepath.Join(dir, name+downSuffix))
		assert.NoError(t, err, "missing down file for %s", name)
	}
}
