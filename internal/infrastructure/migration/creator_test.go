package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/prestashop-connector/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add bindings index", "add_bindings_index"},
		{"Add-Bindings-Index", "add_bindings_index"},
		{"ADD_BINDINGS_INDEX", "add_bindings_index"},
		{"add__bindings__index", "add_bindings_index"},
		{"Add Jobs 123", "add_jobs_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add jobs index", "Index jobs by model")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_add_jobs_index.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_add_jobs_index.down.sql"), first.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add jobs index")
	assert.Contains(t, string(up), "Index jobs by model")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	second, err := CreateMigration(dir, "drop old column", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	_, err = CreateMigration(dir, "!!!", "")
	assert.Error(t, err)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_late.up.sql":       {Data: []byte("-- test")},
		"000010_late.down.sql":     {Data: []byte("-- test")},
		"000002_add_jobs.up.sql":   {Data: []byte("-- test")},
		"000001_init.up.sql":       {Data: []byte("-- test")},
		"000001_init.down.sql":     {Data: []byte("-- test")},
		"README.md":                {Data: []byte("docs")},
		"subdir.up.sql/file.txt":   {Data: []byte("nested")},
		"000002_add_jobs.down.sql": {Data: []byte("-- test")},
	}

	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_init", "000002_add_jobs", "000010_late"}, list)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	list, err := ListMigrations(os.DirFS("/nonexistent/path/to/migrations"))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrations(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "000001_connector_schema", list[0])
	assert.Equal(t, "000003_binding_internal_index", list[len(list)-1])

	for _, name := range list {
		_, err := migrations.FS.ReadFile(name + ".down.sql")
		assert.NoError(t, err, "missing rollback for %s", name)
	}
}
