package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amigazen/insight/internal/config"
)

func TestInit_Layout(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", config.DirName)

	db, err := Init(baseDir)
	require.NoError(t, err)
	defer db.Close()

	for _, p := range []string{baseDir, filepath.Join(baseDir, "exports")} {
		info, err := os.Stat(p)
		require.NoError(t, err, "missing %s", p)
		require.True(t, info.IsDir(), "%s is not a directory", p)
	}
	_, err = os.Stat(filepath.Join(baseDir, FileName))
	require.NoError(t, err, "database file not created")
}

func TestInit_WALAndSchema(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)

	objects := []struct{ kind, name string }{
		{"table", "lookups"},
		{"index", "idx_lookups_created"},
		{"index", "idx_lookups_code_created"},
	}
	for _, o := range objects {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type=? AND name=?", o.kind, o.name).Scan(&name)
		require.NoError(t, err, "%s %s not found", o.kind, o.name)
	}
}

func TestMigrations_MatchSchemaVersion(t *testing.T) {
	require.Len(t, migrations, CurrentSchemaVersion)
}

func TestInit_ReopenKeepsVersion(t *testing.T) {
	tmpDir := t.TempDir()

	first, err := Init(tmpDir)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Init(tmpDir)
	require.NoError(t, err)
	defer second.Close()

	version, err := GetUserVersion(second)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)
}

func TestInit_RejectsNewerSchema(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	require.NoError(t, err)
	require.NoError(t, SetUserVersion(db, CurrentSchemaVersion+1))
	require.NoError(t, db.Close())

	_, err = Init(tmpDir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "newer than supported")
}

func TestUserVersion_RoundTrip(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, SetUserVersion(db, 42))
	version, err := GetUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, 42, version)
}

func TestConfigurePool(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{})
	require.Equal(t, 0, db.Stats().MaxOpenConnections, "zero values leave the default")

	ConfigurePool(db, &config.Config{DBMaxOpenConns: 1, DBMaxIdleConns: 1})
	require.Equal(t, 1, db.Stats().MaxOpenConnections)
}
