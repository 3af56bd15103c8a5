package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	manager, err := NewManager(ctx, ":memory:")

	require.NoError(t, err)
	require.NotNil(t, manager)
	require.NotNil(t, manager.DB())

	// Cleanup
	err = manager.Close()
	assert.NoError(t, err)
}

func TestWALModeEnabled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Use file database since :memory: doesn't support WAL
	tempFile := t.TempDir() + "/test.db"
	manager, err := NewManager(ctx, tempFile)
	require.NoError(t, err)
	require.NotNil(t, manager)
	defer func() { _ = manager.Close() }()

	// Verify WAL mode is enabled
	var journalMode string
	err = manager.DB().QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	assert.Equal(t, "wal", journalMode)
}

func TestMigrationsExecuted(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	manager, err := NewManager(ctx, ":memory:")
	require.NoError(t, err)
	require.NotNil(t, manager)
	defer func() { _ = manager.Close() }()

	db := manager.DB()

	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='disabled_presets'")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	assert.True(t, rows.Next(), "disabled_presets table should exist")
	require.NoError(t, rows.Err())
}

func TestMigrationVersion(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	manager, err := NewManager(ctx, ":memory:")
	require.NoError(t, err)
	require.NotNil(t, manager)
	defer func() { _ = manager.Close() }()

	db := manager.DB()

	// Check user_version was set to 1
	var version int
	err = db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestDisabledPresetsPrimaryKey(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	manager, err := NewManager(ctx, t.TempDir()+"/state.db")
	require.NoError(t, err)
	defer func() { _ = manager.Close() }()

	insert := "INSERT INTO disabled_presets (bundle_hash, bundle_path, name) VALUES (?, ?, ?)"
	_, err = manager.DB().ExecContext(ctx, insert, "abc", "/packs/a.zip", "Glow.setting")
	require.NoError(t, err)
	_, err = manager.DB().ExecContext(ctx, insert, "abc", "/packs/a.zip", "Glow.setting")
	require.Error(t, err)
	_, err = manager.DB().ExecContext(ctx, insert, "def", "/packs/b.zip", "Glow.setting")
	require.NoError(t, err)
}

func TestReopenKeepsVersion(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	path := t.TempDir() + "/state.db"
	first, err := NewManager(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewManager(ctx, path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	var version int
	require.NoError(t, second.DB().QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, expectedVersion, version)
}
