package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/dynpkg/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name      string
		force     bool
		setupFunc func(string)
		wantErr   bool
	}{
		{
			name:      "fresh initialization",
			setupFunc: func(dir string) {},
		},
		{
			name:  "force replaces existing config",
			force: true,
			setupFunc: func(dir string) {
				os.WriteFile(filepath.Join(dir, config.DefaultFileName), []byte("old content"), 0644)
			},
		},
		{
			name: "existing config without force",
			setupFunc: func(dir string) {
				os.WriteFile(filepath.Join(dir, config.DefaultFileName), []byte("old content"), 0644)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setupFunc(dir)

			err := Initialize(dir, tt.force)
			if tt.wantErr {
				require.Error(t, err)
				data, _ := os.ReadFile(filepath.Join(dir, config.DefaultFileName))
				assert.Equal(t, "old content", string(data), "existing config must be preserved")
				return
			}
			require.NoError(t, err)

			cfg, err := config.Load(filepath.Join(dir, config.DefaultFileName))
			require.NoError(t, err)
			assert.Equal(t, config.Default(), cfg, "template must match built-in defaults")
		})
	}
}

func TestCheckExisting(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, CheckExisting(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultFileName), []byte("version: '1.0'"), 0644))
	err := CheckExisting(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.DefaultFileName)
	assert.Contains(t, err.Error(), "--force")
}

func TestGetTemplateFiles(t *testing.T) {
	files, err := getTemplateFiles("/ws")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join("/ws", config.DefaultFileName), files[0].Path)
	assert.NotEmpty(t, files[0].Content)
}

func TestInitialize_ForceReplacesInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("old content"), 0600))

	require.NoError(t, Initialize(dir, true))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestInitialize_ForceFailureKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	// a non-empty directory in the way makes the final rename fail
	blocker := filepath.Join(dir, config.DefaultFileName)
	require.NoError(t, os.MkdirAll(blocker, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(blocker, "keep"), []byte("kept"), 0644))

	err := Initialize(dir, true)
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(blocker, "keep"))
	require.NoError(t, err)
	assert.Equal(t, "kept", string(data))
}
