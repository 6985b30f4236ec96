// Package testutil builds throwaway workspaces for pipeline and CLI tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dyluth/dynpkg/internal/config"
	"github.com/stretchr/testify/require"
)

// PristineManifest contains the default base token twice.
const PristineManifest = `<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android">
    <permission android:name="com.github.metacubex.clash.meta.permission.RECEIVE_BROADCASTS" />
    <provider android:authorities="com.github.metacubex.clash.meta.files" />
</manifest>
`

// AssetServer serves /<name> with body "data:<name>". Names starting with
// "missing" return 404 and names starting with "broken" return 500.
type AssetServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
}

// NewAssetServer starts an AssetServer that is closed when t finishes.
func NewAssetServer(t *testing.T) *AssetServer {
	t.Helper()
	s := &AssetServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *AssetServer) serve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	s.requests = append(s.requests, name)
	s.mu.Unlock()

	switch {
	case strings.HasPrefix(name, "missing"):
		http.NotFound(w, r)
	case strings.HasPrefix(name, "broken"):
		http.Error(w, "boom", http.StatusInternalServerError)
	default:
		w.Write([]byte("data:" + name))
	}
}

// Requests returns the asset names requested so far, in order.
func (s *AssetServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Files returns asset entries for names, served by s.
func (s *AssetServer) Files(names ...string) []config.AssetFile {
	files := make([]config.AssetFile, 0, len(names))
	for _, name := range names {
		files = append(files, config.AssetFile{URL: s.URL + "/" + name, Dest: name})
	}
	return files
}

// Workspace is a temp directory holding a pristine manifest at the default
// location, with its own asset server.
type Workspace struct {
	T      *testing.T
	Root   string
	Assets *AssetServer
}

// SetupWorkspace creates an isolated workspace.
func SetupWorkspace(t *testing.T) *Workspace {
	t.Helper()
	w := &Workspace{T: t, Root: t.TempDir(), Assets: NewAssetServer(t)}
	w.WriteFile(config.DefaultManifest, PristineManifest)
	return w
}

// Path returns rel resolved against the workspace root.
func (w *Workspace) Path(rel string) string {
	return filepath.Join(w.Root, rel)
}

// ManifestPath returns the default manifest location.
func (w *Workspace) ManifestPath() string {
	return w.Path(config.DefaultManifest)
}

// Read returns the content of rel.
func (w *Workspace) Read(rel string) string {
	w.T.Helper()
	data, err := os.ReadFile(w.Path(rel))
	require.NoError(w.T, err)
	return string(data)
}

// Exists reports whether rel exists.
func (w *Workspace) Exists(rel string) bool {
	_, err := os.Stat(w.Path(rel))
	return err == nil
}

// WriteFile writes content to rel, creating parent directories.
func (w *Workspace) WriteFile(rel, content string) {
	w.T.Helper()
	path := w.Path(rel)
	require.NoError(w.T, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(w.T, os.WriteFile(path, []byte(content), 0644))
}

// Remove deletes rel.
func (w *Workspace) Remove(rel string) {
	w.T.Helper()
	require.NoError(w.T, os.Remove(w.Path(rel)))
}

// Config returns the default configuration with its asset list pointed
// at the workspace's asset server.
func (w *Workspace) Config(assetNames ...string) *config.Config {
	cfg := config.Default()
	cfg.Assets.Files = w.Assets.Files(assetNames...)
	return cfg
}

// WriteConfig writes a dynpkg.yml listing assetNames.
func (w *Workspace) WriteConfig(assetNames ...string) {
	w.T.Helper()
	var b strings.Builder
	b.WriteString("version: \"1.0\"\nassets:\n  files:")
	if len(assetNames) == 0 {
		b.WriteString(" []")
	}
	b.WriteString("\n")
	for _, f := range w.Assets.Files(assetNames...) {
		fmt.Fprintf(&b, "    - url: %s\n      dest: %s\n", f.URL, f.Dest)
	}
	w.WriteFile(config.DefaultFileName, b.String())
}

// InitGit turns the workspace into a Git repository with everything
// committed. The test is skipped when git is not installed.
func (w *Workspace) InitGit() {
	w.T.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		w.T.Skip("git not installed")
	}
	w.git("init", "-q")
	w.git("add", "-A")
	w.git("commit", "-q", "-m", "Initial commit")
}

func (w *Workspace) git(args ...string) {
	w.T.Helper()
	base := []string{"-C", w.Root, "-c", "user.email=test@dynpkg.local", "-c", "user.name=dynpkg test"}
	out, err := exec.Command("git", append(base, args...)...).CombinedOutput()
	require.NoError(w.T, err, string(out))
}
