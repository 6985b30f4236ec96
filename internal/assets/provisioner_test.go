package assets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requestLog struct {
	mu    sync.Mutex
	names []string
}

func (l *requestLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *requestLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

// newAssetServer serves /<name> with body "data:<name>"; names starting
// with "missing" return 404 and names starting with "broken" return 500.
func newAssetServer(t *testing.T) (*httptest.Server, *requestLog) {
	t.Helper()
	requests := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		requests.add(name)
		switch {
		case strings.HasPrefix(name, "missing"):
			http.NotFound(w, r)
		case strings.HasPrefix(name, "broken"):
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			w.Write([]byte("data:" + name))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, requests
}

func newTestProvisioner(t *testing.T) *Provisioner {
	t.Helper()
	return NewProvisioner(filepath.Join(t.TempDir(), "assets"), 0, zerolog.Nop())
}

func TestProvision_FetchesInOrder(t *testing.T) {
	srv, requests := newAssetServer(t)
	p := newTestProvisioner(t)

	var fetched []string
	p.OnFetched = func(spec Spec, dest string, n int64) {
		fetched = append(fetched, spec.DestinationPath)
	}

	specs := []Spec{
		{SourceURL: srv.URL + "/geoip.metadb", DestinationPath: "geoip.metadb"},
		{SourceURL: srv.URL + "/geosite.dat", DestinationPath: "geosite.dat"},
		{SourceURL: srv.URL + "/GeoLite2-ASN.mmdb", DestinationPath: "nested/ASN.mmdb"},
	}

	report, err := p.Provision(context.Background(), specs)
	require.NoError(t, err)
	assert.Empty(t, report.Failed)
	assert.Len(t, report.Fetched, 3)
	assert.Equal(t, []string{"geoip.metadb", "geosite.dat", "GeoLite2-ASN.mmdb"}, requests.get())
	assert.Equal(t, []string{"geoip.metadb", "geosite.dat", "nested/ASN.mmdb"}, fetched)

	data, err := os.ReadFile(filepath.Join(p.Dir, "nested", "ASN.mmdb"))
	require.NoError(t, err)
	assert.Equal(t, "data:GeoLite2-ASN.mmdb", string(data))
}

func TestProvision_OverwritesExistingFile(t *testing.T) {
	srv, _ := newAssetServer(t)
	p := newTestProvisioner(t)

	dest := filepath.Join(p.Dir, "geosite.dat")
	require.NoError(t, os.MkdirAll(p.Dir, 0755))
	require.NoError(t, os.WriteFile(dest, []byte("stale content that is longer"), 0644))

	_, err := p.Provision(context.Background(), []Spec{
		{SourceURL: srv.URL + "/geosite.dat", DestinationPath: "geosite.dat"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "data:geosite.dat", string(data))
}

func TestProvision_AbortsOnFirstFailure(t *testing.T) {
	srv, requests := newAssetServer(t)
	p := newTestProvisioner(t)

	specs := []Spec{
		{SourceURL: srv.URL + "/one", DestinationPath: "one"},
		{SourceURL: srv.URL + "/missing", DestinationPath: "missing"},
		{SourceURL: srv.URL + "/three", DestinationPath: "three"},
	}

	report, err := p.Provision(context.Background(), specs)
	require.Error(t, err)
	assert.True(t, IsAssetFetch(err))
	assert.Contains(t, err.Error(), srv.URL+"/missing")
	assert.Contains(t, err.Error(), "404")

	assert.Equal(t, []string{"one", "missing"}, requests.get(), "third spec must not be attempted")
	assert.Len(t, report.Fetched, 1)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, srv.URL+"/missing", report.Failed[0].URL)

	_, statErr := os.Stat(filepath.Join(p.Dir, "missing"))
	assert.True(t, os.IsNotExist(statErr), "failed fetch must not leave a file")
}

func TestProvision_ContinueOnError(t *testing.T) {
	srv, requests := newAssetServer(t)
	p := newTestProvisioner(t)
	p.ContinueOnError = true

	specs := []Spec{
		{SourceURL: srv.URL + "/missing-a", DestinationPath: "a"},
		{SourceURL: srv.URL + "/two", DestinationPath: "two"},
		{SourceURL: srv.URL + "/broken-c", DestinationPath: "c"},
	}

	report, err := p.Provision(context.Background(), specs)
	require.Error(t, err)
	assert.True(t, IsAssetFetch(err))
	assert.Contains(t, err.Error(), "missing-a")
	assert.Contains(t, err.Error(), "broken-c")

	assert.Equal(t, []string{"missing-a", "two", "broken-c"}, requests.get())
	assert.Len(t, report.Fetched, 1)
	assert.Len(t, report.Failed, 2)
}

func TestProvision_TransportError(t *testing.T) {
	srv, _ := newAssetServer(t)
	url := srv.URL + "/gone"
	srv.Close()

	p := newTestProvisioner(t)
	_, err := p.Provision(context.Background(), []Spec{{SourceURL: url, DestinationPath: "gone"}})
	require.Error(t, err)
	assert.True(t, IsAssetFetch(err))
}

func TestProvision_CancelledContext(t *testing.T) {
	srv, requests := newAssetServer(t)
	p := newTestProvisioner(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Provision(ctx, []Spec{{SourceURL: srv.URL + "/one", DestinationPath: "one"}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, requests.get())
}

func TestClean(t *testing.T) {
	p := newTestProvisioner(t)

	t.Run("missing directory", func(t *testing.T) {
		assert.NoError(t, p.Clean())
	})

	t.Run("removes downloaded files", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(p.Dir, "nested"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(p.Dir, "nested", "x"), []byte("x"), 0644))

		require.NoError(t, p.Clean())
		_, err := os.Stat(p.Dir)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestDefaultSpecs(t *testing.T) {
	specs := DefaultSpecs()
	require.Len(t, specs, 3)
	assert.Equal(t, "ASN.mmdb", specs[2].DestinationPath)
	for _, s := range specs {
		assert.True(t, strings.HasPrefix(s.SourceURL, "https://"), s.SourceURL)
	}
}
