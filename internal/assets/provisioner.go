// Package assets downloads the fixed set of data files a build needs into
// the build tree before packaging.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio"
	"github.com/rs/zerolog"
)

const releaseBase = "https://github.com/MetaCubeX/meta-rules-dat/releases/download/latest/"

// Spec maps a source URL to a destination path relative to the assets directory.
type Spec struct {
	SourceURL       string
	DestinationPath string
}

// DefaultSpecs returns the geo databases bundled with the application.
func DefaultSpecs() []Spec {
	return []Spec{
		{SourceURL: releaseBase + "geoip.metadb", DestinationPath: "geoip.metadb"},
		{SourceURL: releaseBase + "geosite.dat", DestinationPath: "geosite.dat"},
		{SourceURL: releaseBase + "GeoLite2-ASN.mmdb", DestinationPath: "ASN.mmdb"},
	}
}

// Report lists what a provisioning run did.
type Report struct {
	Fetched []string
	Failed  []*AssetFetchError
}

// Provisioner downloads specs one at a time, in order.
type Provisioner struct {
	Dir    string
	Client *http.Client
	Log    zerolog.Logger

	// ContinueOnError keeps going after a failed fetch and reports every
	// failure at the end. The default aborts on the first failure.
	ContinueOnError bool

	// OnFetched, when set, is called after each successful download.
	OnFetched func(spec Spec, dest string, n int64)
}

// NewProvisioner returns a provisioner writing under dir.
// A zero timeout means no client-side timeout.
func NewProvisioner(dir string, timeout time.Duration, log zerolog.Logger) *Provisioner {
	return &Provisioner{
		Dir:    dir,
		Client: &http.Client{Timeout: timeout},
		Log:    log,
	}
}

// Provision fetches every spec into the assets directory, overwriting
// existing files. Nothing is retried.
func (p *Provisioner) Provision(ctx context.Context, specs []Spec) (Report, error) {
	var report Report
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dest := filepath.Join(p.Dir, spec.DestinationPath)
		n, err := p.fetch(ctx, spec.SourceURL, dest)
		if err != nil {
			fetchErr := &AssetFetchError{URL: spec.SourceURL, Cause: err}
			report.Failed = append(report.Failed, fetchErr)
			p.Log.Debug().Err(err).Str("url", spec.SourceURL).Msg("fetch failed")
			if !p.ContinueOnError {
				return report, fetchErr
			}
			continue
		}

		report.Fetched = append(report.Fetched, dest)
		p.Log.Debug().Str("url", spec.SourceURL).Str("dest", dest).Int64("bytes", n).Msg("asset fetched")
		if p.OnFetched != nil {
			p.OnFetched(spec, dest, n)
		}
	}

	if len(report.Failed) > 0 {
		errs := make([]error, 0, len(report.Failed))
		for _, f := range report.Failed {
			errs = append(errs, f)
		}
		return report, errors.Join(errs...)
	}
	return report, nil
}

// Clean removes the assets directory and everything under it.
func (p *Provisioner) Clean() error {
	if err := os.RemoveAll(p.Dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", p.Dir, err)
	}
	return nil
}

func (p *Provisioner) fetch(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &statusError{Status: resp.Status, Code: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}

	f, err := renameio.TempFile("", dest)
	if err != nil {
		return 0, err
	}
	defer f.Cleanup()

	n, err := io.Copy(f, resp.Body)
	if err != nil {
		return n, err
	}
	if err := f.Chmod(0644); err != nil {
		return n, err
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return n, err
	}
	return n, nil
}
