// Package pipeline sequences identity provisioning, manifest patching and
// asset fetching for one build workspace.
//
// Prepare runs backup, identity, patch and assets in that order; Build
// adds the external packaging command; Clean removes downloaded assets
// and restores the pristine manifest. All paths come from the Config the
// pipeline is constructed with.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dyluth/dynpkg/internal/assets"
	"github.com/dyluth/dynpkg/internal/config"
	"github.com/dyluth/dynpkg/internal/git"
	"github.com/dyluth/dynpkg/internal/identity"
	"github.com/dyluth/dynpkg/internal/manifest"
	"github.com/dyluth/dynpkg/internal/runner"
	"github.com/rs/zerolog"
)

// Pipeline holds the components for one workspace.
type Pipeline struct {
	Root   string
	Config *config.Config
	Log    zerolog.Logger

	Store       identity.Store
	Provisioner *identity.Provisioner
	Backup      *manifest.Backup
	Patcher     *manifest.Patcher
	Assets      *assets.Provisioner
	Git         *git.Checker
}

// New builds a pipeline rooted at root.
func New(root string, cfg *config.Config, log zerolog.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := newStore(root, cfg)
	if err != nil {
		return nil, err
	}

	manifestPath := config.Resolve(root, cfg.Manifest)

	a := assets.NewProvisioner(config.Resolve(root, cfg.Assets.Dir), cfg.Assets.Timeout, log)
	a.ContinueOnError = cfg.Assets.ContinueOnError

	return &Pipeline{
		Root:        root,
		Config:      cfg,
		Log:         log,
		Store:       store,
		Provisioner: identity.NewProvisioner(store, log),
		Backup:      manifest.NewBackup(manifestPath, log),
		Patcher:     manifest.NewPatcher(manifestPath, cfg.BaseToken, cfg.SuffixValue(), log),
		Assets:      a,
		Git:         git.NewChecker(root),
	}, nil
}

func newStore(root string, cfg *config.Config) (identity.Store, error) {
	switch cfg.Identity.Backend {
	case config.BackendRedis:
		return identity.NewRedisStoreFromURL(cfg.Identity.RedisURL, cfg.Identity.Namespace)
	case config.BackendFile, "":
		return identity.NewFileStore(config.Resolve(root, cfg.Identity.File)), nil
	default:
		return nil, fmt.Errorf("unknown identity backend: %s", cfg.Identity.Backend)
	}
}

// Close releases the store connection, if any.
func (p *Pipeline) Close() error {
	if c, ok := p.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ManifestPath returns the absolute manifest path.
func (p *Pipeline) ManifestPath() string {
	return config.Resolve(p.Root, p.Config.Manifest)
}

// ShowIdentity returns the persisted identity, or nil when none is set.
func (p *Pipeline) ShowIdentity(ctx context.Context) (*identity.Record, error) {
	return p.Store.Load(ctx)
}

// ApplyResult reports what ApplyIdentity did.
type ApplyResult struct {
	// BackupErr is set when the snapshot was skipped because the manifest is missing.
	BackupErr error
	BackedUp  bool

	// DirtyBackup is set when the snapshot just taken has uncommitted Git changes,
	// so it may not be the pristine manifest.
	DirtyBackup bool

	Identity identity.Result
	Patch    manifest.Patch
}

// ApplyIdentity snapshots the manifest, ensures an identity exists and
// patches the manifest with it. A missing manifest skips the snapshot,
// still provisions the identity, and is returned as a ManifestMissingError
// from the patch step.
func (p *Pipeline) ApplyIdentity(ctx context.Context) (ApplyResult, error) {
	var res ApplyResult

	backedUp, err := p.Backup.EnsureBackup()
	switch {
	case manifest.IsManifestMissing(err):
		res.BackupErr = err
		p.Log.Warn().Str("manifest", p.ManifestPath()).Msg("manifest missing, backup skipped")
	case err != nil:
		return res, err
	default:
		res.BackedUp = backedUp
	}

	if res.BackedUp {
		rel, relErr := filepath.Rel(p.Root, p.ManifestPath())
		if relErr == nil {
			dirty, gitErr := p.Git.IsDirty(rel)
			if gitErr != nil {
				p.Log.Debug().Err(gitErr).Msg("git status unavailable")
			}
			res.DirtyBackup = dirty
		}
	}

	res.Identity, err = p.Provisioner.Ensure(ctx)
	if err != nil {
		return res, err
	}

	res.Patch, err = p.Patcher.ApplyIdentity(res.Identity.Record.Identity)
	if err != nil {
		return res, err
	}
	return res, nil
}

// PreviewResult is the dry-run form of ApplyResult.
type PreviewResult struct {
	// Identity is the persisted identity, or a sample when none exists yet.
	Identity string
	Sample   bool
	Diff     string
}

// PreviewIdentity computes the manifest diff ApplyIdentity would produce
// without writing the snapshot, the store, or the manifest.
func (p *Pipeline) PreviewIdentity(ctx context.Context) (PreviewResult, error) {
	var res PreviewResult

	rec, err := p.Store.Load(ctx)
	if err != nil {
		return res, err
	}
	if rec != nil {
		res.Identity = rec.Identity
	} else {
		id, err := p.Provisioner.Generator.Generate()
		if err != nil {
			return res, fmt.Errorf("failed to generate sample identity: %w", err)
		}
		res.Identity = id
		res.Sample = true
	}

	res.Diff, err = p.Patcher.Preview(res.Identity)
	return res, err
}

// RestoreManifest restores the pristine manifest; a no-op without a snapshot.
func (p *Pipeline) RestoreManifest() (bool, error) {
	return p.Backup.Restore()
}

// RegenerateIdentity discards the persisted identity and creates a new one.
func (p *Pipeline) RegenerateIdentity(ctx context.Context) (identity.Result, error) {
	return p.Provisioner.Regenerate(ctx)
}

// FetchAssets downloads the configured assets.
func (p *Pipeline) FetchAssets(ctx context.Context) (assets.Report, error) {
	return p.Assets.Provision(ctx, p.Config.Specs())
}

// PrepareResult reports every stage of Prepare.
type PrepareResult struct {
	Apply  ApplyResult
	Assets assets.Report
}

// Prepare readies the workspace for packaging: identity application
// followed by asset provisioning. A missing manifest aborts before any
// download.
func (p *Pipeline) Prepare(ctx context.Context) (PrepareResult, error) {
	var res PrepareResult
	var err error

	res.Apply, err = p.ApplyIdentity(ctx)
	if err != nil {
		return res, err
	}

	res.Assets, err = p.FetchAssets(ctx)
	return res, err
}

// Build prepares the workspace and then runs the packaging command.
// An empty argv only prepares.
func (p *Pipeline) Build(ctx context.Context, argv []string, stdout, stderr io.Writer) (PrepareResult, error) {
	res, err := p.Prepare(ctx)
	if err != nil || len(argv) == 0 {
		return res, err
	}
	return res, p.Run(ctx, res, argv, stdout, stderr)
}

// Run executes the packaging command in the workspace root with the
// prepared identity exported as DYNPKG_IDENTITY, DYNPKG_PACKAGE and
// DYNPKG_MANIFEST.
func (p *Pipeline) Run(ctx context.Context, res PrepareResult, argv []string, stdout, stderr io.Writer) error {
	id := res.Apply.Identity.Record.Identity
	r := &runner.Runner{
		Dir: p.Root,
		Env: map[string]string{
			"DYNPKG_IDENTITY": id,
			"DYNPKG_PACKAGE":  p.Patcher.Replacement(id),
			"DYNPKG_MANIFEST": p.ManifestPath(),
		},
		Stdout: stdout,
		Stderr: stderr,
	}
	p.Log.Debug().Strs("argv", argv).Msg("running packaging command")
	return r.Run(ctx, argv)
}

// CleanResult reports what Clean did.
type CleanResult struct {
	AssetsDir string
	// OutputDir is empty when no output directory is configured.
	OutputDir string
	Restored  bool
}

// Clean deletes downloaded assets and the configured output directory,
// then restores the pristine manifest. The snapshot and the identity are
// kept.
func (p *Pipeline) Clean() (CleanResult, error) {
	res := CleanResult{AssetsDir: p.Assets.Dir}

	if err := p.Assets.Clean(); err != nil {
		return res, err
	}

	if p.Config.OutputDir != "" {
		res.OutputDir = config.Resolve(p.Root, p.Config.OutputDir)
		if err := os.RemoveAll(res.OutputDir); err != nil {
			return res, fmt.Errorf("failed to remove %s: %w", res.OutputDir, err)
		}
		p.Log.Debug().Str("dir", res.OutputDir).Msg("output removed")
	}

	restored, err := p.Backup.Restore()
	res.Restored = restored
	return res, err
}
