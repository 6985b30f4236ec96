package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/dyluth/dynpkg/internal/assets"
	"github.com/dyluth/dynpkg/internal/config"
	"github.com/dyluth/dynpkg/internal/git"
	"github.com/dyluth/dynpkg/internal/identity"
	"github.com/dyluth/dynpkg/internal/logging"
	"github.com/dyluth/dynpkg/internal/manifest"
	"github.com/dyluth/dynpkg/internal/pipeline"
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/dyluth/dynpkg/internal/runner"
	"github.com/spf13/cobra"
)

// resolveWorkspace returns the workspace root and the config path within it.
func resolveWorkspace() (string, string, error) {
	root, err := git.ResolveWorkspace(workspaceDir)
	if err != nil {
		return "", "", printer.Error(
			"invalid workspace",
			err.Error(),
			[]string{"Pass an existing directory:\n  dynpkg --workspace <dir> <command>"},
		)
	}
	return root, config.Resolve(root, configPath), nil
}

// loadPipeline builds the pipeline for the current workspace. A missing
// config file means defaults; an invalid one is an error.
func loadPipeline(cmd *cobra.Command) (*pipeline.Pipeline, error) {
	root, path, err := resolveWorkspace()
	if err != nil {
		return nil, err
	}

	log := logging.New(logging.Options{Verbose: verbose, Out: cmd.ErrOrStderr()})

	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"config": path},
			[]string{
				"Fix the reported field in " + filepath.Base(path),
				"Regenerate the default configuration:\n  dynpkg init --force",
			},
		)
	}
	if !found {
		log.Debug().Str("config", path).Msg("config file not found, using defaults")
	}
	if rel, relErr := filepath.Rel(root, path); relErr == nil {
		if err := cfg.CheckNotRemoved(rel); err != nil {
			return nil, printer.ErrorWithContext(
				"invalid configuration",
				err.Error(),
				map[string]string{"config": path},
				[]string{"Move the config file out of that directory, or point the directory elsewhere"},
			)
		}
	}

	p, err := pipeline.New(root, cfg, log)
	if err != nil {
		return nil, printer.Error("failed to open identity store", err.Error(), nil)
	}
	log.Debug().Str("workspace", root).Str("store", p.Store.Location()).Msg("pipeline ready")
	return p, nil
}

// explain prints a diagnostic for err and returns the error Cobra sees.
func explain(p *pipeline.Pipeline, err error) error {
	var corrupt *identity.StoreCorruptError
	var missing *manifest.ManifestMissingError
	var exitErr *runner.ExitError

	switch {
	case errors.As(err, &corrupt):
		return printer.ErrorWithContext(
			"identity store is corrupt",
			err.Error(),
			map[string]string{"store": corrupt.Location},
			[]string{
				"Inspect and repair the store by hand",
				"Discard it and generate a new identity:\n  dynpkg regenerate-identity",
			},
		)
	case errors.As(err, &missing):
		return printer.ErrorWithContext(
			"manifest not found",
			fmt.Sprintf("No manifest exists at %s, so nothing was patched.", missing.Path),
			map[string]string{"manifest": missing.Path},
			[]string{
				"Set 'manifest' in dynpkg.yml to the manifest location",
				"Run from the project root, or pass --workspace",
			},
		)
	case assets.IsAssetFetch(err):
		return printer.ErrorWithContext(
			"asset download failed",
			err.Error(),
			map[string]string{"assets dir": p.Assets.Dir},
			[]string{
				"Check network access to the asset hosts and retry",
				"Keep going past failed downloads:\n  dynpkg fetch-assets --continue-on-error",
			},
		)
	case errors.As(err, &exitErr):
		return printer.Error(
			"packaging command failed",
			err.Error(),
			[]string{"The manifest is still patched. Restore it with:\n  dynpkg restore-manifest"},
		)
	default:
		return printer.Error("command failed", err.Error(), nil)
	}
}

// reportApply prints the outcome of an identity application.
func reportApply(p *pipeline.Pipeline, res pipeline.ApplyResult) {
	if res.BackedUp {
		printer.Success("Manifest backed up to %s\n", p.Backup.SnapshotPath())
	}
	if res.DirtyBackup {
		printer.Warning("%s has uncommitted changes; the snapshot may not be pristine\n", p.ManifestPath())
	}

	rec := res.Identity.Record
	switch res.Identity.Outcome {
	case identity.Generated:
		printer.Success("Generated new package name: %s\n", rec.Identity)
	default:
		printer.Info("Using existing package name: %s (created %s)\n", rec.Identity, rec.Created())
	}

	patch := res.Patch
	switch {
	case patch.Replacements > 0:
		printer.Success("Applied package name %s (%d replacements)\n", patch.Replacement, patch.Replacements)
	case patch.AlreadyPatched:
		printer.Warning("Manifest is already patched with %s; nothing replaced\n", patch.Replacement)
		printer.Info("  Restore the pristine manifest first:\n    dynpkg restore-manifest\n")
	default:
		printer.Warning("Base token %q not found in %s; nothing replaced\n", p.Config.BaseToken, p.ManifestPath())
	}
}

func closePipeline(p *pipeline.Pipeline) {
	if err := p.Close(); err != nil {
		p.Log.Debug().Err(err).Msg("failed to close identity store")
	}
}
