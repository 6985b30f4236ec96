package manifest

import (
	"fmt"

	"github.com/rs/zerolog"
)

// BackupSuffix is appended to the manifest path to form the snapshot path.
const BackupSuffix = ".backup"

// Backup keeps a write-once snapshot of the pristine manifest next to it.
type Backup struct {
	manifestPath string
	snapshotPath string
	log          zerolog.Logger
}

// NewBackup returns a Backup for the manifest at manifestPath.
func NewBackup(manifestPath string, log zerolog.Logger) *Backup {
	return &Backup{
		manifestPath: manifestPath,
		snapshotPath: manifestPath + BackupSuffix,
		log:          log,
	}
}

// SnapshotPath returns the path of the snapshot file.
func (b *Backup) SnapshotPath() string {
	return b.snapshotPath
}

// HasBackup reports whether a snapshot exists.
func (b *Backup) HasBackup() bool {
	ok, err := exists(b.snapshotPath)
	return err == nil && ok
}

// EnsureBackup snapshots the working manifest unless a snapshot already
// exists. An existing snapshot is never overwritten, even if the manifest
// changed since it was taken. Reports whether a snapshot was created.
func (b *Backup) EnsureBackup() (bool, error) {
	snap, err := exists(b.snapshotPath)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot %s: %w", b.snapshotPath, err)
	}
	if snap {
		b.log.Debug().Str("snapshot", b.snapshotPath).Msg("snapshot already present")
		return false, nil
	}

	present, err := exists(b.manifestPath)
	if err != nil {
		return false, fmt.Errorf("failed to check manifest %s: %w", b.manifestPath, err)
	}
	if !present {
		return false, &ManifestMissingError{Path: b.manifestPath}
	}

	if err := copyFile(b.manifestPath, b.snapshotPath); err != nil {
		return false, fmt.Errorf("failed to back up manifest: %w", err)
	}
	b.log.Debug().Str("snapshot", b.snapshotPath).Msg("manifest backed up")
	return true, nil
}

// Restore copies the snapshot over the working manifest. The snapshot is
// kept for later cycles. Without a snapshot this is a no-op. Reports
// whether the manifest was restored.
func (b *Backup) Restore() (bool, error) {
	snap, err := exists(b.snapshotPath)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot %s: %w", b.snapshotPath, err)
	}
	if !snap {
		b.log.Debug().Str("snapshot", b.snapshotPath).Msg("no snapshot, nothing to restore")
		return false, nil
	}

	if err := copyFile(b.snapshotPath, b.manifestPath); err != nil {
		return false, fmt.Errorf("failed to restore manifest: %w", err)
	}
	b.log.Debug().Str("manifest", b.manifestPath).Msg("manifest restored from snapshot")
	return true, nil
}
