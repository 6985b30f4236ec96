package commands

import (
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore-manifest",
	Short: "Restore the pristine manifest from its snapshot",
	Long: `Copy <manifest>.backup back over the manifest.

The snapshot is kept, so the manifest can be restored after every build.
Without a snapshot this does nothing.`,
	Args: cobra.NoArgs,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	defer closePipeline(p)

	restored, err := p.RestoreManifest()
	if err != nil {
		return explain(p, err)
	}
	if !restored {
		printer.Info("No backup at %s; nothing to restore\n", p.Backup.SnapshotPath())
		return nil
	}
	printer.Success("Manifest restored from %s\n", p.Backup.SnapshotPath())
	return nil
}
