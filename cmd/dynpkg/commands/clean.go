package commands

import (
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove downloaded assets and restore the manifest",
	Long: `Delete the assets directory (and output_dir, if configured) and restore
the manifest from its snapshot.

The persisted identity and the snapshot itself are kept.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	defer closePipeline(p)

	res, err := p.Clean()
	if err != nil {
		return explain(p, err)
	}

	printer.Success("Removed %s\n", res.AssetsDir)
	if res.OutputDir != "" {
		printer.Success("Removed %s\n", res.OutputDir)
	}
	if res.Restored {
		printer.Success("Manifest restored from %s\n", p.Backup.SnapshotPath())
	} else {
		printer.Info("No manifest backup; manifest left as is\n")
	}
	return nil
}
