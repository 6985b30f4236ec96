package commands

import (
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/spf13/cobra"
)

var applyDryRun bool

var applyCmd = &cobra.Command{
	Use:   "apply-identity",
	Short: "Patch the manifest with the workspace identity",
	Long: `Patch the manifest with the workspace package identity.

Steps:
  1. Snapshot the pristine manifest to <manifest>.backup (first run only)
  2. Load the persisted identity, generating and saving one if absent
  3. Replace every occurrence of the base token with <identity><suffix>

Run restore-manifest before applying again; a patched manifest no longer
contains the base token and is left unchanged.

Use --dry-run to print the manifest diff without writing anything.`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Print the manifest diff without writing any file")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	defer closePipeline(p)

	if applyDryRun {
		preview, err := p.PreviewIdentity(cmd.Context())
		if err != nil {
			return explain(p, err)
		}
		if preview.Sample {
			printer.Info("No identity persisted yet; previewing with sample %s\n", preview.Identity)
		}
		if preview.Diff == "" {
			printer.Warning("Base token %q not found; apply-identity would change nothing\n", p.Config.BaseToken)
			return nil
		}
		printer.Printf("%s", preview.Diff)
		return nil
	}

	res, err := p.ApplyIdentity(cmd.Context())
	if err != nil {
		return explain(p, err)
	}
	reportApply(p, res)
	return nil
}
