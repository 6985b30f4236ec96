package commands

import (
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/spf13/cobra"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate-identity",
	Short: "Discard the identity and generate a new one",
	Long: `Discard the persisted package identity and generate a new one.

The manifest is not touched. Restore it and apply the new identity:
  dynpkg restore-manifest
  dynpkg apply-identity`,
	Args: cobra.NoArgs,
	RunE: runRegenerate,
}

func init() {
	rootCmd.AddCommand(regenerateCmd)
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	defer closePipeline(p)

	res, err := p.RegenerateIdentity(cmd.Context())
	if err != nil {
		return explain(p, err)
	}

	printer.Banner("Package name regenerated",
		"New package name: "+res.Record.Identity,
		"Package:          "+p.Patcher.Replacement(res.Record.Identity),
		"",
		"Next steps:",
		"  1. dynpkg restore-manifest",
		"  2. dynpkg apply-identity",
	)
	return nil
}
