package commands

import (
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show-identity",
	Short: "Show the persisted package identity",
	Long: `Show the package identity persisted for this workspace.

Read-only: if no identity exists yet, none is created. Run apply-identity or
build to generate one.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	defer closePipeline(p)

	rec, err := p.ShowIdentity(cmd.Context())
	if err != nil {
		return explain(p, err)
	}

	if rec == nil {
		printer.Banner("No package identity",
			"Store: "+p.Store.Location(),
			"",
			"One is generated on the next build:",
			"  dynpkg apply-identity",
		)
		return nil
	}

	printer.Banner("Package identity",
		"Package name: "+rec.Identity,
		"Package:      "+p.Patcher.Replacement(rec.Identity),
		"Created:      "+rec.Created(),
		"Store:        "+p.Store.Location(),
	)
	return nil
}
