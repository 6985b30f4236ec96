package commands

import (
	"github.com/dyluth/dynpkg/internal/assets"
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/spf13/cobra"
)

var fetchContinueOnError bool

var fetchCmd = &cobra.Command{
	Use:   "fetch-assets",
	Short: "Download the bundled data files",
	Long: `Download every configured asset into the assets directory, in order,
overwriting existing files.

By default the first failed download stops the run. With
--continue-on-error (or assets.continue_on_error in dynpkg.yml) every
asset is attempted and all failures are reported together.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchContinueOnError, "continue-on-error", false, "Attempt every asset even after a failure")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	defer closePipeline(p)

	if fetchContinueOnError {
		p.Assets.ContinueOnError = true
	}
	p.Assets.OnFetched = func(spec assets.Spec, dest string, n int64) {
		printer.Success("%s (%d bytes)\n", spec.DestinationPath, n)
	}

	printer.Step("Fetching %d assets into %s\n", len(p.Config.Specs()), p.Assets.Dir)
	if _, err := p.FetchAssets(cmd.Context()); err != nil {
		return explain(p, err)
	}
	return nil
}
