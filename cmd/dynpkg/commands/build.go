package commands

import (
	"strings"

	"github.com/dyluth/dynpkg/internal/assets"
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [-- COMMAND [ARGS...]]",
	Short: "Prepare the workspace and run the packaging command",
	Long: `Prepare the workspace for packaging, then run the packaging command.

Steps:
  1. Snapshot the pristine manifest (first run only)
  2. Load or generate the package identity
  3. Patch the manifest
  4. Download the bundled data files
  5. Run COMMAND in the workspace root, if given

COMMAND receives DYNPKG_IDENTITY, DYNPKG_PACKAGE and DYNPKG_MANIFEST in its
environment. A missing manifest stops the build before any download.

Examples:
  # Prepare only
  dynpkg build

  # Prepare and assemble
  dynpkg build -- ./gradlew assembleRelease`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	p, err := loadPipeline(cmd)
	if err != nil {
		return err
	}
	defer closePipeline(p)

	p.Assets.OnFetched = func(spec assets.Spec, dest string, n int64) {
		printer.Success("%s (%d bytes)\n", spec.DestinationPath, n)
	}

	printer.Step("Preparing workspace %s\n", p.Root)
	res, err := p.Prepare(cmd.Context())
	if err != nil && !assets.IsAssetFetch(err) {
		return explain(p, err)
	}
	reportApply(p, res.Apply)
	if err != nil {
		return explain(p, err)
	}

	if len(args) == 0 {
		return nil
	}

	printer.Step("Running %s\n", strings.Join(args, " "))
	if err := p.Run(cmd.Context(), res, args, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
		return explain(p, err)
	}
	printer.Success("Build finished\n")
	return nil
}
