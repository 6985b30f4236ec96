package commands

import (
	"fmt"

	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/dyluth/dynpkg/internal/scaffold"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default dynpkg.yml",
	Long: `Write a default dynpkg.yml into the workspace root.

The defaults match what dynpkg uses when no config file exists, so the
file is only needed to change them.

Use --force to overwrite an existing dynpkg.yml.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing dynpkg.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	root, _, err := resolveWorkspace()
	if err != nil {
		return err
	}

	if !forceInit {
		if err := scaffold.CheckExisting(root); err != nil {
			return printer.Error("already initialized", err.Error(), nil)
		}
	}

	if err := scaffold.Initialize(root, forceInit); err != nil {
		return printer.Error("initialization failed", fmt.Sprintf("%v", err), nil)
	}

	scaffold.PrintSuccess()
	return nil
}
