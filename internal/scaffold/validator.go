package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/dynpkg/internal/config"
)

// CheckExisting returns an error if root already holds a dynpkg.yml
func CheckExisting(root string) error {
	if _, err := os.Stat(filepath.Join(root, config.DefaultFileName)); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'dynpkg init --force' to reinitialize (this will overwrite existing configuration)", config.DefaultFileName)
	}
	return nil
}
