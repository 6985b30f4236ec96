package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/dynpkg/internal/config"
	"github.com/dyluth/dynpkg/internal/printer"
	"github.com/google/renameio"
)

//go:embed templates/*
var templatesFS embed.FS

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize writes the default dynpkg.yml into root.
// If force is true, an existing dynpkg.yml is replaced atomically, so a
// failed write leaves the old file in place.
func Initialize(root string, force bool) error {
	files, err := getTemplateFiles(root)
	if err != nil {
		return err
	}

	if force {
		err = replaceFiles(files)
	} else {
		err = writeFiles(files)
	}
	if err != nil {
		return err
	}

	return validateCreatedFiles(root)
}

// getTemplateFiles reads all template files
func getTemplateFiles(root string) ([]FileInfo, error) {
	content, err := templatesFS.ReadFile("templates/dynpkg.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s template: %w", config.DefaultFileName, err)
	}

	return []FileInfo{{
		Path:        filepath.Join(root, config.DefaultFileName),
		Content:     content,
		Permissions: 0644,
	}}, nil
}

// writeFiles writes all template files to disk, refusing to overwrite
func writeFiles(files []FileInfo) error {
	for _, file := range files {
		f, err := os.OpenFile(file.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, file.Permissions)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", file.Path, err)
		}
		if _, err := f.Write(file.Content); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return nil
}

// replaceFiles writes each file via a temp file and rename
func replaceFiles(files []FileInfo) error {
	for _, file := range files {
		if _, err := os.Stat(file.Path); err == nil {
			printer.Warning("Replacing existing %s...\n", filepath.Base(file.Path))
		}
		if err := renameio.WriteFile(file.Path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return nil
}

// validateCreatedFiles checks the written config loads cleanly
func validateCreatedFiles(root string) error {
	if _, err := config.Load(filepath.Join(root, config.DefaultFileName)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.DefaultFileName, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	printer.Println("\n✅ Successfully initialized dynpkg!")
	printer.Println("\nCreated:")
	printer.Printf("  ✓ %s\n", config.DefaultFileName)
	printer.Println("\nNext steps:")
	printer.Println("  1. Add '*.backup' and the assets directory to your .gitignore file")
	printer.Println("  2. Run 'dynpkg apply-identity' to patch the manifest")
	printer.Println("  3. Run 'dynpkg build -- <packaging command>' to build")
}
