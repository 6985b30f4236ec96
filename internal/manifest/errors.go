package manifest

import (
	"errors"
	"fmt"
)

// ManifestMissingError indicates the working manifest does not exist.
// It is a reportable skip: nothing was written.
type ManifestMissingError struct {
	Path string
}

func (e *ManifestMissingError) Error() string {
	return fmt.Sprintf("manifest not found: %s", e.Path)
}

// IsManifestMissing checks if err is or wraps a ManifestMissingError.
func IsManifestMissing(err error) bool {
	var target *ManifestMissingError
	return errors.As(err, &target)
}
