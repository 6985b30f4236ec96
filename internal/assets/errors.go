package assets

import (
	"errors"
	"fmt"
)

// AssetFetchError indicates a transfer failure for one asset.
type AssetFetchError struct {
	URL   string
	Cause error
}

func (e *AssetFetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Cause)
}

func (e *AssetFetchError) Unwrap() error {
	return e.Cause
}

// IsAssetFetch checks if err is or wraps an AssetFetchError.
func IsAssetFetch(err error) bool {
	var target *AssetFetchError
	return errors.As(err, &target)
}

// statusError reports a non-2xx HTTP response.
type statusError struct {
	Status string
	Code   int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP status %s", e.Status)
}
