package identity

import (
	"errors"
	"fmt"
)

// StoreCorruptError indicates the identity storage exists but cannot be parsed.
// It is fatal: the operator must fix or delete the storage.
type StoreCorruptError struct {
	Location string
	Cause    error
}

func (e *StoreCorruptError) Error() string {
	return fmt.Sprintf("identity store %s is corrupt: %v", e.Location, e.Cause)
}

func (e *StoreCorruptError) Unwrap() error {
	return e.Cause
}

// IsStoreCorrupt checks if err is or wraps a StoreCorruptError.
func IsStoreCorrupt(err error) bool {
	var target *StoreCorruptError
	return errors.As(err, &target)
}
