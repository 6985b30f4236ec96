package identity

import (
	"context"
	"regexp"
	"time"
)

const (
	// KeyPackageName is the persisted key holding the generated identity.
	KeyPackageName = "package.name"

	// KeyGeneratedTime is the persisted key holding the human-readable creation time.
	// It is informational only and never required to parse on reload.
	KeyGeneratedTime = "generated.time"

	// TimeLayout matches the java.util.Date#toString format written by earlier
	// Gradle-based builds, so files produced by either tool read the same.
	TimeLayout = "Mon Jan 02 15:04:05 MST 2006"
)

// packagePattern accepts dotted package identifiers. Hand-edited records may
// carry a full package name rather than a single generated segment.
var packagePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*$`)

// Record is the persisted identity of a build workspace.
type Record struct {
	Identity  string
	CreatedAt time.Time

	// CreatedText is the timestamp exactly as stored. It is kept so that
	// show-identity can print values that did not parse with TimeLayout.
	CreatedText string
}

// NewRecord creates a record stamped with the given creation time.
func NewRecord(identity string, createdAt time.Time) Record {
	return Record{
		Identity:    identity,
		CreatedAt:   createdAt,
		CreatedText: createdAt.Format(TimeLayout),
	}
}

// Created returns the display form of the creation timestamp.
func (r Record) Created() string {
	if r.CreatedText != "" {
		return r.CreatedText
	}
	if r.CreatedAt.IsZero() {
		return "Unknown"
	}
	return r.CreatedAt.Format(TimeLayout)
}

// parseCreated parses a stored timestamp, returning the zero time when the
// text is not in TimeLayout.
func parseCreated(text string) time.Time {
	t, err := time.Parse(TimeLayout, text)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ValidPackageName reports whether s can be embedded in a package namespace.
func ValidPackageName(s string) bool {
	return packagePattern.MatchString(s)
}

// Store persists the single identity record of a workspace.
// Implementations provide no concurrent-writer protection.
type Store interface {
	// Load returns the persisted record, or nil when none exists.
	Load(ctx context.Context) (*Record, error)
	// Save writes the record, replacing any existing one.
	Save(ctx context.Context, rec Record) error
	// Clear removes the record. Clearing an absent record is not an error.
	Clear(ctx context.Context) error
	// Location describes where the record lives, for diagnostics.
	Location() string
}
