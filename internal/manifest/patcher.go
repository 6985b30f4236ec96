package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseToken is the namespace the pristine manifest is written against.
	DefaultBaseToken = "com.github.metacubex.clash.meta"

	// DefaultSuffix is appended to the identity to form the replacement.
	DefaultSuffix = ".action"
)

// Patch describes the outcome of ApplyIdentity.
type Patch struct {
	Replacement  string
	Replacements int

	// AlreadyPatched is set when the token was absent but the replacement
	// text was found, i.e. the manifest was patched earlier with this identity.
	AlreadyPatched bool
}

// Patcher rewrites the base token in the working manifest.
type Patcher struct {
	path      string
	baseToken string
	suffix    string
	log       zerolog.Logger
}

// NewPatcher returns a patcher for the manifest at path.
func NewPatcher(path, baseToken, suffix string, log zerolog.Logger) *Patcher {
	return &Patcher{path: path, baseToken: baseToken, suffix: suffix, log: log}
}

// Replacement returns the text substituted for the base token.
func (p *Patcher) Replacement(identity string) string {
	return identity + p.suffix
}

// ApplyIdentity replaces every occurrence of the base token with
// identity+suffix and writes the manifest back.
//
// It is meant to run once per build cycle against a pristine manifest.
// Against an already patched manifest the token no longer matches; the
// file is left untouched and Replacements is zero.
func (p *Patcher) ApplyIdentity(identity string) (Patch, error) {
	content, perm, err := p.read()
	if err != nil {
		return Patch{}, err
	}

	patch := Patch{
		Replacement:  p.Replacement(identity),
		Replacements: strings.Count(content, p.baseToken),
	}
	if patch.Replacements == 0 {
		patch.AlreadyPatched = strings.Contains(content, patch.Replacement)
		p.log.Debug().Str("manifest", p.path).Bool("already_patched", patch.AlreadyPatched).Msg("base token not found, manifest unchanged")
		return patch, nil
	}

	patched := strings.ReplaceAll(content, p.baseToken, patch.Replacement)
	if err := writeFile(p.path, []byte(patched), perm); err != nil {
		return Patch{}, fmt.Errorf("failed to write manifest: %w", err)
	}
	p.log.Debug().Str("manifest", p.path).Int("replacements", patch.Replacements).Msg("manifest patched")
	return patch, nil
}

// Preview returns a unified diff of what ApplyIdentity would change,
// without writing. An empty string means no change.
func (p *Patcher) Preview(identity string) (string, error) {
	content, _, err := p.read()
	if err != nil {
		return "", err
	}

	patched := strings.ReplaceAll(content, p.baseToken, p.Replacement(identity))
	if patched == content {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(content),
		B:        difflib.SplitLines(patched),
		FromFile: "a/" + p.path,
		ToFile:   "b/" + p.path,
		Context:  2,
	})
}

func (p *Patcher) read() (string, fs.FileMode, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", 0, &ManifestMissingError{Path: p.path}
		}
		return "", 0, fmt.Errorf("failed to read manifest: %w", err)
	}

	info, err := os.Stat(p.path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to stat manifest: %w", err)
	}
	return string(data), info.Mode().Perm(), nil
}
