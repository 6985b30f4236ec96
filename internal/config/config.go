package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyluth/dynpkg/internal/assets"
	"github.com/dyluth/dynpkg/internal/identity"
	"github.com/dyluth/dynpkg/internal/manifest"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFileName is the project configuration file at the workspace root.
	DefaultFileName = "dynpkg.yml"

	// DefaultManifest is the manifest location relative to the workspace root.
	DefaultManifest = "src/main/AndroidManifest.xml"

	// DefaultAssetsDir is where downloaded assets are placed.
	DefaultAssetsDir = "src/main/assets"

	// DefaultTimeout bounds a single asset download.
	DefaultTimeout = 5 * time.Minute

	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config represents the top-level dynpkg.yml configuration
type Config struct {
	Version   string         `yaml:"version"`
	Manifest  string         `yaml:"manifest,omitempty"`
	BaseToken string         `yaml:"base_token,omitempty"`
	Suffix    *string        `yaml:"suffix,omitempty"` // nil = ".action"; "" is allowed
	Identity  IdentityConfig `yaml:"identity,omitempty"`
	Assets    AssetsConfig   `yaml:"assets,omitempty"`

	// OutputDir, when set, is removed by clean along with the assets.
	OutputDir string `yaml:"output_dir,omitempty"`
}

// IdentityConfig selects where the identity record is persisted
type IdentityConfig struct {
	Backend   string `yaml:"backend,omitempty"`   // "file" or "redis"
	File      string `yaml:"file,omitempty"`      // file backend: relative to workspace root
	RedisURL  string `yaml:"redis_url,omitempty"` // redis backend
	Namespace string `yaml:"namespace,omitempty"` // redis backend: key namespace
}

// AssetsConfig lists the external files downloaded before packaging
type AssetsConfig struct {
	Dir             string        `yaml:"dir,omitempty"`
	ContinueOnError bool          `yaml:"continue_on_error,omitempty"`
	Timeout         time.Duration `yaml:"timeout,omitempty"`
	Files           []AssetFile   `yaml:"files,omitempty"`
}

// AssetFile is a single source URL and its destination under Dir
type AssetFile struct {
	URL  string `yaml:"url"`
	Dest string `yaml:"dest"`
}

// Default returns the configuration used when no dynpkg.yml exists.
func Default() *Config {
	cfg := &Config{Version: "1.0"}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.BaseToken == "" {
		c.BaseToken = manifest.DefaultBaseToken
	}
	if c.Suffix == nil {
		suffix := manifest.DefaultSuffix
		c.Suffix = &suffix
	}
	if c.Identity.Backend == "" {
		c.Identity.Backend = BackendFile
	}
	if c.Identity.File == "" {
		c.Identity.File = identity.DefaultFileName
	}
	if c.Identity.Namespace == "" {
		c.Identity.Namespace = "default"
	}
	if c.Assets.Dir == "" {
		c.Assets.Dir = DefaultAssetsDir
	}
	if c.Assets.Timeout == 0 {
		c.Assets.Timeout = DefaultTimeout
	}
	// nil means "use the bundled list"; an explicit empty list disables fetching
	if c.Assets.Files == nil {
		for _, s := range assets.DefaultSpecs() {
			c.Assets.Files = append(c.Assets.Files, AssetFile{URL: s.SourceURL, Dest: s.DestinationPath})
		}
	}
}

// Validate performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if strings.TrimSpace(c.BaseToken) == "" {
		return fmt.Errorf("base_token cannot be empty")
	}

	switch c.Identity.Backend {
	case BackendFile:
		if filepath.IsAbs(c.Identity.File) {
			return fmt.Errorf("identity.file must be relative to the workspace: %s", c.Identity.File)
		}
	case BackendRedis:
		if c.Identity.RedisURL == "" {
			return fmt.Errorf("identity.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("invalid identity.backend: %s (must be '%s' or '%s')", c.Identity.Backend, BackendFile, BackendRedis)
	}

	if err := c.validateRemovableDir("assets.dir", c.Assets.Dir); err != nil {
		return err
	}
	if c.OutputDir != "" {
		if err := c.validateRemovableDir("output_dir", c.OutputDir); err != nil {
			return err
		}
	}

	if c.Assets.Timeout < 0 {
		return fmt.Errorf("assets.timeout must be >= 0, got %s", c.Assets.Timeout)
	}

	for i, f := range c.Assets.Files {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("assets.files[%d]: %w", i, err)
		}
	}

	return nil
}

// validateRemovableDir checks a directory that clean deletes recursively.
// It must be a proper subdirectory of the workspace and must not contain
// the manifest, its snapshot, the identity file or the config file.
func (c *Config) validateRemovableDir(field, dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if filepath.IsAbs(dir) {
		return fmt.Errorf("%s must be relative to the workspace: %s", field, dir)
	}
	clean := filepath.Clean(dir)
	if clean == "." {
		return fmt.Errorf("%s cannot be the workspace root", field)
	}
	if escapes(clean) {
		return fmt.Errorf("%s escapes the workspace: %s", field, dir)
	}

	protected := []string{DefaultFileName, c.Manifest, c.Manifest + manifest.BackupSuffix}
	if c.Identity.Backend == BackendFile {
		protected = append(protected, c.Identity.File)
	}
	for _, path := range protected {
		if path == "" || filepath.IsAbs(path) {
			continue
		}
		if contains(clean, filepath.Clean(path)) {
			return fmt.Errorf("%s %s would delete %s", field, dir, path)
		}
	}
	return nil
}

// CheckNotRemoved returns an error if clean would delete path, which is
// relative to the workspace root. Validate already covers the paths the
// config itself names; this is for paths that come from elsewhere, like a
// --config flag.
func (c *Config) CheckNotRemoved(path string) error {
	if filepath.IsAbs(path) {
		return nil
	}
	path = filepath.Clean(path)
	dirs := map[string]string{"assets.dir": c.Assets.Dir, "output_dir": c.OutputDir}
	for _, field := range []string{"assets.dir", "output_dir"} {
		dir := dirs[field]
		if dir != "" && contains(filepath.Clean(dir), path) {
			return fmt.Errorf("%s %s would delete %s", field, dir, path)
		}
	}
	return nil
}

// escapes reports whether a cleaned relative path leaves its base.
func escapes(clean string) bool {
	return clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator))
}

// contains reports whether path is dir or lies under it. Both are cleaned
// relative paths.
func contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && !escapes(rel)
}

// Validate checks a single asset entry
func (f AssetFile) Validate() error {
	u, err := url.Parse(f.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", f.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https: %s", f.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host: %s", f.URL)
	}

	if f.Dest == "" {
		return fmt.Errorf("dest is required")
	}
	if filepath.IsAbs(f.Dest) {
		return fmt.Errorf("dest must be relative: %s", f.Dest)
	}
	clean := filepath.Clean(f.Dest)
	if clean == "." || escapes(clean) {
		return fmt.Errorf("dest escapes the assets directory: %s", f.Dest)
	}
	return nil
}

// Specs converts the configured files into asset specs.
func (c *Config) Specs() []assets.Spec {
	specs := make([]assets.Spec, 0, len(c.Assets.Files))
	for _, f := range c.Assets.Files {
		specs = append(specs, assets.Spec{SourceURL: f.URL, DestinationPath: f.Dest})
	}
	return specs
}

// SuffixValue returns the replacement suffix.
func (c *Config) SuffixValue() string {
	if c.Suffix == nil {
		return manifest.DefaultSuffix
	}
	return *c.Suffix
}

// Resolve joins a configured path onto the workspace root unless it is absolute.
func Resolve(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Parse unmarshals, defaults and validates configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load reads and validates dynpkg.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault is Load, except that a missing file yields Default().
// The boolean reports whether the file was found.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}
