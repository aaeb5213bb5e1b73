// Package config handles the shelf data directory and its configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the per-collection configuration stored in .shelf/config.yaml.
type Config struct {
	GistID    string `yaml:"gist_id,omitempty"`    // Gist holding the synced collection document
	GistFile  string `yaml:"gist_file,omitempty"`  // Filename inside the gist (default papers.json)
	SourceURL string `yaml:"source_url,omitempty"` // Default collection document URL for `shelf load`
}

const (
	ShelfDir        = ".shelf"
	ConfigFile      = "config.yaml"
	SessionDir      = "session"
	DBFile          = "shelf.db"
	DefaultGistFile = "papers.json"
)

// ShelfPath returns the path to the .shelf directory from a root path.
func ShelfPath(root string) string {
	return filepath.Join(root, ShelfDir)
}

// ConfigPath returns the path to config.yaml from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, ShelfDir, ConfigFile)
}

// SessionPath returns the path to the session blob directory.
func SessionPath(root string) string {
	return filepath.Join(root, ShelfDir, SessionDir)
}

// DBPath returns the path to the durable blob database.
func DBPath(root string) string {
	return filepath.Join(root, ShelfDir, DBFile)
}

// IsCollection checks if the given path contains a shelf data directory.
func IsCollection(root string) bool {
	info, err := os.Stat(ShelfPath(root))
	return err == nil && info.IsDir()
}

// FindCollection walks up from the given path to find a shelf data
// directory. Returns the root path or an error if none is found.
func FindCollection(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsCollection(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a shelf collection (no .shelf directory found; run 'shelf init')")
		}
		abs = parent
	}
}

// Init creates the data directory skeleton and an empty config.
func Init(root string) error {
	if err := os.MkdirAll(SessionPath(root), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if _, err := os.Stat(ConfigPath(root)); err == nil {
		return nil // Already initialized
	}
	return (&Config{GistFile: DefaultGistFile}).Save(root)
}

// Load reads configuration from the collection at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{GistFile: DefaultGistFile}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.GistFile == "" {
		cfg.GistFile = DefaultGistFile
	}

	return &cfg, nil
}

// Save writes configuration to the collection at the given root.
func (c *Config) Save(root string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
