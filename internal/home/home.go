// Package home locates the Promptiverse home directory:
//
//	~/.promptiverse/
//	  config.yaml           providers, API keys, cache and server settings
//	  data/promptiverse.db  prompt library, saved keys, wizard state, call history
//
// The location can be moved with --home or the PROMPTIVERSE_HOME variable.
package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the directory created under the user's home.
	DefaultDirName = ".promptiverse"

	// EnvVar overrides the default location when no explicit path is given.
	EnvVar = "PROMPTIVERSE_HOME"

	// DataDirName holds the SQLite database.
	DataDirName = "data"

	// ConfigFileName is read when --config is not set.
	ConfigFileName = "config.yaml"

	// DatabaseFileName is the SQLite database inside the data directory.
	DatabaseFileName = "promptiverse.db"
)

// Dir is a Promptiverse home directory.
type Dir struct {
	path string
}

// New returns the home at path. An empty path uses $PROMPTIVERSE_HOME, then
// ~/.promptiverse. Nothing is created until EnsureExists.
func New(path string) (*Dir, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvVar))
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the directory holding the database.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns where `promptiverse config init` writes config.yaml.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DatabasePath returns the SQLite file used when storage.path is unset.
func (d *Dir) DatabasePath() string {
	return filepath.Join(d.DataPath(), DatabaseFileName)
}

// EnsureExists creates the home and data directories.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.DataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Exists reports whether the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists reports whether config.yaml has been written.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
