package validation

import (
	"fmt"
	"os"
	"path/filepath"
)

// PathHandler resolves blogify's on-disk locations, filling in defaults.
type PathHandler struct {
	validator *FilePathValidator
}

func NewSecurePathHandler() *PathHandler {
	return &PathHandler{validator: NewFilePathValidator()}
}

func NewPermissivePathHandler() *PathHandler {
	return &PathHandler{validator: NewPermissiveFilePathValidator()}
}

func defaultPath(parts ...string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, parts...)...), nil
}

// DBPath validates the credential database location and makes sure its
// directory exists. Empty means ~/.blogify/session.db.
func (ph *PathHandler) DBPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".blogify", "session.db")
		if err != nil {
			return "", err
		}
		userPath = p
	}

	path, err := ph.validator.ValidateFile(userPath)
	if err != nil {
		return "", err
	}
	if _, err := ph.validator.ValidateDirectory(filepath.Dir(path), true); err != nil {
		return "", err
	}
	return path, nil
}

// ConfigPath validates a config file location. Empty means
// ~/.config/blogify/config.toml.
func (ph *PathHandler) ConfigPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".config", "blogify", "config.toml")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateFile(userPath)
}

// IndexPath validates a search index location. Bleve indexes are
// directories. Empty stays empty: the index lives in memory.
func (ph *PathHandler) IndexPath(userPath string) (string, error) {
	if userPath == "" {
		return "", nil
	}
	return ph.validator.ValidateDirectory(userPath, false)
}

// LogPath validates a log file location. Empty means ~/.blogify/blogify.log.
func (ph *PathHandler) LogPath(userPath string) (string, error) {
	if userPath == "" {
		p, err := defaultPath(".blogify", "blogify.log")
		if err != nil {
			return "", err
		}
		userPath = p
	}
	return ph.validator.ValidateFile(userPath)
}
