package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SaveToken writes token to path with owner-only permissions.
func SaveToken(path, token string) error {
	if path == "" {
		return errors.New("compliscan: no token file configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("compliscan: create token dir: %w", err)
	}
	return os.WriteFile(path, []byte(strings.TrimSpace(token)+"\n"), 0o600)
}

// LoadToken reads a saved token. A missing file yields "" and no error.
func LoadToken(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("compliscan: read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// ClearToken removes a saved token. A missing file is not an error.
func ClearToken(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// ResolveToken returns the explicit token when set, otherwise the saved one.
func (c Config) ResolveToken() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	return LoadToken(c.TokenFile)
}
