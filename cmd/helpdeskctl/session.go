package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// tokenPath is where login stores the session token. HELPDESK_TOKEN_FILE
// overrides it.
func tokenPath() (string, error) {
	if p := os.Getenv("HELPDESK_TOKEN_FILE"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "helpdesk", "token"), nil
}

// loadToken prefers HELPDESK_TOKEN over the saved token file.
func loadToken() string {
	if tok := os.Getenv("HELPDESK_TOKEN"); tok != "" {
		return tok
	}
	p, err := tokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(tok string) error {
	p, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(tok+"\n"), 0o600)
}

func clearToken() error {
	p, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
