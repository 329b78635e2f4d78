package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EnsureAPIToken returns the bearer token protecting the HTTP API. The
// HIRELOOP_API_TOKEN environment variable wins; otherwise the token is read
// from (or generated into) a file in the data directory, so restarts keep the
// same token.
func EnsureAPIToken(dataDir string) (string, error) {
	if t := os.Getenv("HIRELOOP_API_TOKEN"); t != "" {
		return t, nil
	}

	path := filepath.Join(dataDir, "api_token")
	data, err := os.ReadFile(path)
	if err == nil {
		t := strings.TrimSpace(string(data))
		if t != "" {
			return t, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("reading token file: %w", err)
	}

	token := uuid.New().String()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("writing token file: %w", err)
	}
	return token, nil
}
