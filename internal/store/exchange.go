package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"reddiscribe/internal/config"
)

// Exchange represents a prompt/response pair for debugging
type Exchange struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Provider  string    `json:"provider"` // e.g. "ollama"
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
}

// ExchangeDir returns the path to the exchange dump directory.
// On Linux this is ~/.cache/reddiscribe/llm/
func ExchangeDir() (string, error) {
	cacheDir, err := config.CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "llm"), nil
}

// SaveExchange serializes an exchange to JSON and writes it to a timestamped
// file. The run id is appended to the filename because the three model roles
// can all fire within the same second. Returns the path to the saved file.
func SaveExchange(exchange Exchange) (string, error) {
	dir, err := ExchangeDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	// Dashes instead of colons for filesystem compatibility
	name := exchange.Timestamp.Format("2006-01-02T15-04-05")
	if len(exchange.RunID) >= 8 {
		name += "-" + exchange.RunID[:8]
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(exchange, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return path, nil
}
