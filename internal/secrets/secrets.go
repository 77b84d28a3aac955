// Package secrets provides a thread-safe secret vault with hot reload support.
package secrets

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Loader retrieves secrets from a source (env vars, files, remote vault, etc.).
type Loader func() (map[string]string, error)

// EnvLoader returns a Loader that reads the specified environment variables.
// Missing variables are silently omitted from the result map.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// FileLoader returns a Loader that resolves each key via a <KEY>_FILE
// environment variable pointing at a secret file, the convention used by
// container orchestrators. Keys without a _FILE variable are omitted;
// a variable pointing at an unreadable file is an error.
func FileLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			path := os.Getenv(k + "_FILE")
			if path == "" {
				continue
			}
			data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator's environment
			if err != nil {
				return nil, fmt.Errorf("read secret file for %s: %w", k, err)
			}
			vals[k] = strings.TrimSpace(string(data))
		}
		return vals, nil
	}
}

// Chain merges several loaders; later loaders override earlier ones.
func Chain(loaders ...Loader) Loader {
	return func() (map[string]string, error) {
		merged := make(map[string]string)
		for _, load := range loaders {
			vals, err := load()
			if err != nil {
				return nil, err
			}
			for k, v := range vals {
				merged[k] = v
			}
		}
		return merged, nil
	}
}

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{
		values: vals,
		loader: loader,
	}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	v.mu.Unlock()
	return nil
}
