// Package install registers the native host with the browsers.
package install

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"

	"go.uber.org/zap"
)

// Description is written into every manifest
const Description = "GPS IO"

// Options controls where and what gets registered
type Options struct {
	HostName string
	// HostPath is the absolute path of the native host executable
	HostPath string
	// AllowedOrigins go into Chrome, Chromium and Edge manifests
	AllowedOrigins []string
	// AllowedExtensions go into the Firefox manifest
	AllowedExtensions []string
	// Browsers to register with; empty means all
	Browsers []nativemsg.Browser
	// Home overrides the user's home directory
	Home string
	// GOOS overrides the target platform
	GOOS string
	// ManifestDir holds the manifests on Windows, where the registry points at them
	ManifestDir string
	Logger      *zap.Logger
}

// Result reports one browser registration
type Result struct {
	Browser  nativemsg.Browser `json:"browser"`
	Manifest string            `json:"manifest"`
	// RegistryKey is set on Windows
	RegistryKey string `json:"registryKey,omitempty"`
}

func (o *Options) defaults() error {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	if o.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}
		o.Home = home
	}
	if len(o.Browsers) == 0 {
		o.Browsers = nativemsg.Browsers
	}
	if o.HostName == "" {
		return errors.New("host name is required")
	}
	if o.GOOS == "windows" && o.ManifestDir == "" {
		return errors.New("manifest directory is required on windows")
	}
	return nil
}

// Manifest builds the manifest a browser expects
func (o *Options) Manifest(browser nativemsg.Browser) *nativemsg.Manifest {
	m := &nativemsg.Manifest{
		Name:        o.HostName,
		Description: Description,
		Path:        o.HostPath,
		Type:        "stdio",
	}
	if browser == nativemsg.BrowserFirefox {
		m.AllowedExtensions = o.AllowedExtensions
	} else {
		m.AllowedOrigins = o.AllowedOrigins
	}
	return m
}

func (o *Options) manifestPath(browser nativemsg.Browser) (string, error) {
	if o.GOOS == "windows" {
		return filepath.Join(o.ManifestDir, string(browser)+"-manifest.json"), nil
	}
	dir, err := nativemsg.ManifestDir(browser, o.Home, o.GOOS)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, o.HostName+".json"), nil
}

// Install writes a manifest per browser and, on Windows, the registry keys
// pointing at them
func Install(opts Options) ([]Result, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}
	if !filepath.IsAbs(opts.HostPath) {
		return nil, fmt.Errorf("host path must be absolute: %q", opts.HostPath)
	}

	var results []Result
	for _, browser := range opts.Browsers {
		m := opts.Manifest(browser)
		if err := m.Validate(); err != nil {
			return results, err
		}
		path, err := opts.manifestPath(browser)
		if err != nil {
			return results, err
		}
		if err := writeManifest(path, m); err != nil {
			return results, err
		}
		result := Result{Browser: browser, Manifest: path}

		if opts.GOOS == "windows" {
			key, err := setRegistry(browser, opts.HostName, path)
			if err != nil {
				return results, err
			}
			result.RegistryKey = key
		}
		opts.Logger.Info("Registered native host",
			zap.String("browser", string(browser)),
			zap.String("manifest", path))
		results = append(results, result)
	}
	return results, nil
}

// Uninstall removes what Install created. Missing entries are ignored.
func Uninstall(opts Options) ([]Result, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}

	var results []Result
	var errs []error
	for _, browser := range opts.Browsers {
		path, err := opts.manifestPath(browser)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
			continue
		}
		result := Result{Browser: browser, Manifest: path}
		if opts.GOOS == "windows" {
			key, err := deleteRegistry(browser, opts.HostName)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			result.RegistryKey = key
		}
		opts.Logger.Info("Unregistered native host", zap.String("browser", string(browser)))
		results = append(results, result)
	}
	return results, errors.Join(errs...)
}

func writeManifest(path string, m *nativemsg.Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
