package nativemsg

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Browser identifies a native messaging capable browser family
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserChromium Browser = "chromium"
	BrowserFirefox  Browser = "firefox"
	BrowserEdge     Browser = "edge"
)

// Browsers lists the supported browser families in lookup order
var Browsers = []Browser{BrowserChrome, BrowserChromium, BrowserFirefox, BrowserEdge}

// ErrManifestNotFound is returned when no browser has the host registered
var ErrManifestNotFound = errors.New("native host manifest not found")

// Manifest is the host registration file read by the browser
type Manifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
}

// Validate checks the fields browsers insist on
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return errors.New("manifest name is required")
	}
	if m.Path == "" {
		return errors.New("manifest path is required")
	}
	if m.Type != "stdio" {
		return fmt.Errorf("unsupported manifest type %q", m.Type)
	}
	return nil
}

// ManifestDir returns the per-user manifest directory for a browser on goos.
// On Windows manifests live anywhere and are found through the registry,
// so the returned directory is empty.
func ManifestDir(browser Browser, home, goos string) (string, error) {
	switch goos {
	case "windows":
		return "", nil
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		switch browser {
		case BrowserChrome:
			return filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts"), nil
		case BrowserChromium:
			return filepath.Join(support, "Chromium", "NativeMessagingHosts"), nil
		case BrowserFirefox:
			return filepath.Join(support, "Mozilla", "NativeMessagingHosts"), nil
		case BrowserEdge:
			return filepath.Join(support, "Microsoft Edge", "NativeMessagingHosts"), nil
		}
	default:
		switch browser {
		case BrowserChrome:
			return filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"), nil
		case BrowserChromium:
			return filepath.Join(home, ".config", "chromium", "NativeMessagingHosts"), nil
		case BrowserFirefox:
			return filepath.Join(home, ".mozilla", "native-messaging-hosts"), nil
		case BrowserEdge:
			return filepath.Join(home, ".config", "microsoft-edge", "NativeMessagingHosts"), nil
		}
	}
	return "", fmt.Errorf("unknown browser %q", browser)
}

// ManifestPath returns where the manifest for hostName lives for a browser
func ManifestPath(browser Browser, hostName, home, goos string) (string, error) {
	dir, err := ManifestDir(browser, home, goos)
	if err != nil {
		return "", err
	}
	if dir == "" {
		return registryManifestPath(browser, hostName)
	}
	return filepath.Join(dir, hostName+".json"), nil
}

// ReadManifest parses a manifest file
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// LookupManifest finds the first installed manifest for hostName
func LookupManifest(hostName string) (*Manifest, string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, "", err
	}
	return LookupManifestIn(hostName, home, runtime.GOOS)
}

// LookupManifestIn finds the first manifest for hostName under home as goos lays it out
func LookupManifestIn(hostName, home, goos string) (*Manifest, string, error) {
	for _, browser := range Browsers {
		path, err := ManifestPath(browser, hostName, home, goos)
		if err != nil || path == "" {
			continue
		}
		m, err := ReadManifest(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, path, err
		}
		return m, path, nil
	}
	return nil, "", fmt.Errorf("%w: %s", ErrManifestNotFound, hostName)
}
