// File: internal/config/platform.go

package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	// DefaultListen is where pages reach the content bridge
	DefaultListen = "127.0.0.1:8765"

	// DefaultExtensionVersion is the newest host version this bridge knows of
	DefaultExtensionVersion = "1.1.0"
)

func platformDirName() string {
	switch runtime.GOOS {
	case "windows":
		return "GPSIO"
	case "darwin":
		return "com.caltopo.gpsio"
	default: // Linux and others
		return "gpsio"
	}
}

func defaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "GPSIO"), nil
		}
		return filepath.Join(homeDir, "AppData", "Local", "GPSIO"), nil
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", "GPSIO"), nil
	default: // Linux and others
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			return filepath.Join(xdgDataHome, "gpsio"), nil
		}
		return filepath.Join(homeDir, ".local", "share", "gpsio"), nil
	}
}

// IPCSupported reports whether the daemon socket works on this platform
func IPCSupported() bool {
	return runtime.GOOS != "windows"
}
