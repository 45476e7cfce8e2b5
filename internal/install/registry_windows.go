//go:build windows

package install

import (
	"errors"
	"fmt"

	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"

	"golang.org/x/sys/windows/registry"
)

func setRegistry(browser nativemsg.Browser, hostName, manifestPath string) (string, error) {
	subkey, err := nativemsg.RegistryKey(browser, hostName)
	if err != nil {
		return "", err
	}
	k, _, err := registry.CreateKey(registry.CURRENT_USER, subkey, registry.SET_VALUE)
	if err != nil {
		return "", fmt.Errorf("failed to create registry key %s: %w", subkey, err)
	}
	defer k.Close()

	if err := k.SetStringValue("", manifestPath); err != nil {
		return "", fmt.Errorf("failed to set registry key %s: %w", subkey, err)
	}
	return `HKCU\` + subkey, nil
}

func deleteRegistry(browser nativemsg.Browser, hostName string) (string, error) {
	subkey, err := nativemsg.RegistryKey(browser, hostName)
	if err != nil {
		return "", err
	}
	if err := registry.DeleteKey(registry.CURRENT_USER, subkey); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return "", fmt.Errorf("failed to delete registry key %s: %w", subkey, err)
	}
	return `HKCU\` + subkey, nil
}

const runKey = `Software\Microsoft\Windows\CurrentVersion\Run`

func setRunKey(name, command string) (string, error) {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		return "", fmt.Errorf("failed to open registry key %s: %w", runKey, err)
	}
	defer k.Close()

	if err := k.SetStringValue(name, command); err != nil {
		return "", fmt.Errorf("failed to set registry value %s: %w", name, err)
	}
	return `HKCU\` + runKey, nil
}

func deleteRunKey(name string) (string, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKey, registry.SET_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return `HKCU\` + runKey, nil
		}
		return "", fmt.Errorf("failed to open registry key %s: %w", runKey, err)
	}
	defer k.Close()

	if err := k.DeleteValue(name); err != nil && !errors.Is(err, registry.ErrNotExist) {
		return "", fmt.Errorf("failed to delete registry value %s: %w", name, err)
	}
	return `HKCU\` + runKey, nil
}
