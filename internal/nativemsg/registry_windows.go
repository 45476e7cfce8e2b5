//go:build windows

package nativemsg

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// RegistryKey returns the HKCU subkey under which a browser looks up hostName
func RegistryKey(browser Browser, hostName string) (string, error) {
	switch browser {
	case BrowserChrome:
		return `Software\Google\Chrome\NativeMessagingHosts\` + hostName, nil
	case BrowserChromium:
		return `Software\Chromium\NativeMessagingHosts\` + hostName, nil
	case BrowserFirefox:
		return `Software\Mozilla\NativeMessagingHosts\` + hostName, nil
	case BrowserEdge:
		return `Software\Microsoft\Edge\NativeMessagingHosts\` + hostName, nil
	}
	return "", fmt.Errorf("unknown browser %q", browser)
}

func registryManifestPath(browser Browser, hostName string) (string, error) {
	subkey, err := RegistryKey(browser, hostName)
	if err != nil {
		return "", err
	}
	k, err := registry.OpenKey(registry.CURRENT_USER, subkey, registry.QUERY_VALUE)
	if err != nil {
		return "", nil
	}
	defer k.Close()

	path, _, err := k.GetStringValue("")
	if err != nil {
		return "", nil
	}
	return path, nil
}
