//go:build !windows

package install

import (
	"errors"

	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"
)

var errNoRegistry = errors.New("the registry only exists on windows")

func setRegistry(browser nativemsg.Browser, hostName, manifestPath string) (string, error) {
	return "", errNoRegistry
}

func deleteRegistry(browser nativemsg.Browser, hostName string) (string, error) {
	return "", errNoRegistry
}

func setRunKey(name, command string) (string, error) {
	return "", errNoRegistry
}

func deleteRunKey(name string) (string, error) {
	return "", errNoRegistry
}
