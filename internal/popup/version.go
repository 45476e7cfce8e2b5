package popup

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrNoVersion is returned when a version string is empty
var ErrNoVersion = errors.New("no version")

// CompareVersions compares the extension version with the host version.
// It returns a positive number when the extension is newer (the host has
// an update available), zero when equal and negative when the host is newer.
// Segments compare numerically, so 1.10 is newer than 1.9.
func CompareVersions(extension, host string) (int, error) {
	ev, err := parseVersion(extension)
	if err != nil {
		return 0, fmt.Errorf("extension version: %w", err)
	}
	hv, err := parseVersion(host)
	if err != nil {
		return 0, fmt.Errorf("host version: %w", err)
	}
	return ev.Compare(hv), nil
}

func parseVersion(s string) (*semver.Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrNoVersion
	}
	return semver.NewVersion(s)
}
