package popup

import (
	"fmt"
	"strings"
)

// updateDetails holds what users should know when the extension is at the
// given version but the host is older.
var updateDetails = map[string]string{
	"1.1.0": `Critical?  NO:  you can continue to use GPSIO now.
What changed?  Until the host is updated, the 'Remove numbers from assignment names' checkbox setting in the GPSIO filter settings popup window will be ignored, and numbers will always be removed from exported assignment names (when preceded by a space).  The checkbox value will be respected after the update.`,
	"1.0": "These are the 1.0 details.",
}

// NoticeTitle heads every update notice
const NoticeTitle = "A new version of the GPSIO host is available.  Please tell the administrator."

// Notice tells the user that the host is older than the extension
type Notice struct {
	Title          string `json:"title"`
	Details        string `json:"details,omitempty"`
	CurrentVersion string `json:"currentVersion"`
	NewestVersion  string `json:"newestVersion"`
}

func newNotice(extensionVersion, hostVersion string) *Notice {
	return &Notice{
		Title:          NoticeTitle,
		Details:        updateDetails[extensionVersion],
		CurrentVersion: hostVersion,
		NewestVersion:  extensionVersion,
	}
}

// String renders the notice as plain text
func (n *Notice) String() string {
	var b strings.Builder
	b.WriteString(n.Title)
	b.WriteString("\n")
	if n.Details != "" {
		b.WriteString(n.Details)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Current host version: %s --> Newest host version: %s", n.CurrentVersion, n.NewestVersion)
	return b.String()
}
