package types

// Selection methods for import filtering
const (
	MethodTime   = "time"
	MethodRecent = "recent"
)

// Preference keys as persisted in the store
const (
	KeyMethod        = "method"
	KeyTimeSel       = "timeSel"
	KeyRecentSel     = "recentSel"
	KeySize          = "size"
	KeySizeSel       = "sizeSel"
	KeyRemoveNumbers = "removeNumbers"
)

// PreferenceKeys lists every stored preference key
var PreferenceKeys = []string{KeyMethod, KeyTimeSel, KeyRecentSel, KeySize, KeySizeSel, KeyRemoveNumbers}

// Preferences holds the user's import/export filter options.
// Values are stored the way the popup form produces them, so the
// time window and counts stay strings.
type Preferences struct {
	Method        string `json:"method" yaml:"method"`
	TimeSel       string `json:"timeSel" yaml:"timeSel"`
	RecentSel     string `json:"recentSel" yaml:"recentSel"`
	Size          bool   `json:"size" yaml:"size"`
	SizeSel       string `json:"sizeSel" yaml:"sizeSel"`
	RemoveNumbers bool   `json:"removeNumbers" yaml:"removeNumbers"`
}

// DefaultPreferences returns the fixed defaults applied to missing keys
func DefaultPreferences() Preferences {
	return Preferences{
		Method:        MethodTime,
		TimeSel:       "72",
		RecentSel:     "3",
		Size:          true,
		SizeSel:       "100kB",
		RemoveNumbers: true,
	}
}

// PreferencesPatch is a partial update; nil fields are left alone
type PreferencesPatch struct {
	Method        *string `json:"method,omitempty"`
	TimeSel       *string `json:"timeSel,omitempty"`
	RecentSel     *string `json:"recentSel,omitempty"`
	Size          *bool   `json:"size,omitempty"`
	SizeSel       *string `json:"sizeSel,omitempty"`
	RemoveNumbers *bool   `json:"removeNumbers,omitempty"`
}

// Patch returns a patch that sets every field of p
func (p Preferences) Patch() PreferencesPatch {
	return PreferencesPatch{
		Method:        &p.Method,
		TimeSel:       &p.TimeSel,
		RecentSel:     &p.RecentSel,
		Size:          &p.Size,
		SizeSel:       &p.SizeSel,
		RemoveNumbers: &p.RemoveNumbers,
	}
}

// Apply returns p with the patch's non-nil fields applied
func (p Preferences) Apply(patch PreferencesPatch) Preferences {
	if patch.Method != nil {
		p.Method = *patch.Method
	}
	if patch.TimeSel != nil {
		p.TimeSel = *patch.TimeSel
	}
	if patch.RecentSel != nil {
		p.RecentSel = *patch.RecentSel
	}
	if patch.Size != nil {
		p.Size = *patch.Size
	}
	if patch.SizeSel != nil {
		p.SizeSel = *patch.SizeSel
	}
	if patch.RemoveNumbers != nil {
		p.RemoveNumbers = *patch.RemoveNumbers
	}
	return p
}

// Values returns the patch as a key -> value map of the fields it sets
func (patch PreferencesPatch) Values() map[string]interface{} {
	out := make(map[string]interface{})
	if patch.Method != nil {
		out[KeyMethod] = *patch.Method
	}
	if patch.TimeSel != nil {
		out[KeyTimeSel] = *patch.TimeSel
	}
	if patch.RecentSel != nil {
		out[KeyRecentSel] = *patch.RecentSel
	}
	if patch.Size != nil {
		out[KeySize] = *patch.Size
	}
	if patch.SizeSel != nil {
		out[KeySizeSel] = *patch.SizeSel
	}
	if patch.RemoveNumbers != nil {
		out[KeyRemoveNumbers] = *patch.RemoveNumbers
	}
	return out
}

// Empty reports whether the patch sets nothing
func (patch PreferencesPatch) Empty() bool {
	return len(patch.Values()) == 0
}

// Session keys, reset on every daemon start
const KeyUpdatePopupShown = "updatePopupShown"
