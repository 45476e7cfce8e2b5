package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseVersion(t *testing.T) {
	tests := []struct {
		name    string
		version interface{}
		want    string
		ok      bool
	}{
		{"legacy integer", float64(1), "1.0", true},
		{"json number", json.Number("1"), "1.0", true},
		{"int", 2, "2.0", true},
		{"float with dot", 1.5, "1.5", true},
		{"string", "1.1.0", "1.1.0", true},
		{"empty string", "", "", false},
		{"missing", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Response{"status": "ok"}
			if tt.version != nil {
				resp["version"] = tt.version
			}
			got, ok := resp.Version()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("decoded from host json", func(t *testing.T) {
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(`{"status":"ok","version":1}`), &resp))
		v, ok := resp.Version()
		assert.True(t, ok)
		assert.Equal(t, "1.0", v)
	})
}

func TestResponseStatus(t *testing.T) {
	assert.True(t, NewOKResponse(CmdPingExtension).OK())
	assert.Equal(t, Response{"cmd": "ping-extension", "status": "ok"}, NewOKResponse(CmdPingExtension))

	resp := NewErrorResponse(MsgUnexpectedDisconnect)
	assert.False(t, resp.OK())
	assert.True(t, resp.HasStatus())
	assert.Equal(t, "Unexpected disconnect", resp.Message())

	assert.False(t, Response{"message": "x"}.HasStatus())
	assert.False(t, Response{"status": 1}.HasStatus())
}

func TestRequestWithOptions(t *testing.T) {
	req := Request{"cmd": "export", "id": 7}
	out := req.WithOptions(DefaultPreferences())

	assert.NotContains(t, req, "options")
	assert.Equal(t, DefaultPreferences(), out["options"])
	assert.Equal(t, "export", out.Cmd())
	assert.Equal(t, 7, out.ID())

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cmd":"export","id":7,"options":{"method":"time","timeSel":"72","recentSel":"3","size":true,"sizeSel":"100kB","removeNumbers":true}}`, string(data))
}

func TestPreferencesPatch(t *testing.T) {
	var patch PreferencesPatch
	assert.True(t, patch.Empty())

	method := MethodRecent
	off := false
	patch = PreferencesPatch{Method: &method, Size: &off}
	assert.False(t, patch.Empty())
	assert.Equal(t, map[string]interface{}{"method": "recent", "size": false}, patch.Values())

	prefs := DefaultPreferences().Apply(patch)
	assert.Equal(t, "recent", prefs.Method)
	assert.False(t, prefs.Size)
	assert.Equal(t, "72", prefs.TimeSel)

	full := prefs.Patch()
	assert.Len(t, full.Values(), len(PreferenceKeys))
	assert.Equal(t, prefs, Preferences{}.Apply(full))
}
