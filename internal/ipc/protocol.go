package ipc

import (
	"encoding/json"
)

// Commands accepted by the daemon
const (
	CmdPing       = "ping"
	CmdRelay      = "relay"
	CmdPrefsLoad  = "prefs.load"
	CmdPrefsSave  = "prefs.save"
	CmdPrefsReset = "prefs.reset"
	CmdSessionGet = "session.get"
	CmdSessionSet = "session.set"
)

// Request represents a command sent from the CLI to the daemon.
type Request struct {
	Command string          `json:"command"`        // e.g. "relay", "prefs.load"
	Args    json.RawMessage `json:"args,omitempty"` // Command-specific arguments
}

// Response represents a reply from the daemon to the CLI.
type Response struct {
	Status  string          `json:"status"`            // "ok" or "error"
	Message string          `json:"message,omitempty"` // Human-readable message or error
	Data    json.RawMessage `json:"data,omitempty"`    // Command-specific data
}

// RelayArgs carries a native request through the daemon
type RelayArgs struct {
	Request map[string]interface{} `json:"request"`
	// Ping disables the preference merge, as for popup liveness checks
	Ping bool `json:"ping,omitempty"`
}

// SessionArgs sets the update-notice session flag
type SessionArgs struct {
	UpdatePopupShown bool `json:"updatePopupShown"`
}

// NewRequest builds a Request with args encoded as JSON
func NewRequest(command string, args interface{}) (*Request, error) {
	req := &Request{Command: command}
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		req.Args = data
	}
	return req, nil
}

// OKResponse builds a successful Response carrying data
func OKResponse(data interface{}) *Response {
	resp := &Response{Status: "ok"}
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return ErrorResponse("failed to encode response: " + err.Error())
		}
		resp.Data = encoded
	}
	return resp
}

// ErrorResponse builds a failed Response
func ErrorResponse(message string) *Response {
	return &Response{Status: "error", Message: message}
}
