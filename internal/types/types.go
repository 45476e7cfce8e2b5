package types

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Response statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// MsgUnexpectedDisconnect is the synthetic message for a host that went
// away without replying
const MsgUnexpectedDisconnect = "Unexpected disconnect"

// Request is a command sent to the native host. Fields other than cmd are
// command specific and are passed through untouched.
type Request map[string]interface{}

// Cmd returns the request's command name, or "" if absent
func (r Request) Cmd() string {
	s, _ := r["cmd"].(string)
	return s
}

// ID returns the caller-supplied correlation id, if any
func (r Request) ID() interface{} {
	return r["id"]
}

// Clone returns a shallow copy of the request
func (r Request) Clone() Request {
	c := make(Request, len(r)+1)
	for k, v := range r {
		c[k] = v
	}
	return c
}

// WithOptions returns a copy of the request carrying prefs under "options"
func (r Request) WithOptions(prefs Preferences) Request {
	c := r.Clone()
	c["options"] = prefs
	return c
}

// Response is a reply produced by the native host or synthesized by the relay.
// Every Response delivered to a caller has a status field.
type Response map[string]interface{}

// NewErrorResponse builds a synthetic error Response
func NewErrorResponse(message string) Response {
	return Response{"status": StatusError, "message": message}
}

// NewOKResponse builds a successful Response for cmd
func NewOKResponse(cmd string) Response {
	return Response{"cmd": cmd, "status": StatusOK}
}

// Status returns the response status, or "" if it is missing
func (r Response) Status() string {
	s, _ := r["status"].(string)
	return s
}

// HasStatus reports whether the response carries a string status field
func (r Response) HasStatus() bool {
	_, ok := r["status"].(string)
	return ok
}

// OK reports whether the response status is "ok"
func (r Response) OK() bool {
	return r.Status() == StatusOK
}

// Message returns the human readable message, if any
func (r Response) Message() string {
	s, _ := r["message"].(string)
	return s
}

// Version returns the version reported by the host as a string.
// The first host release reported the bare number 1, which reads as "1.0".
func (r Response) Version() (string, bool) {
	switch v := r["version"].(type) {
	case string:
		return v, v != ""
	case float64:
		return numericVersion(strconv.FormatFloat(v, 'f', -1, 64)), true
	case json.Number:
		return numericVersion(v.String()), true
	case int:
		return numericVersion(strconv.Itoa(v)), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

func numericVersion(s string) string {
	for _, c := range s {
		if c == '.' {
			return s
		}
	}
	return s + ".0"
}
