package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/berrythewa/gpsio-bridge/internal/types"
)

// PageMessage is the envelope of a message posted by page code
type PageMessage struct {
	Source string          `json:"source"`
	Type   string          `json:"type"`
	Cmd    string          `json:"cmd"`
	ID     json.RawMessage `json:"id,omitempty"`
}

// Recognized reports whether the message is addressed to this bridge
func (m PageMessage) Recognized() bool {
	return m.Source == types.SourcePage && m.Type == types.MessageType
}

// Reply is the page-directed answer, correlated by the caller's id
type Reply struct {
	Source   string          `json:"source"`
	Type     string          `json:"type"`
	ID       json.RawMessage `json:"id,omitempty"`
	Response types.Response  `json:"response"`
	// Notice is a human readable message the page should show to the user
	Notice string `json:"notice,omitempty"`
}

func newReply(id json.RawMessage, resp types.Response) *Reply {
	return &Reply{
		Source:   types.SourceContentScript,
		Type:     types.MessageType,
		ID:       id,
		Response: resp,
	}
}

// parsePageMessage decodes both the envelope and the full payload. Numbers
// in the payload are kept as json.Number so ids and counts survive untouched.
func parsePageMessage(raw []byte) (PageMessage, types.Request, error) {
	var msg PageMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return PageMessage{}, nil, fmt.Errorf("invalid page message: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var req types.Request
	if err := dec.Decode(&req); err != nil {
		return PageMessage{}, nil, fmt.Errorf("invalid page message: %w", err)
	}
	return msg, req, nil
}
