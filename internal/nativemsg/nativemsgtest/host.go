// Package nativemsgtest provides an in-memory native host for tests.
package nativemsgtest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/berrythewa/gpsio-bridge/internal/nativemsg"
)

// HandlerFunc produces the frames a host sends back for one request.
// It runs on its own goroutine and may block.
type HandlerFunc func(req map[string]interface{}) [][]byte

// Host is a nativemsg.Connector backed by a HandlerFunc
type Host struct {
	Handler HandlerFunc
	// ConnectErr, if set, is returned by every Connect
	ConnectErr error

	mu       sync.Mutex
	connects int
	requests []map[string]interface{}
}

// NewHost returns a Host answering with handler
func NewHost(handler HandlerFunc) *Host {
	return &Host{Handler: handler}
}

// Connect opens a new in-memory port
func (h *Host) Connect(ctx context.Context) (nativemsg.Port, error) {
	h.mu.Lock()
	h.connects++
	h.mu.Unlock()

	if h.ConnectErr != nil {
		return nil, h.ConnectErr
	}
	return &port{
		host:   h,
		frames: make(chan []byte),
		closed: make(chan struct{}),
	}, nil
}

// Connects returns how many ports were opened
func (h *Host) Connects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects
}

// Requests returns the decoded requests received so far
func (h *Host) Requests() []map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]map[string]interface{}, len(h.requests))
	copy(out, h.requests)
	return out
}

type port struct {
	host      *Host
	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	sendOnce  sync.Once
}

func (p *port) Send(v interface{}) error {
	select {
	case <-p.closed:
		return errors.New("port closed")
	default:
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var req map[string]interface{}
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}

	p.host.mu.Lock()
	p.host.requests = append(p.host.requests, req)
	p.host.mu.Unlock()

	// a native host reads exactly one request
	p.sendOnce.Do(func() {
		go p.serve(req)
	})
	return nil
}

func (p *port) serve(req map[string]interface{}) {
	defer close(p.frames)
	if p.host.Handler == nil {
		return
	}
	for _, frame := range p.host.Handler(req) {
		select {
		case p.frames <- frame:
		case <-p.closed:
			return
		}
	}
}

func (p *port) Recv() ([]byte, error) {
	select {
	case frame, ok := <-p.frames:
		if !ok {
			return nil, io.EOF
		}
		return frame, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *port) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

// Chunks encodes each part as a JSON string frame, the way hosts split replies
func Chunks(parts ...string) [][]byte {
	frames := make([][]byte, 0, len(parts))
	for _, part := range parts {
		frame, _ := json.Marshal(part)
		frames = append(frames, frame)
	}
	return frames
}

// Reply encodes v as JSON and returns it as a single string frame
func Reply(v interface{}) [][]byte {
	data, _ := json.Marshal(v)
	return Chunks(string(data))
}

// Split encodes v as JSON and splits it into n string frames
func Split(v interface{}, n int) [][]byte {
	data, _ := json.Marshal(v)
	s := string(data)
	if n < 1 {
		n = 1
	}
	size := (len(s) + n - 1) / n
	var parts []string
	for len(s) > 0 {
		if len(s) < size {
			size = len(s)
		}
		parts = append(parts, s[:size])
		s = s[size:]
	}
	return Chunks(parts...)
}
