package popup

import (
	"context"
	"math/rand"
	"sync"

	"github.com/berrythewa/gpsio-bridge/internal/types"

	"go.uber.org/zap"
)

// State is the connection condition shown by the popup
type State int

const (
	StateChecking State = iota
	StateGood
	StateBad
	StateUpdateAvailable
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateGood:
		return "good"
	case StateBad:
		return "bad"
	case StateUpdateAvailable:
		return "update-available"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is the outcome of one status check
type Result struct {
	State            State          `json:"state"`
	ExtensionVersion string         `json:"extensionVersion"`
	HostVersion      string         `json:"hostVersion,omitempty"`
	Message          string         `json:"message,omitempty"`
	Notice           *Notice        `json:"notice,omitempty"`
	Response         types.Response `json:"response,omitempty"`
}

// Status checks whether the native host is reachable and current
type Status struct {
	backend          Backend
	extensionVersion string
	logger           *zap.Logger

	mu    sync.Mutex
	state State
	// ping id, fixed for the lifetime of the popup
	id int
}

// NewStatus creates a Status for an extension at extensionVersion
func NewStatus(backend Backend, extensionVersion string, logger *zap.Logger) *Status {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Status{
		backend:          backend,
		extensionVersion: extensionVersion,
		logger:           logger,
		state:            StateChecking,
		id:               rand.Intn(1000000),
	}
}

// State returns the state of the latest check
func (s *Status) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Status) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Check pings the host and classifies the result. The state is Bad until
// a successful reply arrives. The update notice is attached at most once
// per session.
func (s *Status) Check(ctx context.Context) Result {
	s.setState(StateBad)
	result := Result{State: StateBad, ExtensionVersion: s.extensionVersion}

	req := types.Request{
		"cmd":  types.CmdPingHost,
		"type": types.MessageType,
		"id":   s.id,
	}
	resp, err := s.backend.Ping(ctx, req)
	if err != nil {
		s.logger.Warn("Host ping failed", zap.Error(err))
		result.Message = err.Error()
		return result
	}
	result.Response = resp
	if !resp.OK() {
		result.Message = resp.Message()
		return result
	}

	result.State = StateGood
	hostVersion, ok := resp.Version()
	if !ok {
		s.logger.Warn("Host did not report a version")
		s.setState(result.State)
		return result
	}
	result.HostVersion = hostVersion

	cmp, err := CompareVersions(s.extensionVersion, hostVersion)
	if err != nil {
		s.logger.Warn("Cannot compare versions",
			zap.String("extension", s.extensionVersion),
			zap.String("host", hostVersion),
			zap.Error(err))
		s.setState(result.State)
		return result
	}
	// a newer host needs no action from the user
	if cmp > 0 {
		result.State = StateUpdateAvailable
		result.Notice = s.takeNotice(ctx, hostVersion)
	}
	s.setState(result.State)
	return result
}

func (s *Status) takeNotice(ctx context.Context, hostVersion string) *Notice {
	shown, err := s.backend.UpdatePopupShown(ctx)
	if err != nil {
		s.logger.Warn("Failed to read session flag", zap.Error(err))
	}
	if shown {
		return nil
	}
	if err := s.backend.SetUpdatePopupShown(ctx, true); err != nil {
		s.logger.Warn("Failed to set session flag", zap.Error(err))
	}
	return newNotice(s.extensionVersion, hostVersion)
}
