package nativemsg

import (
	"context"
)

// Port is one open native messaging channel to a host.
// Recv returns io.EOF once the host has disconnected.
type Port interface {
	Send(v interface{}) error
	Recv() ([]byte, error)
	Close() error
}

// Connector opens a fresh Port per call; ports are never reused
type Connector interface {
	Connect(ctx context.Context) (Port, error)
}
