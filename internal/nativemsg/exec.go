package nativemsg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapio"
)

// ExecConnector launches the native host executable once per Connect and
// talks to it over its stdin/stdout, the way browsers do.
type ExecConnector struct {
	// HostName is the registered host name, used to find the manifest when Path is empty
	HostName string
	// Path to the host executable; resolved from the installed manifest if empty
	Path string
	// Origin is passed as the first argument, mirroring the browser
	Origin string
	// Args are appended after the origin
	Args   []string
	Logger *zap.Logger
}

// Connect starts a new host process
func (c *ExecConnector) Connect(ctx context.Context) (Port, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	path := c.Path
	if path == "" {
		m, _, err := LookupManifest(c.HostName)
		if err != nil {
			return nil, fmt.Errorf("failed to locate native host %q: %w", c.HostName, err)
		}
		path = m.Path
	}

	var args []string
	if c.Origin != "" {
		args = append(args, c.Origin)
	}
	args = append(args, c.Args...)

	cmd := exec.CommandContext(ctx, path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdout: %w", err)
	}
	stderr := &zapio.Writer{Log: logger.With(zap.String("stream", "host-stderr")), Level: zap.DebugLevel}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start native host %s: %w", path, err)
	}

	logger.Debug("Native host started",
		zap.String("path", path),
		zap.Int("pid", cmd.Process.Pid))

	return &execPort{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdout),
		stderr: stderr,
		logger: logger,
		exited: make(chan struct{}),
	}, nil
}

type execPort struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *zapio.Writer
	logger *zap.Logger

	sendMu   sync.Mutex
	waitOnce sync.Once
	waitErr  error
	exited   chan struct{}
}

func (p *execPort) Send(v interface{}) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	return WriteMessage(p.stdin, v)
}

func (p *execPort) Recv() ([]byte, error) {
	msg, err := ReadMessage(p.stdout)
	if err == nil {
		return msg, nil
	}
	if errors.Is(err, io.EOF) {
		// stdout is drained, safe to reap the process
		if werr := p.wait(); werr != nil {
			p.logger.Debug("Native host exited", zap.Error(werr))
		}
		return nil, io.EOF
	}
	return nil, err
}

func (p *execPort) Close() error {
	p.stdin.Close()
	select {
	case <-p.exited:
	default:
		p.cmd.Process.Kill()
	}
	p.wait()
	return nil
}

func (p *execPort) wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		p.stderr.Close()
		close(p.exited)
	})
	return p.waitErr
}
