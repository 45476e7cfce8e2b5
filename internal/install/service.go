package install

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
)

const (
	serviceLabel = "com.caltopo.gpsio.bridge"
	serviceUnit  = "gpsio.service"
	// value name under the Windows Run key
	runValueName = "GPSIO Bridge"
)

// Runner executes a service manager command
type Runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// ServiceOptions controls the login service that starts the daemon
type ServiceOptions struct {
	// Executable is the gpsio binary; defaults to the running one
	Executable string
	// Args are passed to the executable; defaults to "daemon start"
	Args   []string
	LogDir string
	Home   string
	GOOS   string
	// NoEnable only writes the service definition
	NoEnable bool
	Runner   Runner
	Logger   *zap.Logger
}

// ServiceResult reports where the service was defined
type ServiceResult struct {
	Path    string `json:"path"`
	Enabled bool   `json:"enabled"`
}

func (o *ServiceOptions) defaults() error {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Runner == nil {
		o.Runner = execRunner
	}
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	if o.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to find home directory: %w", err)
		}
		o.Home = home
	}
	if o.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		o.Executable = exe
	}
	if len(o.Args) == 0 {
		o.Args = []string{"daemon", "start"}
	}
	return nil
}

// ServiceFile returns the path and content of the per-user service
// definition on linux (systemd) and darwin (launchd)
func ServiceFile(opts ServiceOptions) (string, string, error) {
	switch opts.GOOS {
	case "darwin":
		path := filepath.Join(opts.Home, "Library", "LaunchAgents", serviceLabel+".plist")
		var args strings.Builder
		for _, a := range append([]string{opts.Executable}, opts.Args...) {
			fmt.Fprintf(&args, "\t\t<string>%s</string>\n", a)
		}
		content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>%s</string>
	<key>ProgramArguments</key>
	<array>
%s	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>%s</string>
	<key>StandardErrorPath</key>
	<string>%s</string>
</dict>
</plist>
`, serviceLabel, args.String(), filepath.Join(opts.LogDir, "daemon.log"), filepath.Join(opts.LogDir, "daemon-error.log"))
		return path, content, nil

	case "linux":
		path := filepath.Join(opts.Home, ".config", "systemd", "user", serviceUnit)
		content := fmt.Sprintf(`[Unit]
Description=GPSIO browser bridge
After=graphical-session.target

[Service]
ExecStart=%s
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`, commandLine(opts.Executable, opts.Args))
		return path, content, nil
	}
	return "", "", fmt.Errorf("no service file on %s", opts.GOOS)
}

func commandLine(executable string, args []string) string {
	parts := []string{quoteArg(executable)}
	for _, a := range args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if strings.ContainsAny(s, " \t\"") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// InstallService makes the daemon start at login
func InstallService(opts ServiceOptions) (*ServiceResult, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}

	if opts.GOOS == "windows" {
		key, err := setRunKey(runValueName, commandLine(opts.Executable, opts.Args))
		if err != nil {
			return nil, err
		}
		return &ServiceResult{Path: key, Enabled: true}, nil
	}

	path, content, err := ServiceFile(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create service directory: %w", err)
	}
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write service file: %w", err)
	}
	opts.Logger.Info("Wrote service file", zap.String("path", path))

	result := &ServiceResult{Path: path}
	if opts.NoEnable {
		return result, nil
	}
	if err := enableService(opts, path); err != nil {
		return result, err
	}
	result.Enabled = true
	return result, nil
}

// UninstallService stops the login service and removes its definition
func UninstallService(opts ServiceOptions) (*ServiceResult, error) {
	if err := opts.defaults(); err != nil {
		return nil, err
	}

	if opts.GOOS == "windows" {
		key, err := deleteRunKey(runValueName)
		if err != nil {
			return nil, err
		}
		return &ServiceResult{Path: key}, nil
	}

	path, _, err := ServiceFile(opts)
	if err != nil {
		return nil, err
	}
	if !opts.NoEnable {
		if err := disableService(opts, path); err != nil {
			opts.Logger.Warn("Failed to disable service", zap.Error(err))
		}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove service file: %w", err)
	}
	return &ServiceResult{Path: path}, nil
}

func enableService(opts ServiceOptions, path string) error {
	if opts.GOOS == "darwin" {
		return run(opts.Runner, "launchctl", "load", "-w", path)
	}
	if err := run(opts.Runner, "systemctl", "--user", "daemon-reload"); err != nil {
		return err
	}
	return run(opts.Runner, "systemctl", "--user", "enable", "--now", serviceUnit)
}

func disableService(opts ServiceOptions, path string) error {
	if opts.GOOS == "darwin" {
		return run(opts.Runner, "launchctl", "unload", "-w", path)
	}
	return run(opts.Runner, "systemctl", "--user", "disable", "--now", serviceUnit)
}

func run(runner Runner, name string, args ...string) error {
	output, err := runner(name, args...)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w\n%s", name, strings.Join(args, " "), err, output)
	}
	return nil
}
