// Package router owns the router child process lifecycle (spec §4.E): the
// "router runtime" is named by interface only (it is an out-of-scope
// external binary); this package supervises whatever Binary a caller wires
// up (in production, a supergraph-router executable fetched by the plugin
// installer).
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"sync"
)

// Binary is the out-of-scope router runtime, reached by interface only.
type Binary interface {
	// Start launches the router against schemaPath/configPath, listening
	// on addr, and returns a handle whose Wait/Kill control the process.
	Start(ctx context.Context, schemaPath, configPath, addr string) (Process, error)
}

// Process is a running router child.
type Process interface {
	// Kill terminates the process. It must be safe to call on an already
	// exited process.
	Kill() error
	// Alive reports whether the process is still running.
	Alive() bool
}

// State is the router supervisor's lifecycle state (spec §4.E).
type State int

const (
	Uninstalled State = iota
	Installed
	Running
)

func (s State) String() string {
	switch s {
	case Uninstalled:
		return "uninstalled"
	case Installed:
		return "installed"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Supervisor implements the router state machine from spec §4.E.
type Supervisor struct {
	binary     Binary
	schemaPath string
	configPath string
	addr       string

	mu      sync.Mutex
	state   State
	process Process
	logger  *slog.Logger
}

// NewSupervisor creates a Supervisor in the Uninstalled state.
func NewSupervisor(binary Binary, schemaPath, configPath, addr string, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		binary:     binary,
		schemaPath: schemaPath,
		configPath: configPath,
		addr:       addr,
		state:      Uninstalled,
		logger:     logger,
	}
}

// State reports the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PreflightBind checks that the router's listen address is bindable, per
// spec §4.E: "before entering Running for the first time, the supervisor
// checks that the configured router listen address is bindable (open and
// immediately release a listener)."
func (s *Supervisor) PreflightBind() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("cannot bind the router to %q because that address is already in use by another process on this machine: %w", s.addr, err)
	}
	return ln.Close()
}

// MarkInstalled transitions Uninstalled -> Installed. Called once plugin
// installation (an out-of-scope collaborator) has completed.
func (s *Supervisor) MarkInstalled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Uninstalled {
		s.state = Installed
	}
}

// Spawn starts the router. It is idempotent: spawning while Running
// performs a restart (kill then spawn). Spawn failure returns an error
// without mutating state beyond Installed (spec §4.E).
func (s *Supervisor) Spawn(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Running {
		s.killLocked()
	}

	process, err := s.binary.Start(ctx, s.schemaPath, s.configPath, s.addr)
	if err != nil {
		s.state = Installed
		return fmt.Errorf("failed to spawn router: %w", err)
	}

	s.process = process
	s.state = Running
	return nil
}

// Kill stops the router if running. It is best-effort: it never fails the
// caller; errors are logged (spec §4.E).
func (s *Supervisor) Kill() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killLocked()
}

func (s *Supervisor) killLocked() error {
	if s.process == nil {
		s.state = Installed
		return nil
	}
	err := s.process.Kill()
	if err != nil {
		s.logger.Warn("failed to kill router process", "error", err)
	}
	s.process = nil
	s.state = Installed
	return nil
}

// Alive reports whether the router is currently running (spec §3 invariant
// 2/3: alive iff the last composition succeeded and the leader isn't
// tearing down).
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Running && s.process != nil && s.process.Alive()
}

// ExecBinary is a Binary implementation that spawns a real router
// executable via os/exec, the production collaborator behind the Binary
// interface.
type ExecBinary struct {
	Path string
	Args func(schemaPath, configPath, addr string) []string
}

// Start implements Binary.
func (b ExecBinary) Start(ctx context.Context, schemaPath, configPath, addr string) (Process, error) {
	args := b.Args
	if args == nil {
		args = defaultRouterArgs
	}
	cmd := exec.CommandContext(ctx, b.Path, args(schemaPath, configPath, addr)...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd}, nil
}

func defaultRouterArgs(schemaPath, configPath, addr string) []string {
	args := []string{"--supergraph-path", schemaPath, "--listen", addr}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	return args
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

func (p *execProcess) Alive() bool {
	if p.cmd.Process == nil || p.cmd.ProcessState != nil {
		return false
	}
	return signalZero(p.cmd.Process.Pid)
}
