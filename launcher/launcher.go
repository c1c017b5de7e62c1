// Package launcher starts the relay server binary and propagates its exit
// status. It is the only parent the server ever has inside the container, so
// its lifetime is the container's lifetime.
package launcher

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"tradewire/config"
)

// LaunchError reports a target binary that could not be started. A target
// that started and then exited badly is not a LaunchError; its exit code is
// propagated instead.
type LaunchError struct {
	Target string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launcher: cannot start %q: %v", e.Target, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Process is a single launch of the server binary. There is no restart logic
// here: when the child dies, the launcher dies with its status and the
// platform decides what happens next.
type Process struct {
	target string
	bind   config.BindConfig
	cmd    *exec.Cmd
}

// New prepares a launch of target with the given listen address.
func New(target string, bind config.BindConfig) *Process {
	return &Process{target: target, bind: bind}
}

// Command builds the server invocation. The listen address travels as argv,
// so the child never re-reads PORT and can never disagree with the launcher
// about where it should be listening.
func Command(target string, bind config.BindConfig) *exec.Cmd {
	cmd := exec.Command(target, "-host", bind.Host, "-port", strconv.Itoa(bind.Port))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	return cmd
}

// Start resolves and starts the target binary. An unresolvable or
// non-executable target yields a *LaunchError.
func (p *Process) Start() error {
	if p.target == "" {
		return &LaunchError{Target: p.target, Err: errors.New("no target binary configured")}
	}
	resolved, err := exec.LookPath(p.target)
	if err != nil {
		return &LaunchError{Target: p.target, Err: err}
	}
	cmd := Command(resolved, p.bind)
	if err := cmd.Start(); err != nil {
		return &LaunchError{Target: p.target, Err: err}
	}
	p.cmd = cmd
	return nil
}

// Pid returns the child process id after a successful Start.
func (p *Process) Pid() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Wait blocks until the child exits, forwarding termination signals to it,
// and returns the child's exit code. A signal-killed child maps to
// 128+signum, matching shell convention.
func (p *Process) Wait() (int, error) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	for {
		select {
		case sig := <-sigs:
			_ = p.cmd.Process.Signal(sig)
		case err := <-done:
			return exitStatus(err)
		}
	}
}

// Run starts the target and blocks until it exits. It is Start followed by
// Wait for callers that have nothing to do in between.
func Run(target string, bind config.BindConfig) (int, error) {
	p := New(target, bind)
	if err := p.Start(); err != nil {
		return 0, err
	}
	return p.Wait()
}

func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return 1, fmt.Errorf("launcher: wait: %w", err)
}
