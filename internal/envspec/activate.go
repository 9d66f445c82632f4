package envspec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ActivateOptions controls how the built environment is entered.
type ActivateOptions struct {
	// Argv is the command to run inside the environment. Empty spawns an
	// interactive shell.
	Argv []string
	// Shell overrides $SHELL for the interactive case.
	Shell string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// startProcess runs the session process. Package variable so tests can
// observe the composed environment without spawning anything.
var startProcess = func(ctx context.Context, argv, env []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = env
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("start session: %w", err)
	}
	return 0, nil
}

// Activate exports the descriptor variables into a fresh session
// environment, emits the onEnter banner, and hands control to the session
// process. The variables live exactly as long as that process: set at
// shell start, gone at shell exit. The parent environment is never
// touched, so activating twice produces identical state each time.
func (e *Environment) Activate(ctx context.Context, opts ActivateOptions) (int, error) {
	stdin, stdout, stderr := opts.Stdin, opts.Stdout, opts.Stderr
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	env := e.Environ(os.Environ())

	if e.Spec.OnEnter == "" {
		fmt.Fprintf(stdout, "🐍 Python environment ready → Python %s\n", e.Interpreter.Version)
	} else if err := e.runOnEnter(ctx, env, stdin, stdout, stderr); err != nil {
		return 1, fmt.Errorf("onEnter hook: %w", err)
	}

	argv := opts.Argv
	if len(argv) == 0 {
		shell := opts.Shell
		if shell == "" {
			shell = os.Getenv("SHELL")
		}
		if shell == "" {
			shell = "/bin/sh"
		}
		argv = []string{shell}
	}
	return startProcess(ctx, argv, env, stdin, stdout, stderr)
}

// runOnEnter executes the descriptor's onEnter snippet in-process. The
// hook sees the session environment plus PYTHON and PYTHON_VERSION for
// banner interpolation.
func (e *Environment) runOnEnter(ctx context.Context, env []string, stdin io.Reader, stdout, stderr io.Writer) error {
	prog, err := syntax.NewParser().Parse(strings.NewReader(e.Spec.OnEnter), "onEnter")
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	hookEnv := append(append([]string{}, env...),
		"PYTHON="+e.Interpreter.Path,
		"PYTHON_VERSION="+e.Interpreter.Version,
	)
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(hookEnv...)),
		interp.StdIO(stdin, stdout, stderr),
	)
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, prog); err != nil {
		var status interp.ExitStatus
		if errors.As(err, &status) {
			return fmt.Errorf("exit status %d", int(status))
		}
		return err
	}
	return nil
}
