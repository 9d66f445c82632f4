package envspec

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
)

func builtEnv(t *testing.T, spec *EnvironmentSpec) *Environment {
	t.Helper()
	env, err := Build(context.Background(), spec, pythonResolver())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return env
}

func stubStartProcess(t *testing.T, code int) *[][]string {
	t.Helper()
	orig := startProcess
	t.Cleanup(func() { startProcess = orig })
	captured := &[][]string{}
	startProcess = func(_ context.Context, argv, _ []string, _ io.Reader, _, _ io.Writer) (int, error) {
		*captured = append(*captured, argv)
		return code, nil
	}
	return captured
}

func TestActivate_DefaultBanner(t *testing.T) {
	env := builtEnv(t, sampleSpec())
	stubStartProcess(t, 0)

	var out bytes.Buffer
	code, err := env.Activate(context.Background(), ActivateOptions{Argv: []string{"true"}, Stdout: &out, Stderr: &out})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d", code)
	}
	want := "🐍 Python environment ready → Python 3.10.12\n"
	if out.String() != want {
		t.Errorf("banner = %q, want %q", out.String(), want)
	}
}

func TestActivate_OnEnterHook(t *testing.T) {
	spec := sampleSpec()
	spec.OnEnter = `echo "entering $PYTHON_VERSION via $PYTHON"`
	env := builtEnv(t, spec)
	stubStartProcess(t, 0)

	var out bytes.Buffer
	if _, err := env.Activate(context.Background(), ActivateOptions{Argv: []string{"true"}, Stdout: &out, Stderr: &out}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "entering 3.10.12") || !strings.Contains(got, "/opt/python/bin/python3.10") {
		t.Errorf("onEnter output = %q", got)
	}
}

func TestActivate_OnEnterFailure(t *testing.T) {
	spec := sampleSpec()
	spec.OnEnter = "exit 3"
	env := builtEnv(t, spec)
	started := stubStartProcess(t, 0)

	var out bytes.Buffer
	code, err := env.Activate(context.Background(), ActivateOptions{Argv: []string{"true"}, Stdout: &out, Stderr: &out})
	if err == nil {
		t.Fatal("expected error from failing onEnter hook")
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if len(*started) != 0 {
		t.Error("session started despite failed onEnter hook")
	}
}

func TestActivate_ExitCodePropagation(t *testing.T) {
	env := builtEnv(t, sampleSpec())
	stubStartProcess(t, 42)

	var out bytes.Buffer
	code, err := env.Activate(context.Background(), ActivateOptions{Argv: []string{"false"}, Stdout: &out, Stderr: &out})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if code != 42 {
		t.Errorf("exit code = %d, want 42", code)
	}
}

func TestActivate_DefaultShellArgv(t *testing.T) {
	env := builtEnv(t, sampleSpec())
	started := stubStartProcess(t, 0)

	var out bytes.Buffer
	if _, err := env.Activate(context.Background(), ActivateOptions{Shell: "/bin/zsh", Stdout: &out, Stderr: &out}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if len(*started) != 1 || len((*started)[0]) != 1 || (*started)[0][0] != "/bin/zsh" {
		t.Errorf("argv = %v, want [/bin/zsh]", *started)
	}
}
