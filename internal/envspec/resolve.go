package envspec

import (
	"context"
	"os/exec"
	"regexp"
	"strings"
)

// Interpreter is a resolved runtime release.
type Interpreter struct {
	// Path is the executable location.
	Path string
	// Version is the full reported version, e.g. "3.10.14".
	Version string
}

// Resolver locates the interpreter release and the declared packages. Both
// checks run at build time; activation never resolves anything.
type Resolver interface {
	ResolveInterpreter(ctx context.Context, version string) (Interpreter, error)
	ResolveDependency(ctx context.Context, interp Interpreter, dep Dependency) error
}

// Seams for tests; production uses the real toolchain.
var (
	lookPath   = exec.LookPath
	runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
		out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
		return string(out), err
	}
)

// PathResolver resolves interpreters from PATH and checks dependencies by
// importing them with the resolved interpreter. No network is consulted.
type PathResolver struct{}

var versionRe = regexp.MustCompile(`Python ([0-9][0-9.]*)`)

// ResolveInterpreter probes version-specific executable names first, then
// generic ones, and accepts the first whose reported version matches the
// pin.
func (PathResolver) ResolveInterpreter(ctx context.Context, version string) (Interpreter, error) {
	tried := interpreterCandidates(version)
	for _, name := range tried {
		path, err := lookPath(name)
		if err != nil {
			continue
		}
		out, err := runCommand(ctx, path, "--version")
		if err != nil {
			continue
		}
		m := versionRe.FindStringSubmatch(out)
		if m == nil {
			continue
		}
		full := strings.TrimRight(m[1], ".")
		if matchesPin(full, version) {
			return Interpreter{Path: path, Version: full}, nil
		}
	}
	return Interpreter{}, &UnresolvableVersionError{Version: version, Tried: tried}
}

// ResolveDependency verifies the package is importable with the resolved
// interpreter.
func (PathResolver) ResolveDependency(ctx context.Context, interp Interpreter, dep Dependency) error {
	if _, err := runCommand(ctx, interp.Path, "-c", "import "+dep.Module); err != nil {
		return &UnresolvableDependencyError{Name: dep.Name, Cause: err}
	}
	return nil
}

func interpreterCandidates(version string) []string {
	names := []string{"python" + version}
	if major, _, found := strings.Cut(version, "."); found {
		names = append(names, "python"+major)
	}
	names = append(names, "python3", "python")

	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// matchesPin reports whether the full version is the pinned release or a
// patch release of it.
func matchesPin(full, pin string) bool {
	return full == pin || strings.HasPrefix(full, pin+".")
}
