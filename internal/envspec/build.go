package envspec

import (
	"context"
	"maps"
)

// Environment is a built, activatable environment. It is only ever
// returned fully resolved; a failed build leaves nothing usable behind.
type Environment struct {
	// Spec is the descriptor the environment was built from.
	Spec *EnvironmentSpec
	// Interpreter is the resolved runtime.
	Interpreter Interpreter

	vars map[string]string
}

// Build resolves the interpreter pin and every declared dependency. A nil
// resolver selects PathResolver. The only failure modes are
// *UnresolvableVersionError and *UnresolvableDependencyError.
func Build(ctx context.Context, spec *EnvironmentSpec, r Resolver) (*Environment, error) {
	if r == nil {
		r = PathResolver{}
	}
	interp, err := r.ResolveInterpreter(ctx, spec.InterpreterVersion)
	if err != nil {
		return nil, err
	}
	for _, dep := range spec.ParsedDependencies() {
		if err := r.ResolveDependency(ctx, interp, dep); err != nil {
			return nil, err
		}
	}
	vars := make(map[string]string, len(spec.ShellVariables))
	maps.Copy(vars, spec.ShellVariables)
	return &Environment{Spec: spec, Interpreter: interp, vars: vars}, nil
}

// Vars returns a copy of the variables the environment exports.
func (e *Environment) Vars() map[string]string {
	out := make(map[string]string, len(e.vars))
	maps.Copy(out, e.vars)
	return out
}

// Environ composes the session environment: the base entries followed by
// the descriptor variables in sorted-name order. Duplicate keys resolve to
// the descriptor value (os/exec uses the last entry for a key).
func (e *Environment) Environ(base []string) []string {
	out := make([]string, 0, len(base)+len(e.vars))
	out = append(out, base...)
	for _, name := range e.Spec.sortedVarNames() {
		out = append(out, name+"="+e.vars[name])
	}
	return out
}
