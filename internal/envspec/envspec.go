// Package envspec implements the development environment descriptor: a
// declarative file naming an interpreter release, a set of packages, and
// the shell state to establish when the environment is activated.
//
// The descriptor is static. Its whole lifecycle is a single
// build→activate transition: Build resolves the interpreter and every
// dependency (the only two failure modes), Activate exports the declared
// variables, emits the onEnter banner, and hands control to a shell or
// command.
package envspec

import (
	"fmt"
	"sort"
	"strings"
)

// EnvironmentSpec is a parsed environment descriptor.
type EnvironmentSpec struct {
	// InterpreterVersion pins the runtime release, e.g. "3.10".
	InterpreterVersion string `json:"interpreterVersion"`
	// Dependencies are package identifiers, optionally "name:module" when
	// the import module differs from the package name.
	Dependencies []string `json:"dependencies"`
	// ShellVariables are exported into the activated session.
	ShellVariables map[string]string `json:"shellVariables"`
	// OnEnter is a shell snippet run once at activation. Empty selects the
	// default banner.
	OnEnter string `json:"onEnter"`

	// FilePath is where the descriptor was loaded from, for diagnostics.
	FilePath string `json:"-"`
}

// Dependency is a declared package with its import module name.
type Dependency struct {
	// Name is the package identifier as the package index knows it.
	Name string
	// Module is the name importable inside the interpreter.
	Module string
}

func parseDependency(s string) Dependency {
	name, module, found := strings.Cut(s, ":")
	if !found || module == "" {
		module = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	}
	return Dependency{Name: name, Module: module}
}

// ParsedDependencies returns the dependency set in declaration order.
func (s *EnvironmentSpec) ParsedDependencies() []Dependency {
	deps := make([]Dependency, len(s.Dependencies))
	for i, d := range s.Dependencies {
		deps[i] = parseDependency(d)
	}
	return deps
}

// validate enforces the constraints the schema cannot express.
func (s *EnvironmentSpec) validate() error {
	seen := make(map[string]struct{}, len(s.Dependencies))
	for _, d := range s.ParsedDependencies() {
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("duplicate dependency %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

// sortedVarNames returns shellVariables keys in stable order.
func (s *EnvironmentSpec) sortedVarNames() []string {
	names := make([]string, 0, len(s.ShellVariables))
	for k := range s.ShellVariables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
