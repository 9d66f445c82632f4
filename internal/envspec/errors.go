package envspec

import (
	"fmt"
	"strings"
)

// UnresolvableVersionError reports that no interpreter release satisfying
// the pin could be located. It is detected at build time, never later.
type UnresolvableVersionError struct {
	// Version is the requested pin.
	Version string
	// Tried lists the executable names that were probed.
	Tried []string
}

func (e *UnresolvableVersionError) Error() string {
	if len(e.Tried) > 0 {
		return fmt.Sprintf("unresolvable interpreter version %q (tried %s)", e.Version, strings.Join(e.Tried, ", "))
	}
	return fmt.Sprintf("unresolvable interpreter version %q", e.Version)
}

// UnresolvableDependencyError reports that a declared package could not be
// located by the resolver. It is detected at build time, never later.
type UnresolvableDependencyError struct {
	// Name is the package identifier from the descriptor.
	Name string
	// Cause is the underlying probe failure, if any.
	Cause error
}

func (e *UnresolvableDependencyError) Error() string {
	return fmt.Sprintf("unresolvable dependency %q", e.Name)
}

func (e *UnresolvableDependencyError) Unwrap() error {
	return e.Cause
}
