package envspec

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed envspec_schema.cue
var schemaSource string

// Parse reads and parses a descriptor file from the given path.
func Parse(path string) (*EnvironmentSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptor at %s: %w", path, err)
	}
	return ParseBytes(data, path)
}

// ParseBytes parses descriptor content: compile the embedded schema,
// compile the user data, unify, validate for concreteness, and decode.
func ParseBytes(data []byte, path string) (*EnvironmentSpec, error) {
	cctx := cuecontext.New()

	schema := cctx.CompileString(schemaSource)
	if schema.Err() != nil {
		return nil, fmt.Errorf("internal error: compile descriptor schema: %w", schema.Err())
	}
	root := schema.LookupPath(cue.ParsePath("#EnvSpec"))
	if root.Err() != nil {
		return nil, fmt.Errorf("internal error: schema definition #EnvSpec not found: %w", root.Err())
	}

	val := cctx.CompileBytes(data, cue.Filename(path))
	if val.Err() != nil {
		return nil, formatCUEError(val.Err(), path)
	}

	unified := root.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err, path)
	}

	var spec EnvironmentSpec
	if err := unified.Decode(&spec); err != nil {
		return nil, formatCUEError(err, path)
	}
	spec.FilePath = path

	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &spec, nil
}

// formatCUEError prefixes each CUE error with the field path so messages
// read as "<file>: <path>: <message>".
func formatCUEError(err error, path string) error {
	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", path, err)
	}
	var lines []string
	for _, e := range cueErrs {
		fieldPath := strings.Join(cueerrors.Path(e), ".")
		msg := e.Error()
		if fieldPath != "" && !strings.Contains(msg, fieldPath) {
			msg = fieldPath + ": " + msg
		}
		lines = append(lines, msg)
	}
	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", path, lines[0])
	}
	return fmt.Errorf("%s: invalid descriptor:\n  %s", path, strings.Join(lines, "\n  "))
}
