// Package quasar ties a serialized program to the environment it runs in: a
// TOML runfile names the program file, whether dispatches need approval, and
// any scripted stand-ins for external functions.
package quasar

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/quasar-dev/quasar/ast"
	"github.com/quasar-dev/quasar/external"
)

type Runfile struct {
	Run       RunDetails              `toml:""`
	Externals map[string]ExternalStub `toml:",omitempty"`

	dir string
}

type RunDetails struct {
	Program  string `toml:",omitempty"`
	Approval bool   `toml:",omitempty"`
}

// ExternalStub declares a scripted external function: a Starlark expression
// producing the result, and an optional simulated latency.
type ExternalStub struct {
	Result  string   `toml:",omitempty"`
	Latency Duration `toml:",omitempty"`
}

// Duration lets TOML carry values like "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func ParseRunfile(f io.Reader) (*Runfile, error) {
	var out Runfile
	_, err := toml.NewDecoder(f).Decode(&out)
	return &out, err
}

// LoadRunfileFromFile parses a runfile and resolves the program path relative
// to it. When the runfile names no program, the sibling file with a .json
// extension is assumed.
func LoadRunfileFromFile(path string) (*Runfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := ParseRunfile(f)
	if err != nil {
		return nil, err
	}
	if r.Run.Program == "" {
		name := filepath.Base(path)
		parts := strings.Split(name, ".")
		if len(parts) > 1 {
			parts = parts[:len(parts)-1]
		}
		parts = append(parts, "json")
		r.Run.Program = strings.Join(parts, ".")
	}
	r.dir = filepath.Dir(path)
	r.Run.Program = filepath.Clean(filepath.Join(r.dir, r.Run.Program))
	return r, nil
}

// LoadProgram reads and decodes the program the runfile names.
func (r *Runfile) LoadProgram() (ast.Program, error) {
	data, err := os.ReadFile(r.Run.Program)
	if err != nil {
		return ast.Program{}, err
	}
	return ast.UnmarshalProgram(data)
}

// BuildRegistry returns a registry holding the builtins, with the runfile's
// scripted stubs registered over them.
func (r *Runfile) BuildRegistry() *external.Registry {
	registry := external.NewRegistry()
	external.RegisterBuiltins(registry)
	for name, stub := range r.Externals {
		registry.Register(name, &external.ScriptedFunction{
			Name:    name,
			Expr:    stub.Result,
			Latency: time.Duration(stub.Latency),
		})
	}
	return registry
}
