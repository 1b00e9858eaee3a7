package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minios-linux/translocale/bundle"
	"github.com/minios-linux/translocale/generator"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// File is the top-level translocale.yaml structure.
type File struct {
	API       API       `yaml:"api"`
	Output    Output    `yaml:"output"`
	Generator Generator `yaml:"generator"`
	// MaxConcurrent bounds how many languages are compiled at once.
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
}

// API describes where the translation document is fetched from.
type API struct {
	URL     string        `yaml:"url,omitempty"`
	APIKey  string        `yaml:"api_key,omitempty"`
	Project string        `yaml:"project,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Proxy overrides HTTP_PROXY/HTTPS_PROXY.
	Proxy string `yaml:"proxy,omitempty"`
}

// Output describes where bundles are written.
type Output struct {
	// Dir is relative to the project root.
	Dir           string `yaml:"dir,omitempty"`
	Prefix        string `yaml:"prefix,omitempty"`
	FallbacksFile string `yaml:"fallbacks_file,omitempty"`
	// OnCollision is "suffix", "overwrite" or "fail".
	OnCollision string `yaml:"on_collision,omitempty"`
}

// Generator configures the localization class generator.
type Generator struct {
	Enabled *bool    `yaml:"enabled,omitempty"`
	Command []string `yaml:"command,omitempty"`
	// Dir is the working directory relative to the project root.
	Dir string `yaml:"dir,omitempty"`
	// Expect lists artifacts that must exist after a run.
	Expect []string `yaml:"expect,omitempty"`
}

// IsEnabled reports whether the generator runs after bundles are written.
func (g Generator) IsEnabled() bool { return g.Enabled == nil || *g.Enabled }

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// FileName is the default config file name.
const FileName = "translocale.yaml"

// Defaults.
const (
	DefaultFallbacksFile = "fallbacks.json"
	DefaultMaxConcurrent = 1
	DefaultTimeout       = 30 * time.Second
)

// Environment overrides.
const (
	EnvAPIURL = "TRANSLOCALE_API_URL"
	EnvAPIKey = "TRANSLOCALE_API_KEY"
)

// Default returns the configuration used when no file exists, with
// defaults taken from the detected project.
func Default(p *Project) *File {
	f := &File{}
	f.applyDefaults(p)
	return f
}

// Load reads path, or translocale.yaml in the project root when path is
// empty. A missing default file yields Default(p); a missing explicit
// file is an error.
func Load(p *Project, path string) (*File, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(p.Root, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(p), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, describeYAMLError(err))
	}

	f.applyDefaults(p)
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

var unknownFieldRe = regexp.MustCompile(`field (\S+) not found in type \S+`)

// describeYAMLError rewrites strict-decoding failures into
// "unsupported key" messages.
func describeYAMLError(err error) error {
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return err
	}
	msgs := make([]string, len(te.Errors))
	for i, e := range te.Errors {
		msgs[i] = unknownFieldRe.ReplaceAllString(e, `unsupported key "$1"`)
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (f *File) applyDefaults(p *Project) {
	if f.Output.Dir == "" {
		f.Output.Dir = p.ARBDir()
	}
	if f.Output.Prefix == "" {
		f.Output.Prefix = p.Prefix()
	}
	if f.Output.FallbacksFile == "" {
		f.Output.FallbacksFile = DefaultFallbacksFile
	}
	if f.Output.OnCollision == "" {
		f.Output.OnCollision = string(bundle.CollisionSuffix)
	}
	if len(f.Generator.Command) == 0 {
		f.Generator.Command = append([]string(nil), generator.DefaultCommand...)
	}
	if len(f.Generator.Expect) == 0 {
		if gen := p.GeneratedFile(); gen != "" {
			f.Generator.Expect = []string{gen}
		}
	}
	if f.MaxConcurrent == 0 {
		f.MaxConcurrent = DefaultMaxConcurrent
	}
	if f.API.Timeout == 0 {
		f.API.Timeout = DefaultTimeout
	}
}

// Validate checks values that defaults cannot fix.
func (f *File) Validate() error {
	if _, err := bundle.ParseCollisionPolicy(f.Output.OnCollision); err != nil {
		return fmt.Errorf("output.on_collision: %w", err)
	}
	if f.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", f.MaxConcurrent)
	}
	if f.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", f.API.Timeout)
	}
	if strings.ContainsAny(f.Output.Prefix, `/\`) {
		return fmt.Errorf("output.prefix %q must not contain path separators", f.Output.Prefix)
	}
	return nil
}

// ApplyEnv overrides API settings from the environment.
func (f *File) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIURL); v != "" {
		f.API.URL = v
	}
	if v := getenv(EnvAPIKey); v != "" {
		f.API.APIKey = v
	}
}

// CollisionPolicy returns the validated collision policy.
func (f *File) CollisionPolicy() bundle.CollisionPolicy {
	p, _ := bundle.ParseCollisionPolicy(f.Output.OnCollision)
	return p
}

// ---------------------------------------------------------------------------
// Scaffolding
// ---------------------------------------------------------------------------

// Marshal encodes f as YAML.
func (f *File) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ErrExists is returned by WriteNew when the file is already there.
var ErrExists = errors.New("config file already exists")

// WriteNew writes f to path, refusing to overwrite an existing file.
func (f *File) WriteNew(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := out.Write(append([]byte(header), data...)); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return out.Close()
}

const header = `# translocale configuration.
# The API key can also be set with TRANSLOCALE_API_KEY.
`
