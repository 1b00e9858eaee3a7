// Package config implements auto-detection of Flutter project settings
// from pubspec.yaml and l10n.yaml, and loading of translocale.yaml.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectType indicates what kind of project the root holds.
type ProjectType string

const (
	ProjectTypeFlutter ProjectType = "flutter" // pubspec.yaml with a flutter dependency
	ProjectTypeDart    ProjectType = "dart"    // pubspec.yaml without flutter
	ProjectTypeUnknown ProjectType = "unknown"
)

// Default Flutter gen-l10n settings, used when l10n.yaml omits them.
const (
	DefaultARBDir                 = "lib/l10n"
	DefaultTemplateARBFile        = "app_en.arb"
	DefaultOutputLocalizationFile = "app_localizations.dart"
)

// L10nSettings mirrors the parts of Flutter's l10n.yaml that decide where
// bundles go and what the generator produces.
type L10nSettings struct {
	ARBDir                 string `yaml:"arb-dir"`
	TemplateARBFile        string `yaml:"template-arb-file"`
	OutputLocalizationFile string `yaml:"output-localization-file"`
	OutputDir              string `yaml:"output-dir"`
	SyntheticPackage       *bool  `yaml:"synthetic-package"`
}

// Project holds auto-detected project settings.
type Project struct {
	// Root is the absolute project root.
	Root string
	// Name is the pubspec package name, or the directory name.
	Name string
	// Version from pubspec.yaml, or "0.0.0".
	Version string
	Type    ProjectType
	// L10n is nil when the project has no l10n.yaml.
	L10n *L10nSettings
}

type pubspec struct {
	Name         string         `yaml:"name"`
	Version      string         `yaml:"version"`
	Dependencies map[string]any `yaml:"dependencies"`
}

// Detect auto-detects project settings from the root directory.
func Detect(rootDir string) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := &Project{
		Root: absRoot,
		Type: ProjectTypeUnknown,
	}

	if spec, err := readPubspec(filepath.Join(absRoot, "pubspec.yaml")); err == nil {
		p.Name = spec.Name
		p.Version = spec.Version
		p.Type = ProjectTypeDart
		if _, ok := spec.Dependencies["flutter"]; ok {
			p.Type = ProjectTypeFlutter
		}
	}

	if l10n, err := readL10n(filepath.Join(absRoot, "l10n.yaml")); err == nil {
		p.L10n = l10n
	}

	// Fallback to directory name
	if p.Name == "" {
		p.Name = filepath.Base(absRoot)
	}
	if p.Version == "" {
		p.Version = "0.0.0"
	}
	return p
}

func readPubspec(path string) (*pubspec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec pubspec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

func readL10n(path string) (*L10nSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var l L10nSettings
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ARBDir returns the bundle directory relative to the project root.
func (p *Project) ARBDir() string {
	if p.L10n != nil && p.L10n.ARBDir != "" {
		return filepath.FromSlash(p.L10n.ARBDir)
	}
	return filepath.FromSlash(DefaultARBDir)
}

// Prefix returns the bundle file prefix implied by the template ARB file
// ("app_en.arb" -> "app").
func (p *Project) Prefix() string {
	tmpl := DefaultTemplateARBFile
	if p.L10n != nil && p.L10n.TemplateARBFile != "" {
		tmpl = p.L10n.TemplateARBFile
	}
	name := strings.TrimSuffix(filepath.Base(tmpl), ".arb")
	if i := strings.Index(name, "_"); i > 0 {
		return name[:i]
	}
	return name
}

// GeneratedFile returns the localization class the generator writes,
// relative to the project root, or "" when it lands in the synthetic
// package and cannot be checked on disk.
func (p *Project) GeneratedFile() string {
	if p.L10n == nil {
		return ""
	}
	out := p.L10n.OutputLocalizationFile
	if out == "" {
		out = DefaultOutputLocalizationFile
	}
	switch {
	case p.L10n.OutputDir != "":
		return filepath.Join(filepath.FromSlash(p.L10n.OutputDir), out)
	case p.L10n.SyntheticPackage != nil && !*p.L10n.SyntheticPackage:
		return filepath.Join(p.ARBDir(), out)
	}
	return ""
}
