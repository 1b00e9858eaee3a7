// Package pipeline drives a translation document through bundle assembly
// and writes one ARB file per language.
//
// Languages are independent: a failure (error or panic) while assembling
// or writing one language is recorded in the Report and the remaining
// languages still complete.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/minios-linux/translocale/arbfile"
	"github.com/minios-linux/translocale/bundle"
	"github.com/minios-linux/translocale/lockfile"
	"github.com/minios-linux/translocale/payload"
)

// Defaults applied to zero Options fields.
const (
	DefaultPrefix        = "app"
	DefaultFallbacksFile = "fallbacks.json"
)

// Options configures Run.
type Options struct {
	OutputDir     string
	Prefix        string
	FallbacksFile string
	// MaxConcurrent bounds how many languages are processed at once.
	MaxConcurrent int
	Collision     bundle.CollisionPolicy
	// Lock, when set, skips bundles whose content is unchanged and records
	// the checksums of written ones. The caller saves it.
	Lock   *lockfile.LockFile
	Force  bool
	Logger *zap.Logger
}

// LanguageFailure records one language that could not be produced.
type LanguageFailure struct {
	Locale string
	Err    error
}

func (f LanguageFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Locale, f.Err)
}

func (f LanguageFailure) Unwrap() error { return f.Err }

// Report summarizes a run. Written and Unchanged hold bundle paths in
// document order.
type Report struct {
	Written   []string
	Unchanged []string
	Failures  []LanguageFailure
	// Fallbacks is the fallbacks file path, empty when none was written.
	Fallbacks string
	Warnings  int
}

// Changed reports whether any bundle was written.
func (r *Report) Changed() bool { return len(r.Written) > 0 }

// Err joins the per-language failures, or returns nil.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	locales := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
		locales[i] = f.Locale
	}
	return fmt.Errorf("%d language(s) failed (%s): %w", len(r.Failures), strings.Join(locales, ", "), errors.Join(errs...))
}

type outcome struct {
	path      string
	unchanged bool
	warnings  int
}

// Run writes a bundle for every language of doc. The returned error is
// reserved for failures that abort the whole run; per-language failures
// are in the Report.
func Run(ctx context.Context, doc *payload.Document, opts Options) (*Report, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.FallbacksFile == "" {
		opts.FallbacksFile = DefaultFallbacksFile
	}
	if opts.Collision == "" {
		opts.Collision = bundle.CollisionSuffix
	}
	log := opts.Logger

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	outcomes := make([]outcome, len(doc.Languages))
	indexes := make([]int, len(doc.Languages))
	for i := range indexes {
		indexes[i] = i
	}

	errs := runParallel(ctx, indexes, opts.MaxConcurrent, func(ctx context.Context, i int) error {
		o, err := processLanguage(ctx, doc.Languages[i], doc.Meta, opts)
		outcomes[i] = o
		return err
	})

	report := &Report{}
	for i, lang := range doc.Languages {
		if err := errs[i]; err != nil {
			log.Error("language failed", zap.String("locale", lang.Code), zap.Error(err))
			report.Failures = append(report.Failures, LanguageFailure{Locale: lang.Code, Err: err})
			continue
		}
		o := outcomes[i]
		report.Warnings += o.warnings
		if o.unchanged {
			report.Unchanged = append(report.Unchanged, o.path)
		} else {
			report.Written = append(report.Written, o.path)
		}
	}

	if len(doc.Meta.Fallbacks) > 0 {
		path := filepath.Join(opts.OutputDir, opts.FallbacksFile)
		if err := WriteFallbacks(path, doc.Meta.Fallbacks); err != nil {
			return report, err
		}
		report.Fallbacks = path
		log.Info("fallbacks written", zap.String("path", path), zap.Int("count", len(doc.Meta.Fallbacks)))
	}

	return report, nil
}

func processLanguage(ctx context.Context, lang payload.Language, meta payload.Meta, opts Options) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	log := opts.Logger.With(zap.String("locale", lang.Code))

	b, err := bundle.Build(lang, meta,
		bundle.WithCollisionPolicy(opts.Collision),
		bundle.WithLogger(opts.Logger),
	)
	if err != nil {
		return outcome{}, fmt.Errorf("building bundle: %w", err)
	}
	f, err := b.ARB()
	if err != nil {
		return outcome{}, err
	}
	data, err := f.Marshal()
	if err != nil {
		return outcome{}, fmt.Errorf("encoding bundle: %w", err)
	}

	path := filepath.Join(opts.OutputDir, bundle.FileName(opts.Prefix, lang.Code))
	o := outcome{path: path, warnings: b.Warnings()}

	var target string
	if opts.Lock != nil {
		target = lockTarget(opts.Lock, path)
		if !opts.Force && !opts.Lock.IsChanged(target, string(data)) && fileExists(path) {
			log.Debug("bundle unchanged", zap.String("path", path))
			o.unchanged = true
			return o, nil
		}
	}

	if err := arbfile.WriteBytes(path, data); err != nil {
		return outcome{}, err
	}
	if opts.Lock != nil {
		opts.Lock.Update(target, string(data))
	}
	log.Info("bundle written",
		zap.String("path", path),
		zap.Int("entries", len(b.Entries)),
		zap.Int("warnings", o.warnings),
	)
	return o, nil
}

// lockTarget keys path relative to the lock file's directory when possible.
func lockTarget(lf *lockfile.LockFile, path string) string {
	if lf.Path() != "" {
		if rel, err := filepath.Rel(filepath.Dir(lf.Path()), path); err == nil && !strings.HasPrefix(rel, "..") {
			return lockfile.TargetKey(rel)
		}
	}
	return lockfile.TargetKey(path)
}

// WriteFallbacks writes the locale fallback mapping as a JSON object with
// sorted keys.
func WriteFallbacks(path string, fallbacks map[string]string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fallbacks); err != nil {
		return fmt.Errorf("encoding fallbacks: %w", err)
	}
	return arbfile.WriteBytes(path, buf.Bytes())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
