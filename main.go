// translocale: compiles server-side translation payloads into Flutter ARB
// bundles and runs the localization code generator over them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/minios-linux/translocale/arbfile"
	"github.com/minios-linux/translocale/bundle"
	"github.com/minios-linux/translocale/config"
	"github.com/minios-linux/translocale/fixarb"
	"github.com/minios-linux/translocale/generator"
	"github.com/minios-linux/translocale/i18n"
	"github.com/minios-linux/translocale/icu"
	"github.com/minios-linux/translocale/langmeta"
	"github.com/minios-linux/translocale/lockfile"
	"github.com/minios-linux/translocale/payload"
	"github.com/minios-linux/translocale/pipeline"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
	verbose    bool
)

// envLogLevel selects the structured log level when --verbose is not set.
const envLogLevel = "TRANSLOCALE_LOG_LEVEL"

const defaultLogLevel = "warn"

// newLogger builds the console logger used by the library packages.
func newLogger(verbose bool, getenv func(string) string) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	switch {
	case verbose:
		level.SetLevel(zapcore.DebugLevel)
	default:
		// zap reads an empty level as info.
		v := strings.ToLower(strings.TrimSpace(getenv(envLogLevel)))
		if v == "" {
			v = defaultLogLevel
		}
		if err := level.UnmarshalText([]byte(v)); err != nil {
			_ = level.UnmarshalText([]byte(defaultLogLevel))
		}
	}

	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.TimeKey = ""

	cfg := zap.Config{
		Level:             level,
		Encoding:          "console",
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     true,
		DisableStacktrace: true,
	}
	return cfg.Build()
}

// loadProject detects the project and loads its configuration.
func loadProject() (*config.Project, *config.File, error) {
	proj := config.Detect(rootDir)
	cfg, err := config.Load(proj, configPath)
	if err != nil {
		return proj, nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return proj, cfg, nil
}

// resolvePath makes p absolute against the project root.
func resolvePath(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// bundleFlags address the bundle directory; shared by generate, fix-arb
// and status.
type bundleFlags struct {
	out    string
	prefix string
}

func (b *bundleFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&b.out, "out", "", i18n.T("Bundle directory (default: output.dir or the l10n.yaml arb-dir)"))
	fs.StringVar(&b.prefix, "prefix", "", i18n.T("Bundle file prefix (default: output.prefix)"))
}

func (b bundleFlags) apply(cfg *config.File) {
	if b.out != "" {
		cfg.Output.Dir = b.out
	}
	if b.prefix != "" {
		cfg.Output.Prefix = b.prefix
	}
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "translocale",
		Short: i18n.T("Compile translation payloads into Flutter ARB bundles"),
		Long: `translocale fetches the translation document of a project, compiles one
ARB bundle per language and runs the Flutter localization generator.

ICU plural and select messages are validated and repaired, placeholder
names are made legal for the generator and every dotted server key gets a
camel-cased member name.

Commands:
  generate    Fetch translations, write bundles, run the generator
  fix-arb     Repair placeholder metadata of existing bundles
  status      Show project settings and bundle statistics
  init        Write a default translocale.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	root.PersistentFlags().StringVar(&configPath, "config", "", i18n.T("Config file (default: <root>/translocale.yaml)"))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("Enable detailed logging"))

	root.AddCommand(
		newGenerateCmd(),
		newFixARBCmd(),
		newStatusCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "translocale version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
			fmt.Fprintf(out, "  language:  %s\n", i18n.Language())
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

type generateArgs struct {
	bundleFlags
	input       string
	noGen       bool
	force       bool
	parallel    int
	onCollision string
}

func newGenerateCmd() *cobra.Command {
	var a generateArgs

	cmd := &cobra.Command{
		Use:   "generate",
		Short: i18n.T("Fetch translations and write ARB bundles"),
		Long: `Fetch the translation document and write one ARB bundle per language.

A language that fails is reported and skipped; the other bundles are still
written. The localization generator runs only when every language
succeeded and a bundle changed since its last successful run.

Examples:
  # Fetch from the configured API and regenerate
  translocale generate

  # Compile a saved payload without running the generator
  translocale generate --input translations.json --no-gen

  # Rewrite every bundle and rerun the generator
  translocale generate --force --parallel 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), a)
		},
	}

	a.register(cmd.Flags())
	cmd.Flags().StringVar(&a.input, "input", "", i18n.T("Read the translation document from a file instead of the API"))
	cmd.Flags().BoolVar(&a.noGen, "no-gen", false, i18n.T("Do not run the localization generator"))
	cmd.Flags().BoolVar(&a.force, "force", false, i18n.T("Rewrite unchanged bundles and rerun the generator"))
	cmd.Flags().IntVar(&a.parallel, "parallel", 0, i18n.T("Languages compiled concurrently (default: max_concurrent)"))
	cmd.Flags().StringVar(&a.onCollision, "on-collision", "", i18n.T("Identifier collision policy: suffix, overwrite, fail"))

	_ = cmd.RegisterFlagCompletionFunc("on-collision", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"suffix\tAppend a numeric suffix (default)",
			"overwrite\tLater key replaces the earlier entry",
			"fail\tFail the language",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runGenerate(ctx context.Context, a generateArgs) error {
	proj, cfg, err := loadProject()
	if err != nil {
		return err
	}
	a.apply(cfg)
	if a.parallel > 0 {
		cfg.MaxConcurrent = a.parallel
	}
	if a.onCollision != "" {
		cfg.Output.OnCollision = a.onCollision
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(verbose, os.Getenv)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning(i18n.T("Interrupted, finishing written bundles..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	doc, err := loadDocument(ctx, cfg, a.input)
	if err != nil {
		return err
	}
	logInfo(i18n.N("Loaded %d language", "Loaded %d languages", len(doc.Languages)), len(doc.Languages))
	for _, l := range doc.Languages {
		if l.Code != "" && !langmeta.Valid(l.Code) {
			logWarning(i18n.T("Locale %q is not a valid BCP 47 tag"), l.Code)
		}
	}

	lock, err := lockfile.Load(proj.Root)
	if err != nil {
		return err
	}

	outDir := resolvePath(proj.Root, cfg.Output.Dir)
	report, err := pipeline.Run(ctx, doc, pipeline.Options{
		OutputDir:     outDir,
		Prefix:        cfg.Output.Prefix,
		FallbacksFile: cfg.Output.FallbacksFile,
		MaxConcurrent: cfg.MaxConcurrent,
		Collision:     cfg.CollisionPolicy(),
		Lock:          lock,
		Force:         a.force,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	printReport(report)

	if err := report.Err(); err != nil {
		if saveErr := lock.Save(); saveErr != nil {
			logWarning("%v", saveErr)
		}
		return err
	}

	lock.Clean(lockTargets(proj.Root, append(report.Written, report.Unchanged...)))
	if err := lock.Save(); err != nil {
		return err
	}

	if a.noGen || !cfg.Generator.IsEnabled() {
		logSuccess(i18n.T("Generation complete"))
		return nil
	}
	if !a.force && !report.Changed() && !lock.NeedsGenerate() {
		logInfo(i18n.T("Bundles unchanged, skipping generator"))
		logSuccess(i18n.T("Generation complete"))
		return nil
	}

	genDir := resolvePath(proj.Root, cfg.Generator.Dir)
	if genDir == "" {
		genDir = proj.Root
	}
	logInfo(i18n.T("Running %s..."), strings.Join(cfg.Generator.Command, " "))
	err = generator.Run(ctx, generator.Options{
		Command:  cfg.Generator.Command,
		Dir:      genDir,
		Expected: cfg.Generator.Expect,
		Stdout:   os.Stderr,
		Stderr:   os.Stderr,
	})
	if err != nil {
		if errors.Is(err, generator.ErrNotInstalled) {
			logWarning(i18n.T("Install the generator or rerun with --no-gen"))
		}
		return err
	}

	lock.MarkGenerated()
	if err := lock.Save(); err != nil {
		return err
	}
	logSuccess(i18n.T("Generation complete"))
	return nil
}

func loadDocument(ctx context.Context, cfg *config.File, input string) (*payload.Document, error) {
	if input != "" {
		return payload.ReadFile(input)
	}
	if cfg.API.URL == "" {
		return nil, fmt.Errorf(i18n.T("no API URL configured: set api.url or %s, or use --input"), config.EnvAPIURL)
	}

	client := payload.NewClient(cfg.API.URL,
		payload.WithAPIKey(cfg.API.APIKey),
		payload.WithProject(cfg.API.Project),
		payload.WithTimeout(cfg.API.Timeout),
		payload.WithProxy(cfg.API.Proxy),
	)
	logInfo(i18n.T("Fetching %s"), cfg.API.URL)
	return client.Fetch(ctx)
}

func printReport(r *pipeline.Report) {
	for _, p := range r.Written {
		logSuccess(i18n.T("Wrote %s"), p)
	}
	if n := len(r.Unchanged); n > 0 {
		logInfo(i18n.N("%d bundle unchanged", "%d bundles unchanged", n), n)
	}
	if r.Fallbacks != "" {
		logSuccess(i18n.T("Wrote %s"), r.Fallbacks)
	}
	if r.Warnings > 0 {
		logWarning(i18n.N("%d warning, run with --verbose for details", "%d warnings, run with --verbose for details", r.Warnings), r.Warnings)
	}
	for _, f := range r.Failures {
		logError(i18n.T("Language %s failed: %v"), f.Locale, f.Err)
	}
}

func lockTargets(root string, paths []string) []string {
	targets := make([]string, 0, len(paths))
	for _, p := range paths {
		targets = append(targets, lockKey(root, p))
	}
	return targets
}

// lockKey matches the keys the pipeline records for bundles under root.
func lockKey(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return lockfile.TargetKey(rel)
	}
	return lockfile.TargetKey(path)
}

// ---------------------------------------------------------------------------
// fix-arb
// ---------------------------------------------------------------------------

func newFixARBCmd() *cobra.Command {
	var b bundleFlags

	cmd := &cobra.Command{
		Use:   "fix-arb [file.arb...]",
		Short: i18n.T("Repair placeholder metadata of existing bundles"),
		Long: `Remove placeholder declarations the generator rejects from plural
messages of existing ARB bundles.

Without arguments every <prefix>_*.arb file in the bundle directory is
checked. Files that need no repair are left untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFixARB(b, args)
		},
	}
	b.register(cmd.Flags())
	return cmd
}

func runFixARB(b bundleFlags, files []string) error {
	proj, cfg, err := loadProject()
	if err != nil {
		return err
	}
	b.apply(cfg)

	logger, err := newLogger(verbose, os.Getenv)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	var results []fixarb.Result
	if len(files) > 0 {
		for _, f := range files {
			res, err := fixarb.RepairFile(f, logger)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
	} else {
		results, err = fixarb.RepairDir(resolvePath(proj.Root, cfg.Output.Dir), cfg.Output.Prefix, logger)
		if err != nil {
			return err
		}
	}

	repaired := 0
	for _, res := range results {
		if !res.Changed() {
			continue
		}
		repaired++
		logSuccess(i18n.T("Repaired %s: removed %s"), res.Path, strings.Join(res.Removed, ", "))
	}
	if repaired == 0 {
		logInfo(i18n.N("Checked %d file, nothing to repair", "Checked %d files, nothing to repair", len(results)), len(results))
	}
	return nil
}

// ---------------------------------------------------------------------------
// status (read-only: project info + bundle stats)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var b bundleFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show project settings and bundle statistics"),
		Long: `Show the detected project, the effective configuration and statistics for
every bundle in the output directory. Does not modify any files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(b)
		},
	}
	b.register(cmd.Flags())
	return cmd
}

// bundleStats summarizes one bundle on disk.
type bundleStats struct {
	path     string
	locale   string
	messages int
	empty    int
	plural   int
	sel      int
	degraded int
	state    string
}

func runStatus(b bundleFlags) error {
	proj, cfg, err := loadProject()
	if err != nil {
		logWarning("%v", err)
		cfg = config.Default(proj)
	}
	b.apply(cfg)

	// Project info header
	fmt.Fprintf(os.Stderr, "\n%s%s%s\n", colorBlue, i18n.T("Project"), colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	fmt.Fprintf(os.Stderr, "  Name:       %s\n", proj.Name)
	fmt.Fprintf(os.Stderr, "  Version:    %s\n", proj.Version)
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", proj.Root)

	typeDesc := "Unknown"
	switch proj.Type {
	case config.ProjectTypeFlutter:
		typeDesc = "Flutter application"
	case config.ProjectTypeDart:
		typeDesc = "Dart package"
	}
	fmt.Fprintf(os.Stderr, "  Type:       %s\n", typeDesc)

	outDir := resolvePath(proj.Root, cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "  Bundles:    %s\n", filepath.Join(outDir, cfg.Output.Prefix+"_<locale>.arb"))
	if cfg.API.URL != "" {
		fmt.Fprintf(os.Stderr, "  API:        %s\n", cfg.API.URL)
	} else {
		fmt.Fprintf(os.Stderr, "  API:        %s\n", i18n.T("not configured"))
	}
	genDesc := strings.Join(cfg.Generator.Command, " ")
	if !cfg.Generator.IsEnabled() {
		genDesc += " (" + i18n.T("disabled") + ")"
	}
	fmt.Fprintf(os.Stderr, "  Generator:  %s\n", genDesc)
	fmt.Fprintln(os.Stderr)

	lock, err := lockfile.Load(proj.Root)
	if err != nil {
		logWarning("%v", err)
		lock = nil
	}

	stats, err := collectBundleStats(proj.Root, outDir, cfg.Output.Prefix, lock)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		logInfo(i18n.T("No bundles found. Run 'translocale generate' to create them."))
		return nil
	}

	showStatsTable(stats)
	if lock != nil {
		fmt.Fprintf(os.Stderr, "\n  Lock:       %s\n\n", lock.Summary())
	}
	return nil
}

func collectBundleStats(root, dir, prefix string, lock *lockfile.LockFile) ([]bundleStats, error) {
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"_*.arb"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var stats []bundleStats
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		f, err := arbfile.Parse(data)
		if err != nil {
			logWarning("%s: %v", p, err)
			continue
		}

		s := bundleStats{path: p, locale: f.Locale(), state: bundleState(lock, lockKey(root, p), data)}
		total, filled, _ := f.Stats()
		s.messages, s.empty = total, total-filled
		for _, key := range f.Keys() {
			text, _ := f.Get(key)
			a := icu.Analyze(text)
			switch a.Kind {
			case icu.Plural:
				s.plural++
			case icu.Select:
				s.sel++
			}
			if a.Degraded() {
				s.degraded++
			}
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// bundleState compares a bundle on disk with the lock file.
func bundleState(lock *lockfile.LockFile, target string, data []byte) string {
	if lock == nil {
		return "-"
	}
	sum, ok := lock.Checksum(target)
	switch {
	case !ok:
		return "untracked"
	case sum != lockfile.Hash(string(data)):
		return "modified"
	default:
		return "ok"
	}
}

func showStatsTable(stats []bundleStats) {
	fmt.Fprintf(os.Stderr, "  %-10s %-22s %8s %6s %7s %7s %9s  %s\n",
		"Locale", "Language", "Messages", "Empty", "Plural", "Select", "Degraded", "State")
	fmt.Fprintf(os.Stderr, "  %s\n", strings.Repeat("─", 85))
	for _, s := range stats {
		locale := s.locale
		if locale == "" {
			locale = "?"
		}
		name := langmeta.Resolve(locale).Name
		if !langmeta.Valid(locale) {
			name = colorYellow + i18n.T("invalid locale") + colorReset
		} else if c := langmeta.Canonicalize(locale); c != locale {
			name += " (" + c + ")"
		}
		fmt.Fprintf(os.Stderr, "  %-10s %-22s %8d %6d %7d %7d %9d  %s\n",
			locale, name, s.messages, s.empty, s.plural, s.sel, s.degraded, s.state)
	}
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func newInitCmd() *cobra.Command {
	var (
		apiURL      string
		project     string
		onCollision string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: i18n.T("Write a default translocale.yaml"),
		Long: `Write translocale.yaml with defaults derived from pubspec.yaml and
l10n.yaml. An existing file is never overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(apiURL, project, onCollision)
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", i18n.T("Translations endpoint URL"))
	cmd.Flags().StringVar(&project, "project", "", i18n.T("Project identifier sent to the API"))
	cmd.Flags().StringVar(&onCollision, "on-collision", "", i18n.T("Identifier collision policy: suffix, overwrite, fail"))
	return cmd
}

func runInit(apiURL, project, onCollision string) error {
	proj := config.Detect(rootDir)
	cfg := config.Default(proj)
	cfg.API.URL = apiURL
	cfg.API.Project = project
	if onCollision != "" {
		if _, err := bundle.ParseCollisionPolicy(onCollision); err != nil {
			return err
		}
		cfg.Output.OnCollision = onCollision
	}

	path := configPath
	if path == "" {
		path = filepath.Join(proj.Root, config.FileName)
	}
	if err := cfg.WriteNew(path); err != nil {
		return err
	}
	logSuccess(i18n.T("Created %s"), path)
	return nil
}
