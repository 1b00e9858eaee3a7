// Package lockfile implements translocale.lock, a lock file that tracks MD5
// checksums of the bundles written by the last run. A bundle whose content
// has not changed is not rewritten, and the code generator is skipped when
// no bundle changed since it last succeeded.
//
// The lock file is stored alongside translocale.yaml.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "translocale.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the translocale.lock file structure.
type LockFile struct {
	Version int               `yaml:"version"`
	Bundles map[string]string `yaml:"bundles"` // bundle path -> md5
	// Generated is the Fingerprint of the bundles the generator last
	// succeeded on.
	Generated string `yaml:"generated,omitempty"`

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	path := filepath.Join(dir, LockFileName)
	lf := &LockFile{
		Version: Version,
		Bundles: make(map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.path = path
	if lf.Version > Version {
		return nil, fmt.Errorf("%s: unsupported lock file version %d", path, lf.Version)
	}

	if lf.Bundles == nil {
		lf.Bundles = make(map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// TargetKey builds the lock file key for a bundle path, e.g.
// "lib/l10n/app_pt_BR.arb".
func TargetKey(filePath string) string {
	return filepath.ToSlash(filePath)
}

// IsChanged reports whether a bundle is new or its content differs from
// the recorded checksum.
func (lf *LockFile) IsChanged(target, content string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Bundles[target]
	if !ok {
		return true
	}
	return old != Hash(content)
}

// Update records the checksum of a written bundle.
func (lf *LockFile) Update(target, content string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	lf.Bundles[target] = Hash(content)
}

// Checksum returns the recorded checksum of target.
func (lf *LockFile) Checksum(target string) (string, bool) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	sum, ok := lf.Bundles[target]
	return sum, ok
}

// Clean removes bundles that are no longer present in the current set of
// targets. This prevents stale entries from accumulating.
func (lf *LockFile) Clean(currentTargets []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	valid := make(map[string]bool, len(currentTargets))
	for _, t := range currentTargets {
		valid[t] = true
	}
	for t := range lf.Bundles {
		if !valid[t] {
			delete(lf.Bundles, t)
		}
	}
}

// RemoveTarget forgets a bundle.
func (lf *LockFile) RemoveTarget(target string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	delete(lf.Bundles, target)
}

// ---------------------------------------------------------------------------
// Generator state
// ---------------------------------------------------------------------------

// Fingerprint digests all recorded bundle checksums.
func (lf *LockFile) Fingerprint() string {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.fingerprint()
}

func (lf *LockFile) fingerprint() string {
	var b strings.Builder
	for _, t := range sortedKeys(lf.Bundles) {
		b.WriteString(t)
		b.WriteByte(0)
		b.WriteString(lf.Bundles[t])
		b.WriteByte('\n')
	}
	return Hash(b.String())
}

// NeedsGenerate reports whether the bundles changed since the generator
// last succeeded.
func (lf *LockFile) NeedsGenerate() bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.Generated != lf.fingerprint()
}

// MarkGenerated records that the generator succeeded on the current
// bundles.
func (lf *LockFile) MarkGenerated() {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	lf.Generated = lf.fingerprint()
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Targets returns the sorted list of bundle paths.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return sortedKeys(lf.Bundles)
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets := lf.Targets()
	if len(targets) == 0 {
		return "empty"
	}
	state := "generated"
	if lf.NeedsGenerate() {
		state = "not generated"
	}
	return fmt.Sprintf("%d bundles (%s), %s", len(targets), strings.Join(targets, ", "), state)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
