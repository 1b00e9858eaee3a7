// Package fixarb repairs placeholder metadata of plural messages in
// existing ARB bundles. Placeholders whose names the code generator cannot
// accept are removed; everything else in the file is left as it was.
package fixarb

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/minios-linux/translocale/arbfile"
	"github.com/minios-linux/translocale/icu"
	"github.com/minios-linux/translocale/ident"
)

// Result describes the repair of one file.
type Result struct {
	Path string
	// Entries lists the message keys whose metadata was rewritten.
	Entries []string
	// Removed lists the removed placeholders as "key.placeholder".
	Removed []string
}

// Changed reports whether the file was rewritten.
func (r Result) Changed() bool { return len(r.Entries) > 0 }

// RepairFile repairs one bundle in place. A file that needs no repair is
// not rewritten.
func RepairFile(path string, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("path", path))
	res := Result{Path: path}

	f, err := arbfile.ParseFile(path)
	if err != nil {
		return res, err
	}

	for _, key := range f.Keys() {
		text, _ := f.Get(key)
		if icu.Analyze(text).Kind != icu.Plural {
			continue
		}
		metaKey := arbfile.MetaKey(key)
		raw, ok := f.Meta(metaKey)
		if !ok {
			continue
		}

		meta, removed, err := pruneMeta(raw)
		if err != nil {
			return res, fmt.Errorf("%s: %s: %w", path, metaKey, err)
		}
		if len(removed) == 0 {
			continue
		}
		if err := f.SetMeta(metaKey, meta); err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}

		res.Entries = append(res.Entries, key)
		for _, name := range removed {
			res.Removed = append(res.Removed, key+"."+name)
		}
		log.Info("removed placeholders", zap.String("key", key), zap.Strings("placeholders", removed))
	}

	if !res.Changed() {
		log.Debug("no repair needed")
		return res, nil
	}
	if err := f.WriteFile(path); err != nil {
		return res, err
	}
	return res, nil
}

// pruneMeta drops illegal placeholder keys from a metadata object, keeping
// member order.
func pruneMeta(raw []byte) (arbfile.Object, []string, error) {
	meta, err := arbfile.ParseObject(raw)
	if err != nil {
		return nil, nil, err
	}
	phsRaw, ok := meta.Get("placeholders")
	if !ok {
		return meta, nil, nil
	}
	phs, err := arbfile.ParseObject(phsRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("placeholders: %w", err)
	}

	var removed []string
	for _, name := range phs.Keys() {
		if keep(name) {
			continue
		}
		phs.Delete(name)
		removed = append(removed, name)
	}
	if len(removed) == 0 {
		return meta, nil, nil
	}
	if err := meta.Set("placeholders", phs); err != nil {
		return nil, nil, err
	}
	return meta, removed, nil
}

func keep(name string) bool {
	return strings.EqualFold(name, "count") || ident.IsLegal(name)
}

// RepairDir repairs every "<prefix>_*.arb" file in dir, in name order.
// It stops at the first file that cannot be repaired.
func RepairDir(dir, prefix string, logger *zap.Logger) ([]Result, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	paths, err := filepath.Glob(filepath.Join(dir, prefix+"_*.arb"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		res, err := RepairFile(p, logger)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
