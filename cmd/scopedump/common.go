package main

import (
	"iter"
	"os"
	"path/filepath"

	tmcore "github.com/scopegraph/tmcore"
)

// grammarPaths walks every directory in dirs (non-recursively) and yields
// the regular files found, for NewLoader.
func grammarPaths(dirs []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, dir := range dirs {
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				if !yield(filepath.Join(dir, entry.Name())) {
					return
				}
			}
		}
	}
}

// buildLoader loads every grammar under dirs. Load failures for individual
// files are aggregated (not fatal) by tmcore.NewLoader; an empty dirs list
// yields a usable, empty Loader rather than an error.
func buildLoader(dirs []string) (*tmcore.Loader, error) {
	loader, err := tmcore.NewLoader(grammarPaths(dirs))
	if err != nil {
		// Partial failures are logged by NewLoader itself; a Loader is
		// still returned and usable, so this is advisory, not fatal.
		tmcore.Log.Warn().AnErr("error", err).Msg("some grammars failed to load")
	}
	return loader, nil
}

// resolveGrammarDirs returns the --grammar-dir flag values followed by the
// config file directories, deduplicated. The current directory is used
// only when both are empty.
func resolveGrammarDirs(cfg *Config, flagDirs []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(d string) {
		if d == "" || seen[d] {
			return
		}
		seen[d] = true
		out = append(out, d)
	}
	for _, d := range flagDirs {
		add(d)
	}
	for _, d := range cfg.GrammarDirs {
		add(d)
	}
	if len(out) == 0 {
		add(".")
	}
	return out
}
