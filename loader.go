package tmcore

import (
	"context"
	"encoding/json"
	"io/fs"
	"iter"
	"maps"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"gitlab.com/tozd/go/errors"
	"howett.net/plist"
)

var ErrNotFound = errors.New("grammar not found")

// Loader is a registry of parsed-but-uncompiled grammars, keyed by scope
// name and by file type, same shape as the teacher's Loader. Unlike the
// teacher, a failed file never silently vanishes: NewLoader and
// NewLoaderFromDir return every failure aggregated into one error
// alongside the partial (still usable) loader.
type Loader struct {
	mu        sync.RWMutex
	filetypes map[string][]*GrammarJSON
	scopes    map[string]*GrammarJSON
}

// ReloadEvent reports the outcome of one grammar file reload triggered by
// Watch.
type ReloadEvent struct {
	Scope string
	Err   error
}

func loadFile(pathname string) (*GrammarJSON, error) {
	content, err := os.ReadFile(pathname)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading %s", pathname)
	}
	var encoded GrammarJSON
	if strings.HasSuffix(pathname, ".json") {
		err = json.Unmarshal(content, &encoded)
	} else {
		_, err = plist.Unmarshal(content, &encoded)
	}
	if err != nil {
		return nil, errors.WithMessagef(err, "decoding %s", pathname)
	}
	return &encoded, nil
}

// NewLoader loads every grammar named by paths. Individual failures never
// abort the whole batch; they are collected into the returned
// *multierror.Error (nil if every file loaded). A correlation id ties the
// batch's warning log lines together.
func NewLoader(paths iter.Seq[string]) (*Loader, error) {
	loader := &Loader{
		scopes:    make(map[string]*GrammarJSON),
		filetypes: make(map[string][]*GrammarJSON),
	}
	batch := uuid.New()

	var result *multierror.Error
	for pathname := range paths {
		grm, err := loadFile(pathname)
		if err != nil {
			Log.Warn().
				Str("batch", batch.String()).
				Str("path", pathname).
				AnErr("error", err).
				Str("suggest", loader.suggestScope(pathname)).
				Msg("failed to load grammar")
			result = multierror.Append(result, errors.WithMessagef(err, "loading %s", pathname))
			continue
		}
		loader.scopes[grm.ScopeName] = grm
		for _, ft := range grm.FileTypes {
			ft = strings.TrimLeft(ft, ".")
			loader.filetypes[ft] = append(loader.filetypes[ft], grm)
		}
	}
	return loader, result.ErrorOrNil()
}

// NewLoaderFromDir loads every grammar file directly in (or, if walk,
// recursively under) dir.
func NewLoaderFromDir(dir string, walk bool) (*Loader, error) {
	if walk {
		return NewLoader(func(yield func(string) bool) {
			filepath.WalkDir(dir, func(pathname string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() {
					if !yield(pathname) {
						return filepath.SkipAll
					}
				}
				return nil
			})
		})
	}
	return NewLoader(func(yield func(string) bool) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				if !yield(path.Join(dir, entry.Name())) {
					return
				}
			}
		}
	})
}

// suggestScope returns the nearest known scope name to pathname's base
// name, for a more actionable warning log. Best-effort: an empty
// registry yields "".
func (l *Loader) suggestScope(pathname string) string {
	base := strings.TrimSuffix(path.Base(pathname), GrammarExtension)
	want := "source." + base

	l.mu.RLock()
	defer l.mu.RUnlock()

	var best string
	var bestScore float64
	for scope := range l.scopes {
		score := strutil.Similarity(want, scope, metrics.NewLevenshtein())
		if score > bestScore {
			best, bestScore = scope, score
		}
	}
	return best
}

// FromScope compiles the grammar registered under scope.
func (l *Loader) FromScope(scope string) (*Grammar, error) {
	l.mu.RLock()
	grm, ok := l.scopes[scope]
	l.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("%w: scope %q (did you mean %q?)", ErrNotFound, scope, l.suggestScope(scope))
	}
	g, err := CompileGrammar(*grm, "", "")
	if err != nil {
		return nil, err
	}
	g.Externals = l.FromScope
	return g, nil
}

// FromFileType compiles the index'th grammar registered for file type ft.
func (l *Loader) FromFileType(ft string, index int) (*Grammar, error) {
	l.mu.RLock()
	grms, ok := l.filetypes[ft]
	l.mu.RUnlock()
	if !ok || index >= len(grms) {
		return nil, errors.Errorf("%w: file type %q index %d", ErrNotFound, ft, index)
	}
	g, err := CompileGrammar(*grms[index], "", "")
	if err != nil {
		return nil, err
	}
	g.Externals = l.FromScope
	return g, nil
}

// Scopes iterates every registered scope name.
func (l *Loader) Scopes() iter.Seq[string] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Keys(maps.Clone(l.scopes))
}

// FileTypes iterates every registered file type.
func (l *Loader) FileTypes() iter.Seq[string] {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Keys(maps.Clone(l.filetypes))
}

// FileTypeNames iterates (fileType, displayNames) pairs, the display name
// being each matching grammar's scopeName (GrammarJSON carries no
// grammar-level display name distinct from its top-level rule name, so
// scopeName is the closest equivalent, and the one thing every grammar on
// disk actually sets).
func (l *Loader) FileTypeNames() iter.Seq2[string, []string] {
	l.mu.RLock()
	snapshot := maps.Clone(l.filetypes)
	l.mu.RUnlock()

	return func(yield func(string, []string) bool) {
		for ft, grms := range snapshot {
			names := make([]string, len(grms))
			for i, grm := range grms {
				names[i] = grm.ScopeName
			}
			if !yield(ft, names) {
				return
			}
		}
	}
}

// Watch watches dir for grammar file changes, reloading and atomically
// swapping the affected grammar into the registry on every write/create
// event. It does not touch any Stack already produced by ParseLine against
// the grammar's pre-reload form — resuming tokenization of an
// already-open document across a hot reload is a deliberate non-goal;
// callers that want the new rules applied must start a fresh Tokenizer.
// The returned channel is closed once ctx is done.
func (l *Loader) Watch(ctx context.Context, dir string) (<-chan ReloadEvent, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithMessage(err, "creating grammar watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.WithMessagef(err, "watching %s", dir)
	}

	events := make(chan ReloadEvent)
	go func() {
		defer close(events)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				l.reloadOne(ev.Name, events)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				Log.Warn().AnErr("error", err).Str("dir", dir).Msg("grammar watcher error")
			}
		}
	}()
	return events, nil
}

// reloadOne reloads a single grammar file and swaps it into the registry
// under lock, replacing any existing entry with the same scope name.
func (l *Loader) reloadOne(pathname string, events chan<- ReloadEvent) {
	grm, err := loadFile(pathname)
	if err != nil {
		events <- ReloadEvent{Err: errors.WithMessagef(err, "reloading %s", pathname)}
		return
	}

	l.mu.Lock()
	l.scopes[grm.ScopeName] = grm
	for _, grms := range l.filetypes {
		for i, g := range grms {
			if g.ScopeName == grm.ScopeName {
				grms[i] = grm
			}
		}
	}
	for _, ft := range grm.FileTypes {
		ft = strings.TrimLeft(ft, ".")
		found := false
		for _, g := range l.filetypes[ft] {
			if g.ScopeName == grm.ScopeName {
				found = true
				break
			}
		}
		if !found {
			l.filetypes[ft] = append(l.filetypes[ft], grm)
		}
	}
	l.mu.Unlock()

	events <- ReloadEvent{Scope: grm.ScopeName}
}
