// Package state owns the bot's persisted mutable state: the trusted and
// ignored name sets and the bounded conversation log. Files live under a
// single state directory as plain JSON and are loaded once at startup; a
// missing or corrupt file means an empty value, never a startup failure.
package state

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/voxmate/voxmate/internal/fsstore"
)

const (
	trustedFile = "trusted.json"
	ignoredFile = "ignored.json"
)

// Lists holds the trusted and ignored actor name sets. Membership checks are
// case-insensitive; the stored form preserves the first-seen casing.
type Lists struct {
	mu      sync.Mutex
	dir     string
	log     *slog.Logger
	trusted map[string]string
	ignored map[string]string
}

func LoadLists(dir string, log *slog.Logger) *Lists {
	if log == nil {
		log = slog.Default()
	}
	l := &Lists{
		dir:     dir,
		log:     log,
		trusted: map[string]string{},
		ignored: map[string]string{},
	}
	l.loadFile(trustedFile, l.trusted)
	l.loadFile(ignoredFile, l.ignored)
	return l
}

func (l *Lists) loadFile(name string, into map[string]string) {
	var names []string
	found, err := fsstore.ReadJSON(filepath.Join(l.dir, name), &names)
	if err != nil {
		l.log.Warn("list_load_failed", "file", name, "error", err.Error())
		return
	}
	if !found {
		return
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		into[strings.ToLower(n)] = n
	}
}

func (l *Lists) IsTrusted(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.trusted[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (l *Lists) IsIgnored(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ignored[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Trust adds name to the trusted set. It reports whether the set changed;
// adding an already-trusted name is a no-op.
func (l *Lists) Trust(name string) bool {
	return l.mutate(name, l.trusted, trustedFile, true)
}

func (l *Lists) Untrust(name string) bool {
	return l.mutate(name, l.trusted, trustedFile, false)
}

func (l *Lists) Ignore(name string) bool {
	return l.mutate(name, l.ignored, ignoredFile, true)
}

func (l *Lists) Unignore(name string) bool {
	return l.mutate(name, l.ignored, ignoredFile, false)
}

func (l *Lists) mutate(name string, set map[string]string, file string, add bool) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	key := strings.ToLower(name)

	l.mu.Lock()
	_, present := set[key]
	changed := false
	if add && !present {
		set[key] = name
		changed = true
	}
	if !add && present {
		delete(set, key)
		changed = true
	}
	var snapshot []string
	if changed {
		snapshot = sortedValues(set)
	}
	l.mu.Unlock()

	if changed {
		l.persist(file, snapshot)
	}
	return changed
}

func (l *Lists) persist(file string, names []string) {
	if err := fsstore.WriteJSONAtomic(filepath.Join(l.dir, file), names); err != nil {
		// Persistence failure is an operator concern; the in-memory set
		// stays authoritative for this process.
		l.log.Error("list_persist_failed", "file", file, "error", err.Error())
	}
}

func (l *Lists) Trusted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedValues(l.trusted)
}

func (l *Lists) Ignored() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedValues(l.ignored)
}

func sortedValues(set map[string]string) []string {
	out := make([]string, 0, len(set))
	for _, v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
