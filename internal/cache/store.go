// Package cache persists compiled Mojo binaries keyed by source digest.
//
// The filesystem is the database: an artifact exists exactly when a file
// named after its key exists under <root>/binaries, and the directory
// listing is the authoritative inventory. No manifest or index is kept, so
// the cache survives crashes trivially and entries can be removed with rm.
// A bbolt journal alongside the binaries records build provenance, but it
// is advisory only and never decides cache membership.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

const binariesDir = "binaries"

// JournalFile is the name of the provenance journal under the cache root.
const JournalFile = "journal.db"

// Entry describes one cached artifact.
type Entry struct {
	Key  Key
	Path string
	Size int64
}

// Store is the artifact cache consulted by the runner. Implementations own
// their backing directory exclusively.
type Store interface {
	// Has reports whether an artifact for key exists.
	Has(key Key) bool

	// PathFor returns the deterministic artifact path for key. The path is
	// valid whether or not the artifact exists yet; the compiler's output
	// lands there via Stage and Commit.
	PathFor(key Key) string

	// Stage returns a fresh private path for a build in progress. Every
	// call returns a distinct path, so concurrent builds of the same key
	// never write to the same file.
	Stage(key Key) string

	// Commit atomically publishes a staged artifact under its key. After
	// Commit returns, Has(key) is true and PathFor(key) is runnable.
	Commit(staged string, key Key) error

	// Discard removes a staged file after a failed build. Best effort.
	Discard(staged string)

	// Entries lists the cached artifacts in key order.
	Entries() ([]Entry, error)

	// Clear removes every artifact and returns how many were deleted.
	Clear() (int, error)

	// Root returns the cache root directory.
	Root() string
}

// DirStore implements Store on a local directory.
type DirStore struct {
	root string
}

// DefaultRoot returns the per-user cache root used when none is configured.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	return filepath.Join(home, ".mojorun"), nil
}

// NewDirStore opens (creating if needed) a directory-backed store at root.
// An empty root selects DefaultRoot.
func NewDirStore(root string) (*DirStore, error) {
	if root == "" {
		var err error
		root, err = DefaultRoot()
		if err != nil {
			return nil, err
		}
	}

	s := &DirStore{root: root}
	if err := os.MkdirAll(s.binDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return s, nil
}

func (s *DirStore) binDir() string {
	return filepath.Join(s.root, binariesDir)
}

// Root returns the cache root directory.
func (s *DirStore) Root() string {
	return s.root
}

// Has checks for the artifact on disk. Nothing else is consulted; a file
// placed or removed behind the store's back is honored on the next call.
func (s *DirStore) Has(key Key) bool {
	info, err := os.Stat(s.PathFor(key))

	return err == nil && info.Mode().IsRegular()
}

// PathFor returns <root>/binaries/<key>.
func (s *DirStore) PathFor(key Key) string {
	return filepath.Join(s.binDir(), key.String())
}

// Stage returns a unique hidden path next to the final artifact location.
// Staying on the same filesystem keeps the later rename atomic.
func (s *DirStore) Stage(key Key) string {
	return filepath.Join(s.binDir(), fmt.Sprintf(".stage-%s-%s", key, uuid.NewString()[:8]))
}

// Commit renames the staged file into place. Rename is atomic within the
// directory, so readers either see the complete artifact or none at all.
// Losing the race to another build of the same key is harmless: both staged
// files hold identical binaries.
func (s *DirStore) Commit(staged string, key Key) error {
	if err := os.Rename(staged, s.PathFor(key)); err != nil {
		return fmt.Errorf("failed to commit artifact for %s: %w", key, err)
	}

	return nil
}

// Discard removes a staged file, ignoring errors.
func (s *DirStore) Discard(staged string) {
	_ = os.Remove(staged)
}

// Entries walks the binaries directory and returns one entry per artifact,
// sorted by key. Staging leftovers and foreign files are skipped.
func (s *DirStore) Entries() ([]Entry, error) {
	dirents, err := os.ReadDir(s.binDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}

		key, ok := ParseKey(de.Name())
		if !ok {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue
		}

		entries = append(entries, Entry{Key: key, Path: s.PathFor(key), Size: info.Size()})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return entries, nil
}

// Clear deletes every file under the binaries directory, staging leftovers
// included, and returns the number of artifacts removed. Clearing an empty
// or missing cache is not an error.
func (s *DirStore) Clear() (int, error) {
	dirents, err := os.ReadDir(s.binDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to list cache directory: %w", err)
	}

	removed := 0
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}

		if err := os.Remove(filepath.Join(s.binDir(), de.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", de.Name(), err)
		}

		if _, ok := ParseKey(de.Name()); ok {
			removed++
		}
	}

	return removed, nil
}

// TotalSize sums the artifact sizes of entries.
func TotalSize(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}

	return total
}
