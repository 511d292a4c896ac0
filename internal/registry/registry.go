// Package registry builds and stores the memory registry: one generated title
// per journal entry, keyed by the SHA-256 of the entry's text.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Version is the only registry document version.
const Version = 1

// createdLayout is ISO-8601 with milliseconds; UTC renders as "Z".
const createdLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrNotFound is returned when a registry file or entry does not exist.
var ErrNotFound = errors.New("not found")

// MemoryEntry is the registry record for one journal entry.
type MemoryEntry struct {
	Title        string `json:"title"`
	Model        string `json:"model"`
	Created      string `json:"created"`
	OriginalPath string `json:"originalPath"`
}

// Registry is the document written by a batch run.
type Registry struct {
	RegistryVersion int                    `json:"registryVersion"`
	Memories        map[string]MemoryEntry `json:"memories"`
}

// Entry pairs a MemoryEntry with its content hash.
type Entry struct {
	Hash string
	MemoryEntry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		RegistryVersion: Version,
		Memories:        make(map[string]MemoryEntry),
	}
}

// HashContent returns the hex SHA-256 digest of the UTF-8 text.
func HashContent(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FormatCreated renders a generation timestamp.
func FormatCreated(t time.Time) string {
	return t.UTC().Format(createdLayout)
}

// OriginalPath derives the source path recorded for a slug.
func OriginalPath(slug string) string {
	return "thoughts/" + slug + ".md"
}

// Lookup returns the entry for a content hash.
func (r *Registry) Lookup(hash string) (MemoryEntry, error) {
	e, ok := r.Memories[hash]
	if !ok {
		return MemoryEntry{}, ErrNotFound
	}
	return e, nil
}

// Entries returns all entries ordered by original path, then hash.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.Memories))
	for hash, e := range r.Memories {
		entries = append(entries, Entry{Hash: hash, MemoryEntry: e})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].OriginalPath != entries[j].OriginalPath {
			return entries[i].OriginalPath < entries[j].OriginalPath
		}
		return entries[i].Hash < entries[j].Hash
	})
	return entries
}

// Write serializes reg as 2-space indented JSON and replaces the file at path.
func Write(path string, reg *Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	// Readers only ever see the old file or the new one.
	tmp, err := os.CreateTemp(dir, "memory-registry-*.tmp")
	if err != nil {
		return fmt.Errorf("create registry temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if err := writeTemp(tmp, data); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}

func writeTemp(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a registry file. A missing file yields ErrNotFound.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("registry %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if reg.RegistryVersion != Version {
		return nil, fmt.Errorf("registry %s: unsupported version %d", path, reg.RegistryVersion)
	}
	if reg.Memories == nil {
		reg.Memories = make(map[string]MemoryEntry)
	}
	return &reg, nil
}
