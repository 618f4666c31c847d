// Package host implements the engine's one sanctioned I/O boundary: the
// read_file(path) -> bytes contract spec.md §6 requires for #include
// resolution, plus an include-tree cache keyed by content hash so a
// template included many times in one render is parsed once.
package host

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// FileReader is the engine's only I/O seam. The formula/skeleton packages
// never touch the filesystem directly; everything goes through this
// interface so a host embedding the engine (or a test) can substitute an
// in-memory implementation.
type FileReader interface {
	ReadFile(path string) (string, error)
}

// OSFileReader reads from the local filesystem.
type OSFileReader struct{}

func (OSFileReader) ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ResolveInclude joins an #include target against the including document's
// directory, matching spec.md §4.6: "resolve p as a path relative to the
// including skeleton's directory (or the process's current directory if the
// including source has no directory)".
func ResolveInclude(includingFile, target string) string {
	if filepath.IsAbs(target) {
		return target
	}
	dir := filepath.Dir(includingFile)
	if includingFile == "" {
		dir = "."
	}
	return filepath.Join(dir, target)
}

// ParseCache memoizes parsed includes by a blake2b content hash of the
// resolved path's bytes, grounded on the teacher's content-addressed
// planfmt/streamscrub hashing (_examples/opal-lang-opal/core/planfmt,
// runtime/streamscrub). Entries are parsed skeleton trees, stored as `any`
// to avoid an import cycle with pkgs/skeleton.
type ParseCache struct {
	mu     sync.RWMutex
	byHash map[string]any
}

func NewParseCache() *ParseCache {
	return &ParseCache{byHash: make(map[string]any)}
}

func hashSource(src string) string {
	sum := blake2b.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// Get returns a previously cached parse result for the given source text.
func (c *ParseCache) Get(src string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.byHash[hashSource(src)]
	return v, ok
}

// Put stores a parse result for the given source text.
func (c *ParseCache) Put(src string, tree any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byHash[hashSource(src)] = tree
}
