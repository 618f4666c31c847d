package skeleton

import (
	"log/slog"

	"github.com/aledsdavies/skelc/pkgs/host"
)

// Loader resolves and parses `#include` targets, caching parsed trees by
// content hash. Resolution happens once, at parse time: the parser calls
// Load as it encounters each #include, and the returned tree's top-level
// statements are spliced directly into the including document, so the
// result is post-processed and evaluated only as part of that document's
// normal walk — never independently, never more than once.
type Loader struct {
	Reader host.FileReader
	Cache  *host.ParseCache
}

// NewLoader builds a Loader backed by the local filesystem and a fresh
// cache. Hosts embedding the engine may construct a Loader directly with a
// different FileReader (e.g. an in-memory one for tests).
func NewLoader() *Loader {
	return &Loader{Reader: host.OSFileReader{}, Cache: host.NewParseCache()}
}

// Load resolves target relative to includingFile, parses it (or returns the
// cached parse of identical content), and returns the tree. Any #include
// directives nested inside the included document are resolved recursively,
// against this same Loader, before Load returns.
func (l *Loader) Load(includingFile, target string, logger *slog.Logger) (*Tree, error) {
	path := host.ResolveInclude(includingFile, target)
	src, err := l.Reader.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if cached, ok := l.Cache.Get(src); ok {
		if tree, ok := cached.(*Tree); ok {
			return tree, nil
		}
	}
	tree, err := Parse(src, path, l, logger)
	if err != nil {
		return nil, err
	}
	l.Cache.Put(src, tree)
	return tree, nil
}
