// Package registry is the post-process callable table: the functions,
// methods, and filters a formula tree's name/member/filter nodes resolve
// against (spec §4.5), plus the super stack used while recursing into a
// #block/#function body. Modeled on the teacher's decorators.Registry
// (github.com/aledsdavies/devcmd/pkgs/decorators), generalized from
// decorator kinds to the three callable kinds this spec needs.
package registry

import (
	"sort"
	"sync"

	"github.com/aledsdavies/skelc/pkgs/evalctx"
	"github.com/aledsdavies/skelc/pkgs/value"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Function is a free function: float(), size(x), sort(v), or a user
// #function/#block body. It receives the calling evaluation context, per
// spec.md §3 ("functions ... (ctx, args: Vec<Value>) -> Value") — a
// skeleton #function/#block registers itself as a Function that pushes a
// fresh local scope on ctx and executes its body.
type Function func(ctx *evalctx.Context, args []value.Value) (value.Value, error)

// Method is bound to a receiver, which it may mutate in place (append,
// pop). The receiver pointer aliases whatever Value the call's object
// expression evaluated to; the caller is responsible for writing it back
// to its storage location.
type Method func(ctx *evalctx.Context, receiver *value.Value, args []value.Value) (value.Value, error)

// Filter is a string-to-string transform applied by the `!` operator.
type Filter func(input string) (string, error)

// Registry holds the three callable tables plus the super stack. It is
// safe for concurrent reads once post-processing for a given tree has
// completed; registration itself is expected to happen single-threaded
// during setup, matching the teacher's RWMutex-guarded registry.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]Function
	methods   map[string]Method
	filters   map[string]Filter

	superStack []Function
}

func New() *Registry {
	return &Registry{
		functions: make(map[string]Function),
		methods:   make(map[string]Method),
		filters:   make(map[string]Filter),
	}
}

func (r *Registry) RegisterFunction(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[name] = fn
}

func (r *Registry) RegisterMethod(name string, fn Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = fn
}

func (r *Registry) RegisterFilter(name string, fn Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
}

// LookupFunction resolves a bare name as a callee, honoring `super`: while
// inside a #block/#function body being post-processed, "super" resolves to
// the top of the super stack rather than the functions table.
func (r *Registry) LookupFunction(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "super" {
		if len(r.superStack) == 0 {
			return nil, false
		}
		return r.superStack[len(r.superStack)-1], true
	}
	fn, ok := r.functions[name]
	return fn, ok
}

func (r *Registry) LookupMethod(name string) (Method, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.methods[name]
	return fn, ok
}

func (r *Registry) LookupFilter(name string) (Filter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.filters[name]
	return fn, ok
}

// PushSuper pushes prev, the function a #function/#block replaces (nil if
// its name had no prior registration), as the current `super` target. PopSuper must be called once the body that pushed it has
// finished post-processing.
func (r *Registry) PushSuper(prev Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.superStack = append(r.superStack, prev)
}

func (r *Registry) PopSuper() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.superStack) == 0 {
		return
	}
	r.superStack = r.superStack[:len(r.superStack)-1]
}

// PriorFunction returns the function currently registered under name
// before a new registration replaces it — used by #function/#block
// post-processing to compute the node's super_fn.
func (r *Registry) PriorFunction(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[name]
	return fn, ok
}

// SuggestFunction returns the closest registered function name to a typo'd
// lookup, for the ParseError post-processing raises on an unresolved name
// ("did you mean 'sort'?").
func (r *Registry) SuggestFunction(name string) (string, bool) {
	return suggest(name, r.functionNames())
}

func (r *Registry) SuggestMethod(name string) (string, bool) {
	return suggest(name, r.methodNames())
}

func (r *Registry) SuggestFilter(name string) (string, bool) {
	return suggest(name, r.filterNames())
}

func (r *Registry) functionNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for n := range r.functions {
		names = append(names, n)
	}
	return names
}

func (r *Registry) methodNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.methods))
	for n := range r.methods {
		names = append(names, n)
	}
	return names
}

func (r *Registry) filterNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for n := range r.filters {
		names = append(names, n)
	}
	return names
}

func suggest(name string, candidates []string) (string, bool) {
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target, true
	}
	// A typo with swapped or wrong letters is not a subsequence of the
	// intended name; fall back to the nearest candidate by edit distance.
	best, bestDist := "", 3
	for _, c := range candidates {
		d := fuzzy.LevenshteinDistance(name, c)
		if d < bestDist || (d == bestDist && best != "" && c < best) {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
