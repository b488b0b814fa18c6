package engine

import (
	"hash/fnv"

	"tally/ast"
	"tally/cell"
	"tally/parser"
	"tally/value"
)

const (
	// DefaultMaxCacheEntries bounds the per-engine compile cache.
	DefaultMaxCacheEntries = 1024
	// DefaultMaxDepth bounds evaluator recursion.
	DefaultMaxDepth = 256
)

type Options struct {
	MaxCacheEntries int
	MaxDepth        int
}

// CompiledFormula is a parsed formula ready for evaluation. The AST is
// immutable after compile; clones share it.
type CompiledFormula struct {
	Source       string
	AST          ast.Expr
	Dependencies []cell.Ref
	Hash         uint64
}

func (c *CompiledFormula) Clone() *CompiledFormula {
	out := *c
	return &out
}

// Engine is a per-session formula compiler and evaluator. It owns a
// bounded compile cache and a function registry; it is not safe for
// concurrent use.
type Engine struct {
	cache    map[string]*CompiledFormula
	opts     Options
	registry *Registry
}

func New() *Engine {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Engine {
	if opts.MaxCacheEntries == 0 {
		opts.MaxCacheEntries = DefaultMaxCacheEntries
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Engine{
		cache:    make(map[string]*CompiledFormula),
		opts:     opts,
		registry: NewRegistry(),
	}
}

// Registry exposes the function table for extension.
func (e *Engine) Registry() *Registry { return e.registry }

// CacheLen returns the number of cached compiled formulas.
func (e *Engine) CacheLen() int { return len(e.cache) }

// Compile parses source into a compiled formula, keyed by the exact
// source string. When the cache reaches its bound it is flushed whole.
func (e *Engine) Compile(source string) (*CompiledFormula, error) {
	if cached, ok := e.cache[source]; ok {
		return cached.Clone(), nil
	}

	expr, deps, err := parser.Compile(source)
	if err != nil {
		return nil, err
	}

	compiled := &CompiledFormula{
		Source:       source,
		AST:          expr,
		Dependencies: deps,
		Hash:         hashSource(source),
	}

	if len(e.cache) >= e.opts.MaxCacheEntries {
		e.cache = make(map[string]*CompiledFormula)
	}
	e.cache[source] = compiled
	return compiled.Clone(), nil
}

// Evaluate walks the compiled AST against resolver. Failures surface as
// in-band error values; evaluation itself never fails.
func (e *Engine) Evaluate(compiled *CompiledFormula, resolver ValueResolver) value.Value {
	return e.eval(compiled.AST, resolver, 0)
}

func hashSource(source string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(source))
	return h.Sum64()
}
