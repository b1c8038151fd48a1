// Package source loads a dataset into a table.Table from one of several
// backends (delimited text, HTML tables, JSON records, SQLite, Postgres,
// SQL Server).
//
// Backends register themselves from init() with Register; importing
// internal/source/all wires every backend in.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vnragavan/schema-generator/internal/config"
	"github.com/vnragavan/schema-generator/internal/table"
)

// Config is what a backend needs to load one dataset.
//
// Edge cases:
//   - Kind must match a registered backend.
//   - Path is used by file backends; DSN/Query/Table by SQL backends.
//   - Options carries backend specific knobs (delimiter, encoding, ...).
type Config struct {
	Kind    string
	Path    string
	DSN     string
	Query   string
	Table   string
	Options config.Options
}

// Factory loads a table for cfg.
type Factory func(ctx context.Context, cfg Config) (*table.Table, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind.
//
// Panics:
//   - If kind is empty or f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("source: Register called with empty kind")
	}
	if f == nil {
		panic("source: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("source: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Open loads the dataset described by cfg using the registered backend.
func Open(ctx context.Context, cfg Config) (*table.Table, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("source: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported source kind=%s", cfg.Kind)
	}
	t, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load %s source: %w", cfg.Kind, err)
	}
	return t, nil
}

// Kinds lists the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
