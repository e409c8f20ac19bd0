// Package registry tracks registered data sources and resolves names to
// their backend adapters or API table sets. The query executor asks it
// where a statement's target lives; everything else flows through the
// adapter or translator it hands back.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/datastack-labs/fedsql/internal/apitable"
	"github.com/datastack-labs/fedsql/internal/datanode"
	"github.com/datastack-labs/fedsql/internal/fallback"
	"github.com/datastack-labs/fedsql/pkg/handler"
)

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	logger *slog.Logger

	// nodes maps data source names to database-like backend adapters.
	nodes map[string]*datanode.DataNode

	// apiTables maps API-like source names to their virtual tables,
	// keyed by lowercased table name.
	apiTables map[string]map[string]*apitable.Table

	// engine is the embedded fallback shared by every API table built
	// through RegisterAPIDefinitions. Created lazily.
	engine *fallback.Engine
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		logger:    logger,
		nodes:     make(map[string]*datanode.DataNode),
		apiTables: make(map[string]map[string]*apitable.Table),
	}
}

// RegisterSource connects a database-like backend and registers it under
// the given name. The adapter lives until the source is dropped.
func (r *Registry) RegisterSource(ctx context.Context, name string, cfg handler.Config) (*datanode.DataNode, error) {
	h, err := handler.New(cfg, r.logger.With("source", name))
	if err != nil {
		return nil, err
	}
	if err := h.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect data source %q: %w", name, err)
	}

	node := datanode.New(h, name, r.logger.With("source", name))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(name) {
		_ = node.Close()
		return nil, fmt.Errorf("data source %q already registered", name)
	}
	r.nodes[name] = node
	r.logger.Info("registered data source", "source", name, "engine", cfg.Type)
	return node, nil
}

// RegisterAPISource registers a set of API-backed virtual tables under one
// source name.
func (r *Registry) RegisterAPISource(name string, tables []*apitable.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken(name) {
		return fmt.Errorf("data source %q already registered", name)
	}

	byName := make(map[string]*apitable.Table, len(tables))
	for _, table := range tables {
		byName[strings.ToLower(table.Name())] = table
	}
	r.apiTables[name] = byName
	r.logger.Info("registered API data source", "source", name, "tables", len(tables))
	return nil
}

// RegisterAPIDefinitions builds tables for a set of remote function
// definitions and registers them under one source name. All tables share
// the registry's embedded fallback engine.
func (r *Registry) RegisterAPIDefinitions(name string, defs []apitable.Definition) error {
	engine, err := r.fallbackEngine()
	if err != nil {
		return err
	}
	tables := make([]*apitable.Table, len(defs))
	for i, def := range defs {
		tables[i] = apitable.New(def, engine, r.logger.With("source", name))
	}
	return r.RegisterAPISource(name, tables)
}

func (r *Registry) fallbackEngine() (*fallback.Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.engine == nil {
		engine, err := fallback.New(r.logger)
		if err != nil {
			return nil, err
		}
		r.engine = engine
	}
	return r.engine, nil
}

// Get returns the backend adapter registered under name.
func (r *Registry) Get(name string) (*datanode.DataNode, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.nodes[name]
	return node, ok
}

// GetAPITable resolves a virtual table within an API source.
func (r *Registry) GetAPITable(source, table string) (*apitable.Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tables, ok := r.apiTables[source]
	if !ok {
		return nil, false
	}
	t, ok := tables[strings.ToLower(table)]
	return t, ok
}

// Drop removes a data source and tears down its adapter.
func (r *Registry) Drop(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if node, ok := r.nodes[name]; ok {
		delete(r.nodes, name)
		if err := node.Close(); err != nil {
			return fmt.Errorf("failed to close data source %q: %w", name, err)
		}
		return nil
	}
	if _, ok := r.apiTables[name]; ok {
		delete(r.apiTables, name)
		return nil
	}
	return fmt.Errorf("data source %q not found", name)
}

// List returns all registered source names (sorted).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.nodes)+len(r.apiTables))
	for name := range r.nodes {
		names = append(names, name)
	}
	for name := range r.apiTables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListAllTables asks every database-like source for its tables,
// concurrently. API sources report their declared virtual tables without
// any remote call.
func (r *Registry) ListAllTables(ctx context.Context) (map[string][]datanode.TableDescriptor, error) {
	r.mu.RLock()
	nodes := make(map[string]*datanode.DataNode, len(r.nodes))
	for name, node := range r.nodes {
		nodes[name] = node
	}
	apiSources := make(map[string][]datanode.TableDescriptor, len(r.apiTables))
	for name, tables := range r.apiTables {
		for _, table := range tables {
			apiSources[name] = append(apiSources[name], datanode.TableDescriptor{
				Name: table.Name(), Kind: "API TABLE",
			})
		}
	}
	r.mu.RUnlock()

	var resultMu sync.Mutex
	result := make(map[string][]datanode.TableDescriptor, len(nodes)+len(apiSources))
	for name, tables := range apiSources {
		sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
		result[name] = tables
	}

	g, ctx := errgroup.WithContext(ctx)
	for name, node := range nodes {
		g.Go(func() error {
			tables, err := node.GetTables(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			resultMu.Lock()
			result[name] = tables
			resultMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close tears down every registered adapter. The last error wins; teardown
// continues past failures.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for name, node := range r.nodes {
		if err := node.Close(); err != nil {
			r.logger.Error("failed to close data source", "source", name, "error", err)
			lastErr = err
		}
		delete(r.nodes, name)
	}
	for name := range r.apiTables {
		delete(r.apiTables, name)
	}
	if r.engine != nil {
		if err := r.engine.Close(); err != nil {
			r.logger.Error("failed to close embedded fallback engine", "error", err)
			lastErr = err
		}
		r.engine = nil
	}
	return lastErr
}

func (r *Registry) taken(name string) bool {
	if _, ok := r.nodes[name]; ok {
		return true
	}
	_, ok := r.apiTables[name]
	return ok
}
