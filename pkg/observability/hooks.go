// Package observability provides hooks for metrics, tracing, and logging.
//
// The core diagram packages stay free of observability frameworks; instead,
// consumers register hook implementations at startup and receive events about
// store mutations, persistence operations, and export runs. No-op defaults
// keep instrumentation strictly optional.
package observability

import (
	"context"
	"sync"
	"time"
)

// StoreHooks receives events from the diagram mutation dispatch path.
type StoreHooks interface {
	// OnMutation records a schema-affecting mutation and the resulting graph
	// size.
	OnMutation(ctx context.Context, op string, nodes, edges int)
}

// PersistHooks receives events from persistence operations.
type PersistHooks interface {
	OnSave(ctx context.Context, name string, duration time.Duration, err error)
	OnLoad(ctx context.Context, name string, duration time.Duration, err error)
	OnDelete(ctx context.Context, name string, duration time.Duration, err error)
}

// ExportHooks receives events from export runs.
type ExportHooks interface {
	OnExportStart(ctx context.Context, format string, nodes int)
	OnExportComplete(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnMutation(context.Context, string, int, int) {}

// NoopPersistHooks is a no-op implementation of PersistHooks.
type NoopPersistHooks struct{}

func (NoopPersistHooks) OnSave(context.Context, string, time.Duration, error)   {}
func (NoopPersistHooks) OnLoad(context.Context, string, time.Duration, error)   {}
func (NoopPersistHooks) OnDelete(context.Context, string, time.Duration, error) {}

// NoopExportHooks is a no-op implementation of ExportHooks.
type NoopExportHooks struct{}

func (NoopExportHooks) OnExportStart(context.Context, string, int) {}
func (NoopExportHooks) OnExportComplete(context.Context, string, int, time.Duration, error) {
}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	storeHooks   StoreHooks   = NoopStoreHooks{}
	persistHooks PersistHooks = NoopPersistHooks{}
	exportHooks  ExportHooks  = NoopExportHooks{}
	hooksMu      sync.RWMutex
)

// SetStoreHooks registers custom store hooks. Call once at startup.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetPersistHooks registers custom persistence hooks. Call once at startup.
func SetPersistHooks(h PersistHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		persistHooks = h
	}
}

// SetExportHooks registers custom export hooks. Call once at startup.
func SetExportHooks(h ExportHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		exportHooks = h
	}
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Persist returns the registered persistence hooks.
func Persist() PersistHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return persistHooks
}

// Export returns the registered export hooks.
func Export() ExportHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return exportHooks
}

// Reset restores all hooks to their no-op defaults. Primarily for tests.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	storeHooks = NoopStoreHooks{}
	persistHooks = NoopPersistHooks{}
	exportHooks = NoopExportHooks{}
}
