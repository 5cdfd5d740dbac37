// Package canvas is the host integration surface for an embedded diagram
// editor. It owns a [diagram.Store], wires it to a persistence backend, and
// exposes the configuration hosts use to observe and override the default
// behavior: change notifications, save triggers, export sinks and import
// sources.
//
// Persistence is debounced: every schema-affecting mutation arms (or
// re-arms) a single-shot deferred task, so a burst of edits produces one save
// and one change notification after the burst settles. The task is cancelled
// by any newer mutation and by [Canvas.Close].
package canvas

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/modata-dev/modata/pkg/diagram"
	"github.com/modata-dev/modata/pkg/export"
	"github.com/modata-dev/modata/pkg/observability"
	"github.com/modata-dev/modata/pkg/persist"
	"github.com/modata-dev/modata/pkg/schema"
)

var (
	// ErrCancelled is the distinguished outcome of a user-cancelled import.
	// It is not an error condition: no state changed, and callers should
	// suppress it from user-facing alerts.
	ErrCancelled = errors.New("cancelled")

	// ErrReadOnly is returned by Apply when the canvas was configured
	// read-only. The gate lives at this dispatch layer only; the underlying
	// store API remains callable.
	ErrReadOnly = errors.New("canvas is read-only")

	// ErrNoImporter is returned by Import when no import source was
	// configured.
	ErrNoImporter = errors.New("no import source configured")
)

// DefaultDebounce is the delay between the last mutation and the deferred
// save/notify task firing.
const DefaultDebounce = 800 * time.Millisecond

// Options configures a Canvas. All members are optional.
type Options struct {
	// InitialData is loaded on construction and takes precedence over any
	// persisted last-opened diagram.
	InitialData *schema.Diagram

	// OnChange is called with the full document after every schema-affecting
	// mutation, debounced.
	OnChange func(schema.Diagram)

	// OnSave is called when an explicit save is triggered.
	OnSave func(schema.Diagram)

	// OnExportImage and OnExportSVG receive rendered artifact bytes and the
	// suggested filename instead of the default no-op sink.
	OnExportImage func(data []byte, filename string) error
	OnExportSVG   func(data []byte, filename string) error

	// OnExportJSON receives the document and suggested filename.
	OnExportJSON func(d schema.Diagram, filename string) error

	// OnImport supplies a document when the user asks to import one.
	// Returning [ErrCancelled] abandons the import without touching state.
	OnImport func(ctx context.Context) (schema.Diagram, error)

	// Store is the persistence backend. Nil disables built-in persistence
	// entirely; explicit saves then only notify OnSave.
	Store persist.Store

	// ReadOnly suppresses mutation dispatch through Apply. The wrapped
	// store stays usable directly; this is a presentation-layer gate.
	ReadOnly bool

	// Debounce overrides DefaultDebounce when positive.
	Debounce time.Duration
}

// Canvas binds a diagram store to a host.
type Canvas struct {
	opts  Options
	store *diagram.Store

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// New constructs a canvas. InitialData wins over persisted state; with
// neither, the canvas starts with an empty untitled diagram.
func New(ctx context.Context, opts Options) (*Canvas, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	c := &Canvas{opts: opts, store: diagram.New()}

	switch {
	case opts.InitialData != nil:
		c.store.Load(*opts.InitialData)
	case opts.Store != nil:
		d, err := persist.LoadLast(ctx, opts.Store)
		if err == nil {
			c.store.Load(d)
		} else if !errors.Is(err, persist.ErrNotFound) {
			return nil, err
		}
	}

	// Register after the initial load so construction does not schedule a
	// save of data that was just read back.
	c.store.OnMutate(c.schedule)
	return c, nil
}

// Store returns the underlying diagram aggregate.
func (c *Canvas) Store() *diagram.Store { return c.store }

// ReadOnly reports whether mutation dispatch is gated.
func (c *Canvas) ReadOnly() bool { return c.opts.ReadOnly }

// Apply dispatches a mutation through the canvas. The op string names the
// operation for observability. Returns ErrReadOnly without running fn when
// the canvas is read-only.
func (c *Canvas) Apply(ctx context.Context, op string, fn func(*diagram.Store) error) error {
	if c.opts.ReadOnly {
		return ErrReadOnly
	}
	if err := fn(c.store); err != nil {
		return err
	}
	observability.Store().OnMutation(ctx, op, c.store.NodeCount(), c.store.EdgeCount())
	return nil
}

// =============================================================================
// Debounced Autosave
// =============================================================================

// schedule arms the deferred save/notify task, cancelling any pending one.
func (c *Canvas) schedule() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.opts.Debounce, c.fire)
}

// fire runs the deferred task: persist the current document and notify the
// host. I/O operates on an already-materialized projection, so a failure
// never requires rolling back in-memory state.
func (c *Canvas) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	doc := c.store.ToSchema()
	if c.opts.Store != nil {
		ctx := context.Background()
		start := time.Now()
		err := c.opts.Store.Save(ctx, doc)
		observability.Persist().OnSave(ctx, doc.Name, time.Since(start), err)
	}
	if c.opts.OnChange != nil {
		c.opts.OnChange(doc)
	}
}

// Flush forces a pending deferred task to run now. No-op when nothing is
// pending.
func (c *Canvas) Flush() {
	c.mu.Lock()
	pending := c.timer != nil && c.timer.Stop()
	c.timer = nil
	c.mu.Unlock()
	if pending {
		c.fire()
	}
}

// Close cancels any pending deferred task. The canvas must not be used
// afterwards.
func (c *Canvas) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// =============================================================================
// Save / Import / Export
// =============================================================================

// Save persists the current document immediately and notifies OnSave.
func (c *Canvas) Save(ctx context.Context) error {
	doc := c.store.ToSchema()
	if c.opts.Store != nil {
		start := time.Now()
		err := c.opts.Store.Save(ctx, doc)
		observability.Persist().OnSave(ctx, doc.Name, time.Since(start), err)
		if err != nil {
			return err
		}
	}
	if c.opts.OnSave != nil {
		c.opts.OnSave(doc)
	}
	return nil
}

// Import replaces the diagram with a document from the configured import
// source. A cancelled import returns [ErrCancelled] with no state change.
func (c *Canvas) Import(ctx context.Context) error {
	if c.opts.OnImport == nil {
		return ErrNoImporter
	}
	if c.opts.ReadOnly {
		return ErrReadOnly
	}
	doc, err := c.opts.OnImport(ctx)
	if err != nil {
		return err
	}
	c.store.Load(doc)
	return nil
}

// ExportJSON produces the document artifact and suggested filename, handing
// the document to the host sink when one is configured.
func (c *Canvas) ExportJSON(ctx context.Context) ([]byte, string, error) {
	doc := c.store.ToSchema()
	filename := export.Filename(doc.Name, export.ExtJSON)

	observability.Export().OnExportStart(ctx, "json", len(doc.Nodes))
	start := time.Now()
	data, err := export.JSON(doc)
	if err == nil && c.opts.OnExportJSON != nil {
		err = c.opts.OnExportJSON(doc, filename)
	}
	observability.Export().OnExportComplete(ctx, "json", len(data), time.Since(start), err)
	return data, filename, err
}

// ExportSVG renders the diagram to SVG, handing the bytes to the host sink
// when one is configured.
func (c *Canvas) ExportSVG(ctx context.Context) ([]byte, string, error) {
	return c.exportRendered(ctx, "svg", export.ExtSVG, export.SVG, c.opts.OnExportSVG)
}

// ExportImage renders the diagram to PNG, handing the bytes to the host sink
// when one is configured.
func (c *Canvas) ExportImage(ctx context.Context) ([]byte, string, error) {
	return c.exportRendered(ctx, "png", export.ExtPNG, export.PNG, c.opts.OnExportImage)
}

func (c *Canvas) exportRendered(
	ctx context.Context,
	format, ext string,
	render func(context.Context, schema.Diagram) ([]byte, error),
	sink func([]byte, string) error,
) ([]byte, string, error) {
	doc := c.store.ToSchema()
	filename := export.Filename(doc.Name, ext)

	observability.Export().OnExportStart(ctx, format, len(doc.Nodes))
	start := time.Now()
	data, err := render(ctx, doc)
	if err == nil && sink != nil {
		err = sink(data, filename)
	}
	observability.Export().OnExportComplete(ctx, format, len(data), time.Since(start), err)
	return data, filename, err
}
