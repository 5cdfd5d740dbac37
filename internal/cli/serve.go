package cli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/modata-dev/modata/pkg/export"
	"github.com/modata-dev/modata/pkg/layout"
	"github.com/modata-dev/modata/pkg/persist"
	"github.com/modata-dev/modata/pkg/schema"
)

// newServeCmd creates the serve command for running the diagram HTTP API.
func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the diagram HTTP API",
		Long: `Run the diagram HTTP API against the configured persistence backend.

Routes:
  GET    /diagrams                      list saved diagrams
  GET    /diagrams/last                 last-opened diagram name
  PUT    /diagrams/last                 set the last-opened pointer
  GET    /diagrams/{name}               fetch a diagram document
  PUT    /diagrams/{name}               save a diagram document
  DELETE /diagrams/{name}               delete a diagram
  POST   /diagrams/{name}/layout        apply auto-layout and save
  GET    /diagrams/{name}/export.svg    render as SVG
  GET    /diagrams/{name}/export.png    render as PNG
  GET    /diagrams/{name}/export.json   canonical document download`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default from config, :8080)")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	logger := loggerFromContext(ctx)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Serve.Addr
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &diagramServer{store: store, cfg: cfg, logger: logger}
	logger.Infof("Serving diagram API on %s (%s backend)", addr, cfg.Backend)
	return http.ListenAndServe(addr, srv.routes())
}

// diagramServer exposes the persistence backend over HTTP.
type diagramServer struct {
	store  persist.Store
	cfg    Config
	logger *charmlog.Logger
}

func (s *diagramServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/diagrams", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/last", s.handleLastGet)
		r.Put("/last", s.handleLastSet)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handleSave)
			r.Delete("/", s.handleDelete)
			r.Post("/layout", s.handleLayout)
			r.Get("/export.svg", s.handleExportSVG)
			r.Get("/export.png", s.handleExportPNG)
			r.Get("/export.json", s.handleExportJSON)
		})
	})
	return r
}

// requestLogger logs each request with method, path, status, and duration.
func (s *diagramServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *diagramServer) handleList(w http.ResponseWriter, r *http.Request) {
	metas, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if metas == nil {
		metas = []persist.Meta{}
	}
	s.writeJSON(w, http.StatusOK, metas)
}

func (s *diagramServer) handleGet(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDiagram(w, r)
	if !ok {
		return
	}
	s.writeDiagram(w, d)
}

func (s *diagramServer) handleSave(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body := http.MaxBytesReader(w, r.Body, 8<<20)
	d, err := schema.Read(body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	// The URL names the slot; the body's name must agree.
	if d.Name != name {
		s.writeError(w, http.StatusBadRequest, errors.New("diagram name does not match URL"))
		return
	}
	d.UpdatedAt = schema.Now()

	if err := s.store.Save(r.Context(), d); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, persist.Meta{Name: d.Name, UpdatedAt: d.UpdatedAt})
}

func (s *diagramServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	err := s.store.Delete(r.Context(), name)
	if errors.Is(err, persist.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *diagramServer) handleLayout(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDiagram(w, r)
	if !ok {
		return
	}

	dir, err := resolveDirection(r.URL.Query().Get("direction"), s.cfg)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	d.Nodes = layout.Apply(d.Nodes, d.Edges, layout.Options{Direction: dir})
	d.UpdatedAt = schema.Now()

	if err := s.store.Save(r.Context(), d); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeDiagram(w, d)
}

func (s *diagramServer) handleLastGet(w http.ResponseWriter, r *http.Request) {
	name, err := s.store.LastOpened(r.Context())
	if errors.Is(err, persist.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *diagramServer) handleLastSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("body must be {\"name\": ...}"))
		return
	}
	if err := s.store.SetLastOpened(r.Context(), req.Name); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *diagramServer) handleExportSVG(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "image/svg+xml", export.ExtSVG, export.SVG)
}

func (s *diagramServer) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "image/png", export.ExtPNG, export.PNG)
}

func (s *diagramServer) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "application/json", export.ExtJSON,
		func(_ context.Context, d schema.Diagram) ([]byte, error) {
			return export.JSON(d)
		})
}

func (s *diagramServer) handleExport(
	w http.ResponseWriter,
	r *http.Request,
	contentType, ext string,
	render func(context.Context, schema.Diagram) ([]byte, error),
) {
	d, ok := s.loadDiagram(w, r)
	if !ok {
		return
	}

	data, err := render(r.Context(), d)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+export.Filename(d.Name, ext)+"\"")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// =============================================================================
// Helpers
// =============================================================================

// loadDiagram fetches the diagram named in the URL, writing the error
// response itself on failure.
func (s *diagramServer) loadDiagram(w http.ResponseWriter, r *http.Request) (schema.Diagram, bool) {
	name := chi.URLParam(r, "name")
	d, err := s.store.Load(r.Context(), name)
	if errors.Is(err, persist.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return schema.Diagram{}, false
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return schema.Diagram{}, false
	}
	return d, true
}

func (s *diagramServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDiagram writes the document in its canonical indented form.
func (s *diagramServer) writeDiagram(w http.ResponseWriter, d schema.Diagram) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = schema.Write(d, w)
}

func (s *diagramServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
