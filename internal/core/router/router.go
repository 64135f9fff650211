// Package router maps the EDR query endpoints onto coverage providers.
package router

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/edrerr"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/model"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/core/observability"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/logger"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/provider"
	"github.com/mohammed-shakir/edr-coverage-engine/internal/writer"
)

// Handler serves the query endpoints of every configured collection.
type Handler struct {
	log       *slog.Logger
	providers map[string]provider.CoverageProvider
	writers   *writer.Registry
}

func New(log *slog.Logger, providers map[string]provider.CoverageProvider, writers *writer.Registry) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if writers == nil {
		writers = writer.DefaultRegistry()
	}
	return &Handler{log: log, providers: providers, writers: writers}
}

// queryFunc runs one query type; c carries the negotiated media type.
type queryFunc func(ctx context.Context, p provider.CoverageProvider, r *http.Request, c model.Common) (provider.Result, error)

func (h *Handler) Routes(r chi.Router) {
	r.Route("/collections/{collectionId}", func(r chi.Router) {
		r.Get("/position", h.serve(model.Position, writer.Coverage, position))
		r.Get("/area", h.serve(model.Area, writer.Coverage, area))
		r.Get("/cube", h.serve(model.Cube, writer.Coverage, cube))
		r.Get("/radius", h.serve(model.Radius, writer.Coverage, radius))
		r.Get("/trajectory", h.serve(model.Trajectory, writer.Coverage, trajectory))
		r.Get("/corridor", h.serve(model.Corridor, writer.Coverage, corridor))
		r.Get("/items", h.serve(model.Items, writer.Listing, items))
		r.Get("/items/{itemId}", h.serve(model.Item, writer.Object, item))
		r.Get("/locations", h.serve(model.Locations, writer.Listing, locations))
		r.Get("/locations/{locId}", h.serve(model.Location, writer.Coverage, location))
	})
}

func (h *Handler) serve(qt model.QueryType, cat writer.Category, fn queryFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, routePattern(r), sw.code, time.Since(start).Seconds())
		}()

		id := chi.URLParam(r, "collectionId")
		ctx := logger.WithQueryType(logger.WithCollection(r.Context(), id), string(qt))

		res, wr, err := h.run(ctx, r, id, cat, fn)
		if err != nil {
			h.fail(ctx, sw, err)
			return
		}
		var buf bytes.Buffer
		if err := wr.Write(&buf, res); err != nil {
			h.fail(ctx, sw, err)
			return
		}
		sw.Header().Set("Content-Type", wr.MediaType())
		sw.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(sw)
	}
}

func (h *Handler) run(ctx context.Context, r *http.Request, id string, cat writer.Category, fn queryFunc) (provider.Result, writer.ResultWriter, error) {
	p, ok := h.providers[id]
	if !ok {
		return provider.Result{}, nil, edrerr.NewNotFound("collection %s not found", id)
	}
	mt, err := writer.Negotiate(writer.NegotiationInput{
		AcceptHeader: r.Header.Get("Accept"),
		Format:       r.URL.Query().Get("f"),
		Offered:      h.writers.Offered(cat),
	})
	if err != nil {
		return provider.Result{}, nil, err
	}
	wr, err := h.writers.Lookup(cat, mt)
	if err != nil {
		return provider.Result{}, nil, err
	}
	c, err := parseCommon(r, id, mt)
	if err != nil {
		return provider.Result{}, nil, err
	}
	res, err := fn(ctx, p, r, c)
	if err != nil {
		return provider.Result{}, nil, err
	}
	return res, wr, nil
}

type exception struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func statusOf(code edrerr.Code) int {
	switch code {
	case edrerr.NotFound:
		return http.StatusNotFound
	case edrerr.InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes an EDR exception document. Internal failures are logged in
// full and reported without detail.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	code := edrerr.CodeOf(err)
	status := statusOf(code)
	desc := "internal server error"
	if status == http.StatusInternalServerError {
		h.log.ErrorContext(ctx, "query failed", "err", err)
	} else {
		desc = describe(err)
		h.log.DebugContext(ctx, "query rejected", "status", status, "err", err)
	}
	w.Header().Set("Content-Type", model.MediaJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(exception{Code: code.String(), Description: desc})
}

func describe(err error) string {
	var e *edrerr.Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if cause := e.Unwrap(); cause != nil {
		return e.Desc() + ": " + cause.Error()
	}
	return e.Desc()
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
