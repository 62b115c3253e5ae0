// Package server assembles the HTTP surface: Connect procedures, report
// downloads, health and metrics.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mmynk/hearth/internal/auth"
	"github.com/mmynk/hearth/internal/metrics"
	"github.com/mmynk/hearth/internal/middleware"
	"github.com/mmynk/hearth/internal/report"
	"github.com/mmynk/hearth/internal/service"
)

// Deps are the components the router serves.
type Deps struct {
	Service       *service.Service
	Authenticator auth.Authenticator
	Metrics       *metrics.Metrics
	Renderer      report.Renderer
}

// NewRouter builds the root handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	interceptors := []connect.Interceptor{
		middleware.NewLoggingInterceptor(nil),
	}
	if d.Metrics != nil {
		interceptors = append(interceptors, middleware.NewMetricsInterceptor(d.Metrics))
	}
	interceptors = append(interceptors, middleware.RequireAuth(d.Authenticator))

	for _, route := range d.Service.Routes(connect.WithInterceptors(interceptors...)) {
		r.Handle(route.Path, route.Handler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPAuth(d.Authenticator))
		r.Get("/reports/{file}", exportReport(d.Service, d.Renderer))
	})
	return r
}

// exportReport serves /reports/{debts|bills}.pdf. Query parameters:
// householdId, personId, month, year, detailed.
func exportReport(svc *service.Service, renderer report.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := chi.URLParam(r, "file")
		name, ok := strings.CutSuffix(file, ".pdf")
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("unknown report %q", file))
			return
		}
		kind, err := report.ParseKind(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		q := r.URL.Query()
		req := &service.ReportRequest{
			HouseholdID: q.Get("householdId"),
			PersonID:    q.Get("personId"),
			Month:       q.Get("month"),
			Year:        q.Get("year"),
		}
		detailed := q.Get("detailed") == "true" || q.Get("detailed") == "1"

		doc, err := svc.ExportReport(r.Context(), kind, req, detailed)
		if err != nil {
			var connectErr *connect.Error
			if errors.As(err, &connectErr) {
				writeError(w, httpStatus(connectErr.Code()), connectErr.Message())
				return
			}
			writeError(w, http.StatusInternalServerError, "could not build the report")
			return
		}

		w.Header().Set("Content-Type", renderer.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
		if err := renderer.Render(w, doc); err != nil {
			slog.ErrorContext(r.Context(), "Failed to render report", "error", err, "kind", kind)
		}
	}
}

func httpStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument:
		return http.StatusBadRequest
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized
	case connect.CodePermissionDenied:
		return http.StatusForbidden
	case connect.CodeNotFound:
		return http.StatusNotFound
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
