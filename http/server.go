package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/fwojciec/docxjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// TraceIDHeader carries the trace ID assigned to each request.
const TraceIDHeader = "X-Trace-Id"

// DefaultMaxBodyBytes limits request bodies. Base64 inflates a document by
// a third, so this admits documents up to DefaultMaxBlobBytes.
const DefaultMaxBodyBytes = DefaultMaxBlobBytes * 4 / 3

// Error messages returned to clients for malformed requests.
const (
	msgInvalidPayload = `Payload is expected in the format: { "base64data": "abcd..." }`
	msgInvalidBlobURI = "Please supply a valid URL to the blob on the query string or in the request body, with a name of 'blobUri'"
)

// Server exposes the HTTP conversion triggers.
type Server struct {
	Converter docxjson.Converter
	Fetcher   docxjson.BlobFetcher

	// MetricsHandler, if set, is served at /metrics.
	MetricsHandler http.Handler

	// MaxBodyBytes limits request bodies. Defaults to DefaultMaxBodyBytes.
	MaxBodyBytes int64

	Logger *slog.Logger
}

type convertRequest struct {
	Name       string `json:"name"`
	Base64Data string `json:"base64data"`
}

type blobRequest struct {
	BlobURI string `json:"blobUri"`
}

type errorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"traceId"`
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(traceMiddleware)
	r.Use(s.logMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})
	if s.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", s.MetricsHandler)
	}

	r.Post("/api/convert", s.handleConvert)
	r.Get("/api/convert/blob", s.handleConvertBlob)
	r.Post("/api/convert/blob", s.handleConvertBlob)

	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	s.logger().Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleConvert converts a base64-encoded document.
// POST /api/convert
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes())).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, docxjson.Errorf(docxjson.EINVALID, "request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, docxjson.Errorf(docxjson.EINVALID, msgInvalidPayload))
		return
	}
	if req.Base64Data == "" {
		s.writeError(w, r, docxjson.Errorf(docxjson.EINVALID, msgInvalidPayload))
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Base64Data)
	if err != nil {
		s.writeError(w, r, docxjson.Errorf(docxjson.EINVALID, "base64data is not valid base64"))
		return
	}

	name := req.Name
	if name == "" {
		name = "request"
	}

	doc, err := s.Converter.Convert(r.Context(), &docxjson.Source{
		Name:   name,
		Origin: docxjson.OriginHTTP,
		Data:   data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleConvertBlob fetches a document by URI and converts it.
// GET|POST /api/convert/blob
func (s *Server) handleConvertBlob(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("blobUri")
	if uri == "" && r.Method == http.MethodPost {
		var req blobRequest
		// An undecodable body leaves uri empty and fails validation below.
		_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes())).Decode(&req)
		uri = req.BlobURI
	}

	u, err := ParseBlobURI(strings.TrimSpace(uri))
	if err != nil {
		s.writeError(w, r, docxjson.Errorf(docxjson.EINVALID, msgInvalidBlobURI))
		return
	}

	data, err := s.Fetcher.FetchBlob(r.Context(), u.String())
	if err != nil {
		s.logger().Error("fetching blob", "trace_id", docxjson.TraceIDFromContext(r.Context()), "uri", u.String(), "err", err)
		s.writeError(w, r, err)
		return
	}

	doc, err := s.Converter.Convert(r.Context(), &docxjson.Source{
		Name:   path.Base(u.Path),
		Origin: docxjson.OriginURL,
		Data:   data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// writeError writes err as a JSON error body with a status derived from its code.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := docxjson.TraceIDFromContext(r.Context())
	var convErr *docxjson.ConversionError
	if errors.As(err, &convErr) {
		traceID = convErr.TraceID
	}

	writeJSON(w, ErrorStatusCode(docxjson.ErrorCode(err)), &errorResponse{
		Error:   docxjson.ErrorMessage(err),
		TraceID: traceID,
	})
}

func (s *Server) maxBodyBytes() int64 {
	if s.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return s.MaxBodyBytes
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// logMiddleware logs each request once it completes.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger().Info("request",
			"trace_id", docxjson.TraceIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// traceMiddleware assigns a trace ID to the request context and response.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := uuid.New().String()
		w.Header().Set(TraceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(docxjson.NewContextWithTraceID(r.Context(), traceID)))
	})
}

// ErrorStatusCode maps an application error code to an HTTP status.
func ErrorStatusCode(code string) int {
	switch code {
	case docxjson.EINVALID:
		return http.StatusBadRequest
	case docxjson.ENOTFOUND:
		return http.StatusNotFound
	case docxjson.ECONFLICT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
