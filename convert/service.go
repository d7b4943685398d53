// Package convert orchestrates Word-to-JSON conversion. It owns the
// conversion boundary, where trace IDs are assigned and failures are
// logged and wrapped, and the blob trigger that converts stored documents.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docxjson"
	"github.com/google/uuid"
)

// Ensure Service implements docxjson.Converter at compile time.
var _ docxjson.Converter = (*Service)(nil)

// Service renders, cleans and extracts Word documents.
type Service struct {
	Renderer  docxjson.Renderer
	Extractor docxjson.TableExtractor

	// History, if set, receives a record for every conversion.
	History docxjson.ConversionService

	// StringsToRemove is applied to rendered HTML before extraction.
	StringsToRemove []string
	IncludeCellHTML bool

	Logger *slog.Logger
}

// Convert converts src. The trace ID is taken from ctx, or generated when
// ctx has none. Any failure, including a panic in a collaborator, is logged
// once and returned as a *docxjson.ConversionError.
func (s *Service) Convert(ctx context.Context, src *docxjson.Source) (*docxjson.Document, error) {
	traceID := docxjson.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
		ctx = docxjson.NewContextWithTraceID(ctx, traceID)
	}

	doc, err := safely(func() (*docxjson.Document, error) {
		if src == nil {
			return nil, docxjson.Errorf(docxjson.EINVALID, "document source required")
		}
		if err := src.Validate(); err != nil {
			return nil, err
		}
		html, err := s.Renderer.Render(ctx, src.Data)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		return s.extract(html)
	})

	if err != nil {
		err = s.fail(traceID, err)
	}
	if src != nil {
		s.record(ctx, traceID, src, doc, err)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ConvertHTML cleans and extracts already-rendered HTML. No history is recorded.
func (s *Service) ConvertHTML(ctx context.Context, html string) (*docxjson.Document, error) {
	traceID := docxjson.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.New().String()
	}

	doc, err := safely(func() (*docxjson.Document, error) {
		return s.extract(html)
	})
	if err != nil {
		return nil, s.fail(traceID, err)
	}
	return doc, nil
}

func (s *Service) extract(html string) (*docxjson.Document, error) {
	cleaned := docxjson.Clean(html, s.StringsToRemove)
	doc, err := s.Extractor.Extract(cleaned, s.IncludeCellHTML)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return doc, nil
}

func (s *Service) fail(traceID string, err error) error {
	s.logger().Error("conversion failed", "trace_id", traceID, "err", err)
	return &docxjson.ConversionError{TraceID: traceID, Err: err}
}

// record stores the outcome in History. A failed write is logged and
// does not change the conversion result.
func (s *Service) record(ctx context.Context, traceID string, src *docxjson.Source, doc *docxjson.Document, convErr error) {
	if s.History == nil {
		return
	}

	c := &docxjson.Conversion{
		TraceID:    traceID,
		Source:     src.Name,
		Origin:     src.Origin,
		SourceHash: HashSource(src.Data),
	}
	if convErr != nil {
		c.Status = docxjson.StatusFailed
		c.Error = convErr.Error()
	} else {
		out, err := json.Marshal(doc)
		if err != nil {
			s.logger().Warn("encoding conversion output", "trace_id", traceID, "err", err)
		}
		c.Status = docxjson.StatusSucceeded
		c.Tables = len(doc.Tables)
		c.Output = string(out)
	}

	if err := s.History.CreateConversion(ctx, c); err != nil {
		s.logger().Warn("recording conversion", "trace_id", traceID, "err", err)
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// safely runs fn, turning a panic into an EINTERNAL error. The panic value
// stays in the error text for logs; ErrorMessage returns a generic message.
func safely(fn func() (*docxjson.Document, error)) (doc *docxjson.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("recovered panic: %v: %w", r, docxjson.Errorf(docxjson.EINTERNAL, "Internal error."))
		}
	}()
	return fn()
}

// HashSource returns the xxHash of data as a 16-digit hex string.
func HashSource(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
