// Package slog provides logging decorators for docxjson services.
package slog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fwojciec/docxjson"
)

// Ensure LoggingConverter implements docxjson.Converter.
var _ docxjson.Converter = (*LoggingConverter)(nil)

// LoggingConverter wraps a Converter with logging.
type LoggingConverter struct {
	next   docxjson.Converter
	logger *slog.Logger
}

// NewLoggingConverter creates a new LoggingConverter.
func NewLoggingConverter(next docxjson.Converter, logger *slog.Logger) *LoggingConverter {
	return &LoggingConverter{next: next, logger: logger}
}

// Convert delegates to the wrapped converter and logs the operation.
func (c *LoggingConverter) Convert(ctx context.Context, src *docxjson.Source) (doc *docxjson.Document, err error) {
	defer func(begin time.Time) {
		var name string
		var origin docxjson.Origin
		var size int
		if src != nil {
			name, origin, size = src.Name, src.Origin, len(src.Data)
		}
		var tables, lines int
		if doc != nil {
			tables, lines = len(doc.Tables), doc.LineCount()
		}
		c.logger.Info("convert",
			"trace_id", traceID(ctx, err),
			"source", name,
			"origin", origin,
			"bytes", size,
			"tables", tables,
			"lines", lines,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Convert(ctx, src)
}

// traceID prefers the ID the converter assigned over the one in ctx.
func traceID(ctx context.Context, err error) string {
	var convErr *docxjson.ConversionError
	if errors.As(err, &convErr) {
		return convErr.TraceID
	}
	return docxjson.TraceIDFromContext(ctx)
}
