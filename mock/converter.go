package mock

import (
	"context"

	"github.com/fwojciec/docxjson"
)

var _ docxjson.Converter = (*Converter)(nil)

// Converter is a mock implementation of docxjson.Converter.
type Converter struct {
	ConvertFn func(ctx context.Context, src *docxjson.Source) (*docxjson.Document, error)
}

func (c *Converter) Convert(ctx context.Context, src *docxjson.Source) (*docxjson.Document, error) {
	return c.ConvertFn(ctx, src)
}

var _ docxjson.Renderer = (*Renderer)(nil)

// Renderer is a mock implementation of docxjson.Renderer.
type Renderer struct {
	RenderFn func(ctx context.Context, docx []byte) (string, error)
}

func (r *Renderer) Render(ctx context.Context, docx []byte) (string, error) {
	return r.RenderFn(ctx, docx)
}
