package mock

import (
	"context"

	"github.com/fwojciec/docxjson"
)

var _ docxjson.ConversionService = (*ConversionService)(nil)

// ConversionService is a mock implementation of docxjson.ConversionService.
type ConversionService struct {
	CreateConversionFn   func(ctx context.Context, c *docxjson.Conversion) error
	FindConversionByIDFn func(ctx context.Context, id string) (*docxjson.Conversion, error)
	FindConversionsFn    func(ctx context.Context, filter docxjson.ConversionFilter) ([]*docxjson.Conversion, error)
	DeleteConversionFn   func(ctx context.Context, id string) error
}

func (s *ConversionService) CreateConversion(ctx context.Context, c *docxjson.Conversion) error {
	return s.CreateConversionFn(ctx, c)
}

func (s *ConversionService) FindConversionByID(ctx context.Context, id string) (*docxjson.Conversion, error) {
	return s.FindConversionByIDFn(ctx, id)
}

func (s *ConversionService) FindConversions(ctx context.Context, filter docxjson.ConversionFilter) ([]*docxjson.Conversion, error) {
	return s.FindConversionsFn(ctx, filter)
}

func (s *ConversionService) DeleteConversion(ctx context.Context, id string) error {
	return s.DeleteConversionFn(ctx, id)
}
