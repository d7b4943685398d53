package mock_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docxjson"
	"github.com/fwojciec/docxjson/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionService_ImplementsInterface(t *testing.T) {
	t.Parallel()

	var _ docxjson.ConversionService = &mock.ConversionService{}
}

func TestConversionService_CreateConversion(t *testing.T) {
	t.Parallel()

	t.Run("delegates to CreateConversionFn", func(t *testing.T) {
		t.Parallel()

		var calledWith *docxjson.Conversion
		s := &mock.ConversionService{
			CreateConversionFn: func(_ context.Context, c *docxjson.Conversion) error {
				calledWith = c
				return nil
			},
		}

		c := &docxjson.Conversion{TraceID: "trace-1", Status: docxjson.StatusSucceeded}
		err := s.CreateConversion(context.Background(), c)

		require.NoError(t, err)
		assert.Same(t, c, calledWith)
	})

	t.Run("returns error from CreateConversionFn", func(t *testing.T) {
		t.Parallel()

		s := &mock.ConversionService{
			CreateConversionFn: func(_ context.Context, _ *docxjson.Conversion) error {
				return docxjson.Errorf(docxjson.EINVALID, "bad record")
			},
		}

		err := s.CreateConversion(context.Background(), &docxjson.Conversion{})

		assert.Equal(t, docxjson.EINVALID, docxjson.ErrorCode(err))
	})
}
