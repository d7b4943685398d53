package docxjson

import (
	"context"
	"time"
)

// ConversionStatus is the outcome of a conversion.
type ConversionStatus string

// ConversionStatus constants.
const (
	StatusSucceeded ConversionStatus = "succeeded"
	StatusFailed    ConversionStatus = "failed"
)

// Conversion records one conversion attempt.
type Conversion struct {
	ID         string           `json:"id"`
	TraceID    string           `json:"traceId"`
	Source     string           `json:"source"`
	Origin     Origin           `json:"origin"`
	SourceHash string           `json:"sourceHash"`
	Status     ConversionStatus `json:"status"`
	Error      string           `json:"error,omitempty"`
	Tables     int              `json:"tables"`
	Output     string           `json:"output,omitempty"` // JSON, successful conversions only
	CreatedAt  time.Time        `json:"createdAt"`
}

// Validate returns an error if the conversion contains invalid fields.
func (c *Conversion) Validate() error {
	if c.TraceID == "" {
		return Errorf(EINVALID, "conversion trace ID required")
	}
	switch c.Status {
	case StatusSucceeded, StatusFailed:
	default:
		return Errorf(EINVALID, "invalid conversion status %q", c.Status)
	}
	return nil
}

// ConversionService represents a service for managing conversion records.
type ConversionService interface {
	// CreateConversion stores a new conversion record.
	CreateConversion(ctx context.Context, c *Conversion) error

	// FindConversionByID retrieves a conversion by ID.
	// Returns ENOTFOUND if the conversion does not exist.
	FindConversionByID(ctx context.Context, id string) (*Conversion, error)

	// FindConversions retrieves conversions matching the filter, newest first.
	FindConversions(ctx context.Context, filter ConversionFilter) ([]*Conversion, error)

	// DeleteConversion permanently removes a conversion.
	// Returns ENOTFOUND if the conversion does not exist.
	DeleteConversion(ctx context.Context, id string) error
}

// ConversionFilter represents a filter for FindConversions.
type ConversionFilter struct {
	ID         *string           `json:"id"`
	Source     *string           `json:"source"`
	SourceHash *string           `json:"sourceHash"`
	Origin     *Origin           `json:"origin"`
	Status     *ConversionStatus `json:"status"`

	// OmitOutput leaves Output empty on the returned records.
	OmitOutput bool `json:"omitOutput"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
