package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/fwojciec/docxjson"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docxjson.ConversionService = (*ConversionService)(nil)

const conversionColumns = "id, trace_id, source, origin, source_hash, status, error, tables, output, created_at"

// conversionSummaryColumns matches conversionColumns with an empty output.
const conversionSummaryColumns = "id, trace_id, source, origin, source_hash, status, error, tables, '', created_at"

// ConversionService implements docxjson.ConversionService using SQLite.
type ConversionService struct {
	db *DB
}

// NewConversionService creates a new ConversionService.
func NewConversionService(db *DB) *ConversionService {
	return &ConversionService{db: db}
}

// CreateConversion stores a new conversion record.
func (s *ConversionService) CreateConversion(ctx context.Context, c *docxjson.Conversion) error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversions (`+conversionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.TraceID, c.Source, string(c.Origin), c.SourceHash, string(c.Status),
		c.Error, c.Tables, c.Output, formatTime(c.CreatedAt))

	return err
}

// FindConversionByID retrieves a conversion by ID.
func (s *ConversionService) FindConversionByID(ctx context.Context, id string) (*docxjson.Conversion, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+conversionColumns+" FROM conversions WHERE id = ?", id)

	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docxjson.Errorf(docxjson.ENOTFOUND, "conversion not found")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindConversions retrieves conversions matching the filter, newest first.
func (s *ConversionService) FindConversions(ctx context.Context, filter docxjson.ConversionFilter) ([]*docxjson.Conversion, error) {
	var query strings.Builder
	var args []any

	columns := conversionColumns
	if filter.OmitOutput {
		columns = conversionSummaryColumns
	}
	query.WriteString("SELECT " + columns + " FROM conversions WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.Source != nil {
		query.WriteString(" AND source = ?")
		args = append(args, *filter.Source)
	}
	if filter.SourceHash != nil {
		query.WriteString(" AND source_hash = ?")
		args = append(args, *filter.SourceHash)
	}
	if filter.Origin != nil {
		query.WriteString(" AND origin = ?")
		args = append(args, string(*filter.Origin))
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}

	query.WriteString(" ORDER BY created_at DESC, rowid DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []*docxjson.Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}

	return convs, rows.Err()
}

// DeleteConversion permanently removes a conversion.
func (s *ConversionService) DeleteConversion(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM conversions WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return docxjson.Errorf(docxjson.ENOTFOUND, "conversion not found")
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversion(sc scanner) (*docxjson.Conversion, error) {
	var c docxjson.Conversion
	var origin, status, createdAt string

	if err := sc.Scan(&c.ID, &c.TraceID, &c.Source, &origin, &c.SourceHash, &status,
		&c.Error, &c.Tables, &c.Output, &createdAt); err != nil {
		return nil, err
	}

	c.Origin = docxjson.Origin(origin)
	c.Status = docxjson.ConversionStatus(status)

	var err error
	c.CreatedAt, err = parseTime(createdAt, "created_at")
	if err != nil {
		return nil, err
	}

	return &c, nil
}
