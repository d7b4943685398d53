package mock

import "github.com/fwojciec/docxjson"

var _ docxjson.TableExtractor = (*TableExtractor)(nil)

// TableExtractor is a mock implementation of docxjson.TableExtractor.
type TableExtractor struct {
	ExtractFn func(html string, includeCellHTML bool) (*docxjson.Document, error)
}

func (e *TableExtractor) Extract(html string, includeCellHTML bool) (*docxjson.Document, error) {
	return e.ExtractFn(html, includeCellHTML)
}
