package docxjson

// Document is the JSON representation of every table found in a document.
type Document struct {
	Tables []Table `json:"tables"`
}

// Table holds the rows of one table, in child order.
type Table struct {
	Rows []Row `json:"rows"`
}

// Row holds the cells of one table row, in child order.
type Row struct {
	Cells []Cell `json:"cells"`
}

// Cell holds the extracted lines of one table cell.
type Cell struct {
	// HTML is the raw inner markup of the cell. It is nil unless cell HTML
	// was requested, and present (possibly empty) when it was.
	HTML *string `json:"html,omitempty"`

	Lines []Line `json:"lines"`
}

// Line is one logical line of text within a cell.
type Line struct {
	// Type is the tag name of the element holding the span run that
	// closed this line (e.g. "p", "h1", "td", "a").
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewDocument returns a Document with an empty, non-nil table list.
func NewDocument() *Document {
	return &Document{Tables: []Table{}}
}

// LineCount returns the total number of lines across all cells.
func (d *Document) LineCount() int {
	n := 0
	for _, t := range d.Tables {
		for _, r := range t.Rows {
			for _, c := range r.Cells {
				n += len(c.Lines)
			}
		}
	}
	return n
}

// TableExtractor extracts table content from HTML.
type TableExtractor interface {
	// Extract parses html and returns every table in document order.
	// Documents without tables yield an empty table list, not an error.
	// When includeCellHTML is set, each cell carries its raw inner markup.
	Extract(html string, includeCellHTML bool) (*Document, error)
}
