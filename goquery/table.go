// Package goquery extracts table content from HTML using goquery.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docxjson"
	"golang.org/x/net/html"
)

// Ensure TableExtractor implements docxjson.TableExtractor at compile time.
var _ docxjson.TableExtractor = (*TableExtractor)(nil)

// TableExtractor walks table/row/cell/span structure into a docxjson.Document.
// It holds no state and is safe for concurrent use.
type TableExtractor struct{}

// NewTableExtractor creates a new TableExtractor.
func NewTableExtractor() *TableExtractor {
	return &TableExtractor{}
}

// Extract parses rawHTML and returns every table in document order,
// including tables nested inside other tables.
func (e *TableExtractor) Extract(rawHTML string, includeCellHTML bool) (*docxjson.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, docxjson.Errorf(docxjson.EINVALID, "failed to parse HTML: %v", err)
	}

	result := docxjson.NewDocument()
	var extractErr error
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		t, err := extractTable(table, includeCellHTML)
		if err != nil {
			extractErr = err
			return false
		}
		result.Tables = append(result.Tables, t)
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	return result, nil
}

func extractTable(table *goquery.Selection, includeCellHTML bool) (docxjson.Table, error) {
	t := docxjson.Table{Rows: []docxjson.Row{}}
	// HTML5 parsing moves bare rows into an implied tbody, so a literal
	// table > tr match would find nothing. Explicit thead, tbody and tfoot
	// rows are taken as direct rows for the same reason.
	for _, tr := range tableRows(table) {
		r := docxjson.Row{Cells: []docxjson.Cell{}}
		var cellErr error
		tr.ChildrenFiltered("td").EachWithBreak(func(_ int, td *goquery.Selection) bool {
			c, err := extractCell(td, includeCellHTML)
			if err != nil {
				cellErr = err
				return false
			}
			r.Cells = append(r.Cells, c)
			return true
		})
		if cellErr != nil {
			return t, cellErr
		}
		t.Rows = append(t.Rows, r)
	}
	return t, nil
}

// tableRows returns the rows belonging to the table itself, in order.
// The HTML parser wraps bare rows in an implied tbody, so rows inside the
// table's own row groups count as direct rows. Rows of nested tables do not.
func tableRows(table *goquery.Selection) []*goquery.Selection {
	var rows []*goquery.Selection
	table.Children().Each(func(_ int, child *goquery.Selection) {
		switch goquery.NodeName(child) {
		case "tr":
			rows = append(rows, child)
		case "thead", "tbody", "tfoot":
			child.ChildrenFiltered("tr").Each(func(_ int, tr *goquery.Selection) {
				rows = append(rows, tr)
			})
		}
	})
	return rows
}

func extractCell(td *goquery.Selection, includeCellHTML bool) (docxjson.Cell, error) {
	c := docxjson.Cell{}

	if includeCellHTML {
		inner, err := td.Html()
		if err != nil {
			return c, err
		}
		c.HTML = &inner
	}

	lines, err := extractLines(td.Get(0))
	if err != nil {
		return c, err
	}
	c.Lines = lines
	return c, nil
}

// extractLines groups the cell's descendant spans into lines. Span text
// accumulates until a span with no next sibling node closes the line; the
// line takes the tag name of that span's parent. Text left over after the
// last closing span is dropped.
func extractLines(cell *html.Node) ([]docxjson.Line, error) {
	lines := []docxjson.Line{}
	var text strings.Builder

	for _, span := range descendantSpans(cell) {
		inner, err := innerHTML(span)
		if err != nil {
			return nil, err
		}
		text.WriteString(html.UnescapeString(inner))

		if span.NextSibling == nil {
			lines = append(lines, docxjson.Line{
				Type: span.Parent.Data,
				Text: text.String(),
			})
			text.Reset()
		}
	}

	return lines, nil
}

// descendantSpans returns every span element below n in document order,
// including spans nested inside other spans.
func descendantSpans(n *html.Node) []*html.Node {
	var spans []*html.Node
	stack := childrenReversed(n, nil)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node.Type == html.ElementNode && node.Data == "span" {
			spans = append(spans, node)
		}
		stack = childrenReversed(node, stack)
	}
	return spans
}

// childrenReversed pushes n's children onto stack so the first child is popped first.
func childrenReversed(n *html.Node, stack []*html.Node) []*html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		stack = append(stack, c)
	}
	return stack
}

func innerHTML(n *html.Node) (string, error) {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}
