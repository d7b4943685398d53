// Package etree renders Word documents to HTML by walking their
// WordprocessingML with beevik/etree.
package etree

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docxjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Package part names inside a .docx archive.
const (
	documentPart       = "word/document.xml"
	documentRelsPart   = "word/_rels/document.xml.rels"
	corePropertiesPart = "docProps/core.xml"
)

// DefaultMaxPartSize bounds the decompressed size of a single package part.
const DefaultMaxPartSize = 64 << 20

// Ensure Renderer implements docxjson.Renderer at compile time.
var _ docxjson.Renderer = (*Renderer)(nil)

// Renderer converts .docx packages to HTML. Revisions are accepted, and
// bookmarks, comments, field codes, proofing marks and content controls
// are removed before rendering. Hyperlinks are kept.
type Renderer struct {
	maxPartSize int64
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithMaxPartSize sets the largest decompressed part the renderer will read.
// Defaults to DefaultMaxPartSize (64 MiB) if not specified.
func WithMaxPartSize(n int64) Option {
	return func(r *Renderer) {
		r.maxPartSize = n
	}
}

// NewRenderer creates a new Renderer.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{maxPartSize: DefaultMaxPartSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts the .docx bytes into an HTML document.
func (r *Renderer) Render(ctx context.Context, docx []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	zr, err := zip.NewReader(bytes.NewReader(docx), int64(len(docx)))
	if err != nil {
		return "", docxjson.Errorf(docxjson.EINVALID, "not a Word document: %v", err)
	}

	body, err := r.readXML(zr, documentPart)
	if err != nil {
		return "", err
	}
	if body == nil {
		return "", docxjson.Errorf(docxjson.EINVALID, "%s not found in archive", documentPart)
	}

	rels, err := r.readRelationships(zr)
	if err != nil {
		return "", err
	}

	title, err := r.readTitle(zr)
	if err != nil {
		return "", err
	}

	w := &walker{rels: rels}
	root := w.document(body, title)

	var b strings.Builder
	if err := html.Render(&b, root); err != nil {
		return "", fmt.Errorf("rendering HTML: %w", err)
	}
	return b.String(), nil
}

// readXML parses a package part. A missing part returns a nil document.
func (r *Renderer) readXML(zr *zip.Reader, name string) (*etree.Document, error) {
	var part *zip.File
	for _, f := range zr.File {
		if f.Name == name {
			part = f
			break
		}
	}
	if part == nil {
		return nil, nil
	}

	rc, err := part.Open()
	if err != nil {
		return nil, docxjson.Errorf(docxjson.EINVALID, "open %s: %v", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, r.maxPartSize+1))
	if err != nil {
		return nil, docxjson.Errorf(docxjson.EINVALID, "read %s: %v", name, err)
	}
	if int64(len(data)) > r.maxPartSize {
		return nil, docxjson.Errorf(docxjson.EINVALID, "%s exceeds %d bytes", name, r.maxPartSize)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, docxjson.Errorf(docxjson.EINVALID, "parse %s: %v", name, err)
	}
	if doc.Root() == nil {
		return nil, docxjson.Errorf(docxjson.EINVALID, "%s has no root element", name)
	}
	return doc, nil
}

// readRelationships maps relationship IDs to their targets.
func (r *Renderer) readRelationships(zr *zip.Reader) (map[string]string, error) {
	rels := make(map[string]string)
	doc, err := r.readXML(zr, documentRelsPart)
	if err != nil || doc == nil {
		return rels, err
	}
	for _, rel := range doc.Root().ChildElements() {
		if rel.Tag != "Relationship" {
			continue
		}
		rels[attr(rel, "Id")] = attr(rel, "Target")
	}
	return rels, nil
}

// readTitle returns the dc:title core property, or "" if absent.
func (r *Renderer) readTitle(zr *zip.Reader) (string, error) {
	doc, err := r.readXML(zr, corePropertiesPart)
	if err != nil || doc == nil {
		return "", err
	}
	if t := child(doc.Root(), "title"); t != nil {
		return strings.TrimSpace(t.Text()), nil
	}
	return "", nil
}

// walker converts one document body. Field state spans paragraphs,
// so a walker must not be shared between documents.
type walker struct {
	rels map[string]string

	// fields holds one entry per open complex field; true while the
	// field is still in its instruction part.
	fields []bool
}

func (w *walker) document(doc *etree.Document, title string) *html.Node {
	root := &html.Node{Type: html.DocumentNode}
	root.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	htmlEl := element("html")
	head := element("head")
	head.AppendChild(element("meta", html.Attribute{Key: "charset", Val: "utf-8"}))
	titleEl := element("title")
	titleEl.AppendChild(text(title))
	head.AppendChild(titleEl)
	htmlEl.AppendChild(head)

	bodyEl := element("body")
	if body := child(doc.Root(), "body"); body != nil {
		w.blocks(body, bodyEl)
	}
	htmlEl.AppendChild(bodyEl)

	root.AppendChild(htmlEl)
	return root
}

// blocks renders block-level content (paragraphs and tables).
func (w *walker) blocks(container *etree.Element, parent *html.Node) {
	for _, el := range container.ChildElements() {
		switch el.Tag {
		case "p":
			parent.AppendChild(w.paragraph(el))
		case "tbl":
			parent.AppendChild(w.table(el))
		case "sdt":
			if content := child(el, "sdtContent"); content != nil {
				w.blocks(content, parent)
			}
		case "customXml", "ins", "moveTo":
			w.blocks(el, parent)
		}
	}
}

func (w *walker) paragraph(p *etree.Element) *html.Node {
	style := ""
	if pPr := child(p, "pPr"); pPr != nil {
		if ps := child(pPr, "pStyle"); ps != nil {
			style = attr(ps, "val")
		}
	}

	var n *html.Node
	if level := headingLevel(style); level > 0 {
		n = element("h" + strconv.Itoa(level))
	} else if style != "" {
		n = element("p", html.Attribute{Key: "class", Val: style})
	} else {
		n = element("p")
	}

	w.inline(p, n)
	return n
}

// inline renders run-level content into parent.
func (w *walker) inline(container *etree.Element, parent *html.Node) {
	for _, el := range container.ChildElements() {
		switch el.Tag {
		case "r":
			if span := w.run(el); span != nil {
				parent.AppendChild(span)
			}
		case "hyperlink":
			a := element("a")
			if href := w.hyperlinkTarget(el); href != "" {
				a.Attr = append(a.Attr, html.Attribute{Key: "href", Val: href})
			}
			w.inline(el, a)
			if a.FirstChild != nil {
				parent.AppendChild(a)
			}
		case "sdt":
			if content := child(el, "sdtContent"); content != nil {
				w.inline(content, parent)
			}
		case "ins", "moveTo", "smartTag", "customXml", "fldSimple":
			w.inline(el, parent)
		}
	}
}

func (w *walker) hyperlinkTarget(el *etree.Element) string {
	if id := attr(el, "id"); id != "" {
		if target, ok := w.rels[id]; ok {
			return target
		}
	}
	if anchor := attr(el, "anchor"); anchor != "" {
		return "#" + anchor
	}
	return ""
}

// run renders a text run as a span. Runs without visible content return nil.
func (w *walker) run(r *etree.Element) *html.Node {
	superscript := false
	if rPr := child(r, "rPr"); rPr != nil {
		if child(rPr, "webHidden") != nil {
			return nil
		}
		if va := child(rPr, "vertAlign"); va != nil && attr(va, "val") == "superscript" {
			superscript = true
		}
	}

	span := element("span")
	var buf strings.Builder
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		t := text(buf.String())
		if superscript {
			sup := element("sup")
			sup.AppendChild(t)
			t = sup
		}
		span.AppendChild(t)
		buf.Reset()
	}

	for _, el := range r.ChildElements() {
		switch el.Tag {
		case "fldChar":
			w.fieldChar(attr(el, "fldCharType"))
		case "t":
			if !w.inFieldCode() {
				buf.WriteString(el.Text())
			}
		case "tab", "ptab":
			if !w.inFieldCode() {
				buf.WriteByte(' ')
			}
		case "noBreakHyphen":
			if !w.inFieldCode() {
				buf.WriteByte('-')
			}
		case "br", "cr":
			if w.inFieldCode() || attr(el, "type") == "page" || attr(el, "type") == "column" {
				continue
			}
			flush()
			span.AppendChild(element("br"))
		}
	}
	flush()

	if span.FirstChild == nil {
		return nil
	}
	return span
}

func (w *walker) fieldChar(kind string) {
	switch kind {
	case "begin":
		w.fields = append(w.fields, true)
	case "separate":
		if n := len(w.fields); n > 0 {
			w.fields[n-1] = false
		}
	case "end":
		if n := len(w.fields); n > 0 {
			w.fields = w.fields[:n-1]
		}
	}
}

func (w *walker) inFieldCode() bool {
	for _, code := range w.fields {
		if code {
			return true
		}
	}
	return false
}

func (w *walker) table(tbl *etree.Element) *html.Node {
	table := element("table")
	w.rows(tbl, table)
	return table
}

func (w *walker) rows(container *etree.Element, table *html.Node) {
	for _, el := range container.ChildElements() {
		switch el.Tag {
		case "tr":
			tr := element("tr")
			w.cells(el, tr)
			table.AppendChild(tr)
		case "sdt":
			if content := child(el, "sdtContent"); content != nil {
				w.rows(content, table)
			}
		case "customXml", "ins", "moveTo":
			w.rows(el, table)
		}
	}
}

func (w *walker) cells(container *etree.Element, tr *html.Node) {
	for _, el := range container.ChildElements() {
		switch el.Tag {
		case "tc":
			td := element("td")
			if tcPr := child(el, "tcPr"); tcPr != nil {
				if gs := child(tcPr, "gridSpan"); gs != nil {
					if n, err := strconv.Atoi(attr(gs, "val")); err == nil && n > 1 {
						td.Attr = append(td.Attr, html.Attribute{Key: "colspan", Val: strconv.Itoa(n)})
					}
				}
			}
			w.blocks(el, td)
			tr.AppendChild(td)
		case "sdt":
			if content := child(el, "sdtContent"); content != nil {
				w.cells(content, tr)
			}
		case "customXml":
			w.cells(el, tr)
		}
	}
}

// headingLevel maps paragraph styles such as "Heading2" or "heading 2"
// to a heading level. Title maps to 1. Other styles return 0.
func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	rest, ok := strings.CutPrefix(s, "heading")
	if !ok || len(rest) != 1 {
		return 0
	}
	if rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

// child returns the first child element with the given local name.
func child(el *etree.Element, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// attr returns the value of the attribute with the given local name.
func attr(el *etree.Element, key string) string {
	for _, a := range el.Attr {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func element(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
