package docxjson

import "context"

// Origin identifies which entry point a conversion came from.
type Origin string

// Origin constants for Source and Conversion.
const (
	OriginBlob Origin = "blob"
	OriginHTTP Origin = "http"
	OriginURL  Origin = "url"
	OriginFile Origin = "file"
)

// Source is a Word document submitted for conversion.
type Source struct {
	// Name identifies the document (blob name, file path, or URI).
	Name   string
	Origin Origin
	Data   []byte
}

// Validate returns an error if the source contains invalid fields.
func (s *Source) Validate() error {
	if len(s.Data) == 0 {
		return Errorf(EINVALID, "document data required")
	}
	return nil
}

// Renderer renders a Word document to HTML.
type Renderer interface {
	// Render converts the .docx bytes into an HTML document. Word-specific
	// markup (revisions, bookmarks, field codes, etc.) is simplified first.
	Render(ctx context.Context, docx []byte) (string, error)
}

// Converter converts Word documents into their table JSON representation.
type Converter interface {
	// Convert renders, cleans and extracts the source document.
	// Failures are returned as a single *ConversionError carrying the
	// trace ID of the call.
	Convert(ctx context.Context, src *Source) (*Document, error)
}
