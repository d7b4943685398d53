// Package docxjson converts Word (.docx) documents into a normalized JSON
// representation of their tabular content. Documents are rendered to HTML,
// cleaned, and every table is walked into a table/row/cell/line tree.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., goquery/, etree/, sqlite/).
package docxjson
