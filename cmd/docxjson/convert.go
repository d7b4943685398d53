package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fwojciec/docxjson"
)

// Run executes the convert command.
func (c *ConvertCmd) Run(deps *Dependencies) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}

	var doc *docxjson.Document
	if c.HTML {
		doc, err = deps.HTML.ConvertHTML(deps.Ctx, string(data))
	} else {
		doc, err = deps.Converter.Convert(deps.Ctx, &docxjson.Source{
			Name:   filepath.Base(c.File),
			Origin: docxjson.OriginFile,
			Data:   data,
		})
	}
	if err != nil {
		return err
	}

	return writeDocument(deps, doc, c.Pretty)
}

func writeDocument(deps *Dependencies, doc any, pretty bool) error {
	enc := json.NewEncoder(deps.Stdout)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}
