package main_test

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/docxjson"
	main "github.com/fwojciec/docxjson/cmd/docxjson"
	"github.com/fwojciec/docxjson/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// writeDocx writes a Word document holding a single one-cell table.
func writeDocx(t *testing.T, dir, name, cellText string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordNS + `><w:body>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>` + cellText + `</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
		`</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	m.DBPath = filepath.Join(t.TempDir(), "test.db")

	stdout := &bytes.Buffer{}
	err := m.Run(context.Background(), nil, stdout, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
	assert.Contains(t, stdout.String(), "Usage:")
}

func TestMain_Run_Convert(t *testing.T) {
	t.Parallel()

	t.Run("prints tables of a Word document", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := writeDocx(t, dir, "a.docx", "Total")

		m := main.NewMain()
		m.DBPath = filepath.Join(dir, "test.db")

		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"convert", path}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.JSONEq(t, `{"tables":[{"rows":[{"cells":[{"lines":[{"type":"p","text":"Total"}]}]}]}]}`, stdout.String())

		// Without --record no database is created.
		_, err = os.Stat(m.DBPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("includes cell HTML when requested", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := writeDocx(t, dir, "a.docx", "Total")

		m := main.NewMain()
		m.DBPath = filepath.Join(dir, "test.db")

		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"convert", "--include-cell-html", path}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.Contains(t, stdout.String(), `"html":"<p><span>Total</span></p>"`)
	})

	t.Run("converts rendered HTML", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "page.html")
		require.NoError(t, os.WriteFile(path, []byte(`<table><tr><td><h2><span>Title</span></h2></td></tr></table>`), 0644))

		m := main.NewMain()
		m.DBPath = filepath.Join(dir, "test.db")

		stdout := &bytes.Buffer{}
		err := m.Run(context.Background(), []string{"convert", "--html", path}, stdout, &bytes.Buffer{})

		require.NoError(t, err)
		assert.JSONEq(t, `{"tables":[{"rows":[{"cells":[{"lines":[{"type":"h2","text":"Title"}]}]}]}]}`, stdout.String())
	})

	t.Run("returns traced error for invalid document", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, "bad.docx")
		require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))

		m := main.NewMain()
		m.DBPath = filepath.Join(dir, "test.db")

		err := m.Run(context.Background(), []string{"convert", path}, &bytes.Buffer{}, &bytes.Buffer{})

		require.Error(t, err)
		var convErr *docxjson.ConversionError
		require.ErrorAs(t, err, &convErr)
		assert.NotEmpty(t, convErr.TraceID)
		assert.Equal(t, docxjson.EINVALID, docxjson.ErrorCode(err))
	})

	t.Run("records conversion in history", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := writeDocx(t, dir, "report.docx", "Total")

		var recorded *docxjson.Conversion
		m := main.NewMain()
		m.ConversionService = &mock.ConversionService{
			CreateConversionFn: func(_ context.Context, c *docxjson.Conversion) error {
				recorded = c
				return nil
			},
		}

		err := m.Run(context.Background(), []string{"convert", "--record", path}, &bytes.Buffer{}, &bytes.Buffer{})

		require.NoError(t, err)
		require.NotNil(t, recorded)
		assert.Equal(t, "report.docx", recorded.Source)
		assert.Equal(t, docxjson.OriginFile, recorded.Origin)
		assert.Equal(t, docxjson.StatusSucceeded, recorded.Status)
		assert.Equal(t, 1, recorded.Tables)
	})
}

func TestMain_Run_WatchOnce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root := filepath.Join(dir, "blobs")
	input := filepath.Join(root, "input-docx")
	require.NoError(t, os.MkdirAll(input, 0755))
	writeDocx(t, input, "a.docx", "Alpha")

	configPath := filepath.Join(dir, "docxjson.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("storage:\n  root: "+root+"\n"), 0644))

	m := main.NewMain()
	m.DBPath = filepath.Join(dir, "test.db")

	stdout := &bytes.Buffer{}
	err := m.Run(context.Background(), []string{"--config", configPath, "watch", "--once"}, stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "converted 1, skipped 0, failed 0")

	out, err := os.ReadFile(filepath.Join(root, "input-json", "a.docx.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"tables":[{"rows":[{"cells":[{"lines":[{"type":"p","text":"Alpha"}]}]}]}]}`, string(out))

	// A second run sees the recorded conversion and skips the blob.
	m = main.NewMain()
	m.DBPath = filepath.Join(dir, "test.db")

	stdout.Reset()
	err = m.Run(context.Background(), []string{"--config", configPath, "watch", "--once"}, stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "converted 0, skipped 1, failed 0")

	// And the history lists it.
	m = main.NewMain()
	m.DBPath = filepath.Join(dir, "test.db")

	stdout.Reset()
	err = m.Run(context.Background(), []string{"history"}, stdout, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "a.docx")
	assert.Contains(t, stdout.String(), "succeeded")
}

func TestMain_Run_InvalidConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "docxjson.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("watch:\n  concurrency: -1\n"), 0644))

	m := main.NewMain()
	m.DBPath = filepath.Join(dir, "test.db")

	err := m.Run(context.Background(), []string{"--config", configPath, "history"}, &bytes.Buffer{}, &bytes.Buffer{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch.concurrency")
}
