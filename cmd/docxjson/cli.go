package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/docxjson"
	"github.com/fwojciec/docxjson/convert"
	docxhttp "github.com/fwojciec/docxjson/http"
)

// HTMLConverter converts already-rendered HTML.
type HTMLConverter interface {
	ConvertHTML(ctx context.Context, html string) (*docxjson.Document, error)
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx         context.Context
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
	Config      *Config
	Converter   docxjson.Converter
	HTML        HTMLConverter
	Conversions docxjson.ConversionService
	Server      *docxhttp.Server
	Trigger     *convert.BlobTrigger
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config   string `short:"c" env:"DOCXJSON_CONFIG" type:"path" help:"Path to YAML config file"`
	LogLevel string `default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`

	Convert ConvertCmd `cmd:"" help:"Convert a Word document to JSON"`
	Serve   ServeCmd   `cmd:"" help:"Serve the HTTP conversion triggers"`
	Watch   WatchCmd   `cmd:"" help:"Convert documents as they arrive in the input container"`
	History HistoryCmd `cmd:"" help:"List recorded conversions"`
	Show    ShowCmd    `cmd:"" help:"Print the output of a recorded conversion"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a recorded conversion"`
}

// ConvertCmd is the "convert" subcommand.
type ConvertCmd struct {
	File            string `arg:"" type:"existingfile" help:"Word document to convert"`
	HTML            bool   `help:"Treat FILE as rendered HTML instead of a Word document"`
	IncludeCellHTML bool   `help:"Include each cell's inner HTML in the output"`
	Pretty          bool   `short:"p" help:"Indent JSON output"`
	Record          bool   `help:"Record the conversion in history"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Addr string `short:"a" help:"Listen address (overrides server.addr)"`
}

// WatchCmd is the "watch" subcommand.
type WatchCmd struct {
	Once        bool          `help:"Make a single pass and exit"`
	Interval    time.Duration `help:"Poll interval (overrides watch.interval)"`
	Concurrency int           `help:"Concurrent conversions (overrides watch.concurrency)"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Limit  int    `short:"n" default:"20" help:"Maximum number of records"`
	Failed bool   `help:"Only show failed conversions"`
	Source string `help:"Only show conversions of this source name"`
}

// ShowCmd is the "show" subcommand.
type ShowCmd struct {
	ID     string `arg:"" help:"Conversion ID"`
	Pretty bool   `short:"p" help:"Indent JSON output"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	ID string `arg:"" help:"Conversion ID"`
}
