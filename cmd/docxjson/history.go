package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fwojciec/docxjson"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	filter := docxjson.ConversionFilter{Limit: c.Limit, OmitOutput: true}
	if c.Failed {
		status := docxjson.StatusFailed
		filter.Status = &status
	}
	if c.Source != "" {
		filter.Source = &c.Source
	}

	convs, err := deps.Conversions.FindConversions(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docxjson.ErrorMessage(err))
		return err
	}

	if len(convs) == 0 {
		fmt.Fprintln(deps.Stdout, "No conversions found.")
		return nil
	}

	for _, conv := range convs {
		detail := fmt.Sprintf("%d tables", conv.Tables)
		if conv.Status == docxjson.StatusFailed {
			detail = conv.Error
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %-9s  %-4s  %s  %s\n",
			conv.ID,
			conv.CreatedAt.Local().Format(time.DateTime),
			conv.Status,
			conv.Origin,
			conv.Source,
			detail,
		)
	}

	return nil
}

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	conv, err := deps.Conversions.FindConversionByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docxjson.ErrorMessage(err))
		return err
	}

	if conv.Status == docxjson.StatusFailed {
		fmt.Fprintf(deps.Stderr, "error: %s\n", conv.Error)
		return fmt.Errorf("conversion %s failed", conv.ID)
	}

	return writeDocument(deps, json.RawMessage(conv.Output), c.Pretty)
}

// Run executes the delete command.
func (c *DeleteCmd) Run(deps *Dependencies) error {
	if err := deps.Conversions.DeleteConversion(deps.Ctx, c.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docxjson.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Deleted conversion %s\n", c.ID)
	return nil
}
