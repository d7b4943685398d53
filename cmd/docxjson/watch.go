package main

import "fmt"

// Run executes the watch command.
func (c *WatchCmd) Run(deps *Dependencies) error {
	if !c.Once {
		deps.Logger.Info("watching",
			"input", deps.Trigger.InputContainer,
			"output", deps.Trigger.OutputContainer,
			"interval", deps.Trigger.Interval,
		)
		return deps.Trigger.Run(deps.Ctx)
	}

	if err := deps.Trigger.Seed(deps.Ctx); err != nil {
		return err
	}
	result, err := deps.Trigger.Poll(deps.Ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "converted %d, skipped %d, failed %d\n", result.Converted, result.Skipped, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d document(s) failed to convert", result.Failed)
	}
	return nil
}
