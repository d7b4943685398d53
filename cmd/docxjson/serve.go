package main

// Run executes the serve command. It blocks until the context is cancelled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	return deps.Server.ListenAndServe(deps.Ctx, deps.Config.Server.Addr)
}
