// Package app hosts the OpenCode TUI provider: the component that owns the
// "opencode-main" terminal session and bridges it to attached views.
//
// Key Components:
//   - Provider: start, restart, clear and dispose of the OpenCode process
//   - View registry: every attached view receives every host message
//   - Message router: handles the inbound protocol from views
//
// Example Usage:
//
//	p := app.NewProvider(opts, deps)
//	p.Attach(view)
//	if err := p.Start(); err != nil {
//	    logger.Error("start failed", zap.Error(err))
//	}
//	p.HandleMessage(ctx, view.ID(), protocol.TerminalInput{Data: "hi"})
package app
