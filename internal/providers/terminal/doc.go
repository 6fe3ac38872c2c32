// Package terminal owns the pseudo-terminal session table.
//
// Each session wraps one spawned process attached to a PTY (creack/pty) and
// is keyed by a caller-chosen identifier. The table holds at most one live
// process per identifier: creating a session under an identifier that is in
// use tears the old process down completely before the new one is spawned.
//
// Output and exit notifications are delivered twice, on the session's own
// emitters and on the table-wide OnData/OnExit emitters, so several
// components (the view provider, discovery) can observe without
// coordinating. Delivery is synchronous and keeps the order in which the
// process produced its output; exit is always delivered after the last
// chunk of output.
//
// Example Usage:
//
//	mgr := terminal.NewManager(terminal.Config{Logger: logger})
//	sess, err := mgr.Create(terminal.SessionOptions{ID: "opencode-main", Command: "opencode -c"})
//	unsubscribe := mgr.OnData(func(ev terminal.DataEvent) { ... })
//	mgr.Write("opencode-main", "hello")
//	mgr.Resize("opencode-main", 120, 40)
//	mgr.Kill("opencode-main")
package terminal
