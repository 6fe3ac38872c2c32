// Package http provides the REST surface of the daemon.
//
// Routes:
//   - GET    /              service info
//   - GET    /health        component status
//   - POST   /commands/:name  run a palette command
//   - GET    /terminals     session table and foreign terminals
//   - POST   /terminals     open a plain shell session
//   - DELETE /terminals/:id kill a session
//   - POST   /links         detect file references in text
//   - POST   /resolve       resolve and optionally open a reference
//   - GET    /consent       pending consent prompts
//   - POST   /consent/:id   answer a consent prompt
//
// Errors are JSON objects with "error" and "kind"; the status code follows
// the error kind.
package http
