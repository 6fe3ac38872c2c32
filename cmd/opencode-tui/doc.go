// Package main is the entry point for the opencode-tui daemon.
//
// The daemon hosts the OpenCode TUI in a pseudo-terminal and lets any
// number of clients share it:
//
//	Editor / terminal client ──ws /terminal──► opencode-tui ──PTY──► opencode
//	                         ──REST─────────►              ──HTTP─► opencode sidecar
//
// Configuration:
//   - Settings file (TOML)
//   - Environment variables (override the file)
//   - CLI flags (override both)
//
// Usage:
//
//	opencode-tui serve --workspace ~/src/project
//	opencode-tui ref internal/app/provider.go --line 10
//	opencode-tui config
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
