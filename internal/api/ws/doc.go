// Package ws attaches websocket clients to the OpenCode terminal.
//
// Each connection is one view. Frames are JSON objects carrying a "type"
// discriminator and an optional "v" protocol version.
//
// Message Types (Client → Server):
//   - terminalInput, terminalResize, ready
//   - filesDropped, openFile, openUrl
//   - listTerminals, terminalAction
//   - getClipboard, triggerPaste
//
// Message Types (Server → Client):
//   - terminalOutput, terminalExited, clearTerminal, focusTerminal
//   - terminalList, clipboardContent, webviewVisible, platformInfo
//
// Malformed or unknown frames are logged and dropped; the connection stays
// open. A client that cannot keep up with terminal output is disconnected.
//
// Example Usage:
//
//	handler := ws.NewHandler(provider, ws.Config{Logger: logger, Metrics: metrics})
//	router.GET("/terminal", handler.HandleConnection)
package ws
