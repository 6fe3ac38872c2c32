// Package protocol defines the closed message sets exchanged between the
// host and an attached terminal view.
//
// Every frame is a JSON object with a "type" discriminator and an optional
// protocol version "v" (absent means 1).
//
// Message Types (view → host):
//   - terminalInput{data}
//   - terminalResize{cols,rows}
//   - openFile{path,line?,endLine?,column?}
//   - openUrl{url}
//   - ready{}
//   - filesDropped{files,shiftKey}
//   - listTerminals{}
//   - terminalAction{action,terminalName,command?}
//   - getClipboard{}
//   - triggerPaste{}
//
// Message Types (host → view):
//   - clipboardContent{text}
//   - terminalOutput{data}
//   - terminalExited{}
//   - clearTerminal{}
//   - focusTerminal{}
//   - terminalList{terminals:[{name,cwd}]}
//   - webviewVisible{}
//   - platformInfo{platform}
//
// Encoded frames always carry "v". Unknown kinds, and frames with a version
// newer than this host speaks, decode as known=false so routers can ignore
// them.
package protocol
