package protocol

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Version is the protocol version this host speaks
const Version = 1

// Kind is the message discriminator
type Kind string

// View → host kinds
const (
	KindTerminalInput  Kind = "terminalInput"
	KindTerminalResize Kind = "terminalResize"
	KindOpenFile       Kind = "openFile"
	KindOpenURL        Kind = "openUrl"
	KindReady          Kind = "ready"
	KindFilesDropped   Kind = "filesDropped"
	KindListTerminals  Kind = "listTerminals"
	KindTerminalAction Kind = "terminalAction"
	KindGetClipboard   Kind = "getClipboard"
	KindTriggerPaste   Kind = "triggerPaste"
)

// Host → view kinds
const (
	KindClipboardContent Kind = "clipboardContent"
	KindTerminalOutput   Kind = "terminalOutput"
	KindTerminalExited   Kind = "terminalExited"
	KindClearTerminal    Kind = "clearTerminal"
	KindFocusTerminal    Kind = "focusTerminal"
	KindTerminalList     Kind = "terminalList"
	KindWebviewVisible   Kind = "webviewVisible"
	KindPlatformInfo     Kind = "platformInfo"
)

// Terminal actions
const (
	ActionFocus       = "focus"
	ActionSendCommand = "sendCommand"
	ActionCapture     = "capture"
)

// Message is any protocol message
type Message interface {
	Kind() Kind
}

// Inbound is a message sent by the view
type Inbound interface {
	Message
	inbound()
}

// Outbound is a message sent by the host
type Outbound interface {
	Message
	outbound()
}

type TerminalInput struct {
	Data string `json:"data"`
}

type TerminalResize struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

type OpenFile struct {
	Path    string `json:"path"`
	Line    *int   `json:"line,omitempty"`
	EndLine *int   `json:"endLine,omitempty"`
	Column  *int   `json:"column,omitempty"`
}

type OpenURL struct {
	URL string `json:"url"`
}

type Ready struct{}

type FilesDropped struct {
	Files    []string `json:"files"`
	ShiftKey bool     `json:"shiftKey"`
}

type ListTerminals struct{}

type TerminalAction struct {
	Action       string `json:"action"`
	TerminalName string `json:"terminalName"`
	Command      string `json:"command,omitempty"`
}

type GetClipboard struct{}

type TriggerPaste struct{}

func (TerminalInput) Kind() Kind  { return KindTerminalInput }
func (TerminalResize) Kind() Kind { return KindTerminalResize }
func (OpenFile) Kind() Kind       { return KindOpenFile }
func (OpenURL) Kind() Kind        { return KindOpenURL }
func (Ready) Kind() Kind          { return KindReady }
func (FilesDropped) Kind() Kind   { return KindFilesDropped }
func (ListTerminals) Kind() Kind  { return KindListTerminals }
func (TerminalAction) Kind() Kind { return KindTerminalAction }
func (GetClipboard) Kind() Kind   { return KindGetClipboard }
func (TriggerPaste) Kind() Kind   { return KindTriggerPaste }

func (TerminalInput) inbound()  {}
func (TerminalResize) inbound() {}
func (OpenFile) inbound()       {}
func (OpenURL) inbound()        {}
func (Ready) inbound()          {}
func (FilesDropped) inbound()   {}
func (ListTerminals) inbound()  {}
func (TerminalAction) inbound() {}
func (GetClipboard) inbound()   {}
func (TriggerPaste) inbound()   {}

type ClipboardContent struct {
	Text string `json:"text"`
}

type TerminalOutput struct {
	Data string `json:"data"`
}

type TerminalExited struct{}

type ClearTerminal struct{}

type FocusTerminal struct{}

// TerminalEntry is one row of a terminal list
type TerminalEntry struct {
	Name string `json:"name"`
	Cwd  string `json:"cwd"`
}

type TerminalList struct {
	Terminals []TerminalEntry `json:"terminals"`
}

type WebviewVisible struct{}

type PlatformInfo struct {
	Platform string `json:"platform"`
}

func (ClipboardContent) Kind() Kind { return KindClipboardContent }
func (TerminalOutput) Kind() Kind   { return KindTerminalOutput }
func (TerminalExited) Kind() Kind   { return KindTerminalExited }
func (ClearTerminal) Kind() Kind    { return KindClearTerminal }
func (FocusTerminal) Kind() Kind    { return KindFocusTerminal }
func (TerminalList) Kind() Kind     { return KindTerminalList }
func (WebviewVisible) Kind() Kind   { return KindWebviewVisible }
func (PlatformInfo) Kind() Kind     { return KindPlatformInfo }

func (ClipboardContent) outbound() {}
func (TerminalOutput) outbound()   {}
func (TerminalExited) outbound()   {}
func (ClearTerminal) outbound()    {}
func (FocusTerminal) outbound()    {}
func (TerminalList) outbound()     {}
func (WebviewVisible) outbound()   {}
func (PlatformInfo) outbound()     {}

// ErrMalformed is returned for frames that are not JSON objects with a type
var ErrMalformed = errors.New("malformed protocol frame")

type header struct {
	Type    Kind `json:"type"`
	Version int  `json:"v,omitempty"`
}

// Encode serializes msg with its type discriminator and protocol version
func Encode(msg Message) ([]byte, error) {
	body, err := sonic.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: %w", msg.Kind(), ErrMalformed)
	}

	prefix := fmt.Sprintf(`{"type":%q,"v":%d`, string(msg.Kind()), Version)
	if len(body) == 2 {
		return []byte(prefix + "}"), nil
	}
	out := make([]byte, 0, len(prefix)+len(body))
	out = append(out, prefix...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// PeekKind reads only the discriminator and version of a frame
func PeekKind(raw []byte) (Kind, int, error) {
	var h header
	if err := sonic.Unmarshal(raw, &h); err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Type == "" {
		return "", 0, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if h.Version == 0 {
		h.Version = Version
	}
	return h.Type, h.Version, nil
}

func newInbound(kind Kind) Inbound {
	switch kind {
	case KindTerminalInput:
		return &TerminalInput{}
	case KindTerminalResize:
		return &TerminalResize{}
	case KindOpenFile:
		return &OpenFile{}
	case KindOpenURL:
		return &OpenURL{}
	case KindReady:
		return &Ready{}
	case KindFilesDropped:
		return &FilesDropped{}
	case KindListTerminals:
		return &ListTerminals{}
	case KindTerminalAction:
		return &TerminalAction{}
	case KindGetClipboard:
		return &GetClipboard{}
	case KindTriggerPaste:
		return &TriggerPaste{}
	}
	return nil
}

func newOutbound(kind Kind) Outbound {
	switch kind {
	case KindClipboardContent:
		return &ClipboardContent{}
	case KindTerminalOutput:
		return &TerminalOutput{}
	case KindTerminalExited:
		return &TerminalExited{}
	case KindClearTerminal:
		return &ClearTerminal{}
	case KindFocusTerminal:
		return &FocusTerminal{}
	case KindTerminalList:
		return &TerminalList{}
	case KindWebviewVisible:
		return &WebviewVisible{}
	case KindPlatformInfo:
		return &PlatformInfo{}
	}
	return nil
}

// DecodeInbound parses a view → host frame. Unknown kinds and frames from
// a newer protocol version return known=false and no error.
func DecodeInbound(raw []byte) (Inbound, bool, error) {
	kind, v, err := PeekKind(raw)
	if err != nil {
		return nil, false, err
	}
	msg := newInbound(kind)
	if msg == nil || v > Version {
		return nil, false, nil
	}
	if err := sonic.Unmarshal(raw, msg); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", kind, err)
	}
	return deref(msg).(Inbound), true, nil
}

// DecodeOutbound parses a host → view frame
func DecodeOutbound(raw []byte) (Outbound, bool, error) {
	kind, v, err := PeekKind(raw)
	if err != nil {
		return nil, false, err
	}
	msg := newOutbound(kind)
	if msg == nil || v > Version {
		return nil, false, nil
	}
	if err := sonic.Unmarshal(raw, msg); err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", kind, err)
	}
	return deref(msg).(Outbound), true, nil
}

// deref turns the decode target back into a value so callers can switch
// on value types.
func deref(msg Message) Message {
	switch m := msg.(type) {
	case *TerminalInput:
		return *m
	case *TerminalResize:
		return *m
	case *OpenFile:
		return *m
	case *OpenURL:
		return *m
	case *Ready:
		return *m
	case *FilesDropped:
		return *m
	case *ListTerminals:
		return *m
	case *TerminalAction:
		return *m
	case *GetClipboard:
		return *m
	case *TriggerPaste:
		return *m
	case *ClipboardContent:
		return *m
	case *TerminalOutput:
		return *m
	case *TerminalExited:
		return *m
	case *ClearTerminal:
		return *m
	case *FocusTerminal:
		return *m
	case *TerminalList:
		return *m
	case *WebviewVisible:
		return *m
	case *PlatformInfo:
		return *m
	}
	return msg
}

// Platform maps a GOOS value to the platform names views expect
func Platform(goos string) string {
	switch goos {
	case "windows":
		return "win32"
	default:
		return goos
	}
}
