package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound(t *testing.T) {
	line := 12
	tests := []struct {
		name string
		raw  string
		want Inbound
	}{
		{"input", `{"type":"terminalInput","data":"ls\r"}`, TerminalInput{Data: "ls\r"}},
		{"resize", `{"type":"terminalResize","cols":120,"rows":40}`, TerminalResize{Cols: 120, Rows: 40}},
		{"open file", `{"type":"openFile","path":"src/a.ts","line":12}`, OpenFile{Path: "src/a.ts", Line: &line}},
		{"open url", `{"type":"openUrl","url":"https://example.com"}`, OpenURL{URL: "https://example.com"}},
		{"ready", `{"type":"ready"}`, Ready{}},
		{"dropped", `{"type":"filesDropped","files":["/w/a.ts"],"shiftKey":true}`, FilesDropped{Files: []string{"/w/a.ts"}, ShiftKey: true}},
		{"list", `{"type":"listTerminals"}`, ListTerminals{}},
		{"action", `{"type":"terminalAction","action":"sendCommand","terminalName":"bash","command":"make"}`,
			TerminalAction{Action: ActionSendCommand, TerminalName: "bash", Command: "make"}},
		{"clipboard", `{"type":"getClipboard"}`, GetClipboard{}},
		{"paste", `{"type":"triggerPaste","v":1}`, TriggerPaste{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, known, err := DecodeInbound([]byte(tt.raw))
			require.NoError(t, err)
			assert.True(t, known)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestDecodeInboundUnknownKind(t *testing.T) {
	msg, known, err := DecodeInbound([]byte(`{"type":"selfDestruct"}`))
	require.NoError(t, err)
	assert.False(t, known)
	assert.Nil(t, msg)
}

func TestDecodeIgnoresNewerVersion(t *testing.T) {
	msg, known, err := DecodeInbound([]byte(`{"type":"terminalInput","v":2,"data":"rm -rf /\r"}`))
	require.NoError(t, err)
	assert.False(t, known)
	assert.Nil(t, msg)

	out, known, err := DecodeOutbound([]byte(`{"type":"terminalOutput","v":2,"data":"x"}`))
	require.NoError(t, err)
	assert.False(t, known)
	assert.Nil(t, out)
}

func TestDecodeInboundRejectsHostKinds(t *testing.T) {
	_, known, err := DecodeInbound([]byte(`{"type":"terminalOutput","data":"x"}`))
	require.NoError(t, err)
	assert.False(t, known)
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{``, `[]`, `{"data":"x"}`, `not json`} {
		_, _, err := DecodeInbound([]byte(raw))
		assert.True(t, errors.Is(err, ErrMalformed), raw)
	}
}

func TestEncodeAddsDiscriminator(t *testing.T) {
	raw, err := Encode(TerminalOutput{Data: "hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"terminalOutput","v":1,"data":"hello"}`, string(raw))

	raw, err = Encode(TerminalExited{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"terminalExited","v":1}`, string(raw))
}

func TestEncodeDecodeOutbound(t *testing.T) {
	list := TerminalList{Terminals: []TerminalEntry{{Name: "zsh", Cwd: "/tmp"}}}
	raw, err := Encode(list)
	require.NoError(t, err)

	msg, known, err := DecodeOutbound(raw)
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, list, msg)
}

func TestPeekKindDefaultsVersion(t *testing.T) {
	kind, v, err := PeekKind([]byte(`{"type":"ready"}`))
	require.NoError(t, err)
	assert.Equal(t, KindReady, kind)
	assert.Equal(t, Version, v)

	_, v, err = PeekKind([]byte(`{"type":"ready","v":2}`))
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestPlatform(t *testing.T) {
	assert.Equal(t, "win32", Platform("windows"))
	assert.Equal(t, "darwin", Platform("darwin"))
	assert.Equal(t, "linux", Platform("linux"))
}
