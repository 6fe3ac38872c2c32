package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "opencode-main", false},
		{"ulid style", "term_01HZX", false},
		{"empty", "", true},
		{"slash", "a/b", true},
		{"space", "a b", true},
		{"too long", strings.Repeat("a", MaxIDLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id, "id")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateStringNullByte(t *testing.T) {
	assert.Error(t, ValidateString("a\x00b", "field", 0, 10, true))
	assert.NoError(t, ValidateString("", "field", 1, 10, false))
}

func TestValidateInput(t *testing.T) {
	assert.NoError(t, ValidateInput("ls\n"))
	assert.Error(t, ValidateInput(""))
	assert.Error(t, ValidateInput(strings.Repeat("x", MaxInputSize+1)))
}
