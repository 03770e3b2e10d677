package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"+15551234567", "+*******4567"},
		{"15551234567", "*******4567"},
		{"+123", "+***"},
		{"1234", "****"},
		{"+", "+"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskPhoneNumber(tt.input))
		})
	}
}

func TestMaskID(t *testing.T) {
	assert.Equal(t, "**8899", MaskID("778899"))
	assert.Equal(t, "***", MaskID("123"))
}

func TestDescribeContent(t *testing.T) {
	assert.Equal(t, "", DescribeContent(""))
	assert.Equal(t, "[11 chars]", DescribeContent("hello there"))
	assert.Equal(t, "[2 chars]", DescribeContent("héllo"[:3]))
}

func TestMaskSensitiveFields(t *testing.T) {
	masked := MaskSensitiveFields(map[string]interface{}{
		"sender":     "+15551234567",
		"channel_id": "778899",
		"content":    "secret plans",
		"alias":      "sis",
		"attempt":    2,
	})

	assert.Equal(t, "+*******4567", masked["sender"])
	assert.Equal(t, "**8899", masked["channel_id"])
	assert.Equal(t, "[12 chars]", masked["content"])
	assert.Equal(t, "sis", masked["alias"])
	assert.Equal(t, 2, masked["attempt"])
	assert.Nil(t, MaskSensitiveFields(nil))
}
