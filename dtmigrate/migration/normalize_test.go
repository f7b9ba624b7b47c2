package migration

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColour(t *testing.T) {
	tests := []struct {
		name   string
		colour string
		want   string
	}{
		{name: "hex passes through", colour: "#abc123", want: "#abc123"},
		{name: "named colour", colour: "RED", want: "Red"},
		{name: "already normalized", colour: "Red", want: "Red"},
		{name: "mixed case", colour: "gReEn", want: "Green"},
		{name: "single character", colour: "R", want: "R"},
		{name: "empty passes through", colour: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeColour(tt.colour))
		})
	}
}

func TestNormalizeColourIdempotent(t *testing.T) {
	for _, colour := range []string{"#009999", "RED", "Green", "", "BLURPLE"} {
		once := NormalizeColour(colour)
		assert.Equal(t, once, NormalizeColour(once), "colour %q", colour)
	}
}

func TestDecodeBlocklist(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
		want Blocklist
	}{
		{
			name: "structured object",
			raw:  json.RawMessage(`{"members":["1"],"roles":["2","3"]}`),
			want: Blocklist{Members: []string{"1"}, Roles: []string{"2", "3"}},
		},
		{
			name: "double encoded",
			raw:  json.RawMessage(`"{\"members\":[],\"roles\":[\"9\"]}"`),
			want: Blocklist{Members: []string{}, Roles: []string{"9"}},
		},
		{name: "empty", raw: nil, want: Blocklist{}},
		{name: "null", raw: json.RawMessage(`null`), want: Blocklist{}},
		{name: "malformed", raw: json.RawMessage(`{not json`), want: Blocklist{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeBlocklist(tt.raw))
		})
	}
}

func TestDecodeStringList(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
		want []string
	}{
		{name: "plain list", raw: json.RawMessage(`["a","b"]`), want: []string{"a", "b"}},
		{name: "double encoded", raw: json.RawMessage(`"[\"a\"]"`), want: []string{"a"}},
		{name: "empty", raw: nil, want: nil},
		{name: "malformed", raw: json.RawMessage(`{{`), want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeStringList(tt.raw))
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(""))
	assert.True(t, Truthy("customer-satisfaction"))
	assert.True(t, Truthy("0"), "non-empty strings are truthy, as in the v3 bot")
}
