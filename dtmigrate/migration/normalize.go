package migration

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Field normalization for values whose representation changed between v3 and
// v4. Everything here is pure and tolerant: malformed input degrades to a
// zero value instead of failing, record-level errors are the orchestrator's
// job.

// NormalizeColour converts a v3 colour to its v4 form. Hex codes pass
// through unchanged; legacy named colours keep their first character and
// lowercase the rest ("RED" -> "Red"). Applying it twice is a no-op.
func NormalizeColour(colour string) string {
	if colour == "" || strings.HasPrefix(colour, "#") {
		return colour
	}
	_, size := utf8.DecodeRuneInString(colour)
	return colour[:size] + strings.ToLower(colour[size:])
}

// Blocklist is the decoded form of the v3 guild blacklist JSON blob.
type Blocklist struct {
	Members []string `json:"members"`
	Roles   []string `json:"roles"`
}

// DecodeBlocklist decodes the v3 blacklist column. Sequelize stored it as a
// JSON text column, and some dumps double-encode it, so a quoted string is
// unwrapped and decoded again.
func DecodeBlocklist(raw json.RawMessage) Blocklist {
	var bl Blocklist
	if len(raw) == 0 {
		return bl
	}
	if err := json.Unmarshal(raw, &bl); err == nil {
		return bl
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		_ = json.Unmarshal([]byte(nested), &bl)
	}
	return bl
}

// DecodeStringList decodes a v3 JSON list column (ping roles, staff roles,
// pinned message ids) with the same double-encoding tolerance as
// DecodeBlocklist.
func DecodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var nested string
	if err := json.Unmarshal(raw, &nested); err == nil {
		if err := json.Unmarshal([]byte(nested), &list); err == nil {
			return list
		}
	}
	return nil
}

// Truthy coerces a v3 free-form field to a strict boolean the way the old
// script's `!!value` did: any non-empty value counts as set.
func Truthy(s string) bool {
	return s != ""
}
