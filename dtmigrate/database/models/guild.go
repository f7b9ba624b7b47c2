package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Guild keeps its v3 id verbatim: guild ids are Discord snowflakes and are
// referenced from outside the database.
type Guild struct {
	bun.BaseModel `bun:"table:guilds,alias:g"`

	ID            string    `bun:"id,pk"`
	Archive       bool      `bun:"archive,notnull"`
	Blocklist     []string  `bun:"blocklist"`
	CloseButton   bool      `bun:"close_button,notnull"`
	ErrorColour   string    `bun:"error_colour,notnull"`
	Footer        string    `bun:"footer"`
	Locale        string    `bun:"locale,notnull"`
	PrimaryColour string    `bun:"primary_colour,notnull"`
	SuccessColour string    `bun:"success_colour,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
