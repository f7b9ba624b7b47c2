package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Category primary keys are minted by the target store; the v3 id only
// survives as the discord_category column and in the run-scoped resolver map.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:c"`

	ID              int64     `bun:"id,pk,autoincrement"`
	ChannelName     string    `bun:"channel_name,notnull"`
	Claiming        bool      `bun:"claiming,notnull"`
	Description     string    `bun:"description,notnull"`
	DiscordCategory string    `bun:"discord_category,notnull"`
	Emoji           string    `bun:"emoji,notnull"`
	EnableFeedback  bool      `bun:"enable_feedback,notnull"`
	GuildID         string    `bun:"guild_id,notnull"`
	Image           *string   `bun:"image"`
	MemberLimit     int       `bun:"member_limit,notnull"`
	Name            string    `bun:"name,notnull"`
	OpeningMessage  string    `bun:"opening_message,notnull"`
	PingRoles       []string  `bun:"ping_roles"`
	RequireTopic    bool      `bun:"require_topic,notnull"`
	StaffRoles      []string  `bun:"staff_roles"`
	CreatedAt       time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
