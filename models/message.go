package models

import "gorm.io/gorm"

// Message is immutable once written: there are no update or delete
// paths. WorkspaceID is denormalized onto the row so that search and
// authorization never have to join through the channel.
type Message struct {
	gorm.Model
	WorkspaceID uint   `gorm:"not null;index" json:"workspace_id"`
	ChannelID   uint   `gorm:"not null;index" json:"channel_id"`
	AuthorID    uint   `gorm:"not null;index" json:"author_id"`
	Content     string `gorm:"not null" json:"content"`

	// Relations
	Workspace Workspace `json:"-"`
	Channel   Channel   `json:"-"`
	Author    User      `json:"-"`
}

// MessageWithAuthor is the response shape for channel listings: the
// raw message enriched with the author's display name and avatar.
type MessageWithAuthor struct {
	ID          uint   `json:"id"`
	WorkspaceID uint   `json:"workspace_id"`
	ChannelID   uint   `json:"channel_id"`
	AuthorID    uint   `json:"author_id"`
	AuthorName  string `json:"author_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"created_at"`
}

// SearchResult is the response shape for message search: a match plus
// the name of the channel it was found in.
type SearchResult struct {
	ID          uint   `json:"id"`
	ChannelID   uint   `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	AuthorID    uint   `json:"author_id"`
	AuthorName  string `json:"author_name"`
	Content     string `json:"content"`
	CreatedAt   int64  `json:"created_at"`
}
