package models

import (
	"time"

	"sparrow/chat"
)

// ChatSession is a row of the session sidebar. The table is rebuilt from the
// fixed catalog on every boot; Position keeps display order.
type ChatSession struct {
	ID           string `gorm:"size:64;primaryKey" json:"id"`
	Position     int    `gorm:"not null;index" json:"-"`
	Title        string `gorm:"size:255;default:'New Chat'" json:"title"`
	Preview      string `gorm:"size:500" json:"preview"`
	MessageCount int    `gorm:"not null;default:1" json:"message_count"`
	// Age in nanoseconds; last activity is always read relative to the clock.
	Age       time.Duration `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func ChatSessionFromDomain(s chat.Session, position int) ChatSession {
	return ChatSession{
		ID:           s.ID,
		Position:     position,
		Title:        s.Title,
		Preview:      s.Preview,
		MessageCount: s.MessageCount,
		Age:          s.Age,
	}
}

// ToDomain maps the row to a session whose last activity is Age before now.
func (s ChatSession) ToDomain(now time.Time) chat.Session {
	return chat.Session{
		ID:           s.ID,
		Title:        s.Title,
		Preview:      s.Preview,
		MessageCount: s.MessageCount,
		Age:          s.Age,
	}.AsOf(now)
}
