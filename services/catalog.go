package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"sparrow/chat"
	"sparrow/models"
)

// SessionCatalog is the read side of the session sidebar.
type SessionCatalog interface {
	List(ctx context.Context) ([]chat.Session, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// StaticCatalog serves the fixed session list from memory. Activity times
// are placed against clock on every List.
type StaticCatalog struct {
	sessions []chat.Session
	clock    func() time.Time
}

// NewStaticCatalog uses time.Now when clock is nil.
func NewStaticCatalog(clock func() time.Time) *StaticCatalog {
	if clock == nil {
		clock = time.Now
	}
	return &StaticCatalog{sessions: chat.DefaultSessions(clock()), clock: clock}
}

func (c *StaticCatalog) List(ctx context.Context) ([]chat.Session, error) {
	now := c.clock()
	out := make([]chat.Session, len(c.sessions))
	for i, s := range c.sessions {
		out[i] = s.AsOf(now)
	}
	return out, nil
}

func (c *StaticCatalog) Exists(ctx context.Context, id string) (bool, error) {
	for _, s := range c.sessions {
		if s.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// DBCatalog reads the seeded chat_sessions table.
type DBCatalog struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewDBCatalog uses time.Now when clock is nil.
func NewDBCatalog(db *gorm.DB, clock func() time.Time) *DBCatalog {
	if clock == nil {
		clock = time.Now
	}
	return &DBCatalog{db: db, clock: clock}
}

func (c *DBCatalog) List(ctx context.Context) ([]chat.Session, error) {
	var rows []models.ChatSession
	if err := c.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	now := c.clock()
	out := make([]chat.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToDomain(now))
	}
	return out, nil
}

func (c *DBCatalog) Exists(ctx context.Context, id string) (bool, error) {
	var row models.ChatSession
	err := c.db.WithContext(ctx).Select("id").Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup session %s: %w", id, err)
	}
	return true, nil
}
