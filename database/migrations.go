package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"sparrow/chat"
	"sparrow/models"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.ChatSession{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// SeedSessions replaces the session table with the fixed catalog, so every
// boot starts from the same sidebar.
func SeedSessions(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.ChatSession{}).Error; err != nil {
			return fmt.Errorf("clear sessions: %w", err)
		}

		sessions := chat.DefaultSessions(time.Now())
		rows := make([]models.ChatSession, 0, len(sessions))
		for i, s := range sessions {
			rows = append(rows, models.ChatSessionFromDomain(s, i))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert sessions: %w", err)
		}
		return nil
	})
}
