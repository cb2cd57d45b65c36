package chat

import (
	"fmt"
	"time"
)

// DefaultSessionID is the session a fresh or reset conversation points at.
const DefaultSessionID = "current"

const defaultTitle = "New Chat"

type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastActivity time.Time `json:"last_activity"`
	Preview      string    `json:"preview"`
	MessageCount int       `json:"message_count"`

	// Age is how long before "now" the session was last active. LastActivity
	// is derived from it whenever the list is read.
	Age time.Duration `json:"-"`
}

// AsOf returns s with LastActivity placed Age before now.
func (s Session) AsOf(now time.Time) Session {
	s.LastActivity = now.Add(-s.Age)
	return s
}

// DefaultSessions returns the fixed session list in display order, with
// activity times relative to now.
func DefaultSessions(now time.Time) []Session {
	sessions := []Session{
		{
			ID:           DefaultSessionID,
			Title:        defaultTitle,
			Age:          0,
			Preview:      "How can I help you today?",
			MessageCount: 1,
		},
		{
			ID:           "1",
			Title:        "Contract Review Analysis",
			Age:          time.Hour,
			Preview:      "What should I look for in an employment contract?",
			MessageCount: 8,
		},
		{
			ID:           "2",
			Title:        "Document Legal Summary",
			Age:          24 * time.Hour,
			Preview:      "Please analyze this lease agreement",
			MessageCount: 12,
		},
		{
			ID:           "3",
			Title:        "Privacy Law Research",
			Age:          48 * time.Hour,
			Preview:      "Latest updates on data privacy laws",
			MessageCount: 6,
		},
		{
			ID:           "4",
			Title:        "Intellectual Property Questions",
			Age:          72 * time.Hour,
			Preview:      "Patent application process",
			MessageCount: 15,
		},
	}
	for i := range sessions {
		sessions[i] = sessions[i].AsOf(now)
	}
	return sessions
}

// ActiveTitle is the header label for the active session.
func ActiveTitle(sessions []Session, activeID string) string {
	for _, s := range sessions {
		if s.ID == activeID {
			return s.Title
		}
	}
	return defaultTitle
}

// RelativeTime renders t the way the session sidebar does.
func RelativeTime(now, t time.Time) string {
	diff := now.Sub(t)
	hours := int(diff / time.Hour)
	days := hours / 24

	switch {
	case hours < 1:
		return "Just now"
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("Jan 2, 2006")
	}
}
