package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func TestNewState(t *testing.T) {
	s := NewState("g1", t0)

	assert.Equal(t, ViewChat, s.View)
	assert.Equal(t, DefaultSessionID, s.ActiveSessionID)
	assert.False(t, s.Typing)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, RoleAssistant, s.Messages[0].Role)
	assert.Equal(t, Greeting, s.Messages[0].Text)
}

func TestReduceSubmitThenReply(t *testing.T) {
	s := NewState("g1", t0)

	next, eff := Reduce(s, Submit{Text: "Can you review my contract?", ID: "u1", At: t0.Add(time.Second)})
	require.Len(t, next.Messages, 2)
	assert.Equal(t, RoleUser, next.Messages[1].Role)
	assert.True(t, next.Typing)
	assert.Equal(t, "Can you review my contract?", eff.ScheduleReply)

	// input untouched
	assert.Len(t, s.Messages, 1)
	assert.False(t, s.Typing)

	reply := NewResponder().Generate(eff.ScheduleReply)
	done, eff := Reduce(next, ReplyArrived{Message: Message{
		ID:         "a1",
		Text:       reply.Text,
		CreatedAt:  t0.Add(2 * time.Second),
		Attachment: reply.Attachment,
	}})
	assert.Empty(t, eff.ScheduleReply)
	require.Len(t, done.Messages, 3)
	assert.Equal(t, RoleAssistant, done.Messages[2].Role)
	assert.False(t, done.Typing)
	require.NotNil(t, done.Messages[2].Attachment)
	assert.Len(t, done.Messages[2].Attachment.KeyPoints, 4)
}

func TestReduceRejectsBlankSubmit(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		t.Run(fmt.Sprintf("%q", text), func(t *testing.T) {
			s := NewState("g1", t0)
			next, eff := Reduce(s, Submit{Text: text, ID: "u1", At: t0})

			assert.Equal(t, s, next)
			assert.Empty(t, eff.ScheduleReply)
		})
	}
}

func TestReduceRejectsSubmitWhileTyping(t *testing.T) {
	s, _ := Reduce(NewState("g1", t0), Submit{Text: "first", ID: "u1", At: t0})
	next, eff := Reduce(s, Submit{Text: "second", ID: "u2", At: t0})

	assert.Equal(t, s, next)
	assert.Empty(t, eff.ScheduleReply)
}

func TestReduceResetIsIdempotent(t *testing.T) {
	s := NewState("g1", t0)
	s, _ = Reduce(s, Submit{Text: "hello", ID: "u1", At: t0})
	s, _ = Reduce(s, ReplyArrived{Message: Message{ID: "a1", Text: "hi", CreatedAt: t0}})
	s, _ = Reduce(s, SelectSession{ID: "3"})

	for i := 0; i < 3; i++ {
		s, _ = Reduce(s, Reset{GreetingID: fmt.Sprintf("g%d", i+2), At: t0})
		require.Len(t, s.Messages, 1)
		assert.Equal(t, Greeting, s.Messages[0].Text)
		assert.Equal(t, DefaultSessionID, s.ActiveSessionID)
	}
}

func TestReduceSelectSessionKeepsTranscript(t *testing.T) {
	s := NewState("g1", t0)
	s, _ = Reduce(s, Submit{Text: "hello", ID: "u1", At: t0})

	for _, sess := range DefaultSessions(t0) {
		next, eff := Reduce(s, SelectSession{ID: sess.ID})
		assert.Equal(t, sess.ID, next.ActiveSessionID)
		assert.Equal(t, s.Messages, next.Messages)
		assert.Equal(t, s.Typing, next.Typing)
		assert.Empty(t, eff.ScheduleReply)
	}
}

func TestReduceClampsTimestamps(t *testing.T) {
	s := NewState("g1", t0)
	s, _ = Reduce(s, Submit{Text: "hello", ID: "u1", At: t0.Add(-time.Minute)})

	require.Len(t, s.Messages, 2)
	assert.Equal(t, t0, s.Messages[1].CreatedAt)
}

func TestReduceDoesNotShareMessages(t *testing.T) {
	s := NewState("g1", t0)
	a, _ := Reduce(s, Submit{Text: "one", ID: "u1", At: t0})
	b, _ := Reduce(s, Submit{Text: "two", ID: "u2", At: t0})

	assert.Equal(t, "one", a.Messages[1].Text)
	assert.Equal(t, "two", b.Messages[1].Text)
}

func TestReduceViewToggle(t *testing.T) {
	s := NewState("g1", t0)

	s, _ = Reduce(s, Back{})
	assert.Equal(t, ViewLanding, s.View)
	s, _ = Reduce(s, OpenChat{})
	assert.Equal(t, ViewChat, s.View)
}

func TestParseView(t *testing.T) {
	v, ok := ParseView(" Landing ")
	assert.True(t, ok)
	assert.Equal(t, ViewLanding, v)

	_, ok = ParseView("settings")
	assert.False(t, ok)
}

func TestMessageClone(t *testing.T) {
	m := Message{ID: "a", Role: RoleAssistant, Text: "summary", Attachment: DocumentSummary()}
	c := m.Clone()
	c.Attachment.KeyPoints[0] = "changed"
	c.Attachment.Summary = "changed"

	assert.NotEqual(t, "changed", m.Attachment.KeyPoints[0])
	assert.NotEqual(t, "changed", m.Attachment.Summary)

	plain := Message{ID: "b", Text: "hi"}
	assert.Equal(t, plain, plain.Clone())
}
