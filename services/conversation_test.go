package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparrow/chat"
)

// manualDelay stands in for time.After: replies are released by fire.
type manualDelay struct {
	scheduled chan time.Duration
	release   chan time.Time
}

func newManualDelay() *manualDelay {
	return &manualDelay{
		scheduled: make(chan time.Duration, 8),
		release:   make(chan time.Time, 8),
	}
}

func (m *manualDelay) after(d time.Duration) <-chan time.Time {
	m.scheduled <- d
	return m.release
}

func (m *manualDelay) fire() {
	m.release <- time.Now()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestConversation(t *testing.T, delay *manualDelay) *Conversation {
	t.Helper()
	conv := NewConversation("conv-1", ConversationOptions{
		ReplyDelay: 1500 * time.Millisecond,
		After:      delay.after,
	})
	t.Cleanup(conv.Close)
	return conv
}

func waitForAssistant(t *testing.T, events <-chan Event) chat.Message {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed")
			if ev.Type == EventMessage && ev.Message.Role == chat.RoleAssistant {
				return *ev.Message
			}
		case <-timeout:
			t.Fatal("timed out waiting for assistant reply")
		}
	}
}

func TestConversationSubmitAndReply(t *testing.T) {
	ctx := context.Background()
	delay := newManualDelay()
	conv := newTestConversation(t, delay)

	events, stop, err := conv.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	userMsg, err := conv.Submit(ctx, "Can you review my contract?")
	require.NoError(t, err)
	require.NotNil(t, userMsg)
	assert.Equal(t, chat.RoleUser, userMsg.Role)

	assert.Equal(t, 1500*time.Millisecond, <-delay.scheduled)

	s, err := conv.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, s.Typing)
	assert.Len(t, s.Messages, 2)

	delay.fire()
	reply := waitForAssistant(t, events)
	require.NotNil(t, reply.Attachment)
	assert.Len(t, reply.Attachment.KeyPoints, 4)

	s, err = conv.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, s.Typing)
	require.Len(t, s.Messages, 3)
	assert.Equal(t, chat.RoleAssistant, s.Messages[0].Role)
	assert.Equal(t, chat.RoleUser, s.Messages[1].Role)
	assert.Equal(t, chat.RoleAssistant, s.Messages[2].Role)

	seen := map[string]bool{}
	for i, m := range s.Messages {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
		if i > 0 {
			assert.False(t, m.CreatedAt.Before(s.Messages[i-1].CreatedAt))
		}
	}
}

func TestConversationIgnoresBlankSubmit(t *testing.T) {
	ctx := context.Background()
	delay := newManualDelay()
	conv := newTestConversation(t, delay)

	for _, text := range []string{"", "  ", "\n"} {
		msg, err := conv.Submit(ctx, text)
		assert.NoError(t, err)
		assert.Nil(t, msg)
	}

	s, err := conv.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Messages, 1)
	assert.False(t, s.Typing)
	assert.Empty(t, delay.scheduled)
}

func TestConversationRejectsSubmitWhileTyping(t *testing.T) {
	ctx := context.Background()
	delay := newManualDelay()
	conv := newTestConversation(t, delay)

	_, err := conv.Submit(ctx, "hello")
	require.NoError(t, err)

	msg, err := conv.Submit(ctx, "are you there?")
	assert.ErrorIs(t, err, ErrReplyPending)
	assert.Nil(t, msg)

	s, err := conv.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, s.Messages, 2)
	assert.Len(t, delay.scheduled, 1)
}

func TestConversationResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conv := newTestConversation(t, newManualDelay())

	_, err := conv.SelectSession(ctx, "2")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		s, err := conv.Reset(ctx)
		require.NoError(t, err)
		require.Len(t, s.Messages, 1)
		assert.Equal(t, chat.Greeting, s.Messages[0].Text)
		assert.Equal(t, chat.DefaultSessionID, s.ActiveSessionID)
	}
}

func TestConversationReplyLandsAfterReset(t *testing.T) {
	ctx := context.Background()
	delay := newManualDelay()
	conv := newTestConversation(t, delay)

	events, stop, err := conv.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	_, err = conv.Submit(ctx, "What's new in privacy law?")
	require.NoError(t, err)
	_, err = conv.Reset(ctx)
	require.NoError(t, err)

	delay.fire()
	reply := waitForAssistant(t, events)
	assert.Nil(t, reply.Attachment)

	s, err := conv.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, chat.Greeting, s.Messages[0].Text)
	assert.Equal(t, reply.ID, s.Messages[1].ID)
	assert.False(t, s.Typing)
}

func TestConversationSelectSession(t *testing.T) {
	ctx := context.Background()
	conv := newTestConversation(t, newManualDelay())

	_, err := conv.Submit(ctx, "hello")
	require.NoError(t, err)
	before, err := conv.Snapshot(ctx)
	require.NoError(t, err)

	for _, sess := range chat.DefaultSessions(time.Now()) {
		s, err := conv.SelectSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, s.ActiveSessionID)
		assert.Equal(t, before.Messages, s.Messages)
	}

	_, err = conv.SelectSession(ctx, "99")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestConversationSetView(t *testing.T) {
	ctx := context.Background()
	conv := newTestConversation(t, newManualDelay())

	s, err := conv.SetView(ctx, chat.ViewLanding)
	require.NoError(t, err)
	assert.Equal(t, chat.ViewLanding, s.View)

	s, err = conv.SetView(ctx, chat.ViewChat)
	require.NoError(t, err)
	assert.Equal(t, chat.ViewChat, s.View)
}

func TestConversationCloseCancelsPendingReply(t *testing.T) {
	ctx := context.Background()
	delay := newManualDelay()
	conv := NewConversation("conv-1", ConversationOptions{After: delay.after})

	events, _, err := conv.Subscribe(ctx)
	require.NoError(t, err)

	_, err = conv.Submit(ctx, "hello")
	require.NoError(t, err)

	conv.Close()
	conv.Close()
	delay.fire()

	// drain what was emitted before closing; the stream must end
	for range events {
	}

	_, err = conv.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrConversationClosed)
	_, err = conv.Submit(ctx, "again")
	assert.ErrorIs(t, err, ErrConversationClosed)
}

func TestConversationWithRealDelay(t *testing.T) {
	ctx := context.Background()
	conv := NewConversation("conv-1", ConversationOptions{ReplyDelay: 10 * time.Millisecond})
	defer conv.Close()

	events, stop, err := conv.Subscribe(ctx)
	require.NoError(t, err)
	defer stop()

	_, err = conv.Submit(ctx, "Hello there")
	require.NoError(t, err)

	reply := waitForAssistant(t, events)
	assert.Nil(t, reply.Attachment)
	assert.NotEmpty(t, reply.Text)
}

func TestConversationPublishesEvents(t *testing.T) {
	ctx := context.Background()
	delay := newManualDelay()
	pub := &recordingPublisher{}
	conv := NewConversation("conv-1", ConversationOptions{After: delay.after, Publisher: pub})
	defer conv.Close()

	_, err := conv.Submit(ctx, "document question")
	require.NoError(t, err)
	delay.fire()

	require.Eventually(t, func() bool {
		return len(pub.types()) == 4
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []EventType{EventMessage, EventTyping, EventMessage, EventTyping}, pub.types())
}

func TestConversationDefaultReplyDelay(t *testing.T) {
	delay := newManualDelay()
	conv := NewConversation("conv-1", ConversationOptions{After: delay.after})
	defer conv.Close()

	_, err := conv.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.ReplyDelay, <-delay.scheduled)
	assert.Equal(t, 1500*time.Millisecond, chat.ReplyDelay)
}

func TestConversationHandsOutIndependentCopies(t *testing.T) {
	ctx := context.Background()
	delay := newManualDelay()
	conv := newTestConversation(t, delay)

	first, stopFirst, err := conv.Subscribe(ctx)
	require.NoError(t, err)
	defer stopFirst()
	second, stopSecond, err := conv.Subscribe(ctx)
	require.NoError(t, err)
	defer stopSecond()

	sent, err := conv.Submit(ctx, "contract question")
	require.NoError(t, err)
	sent.Text = "rewritten by caller"

	delay.fire()
	a := waitForAssistant(t, first)
	b := waitForAssistant(t, second)
	require.NotNil(t, a.Attachment)
	require.NotNil(t, b.Attachment)

	a.Attachment.KeyPoints[0] = "tampered"
	a.Attachment.Title = "tampered"

	assert.NotEqual(t, "tampered", b.Attachment.KeyPoints[0])
	assert.NotEqual(t, "tampered", b.Attachment.Title)

	s, err := conv.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, s.Messages, 3)
	assert.Equal(t, "contract question", s.Messages[1].Text)
	assert.NotEqual(t, "tampered", s.Messages[2].Attachment.KeyPoints[0])
	assert.NotEqual(t, "tampered", s.Messages[2].Attachment.Title)
}
