package chat

import (
	"strings"
	"time"
)

type View string

const (
	ViewLanding View = "landing"
	ViewChat    View = "chat"
)

func ParseView(s string) (View, bool) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewLanding:
		return ViewLanding, true
	case ViewChat:
		return ViewChat, true
	}
	return "", false
}

// State is the whole chat UI state. Reduce never mutates a State it is
// given; the Messages slice of a returned State is never shared with the
// input.
type State struct {
	View            View      `json:"view"`
	ActiveSessionID string    `json:"active_session_id"`
	Messages        []Message `json:"messages"`
	Typing          bool      `json:"typing"`
}

// NewState is a conversation that just opened: chat view, default session,
// greeting only.
func NewState(greetingID string, at time.Time) State {
	return State{
		View:            ViewChat,
		ActiveSessionID: DefaultSessionID,
		Messages:        []Message{NewGreeting(greetingID, at)},
	}
}

func (s State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

type Action interface {
	isAction()
}

// Submit appends a user message. ID and At are supplied by the caller so the
// reducer stays deterministic.
type Submit struct {
	Text string
	ID   string
	At   time.Time
}

// ReplyArrived appends a fully formed assistant message.
type ReplyArrived struct {
	Message Message
}

// Reset replaces the transcript with a fresh greeting.
type Reset struct {
	GreetingID string
	At         time.Time
}

// SelectSession moves the active-session pointer. The loaded transcript is
// left as is; session history is not loaded.
type SelectSession struct {
	ID string
}

type OpenChat struct{}

type Back struct{}

func (Submit) isAction()        {}
func (ReplyArrived) isAction()  {}
func (Reset) isAction()         {}
func (SelectSession) isAction() {}
func (OpenChat) isAction()      {}
func (Back) isAction()          {}

// Effect is work the caller must perform after applying an action.
type Effect struct {
	// ScheduleReply is the prompt to answer after the reply delay. Empty
	// means nothing to schedule.
	ScheduleReply string
}

// Reduce applies a to s. Rejected actions return s unchanged and a zero
// Effect.
func Reduce(s State, a Action) (State, Effect) {
	switch a := a.(type) {
	case Submit:
		if strings.TrimSpace(a.Text) == "" || s.Typing {
			return s, Effect{}
		}
		next := s.appendMessage(Message{
			ID:        a.ID,
			Role:      RoleUser,
			Text:      a.Text,
			CreatedAt: a.At,
		})
		next.Typing = true
		return next, Effect{ScheduleReply: a.Text}

	case ReplyArrived:
		msg := a.Message
		msg.Role = RoleAssistant
		next := s.appendMessage(msg)
		next.Typing = false
		return next, Effect{}

	case Reset:
		next := s
		next.Messages = []Message{NewGreeting(a.GreetingID, a.At)}
		next.ActiveSessionID = DefaultSessionID
		return next, Effect{}

	case SelectSession:
		next := s
		next.ActiveSessionID = a.ID
		return next, Effect{}

	case OpenChat:
		next := s
		next.View = ViewChat
		return next, Effect{}

	case Back:
		next := s
		next.View = ViewLanding
		return next, Effect{}
	}

	return s, Effect{}
}

// appendMessage copies the transcript and adds m at the tail, clamping its
// timestamp so the sequence never goes backwards.
func (s State) appendMessage(m Message) State {
	if last, ok := s.Last(); ok && m.CreatedAt.Before(last.CreatedAt) {
		m.CreatedAt = last.CreatedAt
	}

	msgs := make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(msgs, s.Messages)
	msgs = append(msgs, m)

	next := s
	next.Messages = msgs
	return next
}
