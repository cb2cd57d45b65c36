package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sparrow/chat"
)

var (
	ErrReplyPending         = errors.New("assistant reply pending")
	ErrUnknownSession       = errors.New("unknown session")
	ErrConversationClosed   = errors.New("conversation closed")
	ErrConversationNotFound = errors.New("conversation not found")
)

const (
	subscriberBuffer = 32
	publishBuffer    = 64
	publishTimeout   = 3 * time.Second
)

type ConversationOptions struct {
	ReplyDelay time.Duration
	Responder  *chat.Responder
	Catalog    SessionCatalog
	Publisher  Publisher
	Logger     *zap.Logger

	Now   func() time.Time
	NewID func() string
	// After starts the reply delay. Tests swap it for a channel they control.
	After func(time.Duration) <-chan time.Time
}

func (o *ConversationOptions) setDefaults() {
	if o.ReplyDelay <= 0 {
		o.ReplyDelay = chat.ReplyDelay
	}
	if o.Responder == nil {
		o.Responder = chat.NewResponder()
	}
	if o.Catalog == nil {
		o.Catalog = NewStaticCatalog(nil)
	}
	if o.Publisher == nil {
		o.Publisher = NopPublisher{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = NewID
	}
	if o.After == nil {
		o.After = time.After
	}
}

// NewID returns a time-ordered unique id.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Conversation owns one chat.State. Every read and write runs as a closure
// on a single loop goroutine; nothing else touches state, pending or subs.
type Conversation struct {
	id   string
	opts ConversationOptions
	log  *zap.Logger

	cmds      chan func()
	published chan Event
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}

	state   chat.State
	pending context.CancelFunc
	subs    map[int]chan Event
	nextSub int
}

func NewConversation(id string, opts ConversationOptions) *Conversation {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Conversation{
		id:        id,
		opts:      opts,
		log:       opts.Logger.With(zap.String("conversation_id", id)),
		cmds:      make(chan func()),
		published: make(chan Event, publishBuffer),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     chat.NewState(opts.NewID(), opts.Now()),
		subs:      make(map[int]chan Event),
	}

	go c.loop()
	go c.publishLoop()

	c.log.Debug("conversation opened")
	return c
}

func (c *Conversation) ID() string {
	return c.id
}

// Done is closed once the conversation has shut down.
func (c *Conversation) Done() <-chan struct{} {
	return c.done
}

// Close cancels any pending reply, closes subscriber channels and waits for
// the loop to exit. Safe to call more than once.
func (c *Conversation) Close() {
	c.cancel()
	<-c.done
}

func (c *Conversation) loop() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.cmds:
			fn()
		case <-c.ctx.Done():
			if c.pending != nil {
				c.pending()
				c.pending = nil
			}
			for id, ch := range c.subs {
				close(ch)
				delete(c.subs, id)
			}
			c.log.Debug("conversation closed")
			return
		}
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (c *Conversation) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(finished) }:
	case <-c.ctx.Done():
		return ErrConversationClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

func (c *Conversation) Snapshot(ctx context.Context) (chat.State, error) {
	var s chat.State
	err := c.do(ctx, func() { s = c.snapshot() })
	return s, err
}

// Submit appends a user message and schedules the assistant reply. Blank
// text is ignored: no message, no reply, nil error and a nil message.
func (c *Conversation) Submit(ctx context.Context, text string) (*chat.Message, error) {
	var (
		msg    *chat.Message
		reject error
	)
	err := c.do(ctx, func() {
		next, eff := chat.Reduce(c.state, chat.Submit{Text: text, ID: c.opts.NewID(), At: c.opts.Now()})
		if eff.ScheduleReply == "" {
			if c.state.Typing {
				reject = ErrReplyPending
			}
			return
		}
		c.state = next

		last, _ := next.Last()
		c.emit(EventMessage, &last)
		reply := last.Clone()
		msg = &reply
		c.emit(EventTyping, nil)

		c.scheduleReply(eff.ScheduleReply)
	})
	if err != nil {
		return nil, err
	}
	return msg, reject
}

// Reset drops the transcript back to the greeting. A reply already in flight
// still lands, in the fresh transcript.
func (c *Conversation) Reset(ctx context.Context) (chat.State, error) {
	var s chat.State
	err := c.do(ctx, func() {
		c.state, _ = chat.Reduce(c.state, chat.Reset{GreetingID: c.opts.NewID(), At: c.opts.Now()})
		c.emit(EventReset, nil)
		s = c.snapshot()
	})
	return s, err
}

// SelectSession moves the active-session pointer. The transcript is not
// replaced with that session's history.
func (c *Conversation) SelectSession(ctx context.Context, sessionID string) (chat.State, error) {
	ok, err := c.opts.Catalog.Exists(ctx, sessionID)
	if err != nil {
		return chat.State{}, err
	}
	if !ok {
		return chat.State{}, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	var s chat.State
	err = c.do(ctx, func() {
		c.state, _ = chat.Reduce(c.state, chat.SelectSession{ID: sessionID})
		c.emit(EventSession, nil)
		s = c.snapshot()
	})
	return s, err
}

func (c *Conversation) SetView(ctx context.Context, view chat.View) (chat.State, error) {
	var action chat.Action = chat.OpenChat{}
	if view == chat.ViewLanding {
		action = chat.Back{}
	}

	var s chat.State
	err := c.do(ctx, func() {
		c.state, _ = chat.Reduce(c.state, action)
		c.emit(EventView, nil)
		s = c.snapshot()
	})
	return s, err
}

// Subscribe returns a channel of events emitted after the call, and a
// function that stops the subscription. The channel is closed when either
// the subscription stops or the conversation closes.
func (c *Conversation) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	ch := make(chan Event, subscriberBuffer)
	var id int
	if err := c.do(ctx, func() {
		id = c.nextSub
		c.nextSub++
		c.subs[id] = ch
	}); err != nil {
		return nil, func() {}, err
	}

	stop := func() {
		_ = c.do(context.Background(), func() {
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
	return ch, stop, nil
}

// scheduleReply runs on the loop. The delay and generation happen on a task
// goroutine; the result comes back to the loop as a command.
func (c *Conversation) scheduleReply(prompt string) {
	taskCtx, cancel := context.WithCancel(c.ctx)
	c.pending = cancel
	timer := c.opts.After(c.opts.ReplyDelay)

	go func() {
		select {
		case <-taskCtx.Done():
			return
		case <-timer:
		}

		reply := c.opts.Responder.Generate(prompt)

		select {
		case c.cmds <- func() { c.deliverReply(taskCtx, cancel, reply) }:
		case <-taskCtx.Done():
		}
	}()
}

func (c *Conversation) deliverReply(taskCtx context.Context, cancel context.CancelFunc, reply chat.Reply) {
	if taskCtx.Err() != nil {
		return
	}
	cancel()
	c.pending = nil

	c.state, _ = chat.Reduce(c.state, chat.ReplyArrived{Message: chat.Message{
		ID:         c.opts.NewID(),
		Text:       reply.Text,
		CreatedAt:  c.opts.Now(),
		Attachment: reply.Attachment,
	}})

	last, _ := c.state.Last()
	c.emit(EventMessage, &last)
	c.emit(EventTyping, nil)
}

// snapshot copies the transcript so callers can't reach loop-owned memory.
func (c *Conversation) snapshot() chat.State {
	s := c.state
	s.Messages = make([]chat.Message, len(c.state.Messages))
	for i, m := range c.state.Messages {
		s.Messages[i] = m.Clone()
	}
	return s
}

// newEvent builds an event that shares no memory with the loop or with any
// other event.
func (c *Conversation) newEvent(t EventType, msg *chat.Message) Event {
	ev := Event{
		Type:           t,
		ConversationID: c.id,
		State:          c.snapshot(),
	}
	if msg != nil {
		m := msg.Clone()
		ev.Message = &m
	}
	return ev
}

func (c *Conversation) emit(t EventType, msg *chat.Message) {
	for id, ch := range c.subs {
		select {
		case ch <- c.newEvent(t, msg):
		default:
			c.log.Warn("subscriber too slow, event dropped", zap.Int("subscriber", id), zap.String("event", string(t)))
		}
	}

	select {
	case c.published <- c.newEvent(t, msg):
	default:
		c.log.Warn("publish queue full, event dropped", zap.String("event", string(t)))
	}
}

func (c *Conversation) publishLoop() {
	for {
		select {
		case ev := <-c.published:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			if err := c.opts.Publisher.Publish(ctx, ev); err != nil {
				c.log.Warn("publish event failed", zap.String("event", string(ev.Type)), zap.Error(err))
			}
			cancel()
		case <-c.ctx.Done():
			return
		}
	}
}
