package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparrow/chat"
	"sparrow/services"
)

func runScript(t *testing.T, lines ...string) string {
	t.Helper()
	return runScriptWith(t, services.ConversationOptions{}, lines...)
}

func runScriptWith(t *testing.T, opts services.ConversationOptions, lines ...string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if opts.ReplyDelay == 0 {
		opts.ReplyDelay = time.Millisecond
	}
	var out bytes.Buffer
	err := RunChat(ctx, strings.NewReader(strings.Join(lines, "\n")+"\n"), &out, opts)
	require.NoError(t, err)
	return out.String()
}

type userTexts struct {
	mu    sync.Mutex
	texts []string
}

func (u *userTexts) Publish(_ context.Context, ev services.Event) error {
	if ev.Type == services.EventMessage && ev.Message.Role == chat.RoleUser {
		u.mu.Lock()
		u.texts = append(u.texts, ev.Message.Text)
		u.mu.Unlock()
	}
	return nil
}

func (u *userTexts) get() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.texts...)
}

func TestRunChatConversation(t *testing.T) {
	out := runScript(t,
		"Please review this contract",
		"",
		"thanks",
		"/quit",
		"never read",
	)

	assert.Contains(t, out, chat.Greeting)
	assert.Equal(t, 2, strings.Count(out, "Sparrow is typing..."))
	assert.Contains(t, out, "Document Analysis Summary")
	assert.Equal(t, 3, strings.Count(out, "Sparrow ["))
	assert.Contains(t, out, "Goodbye.")
	assert.NotContains(t, out, "never read")
}

func TestRunChatSessionCommands(t *testing.T) {
	out := runScript(t,
		"/sessions",
		"/open 3",
		"/open 42",
		"/new",
		"/bogus",
	)

	assert.Contains(t, out, "* current")
	assert.Contains(t, out, "Intellectual Property Questions")
	assert.Contains(t, out, "1h ago")
	assert.Contains(t, out, "Active session: Privacy Law Research")
	assert.Contains(t, out, `No session "42"`)
	assert.Contains(t, out, "Started a new chat.")
	assert.Equal(t, 2, strings.Count(out, chat.Greeting))
	assert.Contains(t, out, "Unknown command /bogus")
}

func TestRunChatKeepsTypingIndicatorAfterManyCommands(t *testing.T) {
	lines := make([]string, 0, 42)
	for i := 0; i < 40; i++ {
		lines = append(lines, "/open 1")
	}
	lines = append(lines, "hello", "/quit")

	out := runScript(t, lines...)

	assert.Equal(t, 1, strings.Count(out, "Sparrow is typing..."))
	assert.Equal(t, 2, strings.Count(out, "Sparrow ["))
}

func TestRunChatSubmitsTextAsTyped(t *testing.T) {
	pub := &userTexts{}
	runScriptWith(t, services.ConversationOptions{Publisher: pub, ReplyDelay: 50 * time.Millisecond},
		"   What about privacy?  ",
		"/quit",
	)

	require.Eventually(t, func() bool {
		return len(pub.get()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"   What about privacy?  "}, pub.get())
}
