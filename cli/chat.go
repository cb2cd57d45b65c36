package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sparrow/chat"
	"sparrow/config"
	"sparrow/logger"
	"sparrow/services"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Sparrow in the terminal",
	Long: `Start an interactive conversation on stdin/stdout.

Commands:
  /new          start a new chat
  /sessions     list recent sessions
  /open <id>    make a session active
  /quit         leave`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		// keep the terminal for the conversation; logs go to LOG_FILE only
		log := logger.NewFileOnly(cfg.LogLevel, cfg.LogFile)
		defer log.Sync()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return RunChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), services.ConversationOptions{
			ReplyDelay: cfg.ReplyDelay,
			Logger:     log,
		})
	},
}

// RunChat drives one conversation from line-oriented input until /quit or
// EOF. Each submission blocks until the assistant has answered, the same way
// the composer is disabled while Sparrow is typing.
func RunChat(ctx context.Context, in io.Reader, out io.Writer, opts services.ConversationOptions) error {
	if opts.Catalog == nil {
		opts.Catalog = services.NewStaticCatalog(nil)
	}

	conv := services.NewConversation(services.NewID(), opts)
	defer conv.Close()

	s, err := conv.Snapshot(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Sparrow - legal assistant. Type /quit to leave.")
	printMessages(out, s.Messages)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			continue

		case line == "/quit" || line == "/exit":
			fmt.Fprintln(out, "Goodbye.")
			return nil

		case line == "/new":
			s, err := conv.Reset(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Started a new chat.")
			printMessages(out, s.Messages)

		case line == "/sessions":
			if err := printSessions(ctx, out, opts.Catalog, conv); err != nil {
				return err
			}

		case strings.HasPrefix(line, "/open"):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open"))
			s, err := conv.SelectSession(ctx, id)
			if errors.Is(err, services.ErrUnknownSession) {
				fmt.Fprintf(out, "No session %q. Try /sessions.\n", id)
				continue
			}
			if err != nil {
				return err
			}
			sessions, err := opts.Catalog.List(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Active session: %s\n", chat.ActiveTitle(sessions, s.ActiveSessionID))

		case strings.HasPrefix(line, "/"):
			fmt.Fprintf(out, "Unknown command %s\n", line)

		default:
			if err := submit(ctx, out, conv, raw); err != nil {
				return err
			}
		}
	}
}

// submit sends text as typed and waits for the answer. The subscription
// lives only for this exchange, so events from commands never pile up.
func submit(ctx context.Context, out io.Writer, conv *services.Conversation, text string) error {
	events, stop, err := conv.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer stop()

	msg, err := conv.Submit(ctx, text)
	if err != nil || msg == nil {
		return err
	}
	return awaitReply(ctx, out, events)
}

// awaitReply prints the typing indicator and the next assistant message.
func awaitReply(ctx context.Context, out io.Writer, events <-chan services.Event) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return services.ErrConversationClosed
			}
			switch {
			case ev.Type == services.EventTyping && ev.State.Typing:
				fmt.Fprintln(out, "Sparrow is typing...")
			case ev.Type == services.EventMessage && ev.Message != nil && ev.Message.Role == chat.RoleAssistant:
				printMessages(out, []chat.Message{*ev.Message})
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printMessages(out io.Writer, msgs []chat.Message) {
	for _, m := range msgs {
		name := "You"
		if m.Role == chat.RoleAssistant {
			name = "Sparrow"
		}
		fmt.Fprintf(out, "%s [%s]: %s\n", name, m.CreatedAt.Format("15:04"), m.Text)

		if a := m.Attachment; a != nil {
			fmt.Fprintf(out, "  %s\n  %s\n", a.Title, a.Summary)
			for _, p := range a.KeyPoints {
				fmt.Fprintf(out, "   - %s\n", p)
			}
		}
	}
}

func printSessions(ctx context.Context, out io.Writer, catalog services.SessionCatalog, conv *services.Conversation) error {
	sessions, err := catalog.List(ctx)
	if err != nil {
		return err
	}
	s, err := conv.Snapshot(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, sess := range sessions {
		marker := " "
		if sess.ID == s.ActiveSessionID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %-8s %-32s %-12s %3d msgs  %s\n",
			marker, sess.ID, sess.Title, chat.RelativeTime(now, sess.LastActivity), sess.MessageCount, sess.Preview)
	}
	return nil
}
