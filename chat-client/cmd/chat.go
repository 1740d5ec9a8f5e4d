package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiawesome/campus-live/chat-client/internal/apiclient"
	"github.com/weiawesome/campus-live/chat-client/internal/identity"
	"github.com/weiawesome/campus-live/chat-client/internal/realtime"
	"github.com/weiawesome/campus-live/chat-client/internal/render"
	"github.com/weiawesome/campus-live/chat-client/internal/session"
	"github.com/weiawesome/campus-live/pkg/jwt"
	pkglog "github.com/weiawesome/campus-live/pkg/log"
)

const chatHelp = `commands:
  <text>                 send a message
  /react <id> <emoji>    react to a message
  /typing                signal typing for a moment
  /retry                 resend the message that failed to go out
  /join                  join again after a failed or dropped session
  /history               reload recent history
  /who                   list who is here
  /quit                  leave`

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("room", "", "room to join (default session.room)")
	chatCmd.Flags().String("email", "", "account email (default account.email)")
	chatCmd.Flags().String("password", "", "password (default account.password)")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join a chat room",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("room"); v != "" {
		cfg.Session.Room = v
	}
	if v, _ := cmd.Flags().GetString("email"); v != "" {
		cfg.Account.Email = v
	}
	if v, _ := cmd.Flags().GetString("password"); v != "" {
		cfg.Account.Password = v
	}

	// Logs go to stderr so they do not interleave with the chat.
	cfg.Log.Output = os.Stderr
	logger := pkglog.New(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout)
	account, err := api.Login(ctx, cfg.Account.Email, cfg.Account.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	var verifier *jwt.Verifier
	if cfg.Realtime.PublicKeyFile != "" {
		key, err := jwt.LoadPublicKey(cfg.Realtime.PublicKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load realtime public key: %w", err)
		}
		verifier = jwt.NewVerifier(key, cfg.Realtime.Issuer)
	}

	connector := realtime.NewRedisConnector(realtime.Options{
		Redis:             cfg.Redis,
		Verifier:          verifier,
		PresenceTTL:       cfg.Realtime.PresenceTTL,
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
		TypingTimeout:     cfg.Realtime.TypingTimeout,
		Logger:            logger,
	})
	resolver := identity.NewResolver(api, logger)
	mgr := session.NewManager(connector, api, api, resolver, session.Config{
		Room:           cfg.Session.Room,
		HistoryLimit:   cfg.Session.HistoryLimit,
		ConnectTimeout: cfg.Session.ConnectTimeout,
		Logger:         logger,
	})
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := mgr.Close(closeCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to close realtime connection")
		}
	}()

	out := cmd.OutOrStdout()
	renderer := render.New(out, account.Email)
	loop := &chatLoop{
		out:      out,
		mgr:      mgr,
		composer: session.NewComposer(mgr, session.SystemClock(), cfg.Session.TypingIdle),
		self:     session.Identity{AccountID: account.Email, DisplayName: account.DisplayName},
		room:     cfg.Session.Room,
	}
	loop.join(ctx)

	go func() {
		renderer.Render(mgr.Snapshot())
		for {
			select {
			case <-ctx.Done():
				return
			case <-mgr.Changes():
				renderer.Render(mgr.Snapshot())
			}
		}
	}()

	lines := readLines(cmd.InOrStdin())
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := loop.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// chatLoop runs the interactive commands of one chat session.
type chatLoop struct {
	out      io.Writer
	mgr      *session.Manager
	composer *session.Composer
	self     session.Identity
	room     string
}

// join activates the session. A failure is printed and the loop keeps
// running so the user can try again with /join.
func (c *chatLoop) join(ctx context.Context) bool {
	if err := c.mgr.Activate(ctx, c.self); err != nil {
		fmt.Fprintf(c.out, "could not join %s: %v, /join to try again\n", c.room, err)
		return false
	}
	name := c.self.DisplayName
	if name == "" {
		name = c.self.AccountID
	}
	fmt.Fprintf(c.out, "joined %s as %s, /help for commands\n", c.room, name)
	return true
}

// handle runs one input line and reports whether the user asked to quit.
func (c *chatLoop) handle(ctx context.Context, line string) bool {
	out, mgr, composer := c.out, c.mgr, c.composer
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		composer.SetText(ctx, line)
		submit(ctx, out, composer)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(out, chatHelp)
	case "/react":
		if len(fields) != 3 {
			fmt.Fprintln(out, "usage: /react <message-id> <emoji>")
			return false
		}
		mgr.AddReaction(ctx, strings.TrimPrefix(fields[1], "#"), fields[2])
	case "/typing":
		// The transport expires the signal on its own.
		mgr.SetTyping(ctx, true)
	case "/join":
		if mgr.State() == session.StateActive {
			fmt.Fprintf(out, "already in %s\n", c.room)
			return false
		}
		c.join(ctx)
	case "/retry":
		switch {
		case composer.Text() != "":
			submit(ctx, out, composer)
		case mgr.State() != session.StateActive:
			c.join(ctx)
		default:
			fmt.Fprintln(out, "nothing to resend")
		}
	case "/history":
		if err := mgr.LoadHistory(ctx); err != nil {
			fmt.Fprintf(out, "history unavailable: %v\n", err)
		}
	case "/who":
		fmt.Fprintln(out, render.PresenceLine(mgr.Snapshot().Presence))
	default:
		fmt.Fprintf(out, "unknown command %s, /help for commands\n", fields[0])
	}
	return false
}

func submit(ctx context.Context, out io.Writer, composer *session.Composer) {
	receipt, err := composer.Submit(ctx)
	switch {
	case errors.Is(err, session.ErrPublishFailed):
		fmt.Fprintf(out, "message not sent (%v), /retry to resend\n", err)
	case err != nil:
		fmt.Fprintf(out, "message not sent: %v\n", err)
	case receipt.PersistErr != nil:
		fmt.Fprintln(out, "warning: message delivered live but not saved to history")
	}
}

// readLines streams r line by line until EOF.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
