// Package bot announces auction progress in a Discord channel and answers
// read-only slash commands about the auction.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auctioneer/internal/auction"
	"github.com/jensholdgaard/auctioneer/internal/bot/commands"
	"github.com/jensholdgaard/auctioneer/internal/config"
	"github.com/jensholdgaard/auctioneer/internal/event"
)

const announceBuffer = 64

// Bot wraps the Discord session and command handlers.
type Bot struct {
	session  *discordgo.Session
	cfg      config.DiscordConfig
	logger   *slog.Logger
	handlers *commands.Handlers
	cmds     []*discordgo.ApplicationCommand

	send     func(channelID, content string) error
	outbox   chan string
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Bot instance.
func New(cfg config.DiscordConfig, source commands.Source, logger *slog.Logger, tp trace.TracerProvider) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}

	b := newBot(cfg, logger, func(channelID, content string) error {
		_, err := session.ChannelMessageSend(channelID, content)
		return err
	})
	b.session = session
	b.handlers = commands.NewHandlers(source, logger, tp)
	return b, nil
}

func newBot(cfg config.DiscordConfig, logger *slog.Logger, send func(channelID, content string) error) *Bot {
	return &Bot{
		cfg:    cfg,
		logger: logger,
		send:   send,
		outbox: make(chan string, announceBuffer),
		done:   make(chan struct{}),
	}
}

// Start opens the Discord connection and registers slash commands.
func (b *Bot) Start(ctx context.Context) error {
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.InfoContext(ctx, "bot is ready", slog.String("user", s.State.User.Username))
	})

	b.session.AddHandler(b.handlers.InteractionCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}

	registered, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, b.cfg.GuildID, commands.SlashCommands())
	if err != nil {
		return fmt.Errorf("registering slash commands: %w", err)
	}
	b.cmds = registered
	b.logger.InfoContext(ctx, "slash commands registered", slog.Int("count", len(registered)))

	b.startAnnouncer()
	return nil
}

func (b *Bot) startAnnouncer() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case msg := <-b.outbox:
				if err := b.send(b.cfg.ChannelID, msg); err != nil {
					b.logger.Error("posting announcement", slog.String("channel", b.cfg.ChannelID), slog.Any("error", err))
				}
			case <-b.done:
				return
			}
		}
	}()
}

// AuctionChanged implements auction.Listener. Announcements are posted in the
// background; when the queue is full the message is dropped.
func (b *Bot) AuctionChanged(ctx context.Context, c auction.Change) {
	if b.cfg.ChannelID == "" {
		return
	}
	msg, ok := Announcement(c)
	if !ok {
		return
	}
	select {
	case b.outbox <- msg:
	default:
		b.logger.WarnContext(ctx, "announcement dropped", slog.String("type", string(c.Type)))
	}
}

// Stop gracefully closes the Discord connection.
func (b *Bot) Stop() error {
	b.stopOnce.Do(func() { close(b.done) })
	b.wg.Wait()
	if b.session == nil {
		return nil
	}
	for _, cmd := range b.cmds {
		if err := b.session.ApplicationCommandDelete(b.session.State.User.ID, b.cfg.GuildID, cmd.ID); err != nil {
			b.logger.Error("failed to delete command", slog.String("command", cmd.Name), slog.Any("error", err))
		}
	}
	return b.session.Close()
}

// Announcement renders the channel message for a change. Changes that are not
// worth announcing return false.
func Announcement(c auction.Change) (string, bool) {
	name := ""
	if c.Player != nil {
		name = c.Player.PlayerName
	}
	switch c.Type {
	case event.PlayerDrawn:
		return fmt.Sprintf("Now on the block: **%s** (#%d)", name, c.Player.ID), true
	case event.PlayerSelected:
		return fmt.Sprintf("**%s** is up for auction again", name), true
	case event.PlayerSold:
		return fmt.Sprintf("**%s** sold to **%s** for %d points", name, c.Team, c.Points), true
	case event.PlayerSkipped:
		return fmt.Sprintf("**%s** skipped", name), true
	case event.SaleUndone:
		return fmt.Sprintf("Sale of **%s** to **%s** undone, %d points refunded", name, c.Team, c.Points), true
	case event.PlayerUnsold:
		return fmt.Sprintf("**%s** released by **%s**", name, c.Team), true
	case event.SaleTransferred:
		return fmt.Sprintf("**%s** transferred to **%s** for %d points", name, c.Team, c.Points), true
	case event.AuctionReset:
		if c.Snapshot == nil {
			return "Auction reset", true
		}
		return fmt.Sprintf("Auction reset: %d players, %d teams", c.Snapshot.TotalPlayers, len(c.Snapshot.Teams)), true
	case event.AuctionCompleted:
		if c.Snapshot == nil {
			return "Auction complete", true
		}
		return fmt.Sprintf("Auction complete: %d of %d players sold", c.Snapshot.SoldPlayers, c.Snapshot.TotalPlayers), true
	default:
		return "", false
	}
}
