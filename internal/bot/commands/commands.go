package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auctioneer/internal/auction"
	"github.com/jensholdgaard/auctioneer/internal/ledger"
	"github.com/jensholdgaard/auctioneer/internal/telemetry"
)

// Source is the read side of the auction engine.
type Source interface {
	Snapshot(ctx context.Context) *auction.Snapshot
	Teams(ctx context.Context) []ledger.Team
	Search(ctx context.Context, query string, unsoldOnly bool) []auction.SearchResult
}

// Handlers process Discord interactions.
type Handlers struct {
	source Source
	logger *slog.Logger
	tracer trace.Tracer
}

// NewHandlers creates new command handlers.
func NewHandlers(source Source, logger *slog.Logger, tp trace.TracerProvider) *Handlers {
	return &Handlers{
		source: source,
		logger: logger,
		tracer: tp.Tracer("github.com/jensholdgaard/auctioneer/internal/bot/commands"),
	}
}

// SlashCommands returns the slash command definitions.
func SlashCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "auction-status",
			Description: "Show the player on the block and auction progress",
		},
		{
			Name:        "auction-teams",
			Description: "List team budgets and rosters",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "team",
					Description: "Only show this team",
					Required:    false,
				},
			},
		},
		{
			Name:        "auction-search",
			Description: "Search players by name or id",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Name fragment or player id",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "unsold",
					Description: "Only players still waiting to be auctioned",
					Required:    false,
				},
			},
		},
	}
}

// InteractionCreate handles incoming slash command interactions.
func (h *Handlers) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	ctx, span := h.tracer.Start(context.Background(), "InteractionCreate",
		trace.WithAttributes(attribute.String("command", data.Name)),
	)
	defer span.End()

	msg := h.Reply(ctx, data)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: msg},
	}); err != nil {
		telemetry.LogWithTrace(ctx, h.logger).ErrorContext(ctx, "responding to interaction",
			slog.String("command", data.Name),
			slog.Any("error", err),
		)
	}
}

// Reply renders the answer to a slash command.
func (h *Handlers) Reply(ctx context.Context, data discordgo.ApplicationCommandInteractionData) string {
	switch data.Name {
	case "auction-status":
		return h.status(ctx)
	case "auction-teams":
		team := ""
		if opt := option(data.Options, "team"); opt != nil {
			team = opt.StringValue()
		}
		return h.teams(ctx, team)
	case "auction-search":
		query, unsold := "", false
		if opt := option(data.Options, "query"); opt != nil {
			query = opt.StringValue()
		}
		if opt := option(data.Options, "unsold"); opt != nil {
			unsold = opt.BoolValue()
		}
		return h.search(ctx, query, unsold)
	default:
		return "Unknown command"
	}
}

func (h *Handlers) status(ctx context.Context) string {
	snap := h.source.Snapshot(ctx)
	var b strings.Builder
	if snap.Current != nil {
		fmt.Fprintf(&b, "On the block: **%s** (#%d)\n", snap.Current.PlayerName, snap.Current.ID)
	} else {
		b.WriteString("No player on the block.\n")
	}
	fmt.Fprintf(&b, "Sold %d of %d players, %d unsold.", snap.SoldPlayers, snap.TotalPlayers, len(snap.Unsold))
	if tx := snap.LastTransaction; tx != nil {
		fmt.Fprintf(&b, "\nLast sale: #%d to **%s** for %d points.", tx.PlayerID, tx.Team, tx.Points)
	}
	return b.String()
}

func (h *Handlers) teams(ctx context.Context, only string) string {
	var b strings.Builder
	for _, t := range h.source.Teams(ctx) {
		if only != "" && !strings.EqualFold(t.Name, only) {
			continue
		}
		fmt.Fprintf(&b, "**%s**: %d points left, %d players, bidding power %d\n",
			t.Name, t.Points, len(t.Roster), t.BiddingPower)
	}
	if b.Len() == 0 {
		if only != "" {
			return fmt.Sprintf("No team named %q.", only)
		}
		return "No teams configured."
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (h *Handlers) search(ctx context.Context, query string, unsold bool) string {
	results := h.source.Search(ctx, query, unsold)
	if len(results) == 0 {
		return fmt.Sprintf("No players match %q.", query)
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "#%d %s (%s)", r.ID, r.PlayerName, r.Status)
		if r.Team != "" {
			fmt.Fprintf(&b, " to %s", r.Team)
		}
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func option(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range opts {
		if o.Name == name {
			return o
		}
	}
	return nil
}
