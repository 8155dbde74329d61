// Package discord adapts the Discord gateway to the command core. It owns
// session lifecycle, slash command registration, and the mapping between
// gateway events and command requests; all decisions live in the core.
package discord

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pesterhq/pester/internal/command"
	"github.com/pesterhq/pester/internal/state"
)

// Core is the command surface the adapter drives. The gateway dispatches
// events on separate goroutines; the core serializes internally.
type Core interface {
	AdminAdd(req command.Request) command.Response
	AdminRemove(req command.Request) command.Response
	TargetAdd(req command.Request) command.Response
	TargetRemove(req command.Request) command.Response
	SetMessage(req command.Request) command.Response
	Info(req command.Request) command.Response
	ReplyFor(guild state.GuildID, author, owner state.UserID, authorIsBot bool) (string, bool)
}

type Bot struct {
	Core             Core
	Logger           *slog.Logger
	ObserveCommand   func(name string)
	ObserveAutoReply func(sent bool)

	session *discordgo.Session
	tracer  trace.Tracer
}

// New builds an unopened bot session for the given token.
func New(token string, core Core, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b := &Bot{
		Core:    core,
		Logger:  logger,
		session: session,
		tracer:  otel.Tracer("github.com/pesterhq/pester/internal/discord"),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	session.AddHandler(b.onMessage)
	return b, nil
}

// Open connects the gateway. Events start flowing before Open returns.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.Logger.Info("gateway_ready",
		slog.String("user", r.User.Username),
		slog.Int("guilds", len(r.Guilds)),
	)
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", commandDefinitions()); err != nil {
		b.Logger.Error("command_registration_failed", slog.Any("err", err))
		return
	}
	b.Logger.Info("commands_registered", slog.Int("count", len(commandDefinitions())))
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	guild := parseSnowflake(m.GuildID)
	author := state.UserID(parseSnowflake(m.Author.ID))

	text, ok := b.Core.ReplyFor(state.GuildID(guild), author, b.guildOwner(s, m.GuildID), m.Author.Bot)
	if !ok {
		return
	}
	if _, err := s.ChannelMessageSendReply(m.ChannelID, text, m.Reference()); err != nil {
		b.Logger.Warn("autoreply_send_failed",
			slog.String("guild", m.GuildID),
			slog.String("channel", m.ChannelID),
			slog.Any("err", err),
		)
		b.observeAutoReply(false)
		return
	}
	b.observeAutoReply(true)
}

// guildOwner resolves the guild owner from the session cache, falling back
// to the REST API. Zero means the owner could not be resolved; the core
// treats that as owner unknown.
func (b *Bot) guildOwner(s *discordgo.Session, guildID string) state.UserID {
	if guildID == "" {
		return 0
	}
	g, err := s.State.Guild(guildID)
	if err != nil || g.OwnerID == "" {
		g, err = s.Guild(guildID)
		if err != nil {
			b.Logger.Warn("guild_owner_unresolved",
				slog.String("guild", guildID),
				slog.Any("err", err),
			)
			return 0
		}
	}
	return state.UserID(parseSnowflake(g.OwnerID))
}

func (b *Bot) observeAutoReply(sent bool) {
	if b.ObserveAutoReply != nil {
		b.ObserveAutoReply(sent)
	}
}
