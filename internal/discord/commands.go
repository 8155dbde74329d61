package discord

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pesterhq/pester/internal/command"
	"github.com/pesterhq/pester/internal/state"
)

const (
	actionAdd    = "add"
	actionRemove = "remove"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	actionOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "action",
		Description: "Whether to add or remove the user",
		Required:    true,
		Choices: []*discordgo.ApplicationCommandOptionChoice{
			{Name: actionAdd, Value: actionAdd},
			{Name: actionRemove, Value: actionRemove},
		},
	}
	return []*discordgo.ApplicationCommand{
		{
			Name:        "admin",
			Description: "Add or remove a bot admin",
			Options: []*discordgo.ApplicationCommandOption{
				actionOption,
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to add or remove",
					Required:    true,
				},
			},
		},
		{
			Name:        "target",
			Description: "Add or remove an auto-reply target",
			Options: []*discordgo.ApplicationCommandOption{
				actionOption,
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user to add or remove",
					Required:    true,
				},
			},
		},
		{
			Name:        "setmessage",
			Description: "Set the auto-reply message",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "The message to reply with (empty disables auto-reply)",
					Required:    true,
				},
			},
		},
		{
			Name:        "info",
			Description: "Show the bot configuration for this server",
		},
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	_, span := b.tracer.Start(context.Background(), "command."+data.Name,
		trace.WithAttributes(attribute.String("discord.guild_id", i.GuildID)),
	)
	defer span.End()

	req := command.Request{
		Guild: state.GuildID(parseSnowflake(i.GuildID)),
		Actor: interactionActor(i),
		Owner: b.guildOwner(s, i.GuildID),
	}
	opts := optionMap(data.Options)

	var resp command.Response
	switch data.Name {
	case "admin":
		req.TargetUser, req.TargetIsBot = resolveUserOption(data, opts["user"])
		if optionString(opts["action"]) == actionRemove {
			resp = b.Core.AdminRemove(req)
		} else {
			resp = b.Core.AdminAdd(req)
		}
	case "target":
		req.TargetUser, req.TargetIsBot = resolveUserOption(data, opts["user"])
		if optionString(opts["action"]) == actionRemove {
			resp = b.Core.TargetRemove(req)
		} else {
			resp = b.Core.TargetAdd(req)
		}
	case "setmessage":
		req.Text = optionString(opts["message"])
		resp = b.Core.SetMessage(req)
	case "info":
		resp = b.Core.Info(req)
	default:
		b.Logger.Warn("unknown_command", slog.String("name", data.Name))
		return
	}

	if b.ObserveCommand != nil {
		b.ObserveCommand(data.Name)
	}
	b.respond(s, i, resp)
}

func (b *Bot) respond(s *discordgo.Session, i *discordgo.InteractionCreate, resp command.Response) {
	var flags discordgo.MessageFlags
	if resp.Private {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: resp.Text,
			Flags:   flags,
		},
	})
	if err != nil {
		b.Logger.Warn("interaction_respond_failed",
			slog.String("guild", i.GuildID),
			slog.Any("err", err),
		)
	}
}

// interactionActor extracts the invoking user. Guild interactions carry a
// member, DM interactions a bare user.
func interactionActor(i *discordgo.InteractionCreate) state.UserID {
	if i.Member != nil && i.Member.User != nil {
		return state.UserID(parseSnowflake(i.Member.User.ID))
	}
	if i.User != nil {
		return state.UserID(parseSnowflake(i.User.ID))
	}
	return 0
}

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		out[opt.Name] = opt
	}
	return out
}

func optionString(opt *discordgo.ApplicationCommandInteractionDataOption) string {
	if opt == nil {
		return ""
	}
	if s, ok := opt.Value.(string); ok {
		return s
	}
	return ""
}

// resolveUserOption extracts the user argument and whether that user is a
// bot, using the resolved user data the gateway sends with the interaction.
func resolveUserOption(data discordgo.ApplicationCommandInteractionData, opt *discordgo.ApplicationCommandInteractionDataOption) (state.UserID, bool) {
	id := optionString(opt)
	if id == "" {
		return 0, false
	}
	isBot := false
	if data.Resolved != nil {
		if u, ok := data.Resolved.Users[id]; ok && u != nil {
			isBot = u.Bot
		}
	}
	return state.UserID(parseSnowflake(id)), isBot
}

// parseSnowflake converts a Discord snowflake to its numeric form. Zero
// means absent or malformed; Discord never issues a zero snowflake.
func parseSnowflake(s string) uint64 {
	if s == "" {
		return 0
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
