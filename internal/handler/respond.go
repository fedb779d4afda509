// Package handler provides Discord slash command handlers.
package handler

import (
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// Func is the handler signature the bot dispatches interactions to.
type Func func(s *discordgo.Session, i *discordgo.InteractionCreate) error

// respond sends the initial interaction response.
func respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

// respondEphemeral replies so only the invoking user sees the message.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// deferResponse acknowledges the interaction so a slow handler can follow up
// within Discord's 15 minute window instead of its 3 second one.
func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// followUp sends a message after deferResponse.
func followUp(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	return err
}

// interactionUser returns the invoking user in both guild and DM contexts.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// userID parses the invoking user's snowflake.
func userID(i *discordgo.InteractionCreate) (int64, error) {
	u := interactionUser(i)
	if u == nil {
		return 0, fmt.Errorf("interaction has no user")
	}
	return strconv.ParseInt(u.ID, 10, 64)
}

// username returns the invoking user's handle for audit records.
func username(i *discordgo.InteractionCreate) string {
	if u := interactionUser(i); u != nil {
		return u.Username
	}
	return ""
}

// channelID parses the interaction's channel snowflake.
func channelID(i *discordgo.InteractionCreate) (int64, error) {
	return strconv.ParseInt(i.ChannelID, 10, 64)
}

// mention renders a user ID back into a Discord mention.
func mention(id int64) string {
	return fmt.Sprintf("<@%d>", id)
}

// optionMap indexes interaction options by name.
func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

// optionUserID parses a user option into an account ID.
func optionUserID(opt *discordgo.ApplicationCommandInteractionDataOption, s *discordgo.Session) (int64, error) {
	user := opt.UserValue(s)
	if user == nil {
		return 0, fmt.Errorf("user option is empty")
	}
	return strconv.ParseInt(user.ID, 10, 64)
}
