package bot

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"aurabot/internal/handler"
	"aurabot/internal/model"
	"aurabot/internal/service"
)

// Middleware wraps a handler with cross-cutting behaviour.
type Middleware func(next handler.Func) handler.Func

// Chain applies middleware so the first one listed is the outermost.
func Chain(h handler.Func, mw ...Middleware) handler.Func {
	for n := len(mw) - 1; n >= 0; n-- {
		h = mw[n](h)
	}
	return h
}

// LoggingMiddleware logs every dispatched command with its duration and
// outcome.
func LoggingMiddleware(command string) Middleware {
	return func(next handler.Func) handler.Func {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
			start := time.Now()
			err := next(s, i)

			evt := log.Info()
			if err != nil {
				evt = log.Error().Err(err)
			}
			if u := invoker(i); u != nil {
				evt = evt.Str("user_id", u.ID).Str("username", u.Username)
			}
			evt.
				Str("command", command).
				Str("channel_id", i.ChannelID).
				Dur("took", time.Since(start)).
				Msg("Command handled")

			return err
		}
	}
}

// RecoveryMiddleware converts a handler panic into an error so one bad
// interaction cannot take down the gateway read loop.
func RecoveryMiddleware() Middleware {
	return func(next handler.Func) handler.Func {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Recovered from panic in handler")
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(s, i)
		}
	}
}

// ErrorMiddleware audits handler failures and tells the user something
// went wrong. Handler errors at this point are unexpected ones; expected
// cases reply to the user themselves and return nil.
func ErrorMiddleware(command string, audit *service.AuditService) Middleware {
	return func(next handler.Func) handler.Func {
		return func(s *discordgo.Session, i *discordgo.InteractionCreate) error {
			err := next(s, i)
			if err == nil {
				return nil
			}

			accountID := int64(0)
			name := ""
			if u := invoker(i); u != nil {
				accountID, _ = strconv.ParseInt(u.ID, 10, 64)
				name = u.Username
			}
			audit.Record(model.AuditError, accountID, name,
				fmt.Sprintf("%s failed: %v", command, err))

			// The handler may already have acknowledged the
			// interaction, in which case this respond fails and the
			// follow up lands instead.
			notice := "Something went wrong. Try again in a moment."
			respondErr := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: notice,
					Flags:   discordgo.MessageFlagsEphemeral,
				},
			})
			if respondErr != nil {
				_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
					Content: notice,
					Flags:   discordgo.MessageFlagsEphemeral,
				})
			}

			return err
		}
	}
}

func invoker(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}
