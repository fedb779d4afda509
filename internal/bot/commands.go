package bot

import "github.com/bwmarrin/discordgo"

// commands returns the slash command definitions. Option names must match
// what the handlers read out of the interaction data.
func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "Show your AURAcoin balance",
		},
		{
			Name:        "daily",
			Description: "Claim your daily AURAcoin bonus",
		},
		{
			Name:        "history",
			Description: "Show your recent AURAcoin transactions",
		},
		{
			Name:        "roll",
			Description: "Roll some dice, just for fun",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "dice",
					Description: "Dice spec like 2d6, d20 or 3d8+2 (default d6)",
				},
			},
		},
		{
			Name:        "coinflip",
			Description: "Flip a coin",
		},
		{
			Name:        "roulette",
			Description: "Spin the roulette wheel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "bet",
					Description: "A number 0-36, red, black, even or odd",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "AURAcoins to bet",
					Required:    true,
				},
			},
		},
		{
			Name:        "blackjack",
			Description: "Play blackjack against the house",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "Open or join the table in this channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "bet",
					Description: "Place your bet",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "AURAcoins to bet",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "hit",
					Description: "Draw another card",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "stand",
					Description: "Stand on your hand",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "table",
					Description: "Show the current table",
				},
			},
		},
		{
			Name:        "diceduel",
			Description: "Challenge someone to a dice duel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "challenge",
					Description: "Challenge another player",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "opponent",
							Description: "Who to challenge",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "stake",
							Description: "AURAcoins each side puts up",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "dice",
							Description: "Dice spec for the duel (default 2d6)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "accept",
					Description: "Accept the duel you were challenged to",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "decline",
					Description: "Decline the duel you were challenged to",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Withdraw your pending challenge",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "roll",
					Description: "Roll your dice in an accepted duel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "dice",
							Description: "Dice spec (defaults to the duel's)",
						},
					},
				},
			},
		},
		{
			Name:        "duel",
			Description: "Fight in the duel arena",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "challenge",
					Description: "Challenge another player to the arena",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "opponent",
							Description: "Who to challenge",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "stake",
							Description: "AURAcoins each side puts up",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "accept",
					Description: "Accept the arena challenge",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "decline",
					Description: "Decline the arena challenge",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cancel",
					Description: "Withdraw your pending challenge",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "attack",
					Description: "Attack on your turn",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show your current duel",
				},
			},
		},
		{
			Name:        "lottery",
			Description: "Channel lottery",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "start",
					Description: "Start a lottery in this channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "minutes",
							Description: "Minutes until the drawing (default 60)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "buy",
					Description: "Buy lottery tickets",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "tickets",
							Description: "How many tickets (default 1)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show the running lottery",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "end",
					Description: "Draw the lottery now",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "history",
					Description: "Show recent lottery winners",
				},
			},
		},
		{
			Name:        "fish",
			Description: "Go fishing",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cast",
					Description: "Cast your line",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "bait",
					Description: "Buy bait",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "count",
							Description: "How much bait (default 1)",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "basket",
					Description: "Show your catch",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "sell",
					Description: "Sell everything in your basket",
				},
			},
		},
		{
			Name:        "fishtop",
			Description: "Top anglers by fish sale earnings",
		},
		{
			Name:        "dueltop",
			Description: "Top arena champions by winnings",
		},
		{
			Name:        "trivia",
			Description: "Bet on a trivia question",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "play",
					Description: "Start a trivia round",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "bet",
							Description: "AURAcoins to stake",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "answer",
					Description: "Answer the open question",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "choice",
							Description: "A, B, C or D",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "aura",
			Description: "Talk to AURA",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "What to say",
					Required:    true,
				},
			},
		},
	}
}
