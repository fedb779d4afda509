package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"aurabot/internal/model"
)

// KindBoard sums ledger entries of one kind per account.
type KindBoard interface {
	SumByKind(ctx context.Context, kind string, limit int) ([]*model.LeaderboardRow, error)
}

// DuelBoard ranks arena winners by pot won.
type DuelBoard interface {
	DuelLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardRow, error)
}

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	kinds KindBoard
	duels DuelBoard
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(kinds KindBoard, duels DuelBoard) *RankingHandler {
	return &RankingHandler{kinds: kinds, duels: duels}
}

// HandleFishTop handles /fishtop: top earners from fish sales.
func (h *RankingHandler) HandleFishTop(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	rows, err := h.kinds.SumByKind(ctx, model.TxFishSale, 10)
	if err != nil {
		return respondEphemeral(s, i, "Could not fetch the fishing leaderboard.")
	}
	if len(rows) == 0 {
		return respondEphemeral(s, i, "Nobody has sold a fish yet.")
	}
	return respond(s, i, renderBoard("Top anglers by earnings:", rows))
}

// HandleDuelTop handles /dueltop: top arena winners by pot won.
func (h *RankingHandler) HandleDuelTop(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()

	rows, err := h.duels.DuelLeaderboard(ctx, 10)
	if err != nil {
		return respondEphemeral(s, i, "Could not fetch the duel leaderboard.")
	}
	if len(rows) == 0 {
		return respondEphemeral(s, i, "The arena has no champions yet.")
	}
	return respond(s, i, renderBoard("Arena champions by winnings:", rows))
}

func renderBoard(title string, rows []*model.LeaderboardRow) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	for n, row := range rows {
		fmt.Fprintf(&b, "%d. %s with %d AURAcoins\n", n+1, mention(row.AccountID), row.Total)
	}
	return strings.TrimRight(b.String(), "\n")
}
