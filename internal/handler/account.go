package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"aurabot/internal/model"
	"aurabot/internal/service"
)

// AccountHandler handles balance and daily bonus commands.
type AccountHandler struct {
	wallet *service.WalletService
	audit  *service.AuditService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(wallet *service.WalletService, audit *service.AuditService) *AccountHandler {
	return &AccountHandler{wallet: wallet, audit: audit}
}

// HandleBalance handles /balance.
func (h *AccountHandler) HandleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	accountID, err := userID(i)
	if err != nil {
		return err
	}

	balance, err := h.wallet.Balance(ctx, accountID)
	if err != nil {
		return respondEphemeral(s, i, "Could not fetch your balance, try again later.")
	}

	available, err := h.wallet.Available(ctx, accountID)
	if err != nil {
		return respondEphemeral(s, i, "Could not fetch your balance, try again later.")
	}

	if available != balance {
		return respond(s, i, fmt.Sprintf("%s has %d AURAcoins (%d staked in active games).",
			mention(accountID), balance, balance-available))
	}
	return respond(s, i, fmt.Sprintf("%s has %d AURAcoins.", mention(accountID), balance))
}

// HandleDaily handles /daily.
func (h *AccountHandler) HandleDaily(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	accountID, err := userID(i)
	if err != nil {
		return err
	}

	granted, remaining, balance, err := h.wallet.GrantDailyBonus(ctx, accountID)
	if err != nil {
		return respondEphemeral(s, i, "Could not claim your bonus, try again later.")
	}

	if !granted {
		return respondEphemeral(s, i, fmt.Sprintf(
			"You already claimed your daily bonus. Come back in %s.", remaining.Round(time.Second)))
	}

	h.audit.Record(model.AuditCommand, accountID, username(i), "claimed daily bonus")
	return respond(s, i, fmt.Sprintf("%s claimed the daily bonus! New balance: %d AURAcoins.",
		mention(accountID), balance))
}

// HandleHistory handles /history: the user's recent ledger entries.
func (h *AccountHandler) HandleHistory(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	ctx := context.Background()
	accountID, err := userID(i)
	if err != nil {
		return err
	}

	entries, err := h.wallet.History(ctx, accountID, 10)
	if err != nil {
		return respondEphemeral(s, i, "Could not fetch your history, try again later.")
	}
	if len(entries) == 0 {
		return respondEphemeral(s, i, "No transactions yet. Claim /daily to get started.")
	}

	var b strings.Builder
	b.WriteString("Your recent transactions:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "`%+6d` %s (balance %d)\n", e.Change, e.Kind, e.Balance)
	}
	return respondEphemeral(s, i, b.String())
}
