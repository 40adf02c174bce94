package handler

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leave-manager-bot/internal/models"
)

func (h *Handler) showStats(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	stats, err := h.reportService.Stats(context.Background())
	if err != nil {
		h.replyError(chatID, "Failed to compute statistics", err)
		return
	}

	lines := []string{
		"📊 Statistics",
		"",
		fmt.Sprintf("👥 Agents: %d", stats.Agents),
		fmt.Sprintf("💰 Total balance: %s days", stats.TotalBalance.StringFixed(1)),
		"",
		"🏖 Active leaves:",
	}
	for _, t := range models.LeaveTypes {
		lines = append(lines, fmt.Sprintf("• %s: %d", t.Label(), stats.ActiveByType[t]))
	}
	lines = append(lines, "", fmt.Sprintf("🗂 Cancelled (split history): %d", stats.Cancelled))

	h.reply(chatID, strings.Join(lines, "\n"))
}
