package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leave-manager-bot/internal/models"
)

// showMonthlyAbsence handles /month [month] or /month [year month].
func (h *Handler) showMonthlyAbsence(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID

	year, month, ok := parseYearMonth(args, time.Now())
	if !ok {
		h.reply(chatID, "❌ Usage: /month [month] or /month [year month]")
		return
	}

	report, err := h.reportService.MonthlyAbsence(context.Background(), year, month)
	if err != nil {
		h.replyError(chatID, "Failed to build monthly report", err)
		return
	}
	if len(report.Absence) == 0 {
		h.reply(chatID, fmt.Sprintf("📭 Nobody was on leave in %s %d.", month, year))
		return
	}

	lines := []string{fmt.Sprintf("📆 Absences in %s %d:", month, year), ""}
	for _, a := range report.Absence {
		var parts []string
		for _, t := range models.LeaveTypes {
			if n := a.Days[t]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s %d", t, n))
			}
		}
		lines = append(lines, fmt.Sprintf("• %s: %d days (%s)", a.Agent, a.Total, strings.Join(parts, ", ")))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

// parseYearMonth reads "", "<month>" or "<year> <month>". Missing parts
// default to now.
func parseYearMonth(args string, now time.Time) (int, time.Month, bool) {
	parts := strings.Fields(args)
	year, month := now.Year(), now.Month()

	switch len(parts) {
	case 0:
	case 1:
		m, err := strconv.Atoi(parts[0])
		if err != nil || m < 1 || m > 12 {
			return 0, 0, false
		}
		month = time.Month(m)
	case 2:
		y, err := strconv.Atoi(parts[0])
		if err != nil || y < 2000 || y > 2100 {
			return 0, 0, false
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil || m < 1 || m > 12 {
			return 0, 0, false
		}
		year, month = y, time.Month(m)
	default:
		return 0, 0, false
	}
	return year, month, true
}
