package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/service"
)

// listHolidays handles /holidays [year].
func (h *Handler) listHolidays(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	year := time.Now().Year()
	if a := strings.TrimSpace(args); a != "" {
		y, err := strconv.Atoi(a)
		if err != nil {
			h.reply(chatID, "❌ Usage: /holidays [year]")
			return
		}
		year = y
	}

	holidays, err := h.holidayService.HolidaysForYear(context.Background(), year)
	if err != nil {
		h.replyError(chatID, "Failed to load holidays", err)
		return
	}
	if len(holidays) == 0 {
		h.reply(chatID, fmt.Sprintf("📭 No holidays for %d.", year))
		return
	}

	lines := []string{fmt.Sprintf("📅 Holidays %d:", year), ""}
	for _, hd := range holidays {
		mark := ""
		if hd.Type == models.HolidayTypeCustom {
			mark = " ✏️"
		}
		lines = append(lines, fmt.Sprintf("%s %s%s", service.FormatDate(hd.Date), hd.Name, mark))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

// addHoliday handles /addholiday <date> <name>.
func (h *Handler) addHoliday(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	date, name, _ := strings.Cut(strings.TrimSpace(args), " ")
	if date == "" || strings.TrimSpace(name) == "" {
		h.reply(chatID, "❌ Usage: /addholiday <date> <name>")
		return
	}

	holiday, err := h.holidayService.AddCustom(context.Background(), date, name)
	if err != nil {
		h.replyError(chatID, "Failed to add holiday", err)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Holiday added: %s %s", service.FormatDate(holiday.Date), holiday.Name))
}

// editHoliday handles /editholiday <old_date> <new_date> <name>.
func (h *Handler) editHoliday(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	fields := strings.SplitN(strings.TrimSpace(args), " ", 3)
	if len(fields) != 3 {
		h.reply(chatID, "❌ Usage: /editholiday <old_date> <new_date> <name>")
		return
	}

	holiday, err := h.holidayService.UpdateCustom(context.Background(), fields[0], fields[1], fields[2])
	if err != nil {
		h.replyError(chatID, "Failed to update holiday", err)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Holiday updated: %s %s", service.FormatDate(holiday.Date), holiday.Name))
}

// deleteHoliday handles /delholiday <date>.
func (h *Handler) deleteHoliday(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	if strings.TrimSpace(args) == "" {
		h.reply(chatID, "❌ Usage: /delholiday <date>")
		return
	}
	if err := h.holidayService.DeleteHoliday(context.Background(), args); err != nil {
		h.replyError(chatID, "Failed to delete holiday", err)
		return
	}
	h.reply(chatID, "✅ Holiday deleted.")
}

// restoreHolidays handles /restoreholidays <year>.
func (h *Handler) restoreHolidays(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	year, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		h.reply(chatID, "❌ Usage: /restoreholidays <year>")
		return
	}

	count, err := h.holidayService.RestoreAutomatic(context.Background(), year)
	if err != nil {
		h.replyError(chatID, "Failed to restore holidays", err)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ %d official holidays restored for %d. Custom holidays were kept.", count, year))
}
