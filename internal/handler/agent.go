package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leave-manager-bot/internal/service"
)

// listAgents handles /agents [search] [page].
func (h *Handler) listAgents(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	term, page := splitPage(args)

	result, err := h.agentService.List(context.Background(), term, page)
	if err != nil {
		h.replyError(chatID, "Failed to list agents", err)
		return
	}
	if result.Total == 0 {
		h.reply(chatID, "📭 No agents found.")
		return
	}

	lines := []string{fmt.Sprintf("👥 Agents (page %d/%d, %d total):", result.Page, result.Pages, result.Total), ""}
	for _, a := range result.Agents {
		lines = append(lines, fmt.Sprintf("#%d %s · PPR %s · %s d",
			a.ID, a.FullName(), a.PersonnelNumberOr("-"), a.Balance.StringFixed(1)))
	}
	if result.Page < result.Pages {
		lines = append(lines, "", fmt.Sprintf("Next: /agents %s %d", term, result.Page+1))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

// showAgent handles /agent <id>.
func (h *Handler) showAgent(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	id, err := parseID(args)
	if err != nil {
		h.reply(chatID, "❌ Usage: /agent <id>")
		return
	}

	ctx := context.Background()
	agent, err := h.agentService.Get(ctx, id)
	if err != nil {
		h.replyError(chatID, "Failed to load agent", err)
		return
	}
	leaves, err := h.leaveManager.ListLeaves(ctx, id)
	if err != nil {
		h.replyError(chatID, "Failed to load leaves", err)
		return
	}

	lines := []string{service.FormatAgent(agent), ""}
	if len(leaves) == 0 {
		lines = append(lines, "No leave recorded.")
	} else {
		lines = append(lines, "🏖 Leaves:")
		for _, l := range leaves {
			lines = append(lines, formatLeaveLine(l))
		}
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

// addAgent handles /addagent LAST; First; PPR; Grade; Balance.
func (h *Handler) addAgent(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	in, ok := parseAgentInput(args)
	if !ok {
		h.reply(chatID, "❌ Usage: /addagent LAST; First; PPR; Grade; Balance")
		return
	}

	agent, err := h.agentService.Create(context.Background(), in)
	if err != nil {
		h.replyError(chatID, "Failed to create agent", err)
		return
	}
	h.reply(chatID, "✅ Agent created\n\n"+service.FormatAgent(agent))
}

// editAgent handles /editagent <id> LAST; First; PPR; Grade; Balance.
func (h *Handler) editAgent(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	idPart, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	id, err := parseID(idPart)
	in, ok := parseAgentInput(rest)
	if err != nil || !ok {
		h.reply(chatID, "❌ Usage: /editagent <id> LAST; First; PPR; Grade; Balance")
		return
	}

	agent, err := h.agentService.Update(context.Background(), id, in)
	if err != nil {
		h.replyError(chatID, "Failed to update agent", err)
		return
	}
	h.reply(chatID, "✅ Agent updated\n\n"+service.FormatAgent(agent))
}

// deleteAgent asks for confirmation before deleting.
func (h *Handler) deleteAgent(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	id, err := parseID(args)
	if err != nil {
		h.reply(chatID, "❌ Usage: /deleteagent <id>")
		return
	}
	agent, err := h.agentService.Get(context.Background(), id)
	if err != nil {
		h.replyError(chatID, "Failed to load agent", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"⚠️ Delete %s and all their leaves and certificates?\nThis cannot be undone.", agent.FullName()))
	msg.ReplyMarkup = confirmKeyboard(fmt.Sprintf("confirm_delete_agent_%d", id), "cancel_delete")
	h.send(msg)
}

func (h *Handler) deleteAgentConfirmed(chatID int64, id uint) {
	if err := h.agentService.Delete(context.Background(), id); err != nil {
		h.replyError(chatID, "Failed to delete agent", err)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Agent #%d deleted.", id))
}

func parseAgentInput(args string) (service.AgentInput, bool) {
	if strings.TrimSpace(args) == "" {
		return service.AgentInput{}, false
	}
	parts := strings.Split(args, ";")
	field := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}
	return service.AgentInput{
		LastName:        field(0),
		FirstName:       field(1),
		PersonnelNumber: field(2),
		Grade:           field(3),
		Balance:         field(4),
	}, true
}

// splitPage separates a trailing page number from a search term.
func splitPage(args string) (string, int) {
	fields := strings.Fields(args)
	if len(fields) > 0 {
		if page, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			return strings.Join(fields[:len(fields)-1], " "), page
		}
	}
	return strings.Join(fields, " "), 1
}
