package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/models"
	"leave-manager-bot/internal/service"
)

const leaveUsage = "<type> <start> <end|-> [days] [sub=<agent_id>] [| note]"

// addLeave handles /leave <agent_id> ...
func (h *Handler) addLeave(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	id, req, err := h.parseLeaveArgs(args)
	if err != nil {
		h.reply(chatID, "❌ "+userMessage(err)+"\nUsage: /leave <agent_id> "+leaveUsage)
		return
	}
	req.AgentID = id
	h.submitLeave(chatID, req, false)
}

// editLeave handles /editleave <leave_id> ... The certificate on file is kept.
func (h *Handler) editLeave(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	id, req, err := h.parseLeaveArgs(args)
	if err != nil {
		h.reply(chatID, "❌ "+userMessage(err)+"\nUsage: /editleave <leave_id> "+leaveUsage)
		return
	}

	details, err := h.leaveManager.GetLeave(context.Background(), id)
	if err != nil {
		h.replyError(chatID, "Failed to load leave", err)
		return
	}
	req.LeaveID = id
	req.AgentID = details.Leave.AgentID
	if details.Certificate != nil {
		req.CertificatePath = details.Certificate.FilePath
		req.DoctorName = details.Certificate.DoctorName
	}
	h.submitLeave(chatID, req, true)
}

func (h *Handler) submitLeave(chatID int64, req service.LeaveRequest, isModification bool) {
	var overlaps []models.LeaveRecord
	res, err := h.leaveManager.Submit(context.Background(), req, isModification, func(o []models.LeaveRecord) bool {
		overlaps = o
		return false
	})
	if err != nil {
		h.replyError(chatID, "Failed to save leave", err)
		return
	}

	if !res.Performed {
		h.pending[chatID] = pendingLeave{req: req, isModification: isModification}

		lines := []string{"⚠️ This leave replaces part of the following annual leave:"}
		for _, o := range overlaps {
			lines = append(lines, formatLeaveLine(o))
		}
		lines = append(lines, "", "The annual leave will be cancelled and the remaining days re-created. Continue?")

		msg := tgbotapi.NewMessage(chatID, strings.Join(lines, "\n"))
		msg.ReplyMarkup = confirmKeyboard("confirm_split", "cancel_split")
		h.send(msg)
		return
	}

	h.reportSaved(chatID, req, res)
}

func (h *Handler) confirmSplit(chatID int64) {
	p, ok := h.pending[chatID]
	if !ok {
		h.reply(chatID, "❌ Nothing to confirm.")
		return
	}
	delete(h.pending, chatID)

	res, err := h.leaveManager.Submit(context.Background(), p.req, p.isModification, service.ConfirmAlways)
	if err != nil {
		h.replyError(chatID, "Failed to split leave", err)
		return
	}
	h.reportSaved(chatID, p.req, res)
}

func (h *Handler) reportSaved(chatID int64, req service.LeaveRequest, res *service.SubmitResult) {
	lines := []string{fmt.Sprintf("✅ Leave #%d saved.", res.LeaveID)}
	if res.Split {
		lines = append(lines, "✂️ Overlapping annual leave was split.")
	}
	for _, w := range res.Warnings {
		lines = append(lines, "⚠️ "+w)
	}
	if h.leaveManager.RequiresCertificate(req.Type) && req.CertificatePath == "" {
		lines = append(lines, fmt.Sprintf("📎 Send the medical certificate with the caption /attach %d", res.LeaveID))
	}
	if agent, err := h.agentService.Get(context.Background(), req.AgentID); err == nil {
		lines = append(lines, fmt.Sprintf("Balance of %s: %s days", agent.FullName(), agent.Balance.StringFixed(1)))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

// deleteLeave asks for confirmation before deleting.
func (h *Handler) deleteLeave(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	id, err := parseID(args)
	if err != nil {
		h.reply(chatID, "❌ Usage: /deleteleave <leave_id>")
		return
	}
	details, err := h.leaveManager.GetLeave(context.Background(), id)
	if err != nil {
		h.replyError(chatID, "Failed to load leave", err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, "⚠️ Delete this leave?\n"+formatLeaveLine(details.Leave))
	msg.ReplyMarkup = confirmKeyboard(fmt.Sprintf("confirm_delete_leave_%d", id), "cancel_delete")
	h.send(msg)
}

func (h *Handler) deleteLeaveConfirmed(chatID int64, id uint) {
	res, err := h.leaveManager.Delete(context.Background(), id)
	if err != nil {
		h.replyError(chatID, "Failed to delete leave", err)
		return
	}

	lines := []string{fmt.Sprintf("✅ Leave #%d deleted.", id)}
	if len(res.Deleted) > 1 {
		lines = append(lines, fmt.Sprintf("🗑 %d related leave segments removed.", len(res.Deleted)-1))
	}
	if res.Restored != nil {
		lines = append(lines, "♻️ Restored: "+formatLeaveLine(*res.Restored))
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

// showLeave handles /leaveinfo <leave_id>.
func (h *Handler) showLeave(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	id, err := parseID(args)
	if err != nil {
		h.reply(chatID, "❌ Usage: /leaveinfo <leave_id>")
		return
	}
	details, err := h.leaveManager.GetLeave(context.Background(), id)
	if err != nil {
		h.replyError(chatID, "Failed to load leave", err)
		return
	}

	l := details.Leave
	lines := []string{
		formatLeaveLine(l),
		fmt.Sprintf("Agent: #%d", l.AgentID),
	}
	if details.Substitute != "" {
		lines = append(lines, "Substitute: "+details.Substitute)
	}
	if l.Justification != "" {
		lines = append(lines, "Note: "+l.Justification)
	}
	if c := details.Certificate; c != nil {
		doctor := c.DoctorName
		if doctor == "" {
			doctor = "-"
		}
		lines = append(lines, fmt.Sprintf("📎 Certificate: %d days, doctor %s", c.Days, doctor))
	} else if h.leaveManager.RequiresCertificate(l.Type) {
		lines = append(lines, "📎 No certificate on file")
	}
	h.reply(chatID, strings.Join(lines, "\n"))
}

// computeDays handles /days <type> <start> <end|+N>.
func (h *Handler) computeDays(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	fields := strings.Fields(args)
	if len(fields) != 3 {
		h.reply(chatID, "❌ Usage: /days <type> <start> <end|+N>")
		return
	}
	leaveType, err := parseLeaveType(fields[0])
	if err != nil {
		h.reply(chatID, "❌ "+userMessage(err))
		return
	}
	ctx := context.Background()

	if n, ok := strings.CutPrefix(fields[2], "+"); ok {
		days, err := strconv.Atoi(n)
		if err != nil {
			h.reply(chatID, "❌ Invalid number of days")
			return
		}
		end, err := h.leaveManager.ComputeEndDate(ctx, leaveType, fields[1], days)
		if err != nil {
			h.replyError(chatID, "Failed to compute end date", err)
			return
		}
		h.reply(chatID, fmt.Sprintf("📅 %s: %d days from %s end on %s",
			leaveType.Label(), days, fields[1], service.FormatDate(end)))
		return
	}

	days, err := h.leaveManager.ComputeDays(ctx, leaveType, fields[1], fields[2])
	if err != nil {
		h.replyError(chatID, "Failed to count days", err)
		return
	}
	h.reply(chatID, fmt.Sprintf("📅 %s from %s to %s: %d days", leaveType.Label(), fields[1], fields[2], days))
}

// parseLeaveArgs reads "<id> <type> <start> <end|-> [days] [sub=<id>] [| note]".
// Missing days or end date are computed from the leave type.
func (h *Handler) parseLeaveArgs(args string) (uint, service.LeaveRequest, error) {
	req := service.LeaveRequest{}

	head, note, _ := strings.Cut(args, "|")
	req.Justification = strings.TrimSpace(note)

	fields := strings.Fields(head)
	if len(fields) < 4 {
		return 0, req, apperror.Validation("missing arguments")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, req, err
	}
	if req.Type, err = parseLeaveType(fields[1]); err != nil {
		return 0, req, err
	}
	req.StartDate = fields[2]
	req.EndDate = fields[3]

	for _, f := range fields[4:] {
		if sub, ok := strings.CutPrefix(f, "sub="); ok {
			subID, err := parseID(sub)
			if err != nil {
				return 0, req, err
			}
			req.SubstituteID = &subID
			continue
		}
		days, err := strconv.Atoi(f)
		if err != nil {
			return 0, req, apperror.Validation("unexpected argument %q", f)
		}
		req.Days = days
	}

	ctx := context.Background()
	if req.EndDate == "-" {
		if req.Days == 0 {
			req.Days = h.leaveManager.DefaultDays(req.Type)
		}
		if req.Days == 0 {
			return 0, req, apperror.Validation("give either the end date or the number of days")
		}
		end, err := h.leaveManager.ComputeEndDate(ctx, req.Type, req.StartDate, req.Days)
		if err != nil {
			return 0, req, err
		}
		req.EndDate = service.FormatDate(end)
	} else if req.Days == 0 {
		if req.Days, err = h.leaveManager.ComputeDays(ctx, req.Type, req.StartDate, req.EndDate); err != nil {
			return 0, req, err
		}
	}

	return id, req, nil
}

func parseLeaveType(s string) (models.LeaveType, error) {
	t := models.LeaveType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", apperror.Validation("unknown leave type %q", s)
	}
	return t, nil
}

func formatLeaveLine(l models.LeaveRecord) string {
	line := fmt.Sprintf("#%d %s", l.ID, l.String())
	if l.IsCancelled() {
		line += " [cancelled]"
	}
	return line
}
