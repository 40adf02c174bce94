package handler

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (h *Handler) handleCommand(message *tgbotapi.Message) {
	command := message.Command()
	args := message.CommandArguments()

	switch command {
	case "start", "help":
		h.sendHelpMessage(message)

	// agents
	case "agents":
		h.listAgents(message, args)
	case "agent":
		h.showAgent(message, args)
	case "addagent":
		h.addAgent(message, args)
	case "editagent":
		h.editAgent(message, args)
	case "deleteagent":
		h.deleteAgent(message, args)

	// leaves
	case "leave":
		h.addLeave(message, args)
	case "editleave":
		h.editLeave(message, args)
	case "deleteleave":
		h.deleteLeave(message, args)
	case "leaveinfo":
		h.showLeave(message, args)
	case "days":
		h.computeDays(message, args)

	// certificates
	case "attach":
		h.reply(message.Chat.ID, "📎 Send the certificate as a document with the caption /attach <leave_id> [doctor].")
	case "detach":
		h.detachCertificate(message, args)
	case "certificates":
		h.showCertificateTracking(message)

	// holidays
	case "holidays":
		h.listHolidays(message, args)
	case "addholiday":
		h.addHoliday(message, args)
	case "editholiday":
		h.editHoliday(message, args)
	case "delholiday":
		h.deleteHoliday(message, args)
	case "restoreholidays":
		h.restoreHolidays(message, args)

	case "stats":
		h.showStats(message)
	case "month":
		h.showMonthlyAbsence(message, args)

	default:
		h.sendUnknownCommand(message)
	}
}

func (h *Handler) sendUnknownCommand(message *tgbotapi.Message) {
	h.reply(message.Chat.ID, "❌ Unknown command. Use /help to list the commands.")
}

func (h *Handler) sendHelpMessage(message *tgbotapi.Message) {
	text := `📋 Leave manager

👥 Agents:
/agents [search] [page] - List agents
/agent <id> - Agent card with leaves
/addagent LAST; First; PPR; Grade; Balance - Add an agent
/editagent <id> LAST; First; PPR; Grade; Balance - Edit an agent
/deleteagent <id> - Delete an agent with all leaves

🏖 Leaves:
/leave <agent_id> <type> <start> <end|-> [days] [sub=<id>] [| note]
/editleave <leave_id> <type> <start> <end|-> [days] [sub=<id>] [| note]
/deleteleave <leave_id> - Delete a leave
/leaveinfo <leave_id> - Leave details
/days <type> <start> <end|+N> - Count days or compute the end date

Types: annual, sick, maternity, paternity, exceptional
Dates: dd/mm/yyyy. With "-" as end date the end is computed from the days (or the statutory duration).

📎 Certificates:
Document with caption /attach <leave_id> [doctor]
/detach <leave_id> - Remove a certificate
/certificates - Sick leaves and their certificates

📅 Holidays:
/holidays [year]
/addholiday <date> <name>
/editholiday <old_date> <new_date> <name>
/delholiday <date>
/restoreholidays <year> - Re-import official holidays

📊 Reports:
/stats - Statistics
/month [month] or /month [year month] - Absences per agent`

	h.reply(message.Chat.ID, text)
}
