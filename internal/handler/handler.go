package handler

import (
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"leave-manager-bot/internal/apperror"
	"leave-manager-bot/internal/config"
	"leave-manager-bot/internal/service"
)

// Sender is the part of the Telegram API the handler uses.
// *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// pendingLeave is a submission waiting for the operator to approve a split.
type pendingLeave struct {
	req            service.LeaveRequest
	isModification bool
}

type Handler struct {
	bot            Sender
	leaveManager   *service.LeaveManager
	agentService   *service.AgentService
	holidayService *service.HolidayService
	reportService  *service.ReportService
	pending        map[int64]pendingLeave
	config         *config.BotConfig
	logger         *logrus.Logger
}

func NewHandler(
	bot Sender,
	leaveManager *service.LeaveManager,
	agentService *service.AgentService,
	holidayService *service.HolidayService,
	reportService *service.ReportService,
	cfg *config.BotConfig,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		bot:            bot,
		leaveManager:   leaveManager,
		agentService:   agentService,
		holidayService: holidayService,
		reportService:  reportService,
		pending:        make(map[int64]pendingLeave),
		config:         cfg,
		logger:         logger,
	}
}

func (h *Handler) HandleUpdates(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		h.HandleUpdate(update)
	}
}

func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if !h.authorized(update.CallbackQuery.Message.Chat.ID) {
			return
		}
		h.handleCallbackQuery(update.CallbackQuery)
		return
	}

	if update.Message == nil {
		return
	}
	if !h.authorized(update.Message.Chat.ID) {
		h.reply(update.Message.Chat.ID, "⛔ This bot is private.")
		return
	}
	h.handleMessage(update.Message)
}

func (h *Handler) authorized(chatID int64) bool {
	if chatID == h.config.BaseAdminChatID {
		return true
	}
	h.logger.WithField("chat_id", chatID).Warn("Rejected message from unknown chat")
	return false
}

func (h *Handler) handleCallbackQuery(callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	data := callback.Data

	// remove the keyboard
	editMsg := tgbotapi.NewEditMessageReplyMarkup(chatID, callback.Message.MessageID, tgbotapi.NewInlineKeyboardMarkup())
	h.send(editMsg)

	switch {
	case data == "confirm_split":
		h.confirmSplit(chatID)
	case data == "cancel_split":
		delete(h.pending, chatID)
		h.reply(chatID, "❌ Leave not saved, existing annual leave unchanged.")
	case strings.HasPrefix(data, "confirm_delete_leave_"):
		if id, err := parseID(strings.TrimPrefix(data, "confirm_delete_leave_")); err == nil {
			h.deleteLeaveConfirmed(chatID, id)
		}
	case strings.HasPrefix(data, "confirm_delete_agent_"):
		if id, err := parseID(strings.TrimPrefix(data, "confirm_delete_agent_")); err == nil {
			h.deleteAgentConfirmed(chatID, id)
		}
	case data == "cancel_delete":
		h.reply(chatID, "❌ Deletion cancelled.")
	}

	if _, err := h.bot.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		h.logger.WithError(err).Debug("Failed to answer callback")
	}
}

func (h *Handler) handleMessage(message *tgbotapi.Message) {
	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"text":    message.Text,
	}).Debug("Message received")

	if message.Document != nil {
		h.handleDocument(message)
		return
	}

	if message.IsCommand() {
		h.handleCommand(message)
		return
	}

	h.reply(message.Chat.ID, "Send /help to see the available commands.")
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.WithError(err).Error("Failed to send message")
	}
}

// replyError tells the operator what went wrong. Storage failures are logged
// and reported without details.
func (h *Handler) replyError(chatID int64, action string, err error) {
	if apperror.IsClientError(err) {
		h.reply(chatID, "❌ "+userMessage(err))
		return
	}
	h.logger.WithError(err).Error(action)
	h.reply(chatID, "❌ "+action+". The error has been logged.")
}

func userMessage(err error) string {
	var balanceErr *apperror.InsufficientBalanceError
	if errors.As(err, &balanceErr) {
		return "Insufficient balance: " + balanceErr.Available.StringFixed(1) +
			" days available, " + balanceErr.Requested.String() + " requested."
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || id == 0 {
		return 0, apperror.Validation("invalid id %q", s)
	}
	return uint(id), nil
}

func confirmKeyboard(yesData, noData string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes", yesData),
			tgbotapi.NewInlineKeyboardButtonData("❌ No", noData),
		),
	)
}
