package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"leave-manager-bot/internal/service"
)

var downloadClient = &http.Client{Timeout: 60 * time.Second}

// handleDocument attaches a document sent with the caption /attach <leave_id> [doctor].
func (h *Handler) handleDocument(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	caption := strings.TrimSpace(message.Caption)

	rest, ok := strings.CutPrefix(caption, "/attach")
	if !ok {
		h.reply(chatID, "📎 To attach a certificate, add the caption /attach <leave_id> [doctor].")
		return
	}
	idPart, doctor, _ := strings.Cut(strings.TrimSpace(rest), " ")
	leaveID, err := parseID(idPart)
	if err != nil {
		h.reply(chatID, "❌ Usage: caption /attach <leave_id> [doctor]")
		return
	}

	src, err := h.downloadDocument(message.Document)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"leave_id": leaveID,
			"file_id":  message.Document.FileID,
		}).WithError(err).Error("Failed to download certificate")
		h.reply(chatID, "❌ Could not download the document, please try again.")
		return
	}
	defer os.Remove(src)

	cert, err := h.leaveManager.AttachCertificate(context.Background(), leaveID, src, strings.TrimSpace(doctor))
	if err != nil {
		h.replyError(chatID, "Failed to attach certificate", err)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Certificate attached to leave #%d (%s).", leaveID, filepath.Base(cert.FilePath)))
}

// downloadDocument saves a Telegram document to a temporary file and
// returns its path.
func (h *Handler) downloadDocument(doc *tgbotapi.Document) (string, error) {
	url, err := h.bot.GetFileDirectURL(doc.FileID)
	if err != nil {
		return "", err
	}

	resp, err := downloadClient.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "certificate-*"+filepath.Ext(doc.FileName))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// detachCertificate handles /detach <leave_id>.
func (h *Handler) detachCertificate(message *tgbotapi.Message, args string) {
	chatID := message.Chat.ID
	id, err := parseID(args)
	if err != nil {
		h.reply(chatID, "❌ Usage: /detach <leave_id>")
		return
	}
	if err := h.leaveManager.DetachCertificate(context.Background(), id); err != nil {
		h.replyError(chatID, "Failed to remove certificate", err)
		return
	}
	h.reply(chatID, fmt.Sprintf("✅ Certificate removed from leave #%d.", id))
}

// showCertificateTracking handles /certificates.
func (h *Handler) showCertificateTracking(message *tgbotapi.Message) {
	chatID := message.Chat.ID
	tracking, err := h.reportService.CertificateTracking(context.Background())
	if err != nil {
		h.replyError(chatID, "Failed to load sick leaves", err)
		return
	}
	if len(tracking) == 0 {
		h.reply(chatID, "📭 No active sick leave.")
		return
	}

	missing := 0
	lines := []string{"📎 Sick leave certificates:", ""}
	for _, s := range tracking {
		mark := "✅"
		if s.Missing() {
			mark = "❌"
			missing++
		}
		lines = append(lines, fmt.Sprintf("%s #%d %s · %s → %s",
			mark, s.Leave.ID, s.Agent,
			service.FormatDate(s.Leave.StartDate), service.FormatDate(s.Leave.EndDate)))
	}
	lines = append(lines, "", fmt.Sprintf("Missing: %d of %d", missing, len(tracking)))
	h.reply(chatID, strings.Join(lines, "\n"))
}
