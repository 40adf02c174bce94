package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leave-manager-bot/internal/models"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPolicy_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []models.LeaveType{models.LeaveTypeAnnual}, cfg.Leave.DecrementingTypes)
	assert.Equal(t, 98, cfg.Leave.MaternityDays)
	assert.Equal(t, 3, cfg.Leave.PaternityDays)
	assert.Equal(t, "MA", cfg.Leave.HolidaysCountry)
	assert.Equal(t, "certificats", cfg.Storage.CertificatesDir)
	assert.Equal(t, "calendars", cfg.Storage.CalendarsDir)
	assert.Equal(t, 20, cfg.Agents.PageSize)
}

func TestLoadPolicy_File(t *testing.T) {
	path := writePolicy(t, `
leave:
  decrementing_types: [annual, exceptional]
  paternity_days: 15
  holidays_country: fr
storage:
  certificates_dir: /srv/certs
agents:
  grades: [" A ", "B"]
  page_size: 5
`)

	cfg, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.True(t, cfg.Leave.Decrements(models.LeaveTypeExceptional))
	assert.False(t, cfg.Leave.Decrements(models.LeaveTypeSick))
	assert.Equal(t, 15, cfg.Leave.PaternityDays)
	assert.Equal(t, 98, cfg.Leave.MaternityDays)
	assert.Equal(t, "FR", cfg.Leave.HolidaysCountry)
	assert.Equal(t, "/srv/certs", cfg.Storage.CertificatesDir)
	assert.Equal(t, []string{"A", "B"}, cfg.Agents.Grades)
	assert.Equal(t, 5, cfg.Agents.PageSize)
}

func TestLoadPolicy_EmptyDecrementingList(t *testing.T) {
	cfg, err := LoadPolicy(writePolicy(t, "leave:\n  decrementing_types: []\n"))
	require.NoError(t, err)

	assert.False(t, cfg.Leave.Decrements(models.LeaveTypeAnnual))
}

func TestLoadPolicy_Errors(t *testing.T) {
	_, err := LoadPolicy(writePolicy(t, "leave:\n  decrementing_types: [vacation]\n"))
	assert.ErrorContains(t, err, `unknown leave type "vacation"`)

	_, err = LoadPolicy(writePolicy(t, "leave:\n  maternity_days: -1\n"))
	assert.ErrorContains(t, err, "must not be negative")

	_, err = LoadPolicy(writePolicy(t, "leave: ["))
	assert.ErrorContains(t, err, "parse yaml")
}

func TestAgentConfig_ValidGrade(t *testing.T) {
	assert.True(t, AgentConfig{}.ValidGrade("anything"))

	cfg := AgentConfig{Grades: []string{"A", "B"}}
	assert.True(t, cfg.ValidGrade("A"))
	assert.True(t, cfg.ValidGrade(""))
	assert.False(t, cfg.ValidGrade("C"))
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("BASE_ADMIN_CHAT_ID", "12345")
	t.Setenv("DATABASE_URL", "test.db")
	t.Setenv("CONFIG_PATH", writePolicy(t, "agents:\n  page_size: 3\n"))
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.Bot.TelegramToken)
	assert.Equal(t, int64(12345), cfg.Bot.BaseAdminChatID)
	assert.Equal(t, "test.db", cfg.Bot.DatabaseURL)
	assert.Equal(t, logrus.DebugLevel, cfg.Bot.LogLevel)
	assert.Equal(t, 3, cfg.Agents.PageSize)
}

func TestLoad_RequiresAdminChat(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("BASE_ADMIN_CHAT_ID", "")

	_, err := Load()
	assert.ErrorContains(t, err, "BASE_ADMIN_CHAT_ID")
}
