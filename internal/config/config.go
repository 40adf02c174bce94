package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"leave-manager-bot/internal/models"
)

type BotConfig struct {
	TelegramToken   string
	BaseAdminChatID int64
	DatabaseURL     string
	PolicyPath      string
	LogLevel        logrus.Level
}

// Config is built once in main and handed to the constructors that need it.
type Config struct {
	Bot     BotConfig     `yaml:"-"`
	Leave   LeaveConfig   `yaml:"leave"`
	Storage StorageConfig `yaml:"storage"`
	Agents  AgentConfig   `yaml:"agents"`
}

type LeaveConfig struct {
	DecrementingTypes []models.LeaveType `yaml:"decrementing_types"`
	MaternityDays     int                `yaml:"maternity_days"`
	PaternityDays     int                `yaml:"paternity_days"`
	HolidaysCountry   string             `yaml:"holidays_country"`
}

type StorageConfig struct {
	CertificatesDir string `yaml:"certificates_dir"`
	CalendarsDir    string `yaml:"calendars_dir"`
}

type AgentConfig struct {
	Grades   []string `yaml:"grades"`
	PageSize int      `yaml:"page_size"`
}

// Load reads the bot settings from the environment (and .env when present)
// and the leave policy from the YAML file named by CONFIG_PATH.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("no .env file loaded: %s", err.Error())
	}

	bot, err := loadBotConfig()
	if err != nil {
		return nil, err
	}

	cfg, err := LoadPolicy(bot.PolicyPath)
	if err != nil {
		return nil, err
	}
	cfg.Bot = bot

	return cfg, nil
}

func loadBotConfig() (BotConfig, error) {
	bot := BotConfig{}

	bot.TelegramToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	if bot.TelegramToken == "" {
		return bot, errors.New("config: TELEGRAM_BOT_TOKEN must be set")
	}

	bot.BaseAdminChatID = getEnvAsInt("BASE_ADMIN_CHAT_ID", 0)
	if bot.BaseAdminChatID == 0 {
		return bot, errors.New("config: BASE_ADMIN_CHAT_ID must be set")
	}

	bot.DatabaseURL = getEnv("DATABASE_URL", "leaves.db")
	bot.PolicyPath = getEnv("CONFIG_PATH", "config.yaml")

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return bot, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	bot.LogLevel = level

	return bot, nil
}

// LoadPolicy reads the leave policy file. A missing file yields the defaults.
func LoadPolicy(path string) (*Config, error) {
	cfg := &Config{}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logrus.Warnf("policy file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the policy used when no file is present.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.validateAndNormalize()
	return cfg
}

func (c *Config) validateAndNormalize() error {
	if err := c.Leave.validateAndNormalize(); err != nil {
		return err
	}

	if c.Storage.CertificatesDir == "" {
		c.Storage.CertificatesDir = "certificats"
	}
	if c.Storage.CalendarsDir == "" {
		c.Storage.CalendarsDir = "calendars"
	}

	if c.Agents.PageSize <= 0 {
		c.Agents.PageSize = 20
	}
	for i, g := range c.Agents.Grades {
		c.Agents.Grades[i] = strings.TrimSpace(g)
	}

	return nil
}

func (l *LeaveConfig) validateAndNormalize() error {
	if l.DecrementingTypes == nil {
		l.DecrementingTypes = []models.LeaveType{models.LeaveTypeAnnual}
	}
	for _, t := range l.DecrementingTypes {
		if !t.Valid() {
			return fmt.Errorf("config: leave.decrementing_types: unknown leave type %q", t)
		}
	}

	if l.MaternityDays < 0 || l.PaternityDays < 0 {
		return errors.New("config: leave durations must not be negative")
	}
	if l.MaternityDays == 0 {
		l.MaternityDays = 98
	}
	if l.PaternityDays == 0 {
		l.PaternityDays = 3
	}

	if l.HolidaysCountry == "" {
		l.HolidaysCountry = "MA"
	}
	l.HolidaysCountry = strings.ToUpper(l.HolidaysCountry)

	return nil
}

// Decrements reports whether a leave type is taken from the agent balance.
func (l LeaveConfig) Decrements(t models.LeaveType) bool {
	for _, d := range l.DecrementingTypes {
		if d == t {
			return true
		}
	}
	return false
}

// ValidGrade reports whether grade is allowed. Empty grade is always allowed,
// any grade is allowed when no list is configured.
func (a AgentConfig) ValidGrade(grade string) bool {
	if grade == "" || len(a.Grades) == 0 {
		return true
	}
	for _, g := range a.Grades {
		if g == grade {
			return true
		}
	}
	return false
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultVal
}

func getEnvAsInt(name string, defaultVal int64) int64 {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseInt(valStr, 10, 64); err == nil {
		return val
	}

	return defaultVal
}
