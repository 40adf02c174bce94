package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"leave-manager-bot/internal/config"
	"leave-manager-bot/internal/handler"
	"leave-manager-bot/internal/repository"
	"leave-manager-bot/internal/service"
	"leave-manager-bot/pkg/telegram"
	"leave-manager-bot/pkg/workdays"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	logger.Info("Initializing config...")
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	logger.SetLevel(cfg.Bot.LogLevel)
	logger.WithFields(logrus.Fields{
		"database":     cfg.Bot.DatabaseURL,
		"policy":       cfg.Bot.PolicyPath,
		"decrementing": cfg.Leave.DecrementingTypes,
	}).Info("Config initialized")

	db, err := repository.Open(cfg.Bot.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.WithError(err).Fatal("Failed to get database instance")
	}

	gw, err := repository.NewGateway(db, cfg.Leave.Decrements, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize storage")
	}

	certs, err := service.NewCertificateStore(cfg.Storage.CertificatesDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to prepare certificates directory")
	}

	calendar := workdays.NewFileCalendar(cfg.Storage.CalendarsDir, cfg.Leave.HolidaysCountry)
	holidayService := service.NewHolidayService(gw.Holidays(), calendar, logger)
	leaveManager := service.NewLeaveManager(gw, holidayService, certs, service.NewLeaveRules(cfg.Leave), logger)
	agentService := service.NewAgentService(gw, cfg.Agents, logger)
	reportService := service.NewReportService(gw)

	client, err := telegram.NewClient(cfg.Bot.TelegramToken, cfg.Bot.LogLevel >= logrus.TraceLevel)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create Telegram client")
	}
	logger.Infof("Authorized on account %s", client.Bot.Self.UserName)

	botHandler := handler.NewHandler(
		client.Bot,
		leaveManager,
		agentService,
		holidayService,
		reportService,
		&cfg.Bot,
		logger,
	)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		botHandler.HandleUpdates(client.Updates())
		close(done)
	}()

	logger.Info("Bot started. Press Ctrl+C to stop.")
	<-stop

	client.Stop()
	<-done

	if err := sqlDB.Close(); err != nil {
		logger.WithError(err).Warn("Error closing database")
	}

	logger.Info("Bot stopped gracefully")
}
