package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-reminder-bot/internal/bot"
	"telegram-reminder-bot/internal/config"
	"telegram-reminder-bot/internal/database"
	"telegram-reminder-bot/internal/parser"
	"telegram-reminder-bot/internal/reminders"
	"telegram-reminder-bot/internal/repository"
	"telegram-reminder-bot/internal/scheduler"
	"telegram-reminder-bot/internal/session"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Validate required config
	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}
	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}
	if cfg.AIAPIKey == "" {
		log.Fatal("AI_API_KEY is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	// Run migrations
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Parsing collaborator
	parseClient := parser.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
	log.Printf("Parser client initialized (model: %s)", cfg.AIModel)

	// Telegram API client
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("Failed to create Telegram API: %v", err)
	}
	messenger := bot.NewMessenger(api)

	reminderRepo := repository.NewReminderRepository(db)
	pending := session.NewStore()

	// Schedule engine: one armed job per active reminder
	engine, err := scheduler.New(messenger, reminderRepo, pending)
	if err != nil {
		log.Fatalf("Failed to start schedule engine: %v", err)
	}
	defer func() {
		if err := engine.Shutdown(); err != nil {
			log.Printf("Failed to shut down schedule engine: %v", err)
		}
	}()

	manager := reminders.NewManager(reminderRepo, engine, parseClient, messenger)

	// Re-arm persisted reminders before accepting traffic
	if err := reminders.NewReconciler(reminderRepo, engine).Run(ctx); err != nil {
		log.Fatalf("Startup reconciliation failed: %v", err)
	}

	router := bot.NewRouter(manager, pending, messenger)
	b := bot.New(api, router)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	log.Println("Starting bot...")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Bot error: %v", err)
	}
}
