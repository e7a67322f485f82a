package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	log "github.com/sirupsen/logrus"

	"tg_archive_bot/backup"
	"tg_archive_bot/config"
	"tg_archive_bot/database"
	"tg_archive_bot/handlers"
	"tg_archive_bot/scheduler"
	"tg_archive_bot/session"
	"tg_archive_bot/tglog"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml, json, toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	setupLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if cfg.AdminID != 0 {
		if err := store.EnsureAdmin(ctx, cfg.AdminID, fmt.Sprintf("Admin_%d", cfg.AdminID)); err != nil {
			log.Fatalf("bootstrap admin: %v", err)
		}
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			log.WithField("update_id", update.ID).Debug("update not handled")
		}),
		bot.WithMiddlewares(handlers.Recover),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		log.Fatal(err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		log.Fatal(err)
	}

	if hook := tglog.New(b, cfg.LogChannelID); hook != nil {
		log.AddHook(hook)
		defer hook.Wait()
	}

	sessions := session.New(cfg.SessionTTL)
	backups := backup.NewManager(store, cfg.BackupDir, cfg.BackupKeep)
	sched := scheduler.New(cfg.SchedulerTick)

	h := handlers.New(b, cfg, store, sessions, backups, sched)

	b.RegisterHandlerMatchFunc(handlers.IsArchivable, h.OnArchive)
	b.RegisterHandlerMatchFunc(handlers.IsPrivateMessage, h.OnMessage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.OnCallback)

	sched.Every(handlers.BackupJob, h.BackupInterval(ctx), h.AutoBackup)
	sched.Every("sessions", time.Minute, h.SweepSessions)
	go sched.Run(ctx)

	log.WithFields(log.Fields{"bot": me.Username, "driver": cfg.DBDriver}).Info("bot started")
	b.Start(ctx)
	log.Info("bot stopped")
}

func setupLogging(cfg *config.Config) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return database.NewPostgres(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return database.NewSQLite(cfg.SQLitePath, cfg.SQLDebug)
	}
	return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
}
