package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/robfig/cron/v3"

	"fintrack/internal/alerts"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/export"
	"fintrack/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting fintrack-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var publisher events.Publisher
	var amqpClient *events.Client
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		publisher = client
		amqpClient = client
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var exporter *export.Exporter
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err = export.NewExporter(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Sheets exporter", "error", err)
			os.Exit(1)
		}
		logger.Info("Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeBudgetAlerts(ctx, func(alert *events.BudgetAlert) error {
				logger.Warn("Budget alert received",
					"category", alert.Category,
					"month", alert.Month,
					"budget", alert.Budget,
					"spent", alert.Spent,
					"usage_pct", alert.UsagePct)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Budget alert consumer stopped", "error", err)
			}
		}()
	}

	checker := alerts.NewChecker(repo, publisher)

	scheduler := cron.New(cron.WithSeconds())

	_, err = scheduler.AddFunc(cfg.AlertCron, func() {
		fired, err := checker.Check(ctx)
		if err != nil {
			logger.Error("Budget check failed", "error", err)
			return
		}
		logger.Info("Budget check completed", "alerts_fired", len(fired))
	})
	if err != nil {
		logger.Error("Failed to schedule budget checks", "error", err, "schedule", cfg.AlertCron)
		os.Exit(1)
	}

	if exporter != nil {
		_, err = scheduler.AddFunc(cfg.ExportCron, func() {
			report, err := export.BuildMonthlyReport(ctx, repo, time.Now())
			if err != nil {
				logger.Error("Monthly report build failed", "error", err)
				return
			}
			if err := exporter.ExportMonthlyFlow(ctx, []core.MonthFlow{report.Flow}); err != nil {
				logger.Error("Monthly flow export failed", "error", err, "month", report.Month)
				return
			}
			if err := exporter.ExportCategoryTotals(ctx, report.Month, report.Categories); err != nil {
				logger.Error("Category totals export failed", "error", err, "month", report.Month)
				return
			}
			logger.Info("Monthly report exported", "month", report.Month, "categories", len(report.Categories))
		})
		if err != nil {
			logger.Error("Failed to schedule exports", "error", err, "schedule", cfg.ExportCron)
			os.Exit(1)
		}
	}

	scheduler.Start()
	logger.Info("Scheduler started", "alert_cron", cfg.AlertCron, "export_cron", cfg.ExportCron)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	cancel()
	<-scheduler.Stop().Done()
	logger.Info("Worker stopped gracefully")
}
