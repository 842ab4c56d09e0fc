package main

import (
	"context"
	"errors"
	"time"
	_ "time/tzdata"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/config"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/sheets"
	gsheet "ledger/internal/sheets/google"
	memjournal "ledger/internal/sheets/memory"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)
	cfg = cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	loc, _ := cfg.Location()

	// The worker only reads the store; events come from its own consumer.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	backendCfg.AMQPURL = ""
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend does not share data with the server, only delete events will be journaled")
	}
	be, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}
	ledger := services.NewLedger(be.Store, services.Options{Location: loc})

	journal, err := newJournal(cfg, loc, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize journal", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting ledger-worker",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		"spreadsheet", cfg.GoogleSpreadsheetID != "")

	w := worker.NewJournalWorker(ledger.Queries, journal)
	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Journal worker stopped", err)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}

// newJournal returns the Google Sheets journal when a spreadsheet is
// configured and an in-process one otherwise.
func newJournal(cfg *config.Config, loc *time.Location, logger *applog.Logger) (sheets.JournalWriter, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, journaling in memory")
		return memjournal.New(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		JournalSheet:       cfg.GoogleJournalSheet,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		Location:           loc,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	logger.Info("Google Sheets journal initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleJournalSheet)
	return client, nil
}
