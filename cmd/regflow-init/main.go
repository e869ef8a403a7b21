// regflow-init seeds an empty store with the fund catalog and its cost history.
// Run it once; a second run fails on the isin unique key and loads nothing.
//
// Usage:
//
//	go run ./cmd/regflow-init -funds=10 -months=24 -start=2023-01
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/generator"
	"github.com/mmdatafocus/regflow/models"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/mmdatafocus/regflow/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := config.GetLogger()

	settings, err := config.LoadSettings()
	if err != nil {
		logger.WithError(err).Error("invalid loader settings")
		os.Exit(workflow.ExitFailure)
	}

	funds := flag.Int("funds", settings.BulkFunds, "Number of funds to create")
	months := flag.Int("months", settings.BulkMonths, "Months of history per fund")
	start := flag.String("start", utils.FormatPeriod(settings.BulkStartMonth), "First seeded month (YYYY-MM)")
	seed := flag.Uint64("seed", settings.GeneratorSeed, "Generator seed (0 = random)")
	noAnomalies := flag.Bool("no-anomalies", false, "Skip the seeded vendor/calculated TER divergences")
	migrate := flag.Bool("migrate", true, "Create missing tables before loading")
	flag.Parse()

	startMonth, err := utils.ParsePeriod(*start)
	if err != nil {
		logger.WithError(err).Error("invalid -start")
		os.Exit(workflow.ExitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = utils.SetRunModeInContext(ctx, string(models.LoadRunModeInitialize))
	ctx = utils.SetCorrelationIdInContext(ctx, utils.CorrelationIdFromContextOrNew(ctx))

	code := run(ctx, logger, settings, generator.BulkParams{
		Funds:      *funds,
		Months:     *months,
		StartMonth: startMonth,
		Anomalies:  anomalies(*noAnomalies),
	}, *seed, *migrate)
	stop()
	os.Exit(code)
}

func anomalies(skip bool) []generator.Anomaly {
	if skip {
		return nil
	}
	return generator.DefaultAnomalies()
}

func run(ctx context.Context, logger *logrus.Logger, settings *config.LoaderSettings, params generator.BulkParams, seed uint64, migrate bool) int {
	if err := config.ConnectDatabase(); err != nil {
		logger.WithError(err).Error("database connection failed")
		return workflow.ExitLoad
	}
	defer func() { _ = config.CloseDatabase() }()
	db := config.GetDB()

	if migrate {
		if err := models.MigrateTable(db); err != nil {
			logger.WithError(err).Error("migration failed")
			return workflow.ExitLoad
		}
	}

	var notifier workflow.RunNotifier
	if config.PubSubConfigured() {
		notifier = workflow.PubSubNotifier{}
		defer func() { _ = config.ClosePubSub() }()
	}

	b := &workflow.BulkInitializer{
		DB:        db,
		Logger:    logger,
		Generator: generator.New(seed),
		Params:    params,
		BatchSize: settings.LoadBatchSize,
		Notifier:  notifier,
	}
	res, err := b.Run(ctx)
	if err != nil {
		logger.WithError(err).WithField("run_id", res.RunId).Error("initialize failed")
		return workflow.ExitCode(err)
	}
	logger.WithFields(logrus.Fields{
		"run_id":    res.RunId,
		"funds":     res.FundsLoaded,
		"facts":     res.FactsLoaded,
		"anomalies": res.AnomalyPositions,
	}).Info("initialize complete")
	return workflow.ExitOK
}
