// regflow-tick appends one month of cost facts for every fund in the catalog and then
// runs the QC procedure. It is not idempotent: run it once per period, or pass
// -reject-duplicate to refuse a period that already has facts.
//
// Usage:
//
//	go run ./cmd/regflow-tick                  # current month
//	go run ./cmd/regflow-tick -period=2025-03 -reject-duplicate
//
// Exit status 5 means the facts were committed but QC failed; retry with regflow-qc.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

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

	periodFlag := flag.String("period", "", "Target month (YYYY-MM); empty means the current month")
	rejectDuplicate := flag.Bool("reject-duplicate", settings.RejectDuplicatePeriod, "Abort if the period already has facts")
	seed := flag.Uint64("seed", settings.GeneratorSeed, "Generator seed (0 = random)")
	flag.Parse()

	var period time.Time
	if *periodFlag != "" {
		period, err = utils.ParsePeriod(*periodFlag)
		if err != nil {
			logger.WithError(err).Error("invalid -period")
			os.Exit(workflow.ExitFailure)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = utils.SetRunModeInContext(ctx, string(models.LoadRunModeTick))
	ctx = utils.SetCorrelationIdInContext(ctx, utils.CorrelationIdFromContextOrNew(ctx))

	code := run(ctx, logger, settings, period, *rejectDuplicate, *seed)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, logger *logrus.Logger, settings *config.LoaderSettings, period time.Time, rejectDuplicate bool, seed uint64) int {
	if err := config.ConnectDatabase(); err != nil {
		logger.WithError(err).Error("database connection failed")
		return workflow.ExitLoad
	}
	defer func() { _ = config.CloseDatabase() }()
	db := config.GetDB()

	var locker workflow.RunLocker
	if config.RedisConfigured() {
		if err := config.ConnectRedis(ctx); err != nil {
			logger.WithError(err).Error("redis connection failed")
			return workflow.ExitFailure
		}
		defer func() { _ = config.CloseRedis() }()
		locker = workflow.NewRedisRunLocker(config.GetRedisLock())
	}

	var notifier workflow.RunNotifier
	if config.PubSubConfigured() {
		notifier = workflow.PubSubNotifier{}
		defer func() { _ = config.ClosePubSub() }()
	}

	a := &workflow.IncrementalAppender{
		DB:                    db,
		Logger:                logger,
		Generator:             generator.New(seed),
		QC:                    workflow.NewProcedureQC(db, settings.QCProcedure),
		ThresholdBp:           settings.QCThresholdBp,
		Period:                period,
		BatchSize:             settings.LoadBatchSize,
		RejectDuplicatePeriod: rejectDuplicate,
		Locker:                locker,
		Notifier:              notifier,
	}
	res, err := a.Run(ctx)
	if err != nil {
		entry := logger.WithError(err).WithField("run_id", res.RunId)
		if workflow.IsQCOnlyFailure(err) {
			entry.WithField("facts", res.FactsLoaded).Error("facts committed but QC failed; rerun regflow-qc")
		} else {
			entry.Error("tick failed")
		}
		return workflow.ExitCode(err)
	}
	logger.WithFields(logrus.Fields{
		"run_id":            res.RunId,
		"period":            utils.FormatPeriod(res.Period),
		"funds":             res.FundsResolved,
		"facts":             res.FactsLoaded,
		"qc_executed":       res.QCExecuted,
		"load_committed_at": res.LoadCommittedAt,
		"qc_started_at":     res.QCStartedAt,
	}).Info("tick complete")
	return workflow.ExitOK
}
