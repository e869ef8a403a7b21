package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/generator"
	"github.com/mmdatafocus/regflow/models"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

const tickLockName = "tick"

// IncrementalAppender adds one month of facts for every fund in the catalog, then runs QC.
//
// Not idempotent: a second tick for the same period appends another row per fund
// unless RejectDuplicatePeriod is set. Concurrent ticks are unsafe; Locker narrows that
// to one run at a time when Redis is available.
type IncrementalAppender struct {
	DB          *gorm.DB
	Logger      *logrus.Logger
	Generator   *generator.Generator
	QC          QCRunner
	ThresholdBp decimal.Decimal
	// Period is the target month; zero means the current month.
	Period    time.Time
	BatchSize int
	// RejectDuplicatePeriod aborts before any write when the period already has facts.
	RejectDuplicatePeriod bool
	Locker                RunLocker
	Notifier              RunNotifier
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

type TickResult struct {
	RunId           string
	Period          time.Time
	FundsResolved   int
	FactsLoaded     int64
	QCExecuted      bool
	LoadCommittedAt time.Time
	QCStartedAt     time.Time
}

func (a *IncrementalAppender) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func (a *IncrementalAppender) targetPeriod() time.Time {
	if a.Period.IsZero() {
		return utils.MonthStart(a.now())
	}
	return utils.MonthStart(a.Period)
}

// Run: resolve all funds -> generate one month per fund -> merge -> load -> QC.
func (a *IncrementalAppender) Run(ctx context.Context) (TickResult, error) {
	period := a.targetPeriod()
	result := TickResult{Period: period}
	logger := a.Logger
	log := logger.WithField("period", utils.FormatPeriod(period))

	ctx, span := startStage(ctx, "tick", attribute.String("period", utils.FormatPeriod(period)))
	var runErr error
	defer func() { endStage(span, runErr) }()

	if a.Locker == nil {
		log.Warn("no run lock configured: concurrent tick runs against the same store are unsafe")
	} else {
		release, err := a.Locker.Acquire(ctx, tickLockName)
		if err != nil {
			runErr = err
			config.LogError(logger, "workflow", "IncrementalAppender.Run", "acquire run lock", nil, err)
			return result, err
		}
		defer release()
	}

	stageCtx, s := startStage(ctx, "tick.resolve_funds")
	keys, err := LoadFundKeys(stageCtx, a.DB)
	endStage(s, err)
	if err != nil {
		runErr = err
		config.LogError(logger, "workflow", "IncrementalAppender.Run", "resolve funds", nil, err)
		return result, err
	}
	result.FundsResolved = len(keys)
	log.WithFields(logrus.Fields{"event": "keys_resolved", "catalog": len(keys)}).Info("fund keys resolved")

	costs, err := a.Generator.Month(SortedIsins(keys), period)
	if err != nil {
		runErr = err
		config.LogError(logger, "workflow", "IncrementalAppender.Run", "generate", nil, err)
		return result, err
	}
	log.WithFields(logrus.Fields{"event": "generated", "facts": len(costs)}).Info("month generated")

	if a.RejectDuplicatePeriod {
		existing, err := CountFactsInPeriod(ctx, a.DB, period)
		if err != nil {
			runErr = err
			config.LogError(logger, "workflow", "IncrementalAppender.Run", "duplicate period check", nil, err)
			return result, err
		}
		if existing > 0 {
			runErr = &DuplicatePeriodError{Period: period, Existing: existing}
			config.LogError(logger, "workflow", "IncrementalAppender.Run", "duplicate period check", nil, runErr)
			return result, runErr
		}
	}

	threshold := a.ThresholdBp
	journal, err := startRun(ctx, a.DB, logger, models.LoadRunModeTick, period, &threshold)
	if err != nil {
		runErr = err
		config.LogError(logger, "workflow", "IncrementalAppender.Run", "start journal", nil, err)
		return result, err
	}
	result.RunId = journal.ID()
	log = log.WithField("run_id", journal.ID())

	stageCtx, s = startStage(ctx, "tick.load_facts", attribute.Int("rows", len(costs)))
	result.FactsLoaded, err = MergeAndLoad(stageCtx, a.DB, costs, keys, journal.ID(), a.BatchSize)
	endStage(s, err)
	if err != nil {
		runErr = err
		journal.fail(ctx, models.LoadRunStatusFailed, 0, 0, err)
		config.LogError(logger, "workflow", "IncrementalAppender.Run", "merge and load", journal.ID(), err)
		a.notify(ctx, journal, result, models.LoadRunStatusFailed)
		return result, err
	}
	result.LoadCommittedAt = a.now()
	log.WithFields(logrus.Fields{"event": "facts_loaded", "facts": result.FactsLoaded}).Info("cost ledger appended")

	// QC must only ever see committed facts: AppendCosts has returned, so its transaction is durable.
	result.QCStartedAt = a.now()
	stageCtx, s = startStage(ctx, "tick.qc", attribute.String("threshold_bp", threshold.String()))
	err = TriggerQC(stageCtx, a.QC, threshold)
	endStage(s, err)
	if err != nil {
		runErr = err
		journal.fail(ctx, models.LoadRunStatusQCFailed, 0, result.FactsLoaded, err)
		config.LogError(logger, "workflow", "IncrementalAppender.Run", "trigger qc", journal.ID(), err)
		a.notify(ctx, journal, result, models.LoadRunStatusQCFailed)
		return result, err
	}
	result.QCExecuted = true
	log.WithFields(logrus.Fields{"event": "qc_executed", "threshold_bp": threshold.String()}).Info("QC executed")

	journal.succeed(ctx, 0, result.FactsLoaded)
	a.notify(ctx, journal, result, models.LoadRunStatusSucceeded)
	return result, nil
}

func (a *IncrementalAppender) notify(ctx context.Context, journal *runJournal, result TickResult, status models.LoadRunStatus) {
	if a.Notifier == nil {
		return
	}
	err := a.Notifier.NotifyRun(ctx, config.LoadEventMessage{
		RunId:         journal.ID(),
		Mode:          string(models.LoadRunModeTick),
		Period:        utils.FormatPeriod(result.Period),
		FactsLoaded:   result.FactsLoaded,
		QCExecuted:    result.QCExecuted,
		Status:        string(status),
		CorrelationId: journal.CorrelationId(),
		FinishedAt:    time.Now().UTC(),
	})
	if err != nil {
		config.LogError(a.Logger, "workflow", "IncrementalAppender.notify", "publish run event", journal.ID(), err)
	}
}

// CountFactsInPeriod counts fact rows dated within period's month.
func CountFactsInPeriod(ctx context.Context, db *gorm.DB, period time.Time) (int64, error) {
	start := utils.MonthStart(period)
	var n int64
	err := db.WithContext(ctx).Model(&models.FactCost{}).
		Where("val_date >= ? AND val_date < ?", start, start.AddDate(0, 1, 0)).
		Count(&n).Error
	if err != nil {
		return 0, newLoadError("count fact_costs", 0, err)
	}
	return n, nil
}

// IsQCOnlyFailure reports whether err left the facts committed with only QC outstanding.
func IsQCOnlyFailure(err error) bool {
	var qcErr *QCTriggerError
	return errors.As(err, &qcErr)
}
