package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/generator"
	"github.com/mmdatafocus/regflow/models"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// BulkInitializer seeds the fund catalog and its cost history in one pass.
// It does not trigger QC: the seed carries deliberate anomalies.
type BulkInitializer struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	Generator *generator.Generator
	Params    generator.BulkParams
	BatchSize int
	Notifier  RunNotifier
}

type BulkResult struct {
	RunId            string
	FundsLoaded      int64
	FactsLoaded      int64
	AnomalyPositions []int
}

// Run: generate -> load funds -> resolve keys -> merge -> load facts.
// Funds and facts are both generated up front so malformed parameters fail before any write.
func (b *BulkInitializer) Run(ctx context.Context) (BulkResult, error) {
	var result BulkResult
	logger := b.Logger

	ctx, span := startStage(ctx, "initialize",
		attribute.Int("funds", b.Params.Funds), attribute.Int("months", b.Params.Months))
	var runErr error
	defer func() { endStage(span, runErr) }()

	_, genSpan := startStage(ctx, "initialize.generate")
	batch, err := b.Generator.Bulk(b.Params)
	endStage(genSpan, err)
	if err != nil {
		runErr = err
		config.LogError(logger, "workflow", "BulkInitializer.Run", "generate", b.Params, err)
		return result, err
	}
	result.AnomalyPositions = batch.AnomalyPositions()
	logger.WithFields(logrus.Fields{
		"event":     "generated",
		"funds":     len(batch.Funds),
		"facts":     len(batch.Costs),
		"anomalies": result.AnomalyPositions,
	}).Info("bulk batch generated")

	journal, err := startRun(ctx, b.DB, logger, models.LoadRunModeInitialize, utils.MonthStart(b.Params.StartMonth), nil)
	if err != nil {
		runErr = err
		config.LogError(logger, "workflow", "BulkInitializer.Run", "start journal", nil, err)
		return result, err
	}
	result.RunId = journal.ID()
	log := logger.WithField("run_id", journal.ID())

	fail := func(stage string, err error) (BulkResult, error) {
		runErr = err
		journal.fail(ctx, models.LoadRunStatusFailed, result.FundsLoaded, result.FactsLoaded, err)
		config.LogError(logger, "workflow", "BulkInitializer.Run", stage, journal.ID(), err)
		b.notify(ctx, journal, result, models.LoadRunStatusFailed)
		return result, err
	}

	stageCtx, s := startStage(ctx, "initialize.load_funds")
	result.FundsLoaded, err = LoadFunds(stageCtx, b.DB, batch.Funds, b.BatchSize)
	endStage(s, err)
	if err != nil {
		return fail("load funds", err)
	}
	log.WithFields(logrus.Fields{"event": "funds_loaded", "funds": result.FundsLoaded}).Info("fund catalog loaded")

	isins := make([]string, len(batch.Funds))
	for i, f := range batch.Funds {
		isins[i] = f.Isin
	}
	stageCtx, s = startStage(ctx, "initialize.resolve_keys")
	keys, err := ResolveFundKeys(stageCtx, b.DB, isins)
	endStage(s, err)
	if err != nil {
		return fail("resolve keys", err)
	}
	log.WithFields(logrus.Fields{"event": "keys_resolved", "catalog": len(keys)}).Info("fund keys resolved")

	rows, err := MergeCosts(batch.Costs, keys, journal.ID())
	if err != nil {
		return fail("merge facts", err)
	}
	log.WithFields(logrus.Fields{"event": "merged", "facts": len(rows)}).Info("facts merged")

	stageCtx, s = startStage(ctx, "initialize.load_facts", attribute.Int("rows", len(rows)))
	result.FactsLoaded, err = AppendCosts(stageCtx, b.DB, rows, b.BatchSize)
	endStage(s, err)
	if err != nil {
		return fail("load facts", err)
	}
	log.WithFields(logrus.Fields{"event": "facts_loaded", "facts": result.FactsLoaded}).Info("cost ledger loaded")

	journal.succeed(ctx, result.FundsLoaded, result.FactsLoaded)
	b.notify(ctx, journal, result, models.LoadRunStatusSucceeded)
	return result, nil
}

func (b *BulkInitializer) notify(ctx context.Context, journal *runJournal, result BulkResult, status models.LoadRunStatus) {
	if b.Notifier == nil {
		return
	}
	err := b.Notifier.NotifyRun(ctx, config.LoadEventMessage{
		RunId:         journal.ID(),
		Mode:          string(models.LoadRunModeInitialize),
		Period:        utils.FormatPeriod(b.Params.StartMonth),
		FundsLoaded:   result.FundsLoaded,
		FactsLoaded:   result.FactsLoaded,
		Status:        string(status),
		CorrelationId: journal.CorrelationId(),
		FinishedAt:    time.Now().UTC(),
	})
	if err != nil {
		config.LogError(b.Logger, "workflow", "BulkInitializer.notify", "publish run event", journal.ID(), err)
	}
}
