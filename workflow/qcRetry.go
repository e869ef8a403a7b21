package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunQCOnly re-runs the QC procedure without loading anything. It is the retry path
// after a tick ended with QCTriggerError.
func RunQCOnly(ctx context.Context, db *gorm.DB, logger *logrus.Logger, runner QCRunner, thresholdBp decimal.Decimal) (string, error) {
	ctx, span := startStage(ctx, "qc")
	var runErr error
	defer func() { endStage(span, runErr) }()

	journal, err := startRun(ctx, db, logger, models.LoadRunModeQC, time.Time{}, &thresholdBp)
	if err != nil {
		runErr = err
		config.LogError(logger, "workflow", "RunQCOnly", "start journal", nil, err)
		return "", err
	}
	if err := TriggerQC(ctx, runner, thresholdBp); err != nil {
		runErr = err
		journal.fail(ctx, models.LoadRunStatusQCFailed, 0, 0, err)
		config.LogError(logger, "workflow", "RunQCOnly", "trigger qc", journal.ID(), err)
		return journal.ID(), err
	}
	journal.succeed(ctx, 0, 0)
	logger.WithFields(logrus.Fields{
		"event":        "qc_executed",
		"run_id":       journal.ID(),
		"threshold_bp": thresholdBp.String(),
	}).Info("QC executed")
	return journal.ID(), nil
}
