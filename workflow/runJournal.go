package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/models"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// runJournal keeps the load_runs row for one invocation.
type runJournal struct {
	db     *gorm.DB
	logger *logrus.Logger
	run    models.LoadRun
}

func startRun(ctx context.Context, db *gorm.DB, logger *logrus.Logger, mode models.LoadRunMode, period time.Time, thresholdBp *decimal.Decimal) (*runJournal, error) {
	run := models.LoadRun{
		ID:            uuid.NewString(),
		Mode:          mode,
		Status:        models.LoadRunStatusStarted,
		CorrelationId: utils.CorrelationIdFromContextOrNew(ctx),
		StartedAt:     time.Now().UTC(),
	}
	if !period.IsZero() {
		p := period
		run.Period = &p
	}
	if thresholdBp != nil {
		s := thresholdBp.String()
		run.QCThresholdBp = &s
	}
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, newLoadError("create load_runs", 1, err)
	}
	return &runJournal{db: db, logger: logger, run: run}, nil
}

func (j *runJournal) ID() string { return j.run.ID }

func (j *runJournal) CorrelationId() string { return j.run.CorrelationId }

func (j *runJournal) succeed(ctx context.Context, funds, facts int64) {
	j.finish(ctx, models.LoadRunStatusSucceeded, funds, facts, nil)
}

func (j *runJournal) fail(ctx context.Context, status models.LoadRunStatus, funds, facts int64, cause error) {
	j.finish(ctx, status, funds, facts, cause)
}

// finish never changes the run outcome; a journal write failure is logged.
func (j *runJournal) finish(ctx context.Context, status models.LoadRunStatus, funds, facts int64, cause error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":       status,
		"funds_loaded": funds,
		"facts_loaded": facts,
		"finished_at":  now,
	}
	if cause != nil {
		msg := cause.Error()
		updates["last_error"] = &msg
	}
	// A cancelled run still records its outcome.
	err := j.db.WithContext(context.WithoutCancel(ctx)).Model(&models.LoadRun{}).Where("id = ?", j.run.ID).Updates(updates).Error
	if err != nil {
		config.LogError(j.logger, "workflow", "runJournal.finish", "update load_runs", j.run.ID, err)
		return
	}
	j.run.Status = status
	j.run.FundsLoaded = funds
	j.run.FactsLoaded = facts
	j.run.FinishedAt = &now
}
