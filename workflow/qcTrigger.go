package workflow

import (
	"context"
	"fmt"
	"regexp"

	"github.com/mmdatafocus/regflow/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QCRunner runs the server-side TER divergence check.
type QCRunner interface {
	RunQC(ctx context.Context, thresholdBp decimal.Decimal) error
}

var procedureNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ProcedureQC calls the QC stored procedure with a single @Threshold argument.
// Whatever the procedure flags or logs stays server side; the caller only sees success or failure.
type ProcedureQC struct {
	DB        *gorm.DB
	Procedure string
}

func NewProcedureQC(db *gorm.DB, procedure string) *ProcedureQC {
	if procedure == "" {
		procedure = config.DefaultQCProcedure
	}
	return &ProcedureQC{DB: db, Procedure: procedure}
}

func (p *ProcedureQC) RunQC(ctx context.Context, thresholdBp decimal.Decimal) error {
	if !procedureNamePattern.MatchString(p.Procedure) {
		return fmt.Errorf("invalid procedure name %q", p.Procedure)
	}
	if p.DB == nil {
		return fmt.Errorf("db is nil")
	}
	return p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Exec(fmt.Sprintf("CALL %s(?)", p.Procedure), thresholdBp).Error
	})
}

func (p *ProcedureQC) String() string { return p.Procedure }

// TriggerQC runs the check and reports failures as QCTriggerError.
// Call it only after the fact append has returned.
func TriggerQC(ctx context.Context, runner QCRunner, thresholdBp decimal.Decimal) error {
	if runner == nil {
		return &QCTriggerError{ThresholdBp: thresholdBp, Err: fmt.Errorf("no QC runner configured")}
	}
	if err := runner.RunQC(ctx, thresholdBp); err != nil {
		return &QCTriggerError{Procedure: runnerName(runner), ThresholdBp: thresholdBp, Err: err}
	}
	return nil
}

func runnerName(runner QCRunner) string {
	if s, ok := runner.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", runner)
}
