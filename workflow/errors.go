package workflow

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/regflow/generator"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/shopspring/decimal"
)

// GenerationError is raised by the generator before any I/O.
type GenerationError = generator.GenerationError

// ResolutionError: facts reference natural keys with no surrogate key in the fund catalog.
// The whole batch is rejected.
type ResolutionError struct {
	Missing   []string
	Ambiguous []string
	Facts     int
}

func (e *ResolutionError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("%d of %d facts cannot be keyed; unknown isin(s): %s",
			len(e.Missing), e.Facts, strings.Join(e.Missing, ",")))
	}
	if len(e.Ambiguous) > 0 {
		parts = append(parts, fmt.Sprintf("ambiguous isin(s) after trimming: %s", strings.Join(e.Ambiguous, ",")))
	}
	return "resolution: " + strings.Join(parts, "; ")
}

// LoadError: the store rejected a read or an append. Nothing is retried.
type LoadError struct {
	Op   string
	Rows int
	// Duplicate is set when the store reported a unique key violation (MySQL 1062).
	Duplicate bool
	Err       error
}

func (e *LoadError) Error() string {
	if e.Rows > 0 {
		return fmt.Sprintf("load: %s (%d rows): %v", e.Op, e.Rows, e.Err)
	}
	return fmt.Sprintf("load: %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func newLoadError(op string, rows int, err error) *LoadError {
	return &LoadError{Op: op, Rows: rows, Duplicate: isDuplicateKeyErr(err), Err: err}
}

// QCTriggerError: the QC procedure failed after the facts were committed.
// The facts stay; the QC call alone may be retried.
type QCTriggerError struct {
	Procedure   string
	ThresholdBp decimal.Decimal
	Err         error
}

func (e *QCTriggerError) Error() string {
	return fmt.Sprintf("qc: %s(threshold=%s bp) failed after facts were committed: %v", e.Procedure, e.ThresholdBp, e.Err)
}

func (e *QCTriggerError) Unwrap() error { return e.Err }

// DuplicatePeriodError is returned by the opt-in tick pre-check when the period already has facts.
type DuplicatePeriodError struct {
	Period   time.Time
	Existing int64
}

func (e *DuplicatePeriodError) Error() string {
	return fmt.Sprintf("tick: period %s already has %d fact rows", utils.FormatPeriod(e.Period), e.Existing)
}

// ErrRunInProgress: another tick holds the run lock.
var ErrRunInProgress = errors.New("another loader run holds the lock")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
