package models

import "time"

type LoadRunMode string

const (
	LoadRunModeInitialize LoadRunMode = "initialize"
	LoadRunModeTick       LoadRunMode = "tick"
	LoadRunModeQC         LoadRunMode = "qc"
)

type LoadRunStatus string

const (
	LoadRunStatusStarted   LoadRunStatus = "STARTED"
	LoadRunStatusSucceeded LoadRunStatus = "SUCCEEDED"
	LoadRunStatusFailed    LoadRunStatus = "FAILED"
	// QC_FAILED: facts are committed but the QC procedure did not run to completion.
	LoadRunStatusQCFailed LoadRunStatus = "QC_FAILED"
)

// LoadRun journals every loader invocation. It is operator information only and
// is never consulted to decide what to load.
type LoadRun struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	Mode          LoadRunMode   `gorm:"size:20;not null;index" json:"mode"`
	// Period is nil for QC-only runs.
	Period        *time.Time    `gorm:"type:date;index" json:"period"`
	FundsLoaded   int64         `gorm:"not null;default:0" json:"funds_loaded"`
	FactsLoaded   int64         `gorm:"not null;default:0" json:"facts_loaded"`
	QCThresholdBp *string       `gorm:"size:20" json:"qc_threshold_bp"`
	Status        LoadRunStatus `gorm:"size:20;not null;index" json:"status"`
	LastError     *string       `gorm:"type:text" json:"last_error"`
	CorrelationId string        `gorm:"size:64;index" json:"correlation_id"`
	StartedAt     time.Time     `gorm:"not null" json:"started_at"`
	FinishedAt    *time.Time    `json:"finished_at"`
}
