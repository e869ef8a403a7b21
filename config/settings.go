package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

const (
	DefaultQCProcedure = "sp_QC_CheckTER"
	defaultStartMonth  = "2023-01"
)

// DefaultQCThresholdBp is the vendor/calculated TER divergence tolerated by the QC pass.
var DefaultQCThresholdBp = decimal.NewFromFloat(5.0)

// LoaderSettings holds everything the init and tick runs need besides the connection descriptor.
// Load it once at startup with LoadSettings.
type LoaderSettings struct {
	// BulkFunds is the number of funds created by initialize.
	BulkFunds int `validate:"gt=0"`

	// BulkMonths is the number of historical months seeded per fund.
	BulkMonths int `validate:"gt=0"`

	// BulkStartMonth is the first seeded month.
	BulkStartMonth time.Time `validate:"required"`

	// QCThresholdBp is passed to the QC procedure as @Threshold.
	QCThresholdBp decimal.Decimal

	// QCProcedure is the stored procedure invoked after a tick.
	QCProcedure string `validate:"required"`

	// LoadBatchSize bounds the rows per INSERT statement; the append is still one transaction.
	LoadBatchSize int `validate:"gt=0"`

	// GeneratorSeed makes runs reproducible; 0 means random.
	GeneratorSeed uint64

	// RejectDuplicatePeriod enables the tick duplicate-period pre-check.
	RejectDuplicatePeriod bool
}

// LoadSettings reads loader settings from the environment and validates them.
func LoadSettings() (*LoaderSettings, error) {
	start, err := time.Parse("2006-01", getEnv("BULK_START_MONTH", defaultStartMonth))
	if err != nil {
		return nil, fmt.Errorf("BULK_START_MONTH: %w", err)
	}

	threshold := DefaultQCThresholdBp
	if raw := strings.TrimSpace(os.Getenv("QC_THRESHOLD_BP")); raw != "" {
		threshold, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("QC_THRESHOLD_BP: %w", err)
		}
	}

	var seed uint64
	if raw := strings.TrimSpace(os.Getenv("GENERATOR_SEED")); raw != "" {
		seed, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GENERATOR_SEED: %w", err)
		}
	}

	s := &LoaderSettings{
		BulkFunds:             intFromEnv("BULK_FUNDS", 10),
		BulkMonths:            intFromEnv("BULK_MONTHS", 24),
		BulkStartMonth:        start,
		QCThresholdBp:         threshold,
		QCProcedure:           getEnv("QC_PROCEDURE", DefaultQCProcedure),
		LoadBatchSize:         intFromEnv("LOAD_BATCH_SIZE", 500),
		GeneratorSeed:         seed,
		RejectDuplicatePeriod: RejectDuplicateTickPeriod(),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LoaderSettings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("loader settings: %w", err)
	}
	if s.QCThresholdBp.IsNegative() {
		return errors.New("loader settings: QC threshold must not be negative")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
