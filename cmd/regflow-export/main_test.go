package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func clearDBEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME", "DB_PARAMS"} {
		t.Setenv(k, "")
	}
}

var (
	exportFrom = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	exportTo   = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
)

func TestRunUnwritableOutputNeverConnects(t *testing.T) {
	clearDBEnv(t)
	out := filepath.Join(t.TempDir(), "missing", "ledger.xlsx")

	if code := run(quietLogger(), exportFrom, exportTo, decimal.NewFromInt(5), out); code != workflow.ExitFailure {
		t.Fatalf("expected exit %d, got %d", workflow.ExitFailure, code)
	}
	if config.GetDB() != nil {
		t.Fatalf("database must not be left open")
	}
}

func TestRunConnectFailureRemovesWorkbook(t *testing.T) {
	clearDBEnv(t)
	out := filepath.Join(t.TempDir(), "ledger.xlsx")

	if code := run(quietLogger(), exportFrom, exportTo, decimal.NewFromInt(5), out); code != workflow.ExitLoad {
		t.Fatalf("expected exit %d, got %d", workflow.ExitLoad, code)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no workbook left behind, stat err=%v", err)
	}
	if config.GetDB() != nil {
		t.Fatalf("database must not be left open")
	}
}
