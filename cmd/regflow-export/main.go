// regflow-export writes the cost ledger for a month range to an xlsx workbook, one row
// per fact, with rows above the QC threshold marked.
//
// Usage:
//
//	go run ./cmd/regflow-export -from=2023-01 -to=2024-12 -out=ledger.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/mmdatafocus/regflow/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := config.GetLogger()

	now := utils.MonthStart(time.Now().UTC())
	from := flag.String("from", utils.FormatPeriod(now.AddDate(0, -11, 0)), "First month (YYYY-MM)")
	to := flag.String("to", utils.FormatPeriod(now), "Last month (YYYY-MM)")
	out := flag.String("out", "cost_ledger.xlsx", "Output workbook path")
	threshold := flag.String("threshold", "", "Flag threshold in bp (default QC_THRESHOLD_BP)")
	flag.Parse()

	fromMonth, err := utils.ParsePeriod(*from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from %q: %v\n", *from, err)
		os.Exit(workflow.ExitFailure)
	}
	toMonth, err := utils.ParsePeriod(*to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -to %q: %v\n", *to, err)
		os.Exit(workflow.ExitFailure)
	}
	thresholdBp := config.DefaultQCThresholdBp
	if *threshold != "" {
		thresholdBp, err = decimal.NewFromString(*threshold)
	} else if settings, serr := config.LoadSettings(); serr == nil {
		thresholdBp = settings.QCThresholdBp
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -threshold %q: %v\n", *threshold, err)
		os.Exit(workflow.ExitFailure)
	}

	os.Exit(run(logger, fromMonth, toMonth, thresholdBp, *out))
}

func run(logger *logrus.Logger, from, to time.Time, thresholdBp decimal.Decimal, out string) int {
	f, err := os.Create(out)
	if err != nil {
		logger.WithError(err).WithField("out", out).Error("cannot create workbook")
		return workflow.ExitFailure
	}

	if err := config.ConnectDatabase(); err != nil {
		logger.WithError(err).Error("database connection failed")
		_ = f.Close()
		_ = os.Remove(out)
		return workflow.ExitLoad
	}
	defer func() { _ = config.CloseDatabase() }()

	n, err := workflow.ExportCostLedger(context.Background(), config.GetDB(), from, to, thresholdBp, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.WithError(err).Error("export failed")
		return workflow.ExitCode(err)
	}
	logger.WithFields(logrus.Fields{"rows": n, "out": out}).Info("cost ledger exported")
	return workflow.ExitOK
}
