// regflow-qc runs the QC procedure without loading anything. Use it after
// regflow-tick exited with status 5.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/models"
	"github.com/mmdatafocus/regflow/utils"
	"github.com/mmdatafocus/regflow/workflow"
	"github.com/shopspring/decimal"
)

func main() {
	logger := config.GetLogger()

	settings, err := config.LoadSettings()
	if err != nil {
		logger.WithError(err).Error("invalid loader settings")
		os.Exit(workflow.ExitFailure)
	}

	threshold := flag.String("threshold", settings.QCThresholdBp.String(), "Divergence threshold in bp")
	procedure := flag.String("procedure", settings.QCProcedure, "QC stored procedure")
	flag.Parse()

	thresholdBp, err := decimal.NewFromString(*threshold)
	if err != nil || thresholdBp.IsNegative() {
		logger.WithField("threshold", *threshold).Error("invalid -threshold")
		os.Exit(workflow.ExitFailure)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = utils.SetRunModeInContext(ctx, string(models.LoadRunModeQC))

	if err := config.ConnectDatabase(); err != nil {
		logger.WithError(err).Error("database connection failed")
		os.Exit(workflow.ExitLoad)
	}
	db := config.GetDB()

	runId, err := workflow.RunQCOnly(ctx, db, logger, workflow.NewProcedureQC(db, *procedure), thresholdBp)
	_ = config.CloseDatabase()
	if err != nil {
		logger.WithError(err).WithField("run_id", runId).Error("QC failed")
		os.Exit(workflow.ExitCode(err))
	}
}
