package workflow

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/mmdatafocus/regflow/config"
	"github.com/mmdatafocus/regflow/generator"
	"github.com/mmdatafocus/regflow/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var seedStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase(sqlite.Open(":memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	// one connection: every :memory: connection is its own database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("MigrateTable: %v", err)
	}
	return db
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func seedCatalog(t *testing.T, db *gorm.DB, funds, months int, anomalies []generator.Anomaly) BulkResult {
	t.Helper()
	b := &BulkInitializer{
		DB:        db,
		Logger:    newTestLogger(),
		Generator: generator.New(17),
		Params: generator.BulkParams{
			Funds:      funds,
			Months:     months,
			StartMonth: seedStart,
			Anomalies:  anomalies,
		},
		BatchSize: 50,
	}
	res, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("BulkInitializer.Run: %v", err)
	}
	return res
}

// recordingQC stands in for the stored procedure and records what it could see when called.
type recordingQC struct {
	db        *gorm.DB
	calls     int
	threshold decimal.Decimal
	factsSeen int64
	err       error
}

func (q *recordingQC) RunQC(ctx context.Context, thresholdBp decimal.Decimal) error {
	q.calls++
	q.threshold = thresholdBp
	if q.db != nil {
		if err := q.db.WithContext(ctx).Model(&models.FactCost{}).Count(&q.factsSeen).Error; err != nil {
			return err
		}
	}
	return q.err
}

func (q *recordingQC) String() string { return "recording_qc" }

// tickingClock advances one second per call.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fakeLocker struct {
	err      error
	acquired int
	released int
}

func (l *fakeLocker) Acquire(ctx context.Context, name string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() { l.released++ }, nil
}

type fakeNotifier struct {
	msgs []config.LoadEventMessage
	err  error
}

func (n *fakeNotifier) NotifyRun(ctx context.Context, msg config.LoadEventMessage) error {
	n.msgs = append(n.msgs, msg)
	return n.err
}

var errBoom = errors.New("boom")
