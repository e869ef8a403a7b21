package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/regflow/generator"
	"github.com/mmdatafocus/regflow/models"
)

func TestLoadFundKeysTrimsFixedWidthPadding(t *testing.T) {
	db := newTestDB(t)
	funds := []models.Fund{
		{Isin: "CH10000000  ", FundName: "Padded AG", InceptionDate: generator.DefaultInceptionDate},
		{Isin: "CH10000001", FundName: "Plain SA", InceptionDate: generator.DefaultInceptionDate},
	}
	if err := db.Create(&funds).Error; err != nil {
		t.Fatalf("seed funds: %v", err)
	}

	keys, err := ResolveFundKeys(context.Background(), db, []string{"CH10000000", "CH10000001"})
	if err != nil {
		t.Fatalf("ResolveFundKeys: %v", err)
	}
	if keys["CH10000000"] != funds[0].ID || keys["CH10000001"] != funds[1].ID {
		t.Fatalf("unexpected mapping %v (ids %d, %d)", keys, funds[0].ID, funds[1].ID)
	}
	if _, ok := keys["CH10000000  "]; ok {
		t.Fatalf("padded key must not survive resolution")
	}
}

func TestResolveFundKeysReportsMissing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&models.Fund{Isin: "CH10000000", FundName: "Only AG", InceptionDate: generator.DefaultInceptionDate}).Error; err != nil {
		t.Fatalf("seed fund: %v", err)
	}

	_, err := ResolveFundKeys(context.Background(), db, []string{"CH10000000", "CH10000009", "CH10000008", "CH10000009"})
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if len(resErr.Missing) != 2 || resErr.Missing[0] != "CH10000008" || resErr.Missing[1] != "CH10000009" {
		t.Fatalf("unexpected missing keys %v", resErr.Missing)
	}
}

func TestSortedIsins(t *testing.T) {
	got := SortedIsins(map[string]int{"CH10000002": 3, "CH10000000": 1, "CH10000001": 2})
	want := []string{"CH10000000", "CH10000001", "CH10000002"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
