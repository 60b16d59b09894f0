package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/boddenberg/fintrack-go/internal/categorize"
	"github.com/boddenberg/fintrack-go/internal/domain"
)

func TestImportCSV_Rows(t *testing.T) {
	f := newFixture(t)

	csv := strings.Join([]string{
		"Date,Description,Amount,Category,Type",
		"2026-03-01,Whole Foods,-82.50,,",
		"2026-03-02,Payroll,5000,,income",
		"2026-03-03,Netflix,,,",
		"2026-03-04,Broken Row,abc,,",
		"not-a-date,Uber,12,,",
		"2026-03-05,,10,,",
		"2026-03-06,Lyft,9,Rides,bogus",
		"",
		"03/07/2026,\"Shell, Main St\",\"$1,200.00\",,expense",
	}, "\n")

	res, err := f.txs.ImportCSV(context.Background(), f.userID, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if res.Imported != 4 {
		t.Errorf("expected 4 imported rows, got %d", res.Imported)
	}
	if len(res.Rejected) != 4 {
		t.Fatalf("expected 4 rejected rows, got %d: %+v", len(res.Rejected), res.Rejected)
	}
	wantRows := []int{5, 6, 7, 8}
	for i, row := range wantRows {
		if res.Rejected[i].Row != row {
			t.Errorf("rejected[%d]: expected row %d, got %d (%s)", i, row, res.Rejected[i].Row, res.Rejected[i].Message)
		}
	}

	list, err := f.txs.List(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byMerchant := map[string]domain.Transaction{}
	for _, tx := range list {
		byMerchant[tx.Merchant] = tx
	}

	wf := byMerchant["Whole Foods"]
	if wf.Amount.String() != "82.5" || wf.Type != domain.TransactionExpense || wf.Category != categorize.Groceries {
		t.Errorf("unexpected Whole Foods row %+v", wf)
	}
	if byMerchant["Payroll"].Type != domain.TransactionIncome {
		t.Errorf("expected income type for Payroll, got %q", byMerchant["Payroll"].Type)
	}
	if !byMerchant["Netflix"].Amount.IsZero() {
		t.Errorf("expected missing amount to default to 0, got %s", byMerchant["Netflix"].Amount)
	}
	if byMerchant["Shell, Main St"].Amount.String() != "1200" {
		t.Errorf("expected 1200, got %s", byMerchant["Shell, Main St"].Amount)
	}

	if _, err := f.store.GetHealth(context.Background(), f.userID); err != nil {
		t.Errorf("expected health to be recalculated after import: %v", err)
	}
}

func TestImportCSV_MissingColumns(t *testing.T) {
	f := newFixture(t)

	_, err := f.txs.ImportCSV(context.Background(), f.userID, strings.NewReader("amount,type\n10,expense\n"))
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImportCSV_Empty(t *testing.T) {
	f := newFixture(t)

	_, err := f.txs.ImportCSV(context.Background(), f.userID, strings.NewReader(""))
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImportCSV_FlagsDuplicatesWithinFile(t *testing.T) {
	f := newFixture(t)

	csv := "date,merchant,amount\n2026-03-15 11:30:00,Vending,2\n2026-03-15 11:45:00,Vending,2\n"
	res, err := f.txs.ImportCSV(context.Background(), f.userID, strings.NewReader(csv))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 2 || res.Flagged != 1 {
		t.Errorf("expected 2 imported / 1 flagged, got %d / %d", res.Imported, res.Flagged)
	}
	if f.publisher.count() != 1 {
		t.Errorf("expected 1 event, got %d", f.publisher.count())
	}
}
