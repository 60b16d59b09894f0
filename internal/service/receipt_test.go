package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/fintrack-go/internal/categorize"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/service"

	"go.uber.org/zap"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func newReceipt(llm *mockLLM, key string) *service.ReceiptService {
	return service.NewReceiptService(llm, categorize.New(), key, time.Second, observability.NewMetrics(), zap.NewNop())
}

func TestExtract_Success(t *testing.T) {
	llm := &mockLLM{answer: `Here you go: {"merchant":"Trader Joe's","amount":23.456,"date":"2026-03-14","category":null,"items":[{"name":"Bananas","amount":1.99},{"name":null}]}`}
	svc := newReceipt(llm, "key")

	draft, err := svc.Extract(context.Background(), pngHeader, "image/png", "")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !draft.Extracted {
		t.Fatalf("expected extracted draft, got %+v", draft)
	}
	if draft.Merchant != "Trader Joe's" || draft.Amount.String() != "23.46" {
		t.Errorf("unexpected merchant/amount %q %s", draft.Merchant, draft.Amount)
	}
	if draft.Category != categorize.Groceries {
		t.Errorf("expected category from categorizer, got %q", draft.Category)
	}
	if draft.Date == nil || draft.Date.Day() != 14 {
		t.Errorf("unexpected date %v", draft.Date)
	}
	if len(draft.Items) != 1 || draft.Items[0].Name != "Bananas" {
		t.Errorf("unexpected items %+v", draft.Items)
	}

	if len(llm.prompts) != 1 || llm.prompts[0].MIMEType != "image/png" || len(llm.prompts[0].Image) == 0 {
		t.Errorf("expected image prompt, got %+v", llm.prompts)
	}
}

func TestExtract_FallsBackToManualDraft(t *testing.T) {
	tests := []struct {
		name string
		llm  *mockLLM
		key  string
	}{
		{"no key", &mockLLM{answer: `{"merchant":"x"}`}, ""},
		{"model error", &mockLLM{err: errors.New("boom")}, "key"},
		{"garbage answer", &mockLLM{answer: "I cannot read this"}, "key"},
		{"empty object", &mockLLM{answer: "{}"}, "key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := newReceipt(tt.llm, tt.key).Extract(context.Background(), pngHeader, "image/png", "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if draft.Extracted {
				t.Error("expected Extracted=false")
			}
			if draft.Warning == "" {
				t.Error("expected a warning")
			}
		})
	}
}

func TestExtract_RejectsBadUpload(t *testing.T) {
	svc := newReceipt(&mockLLM{}, "key")

	for name, in := range map[string]struct {
		data []byte
		mime string
	}{
		"empty":   {nil, "image/png"},
		"pdf":     {pngHeader, "application/pdf"},
		"too big": {make([]byte, service.MaxReceiptBytes+1), "image/jpeg"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Extract(context.Background(), in.data, in.mime, "")
			var verr *domain.ErrValidation
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
