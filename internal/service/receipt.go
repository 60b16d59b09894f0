package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/analysis"
	"github.com/boddenberg/fintrack-go/internal/categorize"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var receiptTracer = otel.Tracer("service/receipt")

// MaxReceiptBytes bounds an uploaded receipt image.
const MaxReceiptBytes = 10 << 20

const receiptPrompt = `You read shop receipts. Extract the purchase from the attached image and answer with ONLY a JSON object:
{"merchant": string, "amount": number (the total paid), "date": "YYYY-MM-DD", "category": string, "items": [{"name": string, "amount": number}]}
Use null for anything you cannot read.`

var receiptMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
}

// ReceiptService turns receipt photos into transaction drafts.
type ReceiptService struct {
	llm         port.LLMGenerator
	categorizer *categorize.Categorizer
	defaultKey  string
	timeout     time.Duration
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewReceiptService creates a new receipt service.
func NewReceiptService(llm port.LLMGenerator, categorizer *categorize.Categorizer, defaultKey string, timeout time.Duration, metrics *observability.Metrics, logger *zap.Logger) *ReceiptService {
	if timeout <= 0 {
		timeout = analysis.DefaultTimeout
	}
	return &ReceiptService{
		llm:         llm,
		categorizer: categorizer,
		defaultKey:  defaultKey,
		timeout:     timeout,
		metrics:     metrics,
		logger:      logger,
	}
}

type receiptAnswer struct {
	Merchant *string  `json:"merchant"`
	Amount   *float64 `json:"amount"`
	Date     *string  `json:"date"`
	Category *string  `json:"category"`
	Items    []struct {
		Name   *string  `json:"name"`
		Amount *float64 `json:"amount"`
	} `json:"items"`
}

// Extract reads image. Only an unsupported or empty upload is an error; when
// the model cannot be used the draft comes back with Extracted=false.
func (s *ReceiptService) Extract(ctx context.Context, image []byte, mimeType, apiKey string) (*domain.ReceiptDraft, error) {
	ctx, span := receiptTracer.Start(ctx, "ReceiptService.Extract")
	defer span.End()

	if len(image) == 0 {
		return nil, &domain.ErrValidation{Field: "receipt", Message: "image is empty"}
	}
	if len(image) > MaxReceiptBytes {
		return nil, &domain.ErrValidation{Field: "receipt", Message: "image is too large"}
	}
	mimeType = strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	if !receiptMIMETypes[mimeType] {
		return nil, &domain.ErrValidation{Field: "receipt", Message: "unsupported image type " + mimeType}
	}

	if apiKey == "" {
		apiKey = s.defaultKey
	}
	if apiKey == "" || s.llm == nil {
		return manualDraft("receipt reading is not configured, please fill in the transaction manually"), nil
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Generate(callCtx, apiKey, domain.LLMPrompt{Text: receiptPrompt, Image: image, MIMEType: mimeType})
	s.metrics.RecordRequestDuration("receipt_llm", time.Since(start))
	if err != nil {
		s.metrics.IncrExternalError("llm")
		s.logger.Warn("receipt extraction failed", zap.Error(err))
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return manualDraft("receipt reading timed out, please fill in the transaction manually"), nil
		}
		return manualDraft("receipt could not be read, please fill in the transaction manually"), nil
	}

	draft, err := s.parseDraft(text)
	if err != nil {
		s.logger.Warn("receipt answer unusable", zap.Error(err))
		return manualDraft("receipt could not be read, please fill in the transaction manually"), nil
	}
	return draft, nil
}

func (s *ReceiptService) parseDraft(text string) (*domain.ReceiptDraft, error) {
	raw, err := analysis.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var ans receiptAnswer
	if err := json.Unmarshal([]byte(raw), &ans); err != nil {
		return nil, err
	}
	if ans.Merchant == nil && ans.Amount == nil {
		return nil, errors.New("receipt answer has neither merchant nor amount")
	}

	draft := &domain.ReceiptDraft{Extracted: true, Amount: decimal.Zero}
	if ans.Merchant != nil {
		draft.Merchant = strings.TrimSpace(*ans.Merchant)
	}
	if ans.Amount != nil {
		draft.Amount = decimal.NewFromFloat(*ans.Amount).Abs().Round(2)
	}
	if ans.Date != nil {
		if d, err := time.Parse("2006-01-02", strings.TrimSpace(*ans.Date)); err == nil {
			draft.Date = &d
		}
	}
	if ans.Category != nil && categorize.IsKnownCategory(*ans.Category) {
		draft.Category = *ans.Category
	} else if draft.Merchant != "" {
		draft.Category = s.categorizer.Categorize(draft.Merchant, draft.Amount)
	}
	for _, it := range ans.Items {
		if it.Name == nil {
			continue
		}
		item := domain.ReceiptItem{Name: strings.TrimSpace(*it.Name), Amount: decimal.Zero}
		if it.Amount != nil {
			item.Amount = decimal.NewFromFloat(*it.Amount).Round(2)
		}
		draft.Items = append(draft.Items, item)
	}
	return draft, nil
}

func manualDraft(warning string) *domain.ReceiptDraft {
	return &domain.ReceiptDraft{Extracted: false, Amount: decimal.Zero, Warning: warning}
}
