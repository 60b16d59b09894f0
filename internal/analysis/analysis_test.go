package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/fintrack-go/internal/analysis"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeLLM struct {
	text   string
	err    error
	block  bool
	calls  int
	prompt domain.LLMPrompt
}

func (f *fakeLLM) Generate(ctx context.Context, _ string, p domain.LLMPrompt) (string, error) {
	f.calls++
	f.prompt = p
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.text, f.err
}

type staticPatterns struct{ p *domain.DatasetPatterns }

func (s staticPatterns) Load() *domain.DatasetPatterns { return s.p }

func tx(typ domain.TransactionType, merchant, category string, amount string, age time.Duration) domain.Transaction {
	return domain.Transaction{
		ID:       fmt.Sprintf("%s-%s-%s", merchant, amount, age),
		UserID:   "u1",
		Type:     typ,
		Merchant: merchant,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Date:     now.Add(-age),
	}
}

func newOrchestrator(llm *fakeLLM, ds *domain.DatasetPatterns, opts ...analysis.Option) (*analysis.Orchestrator, *observability.Metrics) {
	m := observability.NewMetrics()
	opts = append(opts, analysis.WithClock(func() time.Time { return now }))
	var src analysis.PatternSource
	if ds != nil {
		src = staticPatterns{ds}
	}
	if llm == nil {
		return analysis.New(nil, src, m, zap.NewNop(), opts...), m
	}
	return analysis.New(llm, src, m, zap.NewNop(), opts...), m
}

func TestSummarizeDebitCredit(t *testing.T) {
	txs := []domain.Transaction{
		tx(domain.TransactionExpense, "Shop A", "Shopping", "300", time.Hour),
		tx(domain.TransactionExpense, "Shop B", "Shopping", "300", 2*time.Hour),
		tx(domain.TransactionExpense, "Cafe", "Food & Dining", "12.50", 3*time.Hour),
		tx(domain.TransactionIncome, "Employer", "Salary", "2500", 4*time.Hour),
		tx(domain.TransactionTransfer, "Savings", "Transfer", "9999", 5*time.Hour),
	}

	dc := analysis.SummarizeDebitCredit(txs)

	assert.True(t, dc.TotalDebits.Equal(decimal.RequireFromString("612.50")))
	assert.True(t, dc.TotalCredits.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, 3, dc.DebitCount)
	assert.Equal(t, 1, dc.CreditCount)
	assert.True(t, dc.DebitCategories["Shopping"].Equal(decimal.NewFromInt(600)))
	assert.True(t, dc.CreditCategories["Salary"].Equal(decimal.NewFromInt(2500)))
	require.NotNil(t, dc.LargestDebit)
	assert.Equal(t, "Shop A", dc.LargestDebit.Merchant, "ties keep the first transaction")
	require.NotNil(t, dc.LargestCredit)
	assert.Equal(t, "Employer", dc.LargestCredit.Merchant)
}

func TestAnalyze_EmptyListWithoutKey(t *testing.T) {
	o, _ := newOrchestrator(nil, &domain.DatasetPatterns{
		Patterns:          []domain.DatasetPattern{{Pattern: "device:mobile", RiskScore: 90}},
		HighRiskMerchants: []string{"scam.com"},
	})

	res := o.Analyze(context.Background(), nil, "")

	require.NotNil(t, res)
	assert.Equal(t, domain.AnalysisSourceRuleBased, res.Source)
	assert.NotNil(t, res.FraudPatterns)
	assert.Empty(t, res.FraudPatterns)
	assert.Equal(t, 0, res.OverallRiskScore)
	assert.True(t, res.DebitCreditAnalysis.TotalDebits.IsZero())
	assert.True(t, res.DebitCreditAnalysis.TotalCredits.IsZero())
	assert.Len(t, res.Recommendations, 5)
	assert.NotEmpty(t, res.Summary)
	assert.NotEmpty(t, res.RiskAssessment)
	assert.Equal(t, now, res.GeneratedAt)
}

func TestRuleBased_Patterns(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 16; i++ {
		txs = append(txs, tx(domain.TransactionExpense, fmt.Sprintf("Store %d", i), "Shopping", "20", time.Duration(i+1)*time.Minute))
	}
	txs = append(txs,
		tx(domain.TransactionExpense, "Gym", "Entertainment", "480", 48*time.Hour),
		tx(domain.TransactionExpense, "GYM", "Entertainment", "520", 72*time.Hour),
		tx(domain.TransactionExpense, "gym", "Entertainment", "510", 96*time.Hour),
		tx(domain.TransactionExpense, "Jeweller", "Shopping", "75000", 100*time.Hour),
	)

	patterns := analysis.DetectPatterns(txs, nil, now)

	byName := map[string]domain.FraudPattern{}
	for _, p := range patterns {
		byName[p.Name] = p
	}
	require.Contains(t, byName, "High transaction velocity")
	assert.Equal(t, 16, byName["High transaction velocity"].AffectedTransactions)
	assert.Equal(t, domain.RiskHigh, byName["High transaction velocity"].RiskLevel)

	require.Contains(t, byName, "Large transactions")
	assert.Equal(t, domain.RiskMedium, byName["Large transactions"].RiskLevel)

	require.Contains(t, byName, "Repeated transactions: Gym")
	assert.Equal(t, 3, byName["Repeated transactions: Gym"].AffectedTransactions)
	assert.Equal(t, domain.RiskMedium, byName["Repeated transactions: Gym"].RiskLevel)

	assert.NotContains(t, byName, "Previously flagged transactions")
}

func TestRuleBased_VelocityNeedsMoreThanFifteen(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 15; i++ {
		txs = append(txs, tx(domain.TransactionExpense, fmt.Sprintf("Store %d", i), "Shopping", "20", time.Minute))
	}
	for _, p := range analysis.DetectPatterns(txs, nil, now) {
		assert.NotEqual(t, "High transaction velocity", p.Name)
	}
}

func TestRuleBased_EscalatedLevels(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 4; i++ {
		txs = append(txs, tx(domain.TransactionExpense, fmt.Sprintf("Dealer %d", i), "Shopping", "60000", time.Duration(i+1)*48*time.Hour))
	}
	for i := 0; i < 6; i++ {
		txs = append(txs, tx(domain.TransactionExpense, "Netflix", "Entertainment", "15.99", time.Duration(i+1)*30*24*time.Hour))
	}
	flagged := tx(domain.TransactionExpense, "Unknown", "Other", "10", 200*time.Hour)
	flagged.IsFraudulent = true
	txs = append(txs, flagged)

	byName := map[string]domain.FraudPattern{}
	for _, p := range analysis.DetectPatterns(txs, nil, now) {
		byName[p.Name] = p
	}
	assert.Equal(t, domain.RiskHigh, byName["Large transactions"].RiskLevel)
	assert.Equal(t, domain.RiskHigh, byName["Repeated transactions: Netflix"].RiskLevel)
	assert.Equal(t, domain.RiskCritical, byName["Previously flagged transactions"].RiskLevel)
	assert.Equal(t, 1, byName["Previously flagged transactions"].AffectedTransactions)
}

func TestRuleBased_DatasetPatterns(t *testing.T) {
	ds := &domain.DatasetPatterns{HighRiskMerchants: []string{"anonymous.com"}}
	scores := []int{95, 71, 70, 51, 31, 30, 10}
	for i, s := range scores {
		ds.Patterns = append(ds.Patterns, domain.DatasetPattern{Pattern: fmt.Sprintf("product:%d", i), RiskScore: s})
	}
	txs := []domain.Transaction{
		tx(domain.TransactionExpense, "Payment via ANONYMOUS.COM", "Other", "40", 72*time.Hour),
	}

	patterns := analysis.DetectPatterns(txs, ds, now)

	require.Len(t, patterns, 6)
	wantLevels := []string{domain.RiskCritical, domain.RiskCritical, domain.RiskHigh, domain.RiskHigh, domain.RiskMedium}
	for i, want := range wantLevels {
		assert.Equal(t, want, patterns[i].RiskLevel, patterns[i].Name)
		assert.True(t, strings.HasPrefix(patterns[i].Name, "Dataset pattern: "))
	}
	assert.Equal(t, "High-risk merchants", patterns[5].Name)
	assert.Equal(t, domain.RiskHigh, patterns[5].RiskLevel)
}

func TestOverallRiskScore(t *testing.T) {
	flagged := tx(domain.TransactionExpense, "Unknown", "Other", "100", 200*time.Hour)
	flagged.IsFraudulent = true
	txs := []domain.Transaction{
		flagged,
		tx(domain.TransactionIncome, "Employer", "Salary", "100", 300*time.Hour),
		tx(domain.TransactionIncome, "Client", "Salary", "100", 400*time.Hour),
	}
	dc := analysis.SummarizeDebitCredit(txs)
	res := analysis.RuleBased(txs, dc, nil, now)

	// 0.40*100 + 0.35*33.3 + 0.25*33.3
	assert.Equal(t, 60, res.OverallRiskScore)
	assert.Len(t, res.Recommendations, 5)
}

func TestOverallRiskScore_UrgentRecommendation(t *testing.T) {
	flagged := tx(domain.TransactionExpense, "Unknown", "Other", "100", time.Hour)
	flagged.IsFraudulent = true
	txs := []domain.Transaction{flagged}

	res := analysis.RuleBased(txs, analysis.SummarizeDebitCredit(txs), nil, now)

	assert.Equal(t, 100, res.OverallRiskScore)
	assert.Len(t, res.Recommendations, 6)
}

func TestAnalyze_UsesModelWhenKeyGiven(t *testing.T) {
	llm := &fakeLLM{text: "Here you go:\n```json\n{\"summary\":\"Looks fine\",\"fraudPatterns\":[{\"name\":\"Odd hours\",\"riskLevel\":\"HIGH\",\"affectedTransactions\":2}],\"overallRiskScore\":42.4}\n```"}
	o, m := newOrchestrator(llm, nil)
	txs := []domain.Transaction{tx(domain.TransactionExpense, "Cafe", "Food & Dining", "5", time.Hour)}

	res := o.Analyze(context.Background(), txs, "secret")

	require.Equal(t, 1, llm.calls)
	assert.Contains(t, llm.prompt.Text, "Cafe")
	assert.Equal(t, domain.AnalysisSourceLLM, res.Source)
	assert.Equal(t, "Looks fine", res.Summary)
	require.Len(t, res.FraudPatterns, 1)
	assert.Equal(t, domain.RiskHigh, res.FraudPatterns[0].RiskLevel)
	assert.Equal(t, 2, res.FraudPatterns[0].AffectedTransactions)
	assert.Equal(t, 42, res.OverallRiskScore)
	assert.Len(t, res.Recommendations, 5, "missing recommendations are defaulted")
	assert.NotEmpty(t, res.RiskAssessment)
	assert.Equal(t, int64(1), m.GetFraudSnapshot().LLMReports)
}

func TestAnalyze_FallsBackOnModelFailure(t *testing.T) {
	txs := []domain.Transaction{tx(domain.TransactionExpense, "Cafe", "Food & Dining", "5", time.Hour)}

	cases := map[string]*fakeLLM{
		"transport error": {err: errors.New("connection refused")},
		"not json":        {text: "I cannot help with that."},
		"empty object":    {text: "{}"},
		"broken json":     {text: "{\"summary\": "},
	}
	for name, llm := range cases {
		t.Run(name, func(t *testing.T) {
			o, m := newOrchestrator(llm, nil)
			res := o.Analyze(context.Background(), txs, "secret")
			assert.Equal(t, domain.AnalysisSourceRuleBased, res.Source)
			snap := m.GetFraudSnapshot()
			assert.Equal(t, int64(1), snap.ExternalLLMErrors)
			assert.Equal(t, 1.0, snap.FallbackRate)
		})
	}
}

func TestAnalyze_TimeoutFallsBack(t *testing.T) {
	llm := &fakeLLM{block: true}
	o, _ := newOrchestrator(llm, nil, analysis.WithTimeout(10*time.Millisecond))

	res := o.Analyze(context.Background(), nil, "secret")

	assert.Equal(t, domain.AnalysisSourceRuleBased, res.Source)
}

func TestAnalyze_NoKeySkipsModel(t *testing.T) {
	llm := &fakeLLM{text: "{\"summary\":\"x\"}"}
	o, _ := newOrchestrator(llm, nil)

	res := o.Analyze(context.Background(), nil, "")

	assert.Equal(t, 0, llm.calls)
	assert.Equal(t, domain.AnalysisSourceRuleBased, res.Source)
}

func TestBuildPrompt_CapsTransactions(t *testing.T) {
	var txs []domain.Transaction
	for i := 0; i < 60; i++ {
		txs = append(txs, tx(domain.TransactionExpense, fmt.Sprintf("Merchant-%02d", i), "Other", "1", time.Duration(i)*time.Hour))
	}

	prompt, err := analysis.BuildPrompt(txs, analysis.SummarizeDebitCredit(txs))

	require.NoError(t, err)
	assert.Contains(t, prompt, "Transactions (50 of 60)")
	assert.Contains(t, prompt, "Merchant-49")
	assert.NotContains(t, prompt, "Merchant-50")
	assert.Contains(t, prompt, "60.00")
}
