package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Fraud analysis report
// ============================================================

// Risk levels used by analysis patterns.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
)

// Report sources.
const (
	AnalysisSourceLLM       = "llm"
	AnalysisSourceRuleBased = "rule_based"
)

// FraudPattern is a named suspicious pattern in a user's transactions.
type FraudPattern struct {
	Name                 string `json:"name"`
	Description          string `json:"description"`
	RiskLevel            string `json:"riskLevel"`
	AffectedTransactions int    `json:"affectedTransactions"`
}

// DebitCreditAnalysis is the deterministic breakdown of expense (debit) and
// income (credit) transactions.
type DebitCreditAnalysis struct {
	TotalDebits      decimal.Decimal            `json:"totalDebits"`
	TotalCredits     decimal.Decimal            `json:"totalCredits"`
	DebitCount       int                        `json:"debitCount"`
	CreditCount      int                        `json:"creditCount"`
	DebitCategories  map[string]decimal.Decimal `json:"debitCategories"`
	CreditCategories map[string]decimal.Decimal `json:"creditCategories"`
	LargestDebit     *Transaction               `json:"largestDebit,omitempty"`
	LargestCredit    *Transaction               `json:"largestCredit,omitempty"`
}

// FraudAnalysisResult is the user-facing fraud report.
type FraudAnalysisResult struct {
	Summary             string              `json:"summary"`
	FraudPatterns       []FraudPattern      `json:"fraudPatterns"`
	DebitCreditAnalysis DebitCreditAnalysis `json:"debitCreditAnalysis"`
	RiskAssessment      string              `json:"riskAssessment"`
	Recommendations     []string            `json:"recommendations"`
	OverallRiskScore    int                 `json:"overallRiskScore"`
	Source              string              `json:"source"`
	GeneratedAt         time.Time           `json:"generatedAt"`
}

// LLMPrompt is a text prompt with an optional image attachment sent to the
// generative model.
type LLMPrompt struct {
	Text     string
	Image    []byte
	MIMEType string
}
