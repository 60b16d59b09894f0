package domain

import "time"

// ============================================================
// Fraud checks
// ============================================================

// FraudThreshold is the minimum risk score for a fraudulent verdict.
const FraudThreshold = 85

// FraudCheckResult is the verdict of the rule engine for one candidate
// transaction. It is never persisted.
type FraudCheckResult struct {
	IsFraudulent bool   `json:"isFraudulent"`
	Reason       string `json:"reason,omitempty"`
	RiskScore    int    `json:"riskScore"`
	// TriggeredRules names every rule that fired, in table order.
	TriggeredRules []string `json:"triggeredRules"`
}

// FraudCheckRequest is the body of POST /v1/fraud/check.
type FraudCheckRequest = CreateTransactionRequest

// ============================================================
// Dataset patterns
// ============================================================

// DatasetPattern is a mined feature bucket with its fraud statistics.
type DatasetPattern struct {
	Pattern     string  `json:"pattern"`
	Frequency   int     `json:"frequency"`
	FraudCount  int     `json:"fraudCount"`
	FraudRate   float64 `json:"fraudRate"`
	RiskScore   int     `json:"riskScore"`
	Description string  `json:"description"`
}

// DatasetStats is the result of mining a labelled dataset.
type DatasetStats struct {
	TotalTransactions     int              `json:"totalTransactions"`
	FraudCount            int              `json:"fraudCount"`
	FraudPercentage       float64          `json:"fraudPercentage"`
	AvgAmount             float64          `json:"avgAmount"`
	AvgFraudAmount        float64          `json:"avgFraudAmount"`
	Patterns              []DatasetPattern `json:"patterns"`
	HighRiskMerchants     []string         `json:"highRiskMerchants"`
	CommonFraudIndicators []string         `json:"commonFraudIndicators"`
}

// DatasetInsights is the full-dataset variant: top patterns ranked by raw
// fraud rate instead of the scaled risk score.
type DatasetInsights struct {
	TotalTransactions int              `json:"totalTransactions"`
	FraudCount        int              `json:"fraudCount"`
	FraudPercentage   float64          `json:"fraudPercentage"`
	TopPatterns       []DatasetPattern `json:"topPatterns"`
	HighRiskMerchants []string         `json:"highRiskMerchants"`
}

// DatasetPatterns is the process-wide snapshot consumed by the fraud engine and
// the analysis fallback.
type DatasetPatterns struct {
	Patterns                  []DatasetPattern `json:"patterns"`
	TotalTransactionsAnalyzed int              `json:"totalTransactionsAnalyzed"`
	FraudPercentage           float64          `json:"fraudPercentage"`
	HighRiskMerchants         []string         `json:"highRiskMerchants"`
	CommonFraudIndicators     []string         `json:"commonFraudIndicators"`
	LastUpdated               time.Time        `json:"lastUpdated"`
	Source                    string           `json:"source,omitempty"`
}
