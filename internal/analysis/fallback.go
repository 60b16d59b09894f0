package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Thresholds of the rule-based report.
const (
	maxDatasetPatterns    = 5
	velocityThreshold     = 15
	velocityWindow        = 24 * time.Hour
	largeAmountThreshold  = 50000
	largeHighCount        = 3
	repeatedMinMembers    = 3
	repeatedHighMembers   = 6
	highRiskRecommendAt   = 70
	repeatedRoundingPlace = -2
)

var riskWeights = map[string]float64{
	domain.RiskCritical: 100,
	domain.RiskHigh:     70,
	domain.RiskMedium:   50,
	domain.RiskLow:      20,
}

var baseRecommendations = []string{
	"Review your transactions regularly and report anything you do not recognize.",
	"Enable real-time transaction alerts with your bank or card issuer.",
	"Use strong, unique passwords and two-factor authentication on financial accounts.",
	"Verify merchants before making large or first-time payments.",
	"Keep receipts and reconcile them against your statements every month.",
}

const urgentRecommendation = "Contact your bank right away to review the suspicious activity and consider freezing affected cards."

// RuleBased builds the deterministic report used when no model is available.
func RuleBased(txs []domain.Transaction, dc domain.DebitCreditAnalysis, ds *domain.DatasetPatterns, now time.Time) *domain.FraudAnalysisResult {
	patterns := DetectPatterns(txs, ds, now)
	overall := OverallRiskScore(patterns, txs, dc)

	recs := append([]string(nil), baseRecommendations...)
	if overall >= highRiskRecommendAt {
		recs = append(recs, urgentRecommendation)
	}

	return &domain.FraudAnalysisResult{
		Summary:             summarize(txs, dc, patterns),
		FraudPatterns:       patterns,
		DebitCreditAnalysis: dc,
		RiskAssessment:      assess(overall),
		Recommendations:     recs,
		OverallRiskScore:    overall,
		Source:              domain.AnalysisSourceRuleBased,
		GeneratedAt:         now,
	}
}

// DetectPatterns runs the heuristic pattern checks. The result is never nil.
func DetectPatterns(txs []domain.Transaction, ds *domain.DatasetPatterns, now time.Time) []domain.FraudPattern {
	patterns := []domain.FraudPattern{}

	if ds != nil && len(txs) > 0 {
		for i, p := range ds.Patterns {
			if i == maxDatasetPatterns {
				break
			}
			desc := p.Description
			if desc == "" {
				desc = fmt.Sprintf("%.2f%% fraud rate in the reference dataset", p.FraudRate)
			}
			patterns = append(patterns, domain.FraudPattern{
				Name:        "Dataset pattern: " + p.Pattern,
				Description: desc,
				RiskLevel:   riskLevelForScore(p.RiskScore),
			})
		}
	}

	if ds != nil && len(ds.HighRiskMerchants) > 0 {
		if n := countHighRiskMerchants(txs, ds.HighRiskMerchants); n > 0 {
			patterns = append(patterns, domain.FraudPattern{
				Name:                 "High-risk merchants",
				Description:          fmt.Sprintf("%d transaction(s) with merchants that show elevated fraud rates in the reference dataset", n),
				RiskLevel:            domain.RiskHigh,
				AffectedTransactions: n,
			})
		}
	}

	since := now.Add(-velocityWindow)
	recent := 0
	for _, tx := range txs {
		if tx.Date.After(since) {
			recent++
		}
	}
	if recent > velocityThreshold {
		patterns = append(patterns, domain.FraudPattern{
			Name:                 "High transaction velocity",
			Description:          fmt.Sprintf("%d transactions in the last 24 hours", recent),
			RiskLevel:            domain.RiskHigh,
			AffectedTransactions: recent,
		})
	}

	large := decimal.NewFromInt(largeAmountThreshold)
	largeCount := 0
	for _, tx := range txs {
		if tx.Amount.GreaterThan(large) {
			largeCount++
		}
	}
	if largeCount > 0 {
		level := domain.RiskMedium
		if largeCount > largeHighCount {
			level = domain.RiskHigh
		}
		patterns = append(patterns, domain.FraudPattern{
			Name:                 "Large transactions",
			Description:          fmt.Sprintf("%d transaction(s) above %s", largeCount, large.String()),
			RiskLevel:            level,
			AffectedTransactions: largeCount,
		})
	}

	patterns = append(patterns, repeatedPatterns(txs)...)

	flagged := 0
	for _, tx := range txs {
		if tx.IsFraudulent {
			flagged++
		}
	}
	if flagged > 0 {
		patterns = append(patterns, domain.FraudPattern{
			Name:                 "Previously flagged transactions",
			Description:          fmt.Sprintf("%d transaction(s) already marked as fraudulent", flagged),
			RiskLevel:            domain.RiskCritical,
			AffectedTransactions: flagged,
		})
	}

	return patterns
}

type repeatGroup struct {
	merchant string
	amount   decimal.Decimal
	count    int
}

// repeatedPatterns groups by merchant and amount rounded to the nearest 100,
// in order of first appearance.
func repeatedPatterns(txs []domain.Transaction) []domain.FraudPattern {
	groups := map[string]*repeatGroup{}
	var order []string
	for _, tx := range txs {
		rounded := tx.Amount.Round(repeatedRoundingPlace)
		key := strings.ToLower(strings.TrimSpace(tx.Merchant)) + "|" + rounded.String()
		g, ok := groups[key]
		if !ok {
			g = &repeatGroup{merchant: tx.Merchant, amount: rounded}
			groups[key] = g
			order = append(order, key)
		}
		g.count++
	}

	var out []domain.FraudPattern
	for _, key := range order {
		g := groups[key]
		if g.count < repeatedMinMembers {
			continue
		}
		level := domain.RiskMedium
		if g.count >= repeatedHighMembers {
			level = domain.RiskHigh
		}
		out = append(out, domain.FraudPattern{
			Name:                 "Repeated transactions: " + g.merchant,
			Description:          fmt.Sprintf("%d transactions of about %s at %s", g.count, g.amount.String(), g.merchant),
			RiskLevel:            level,
			AffectedTransactions: g.count,
		})
	}
	return out
}

func countHighRiskMerchants(txs []domain.Transaction, merchants []string) int {
	n := 0
	for _, tx := range txs {
		m := strings.ToLower(tx.Merchant)
		if m == "" {
			continue
		}
		for _, risky := range merchants {
			risky = strings.ToLower(strings.TrimSpace(risky))
			if risky != "" && strings.Contains(m, risky) {
				n++
				break
			}
		}
	}
	return n
}

func riskLevelForScore(score int) string {
	switch {
	case score > 70:
		return domain.RiskCritical
	case score > 50:
		return domain.RiskHigh
	case score > 30:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// OverallRiskScore blends pattern severity (40%), the share of flagged
// transactions (35%) and the debit/credit imbalance (25%). A term whose
// denominator is zero contributes nothing.
func OverallRiskScore(patterns []domain.FraudPattern, txs []domain.Transaction, dc domain.DebitCreditAnalysis) int {
	var severity float64
	if len(patterns) > 0 {
		var sum float64
		for _, p := range patterns {
			sum += riskWeights[p.RiskLevel]
		}
		severity = sum / float64(len(patterns))
	}

	var flaggedPct float64
	if len(txs) > 0 {
		flagged := 0
		for _, tx := range txs {
			if tx.IsFraudulent {
				flagged++
			}
		}
		flaggedPct = float64(flagged) / float64(len(txs)) * 100
	}

	var imbalancePct float64
	total := dc.TotalDebits.Add(dc.TotalCredits)
	if total.IsPositive() {
		imbalancePct = dc.TotalDebits.Sub(dc.TotalCredits).Abs().Div(total).InexactFloat64() * 100
	}

	score := math.Round(0.40*severity + 0.35*flaggedPct + 0.25*imbalancePct)
	return int(math.Max(0, math.Min(100, score)))
}

func summarize(txs []domain.Transaction, dc domain.DebitCreditAnalysis, patterns []domain.FraudPattern) string {
	if len(txs) == 0 {
		return "No transactions to analyze."
	}
	return fmt.Sprintf(
		"Analyzed %d transactions: %d debits totalling %s and %d credits totalling %s. %d suspicious pattern(s) detected.",
		len(txs), dc.DebitCount, dc.TotalDebits.StringFixed(2), dc.CreditCount, dc.TotalCredits.StringFixed(2), len(patterns),
	)
}

func assess(overall int) string {
	switch {
	case overall >= 70:
		return "High risk: several indicators point to possible fraud. Review the listed patterns immediately."
	case overall >= 40:
		return "Moderate risk: some activity deserves a closer look."
	default:
		return "Low risk: no significant fraud indicators found."
	}
}
