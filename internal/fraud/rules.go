// Package fraud scores a candidate transaction against the owner's recent
// history with a fixed table of heuristic rules.
package fraud

import (
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	LargeAmountThreshold       = 50_000
	ExtremeAmountThreshold     = 100_000
	NewMerchantAmountThreshold = 10_000
	DailyVelocityThreshold     = 20
	RapidVelocityThreshold     = 10
	DuplicateAmountTolerance   = 0.01
	DatasetMerchantRuleScore   = 60
	datasetMerchantRuleReason  = "merchant flagged high-risk in reference dataset"
	dailyWindow                = 24 * time.Hour
	rapidWindow                = 5 * time.Minute
	duplicateWindow            = time.Hour
)

var (
	largeAmount     = decimal.NewFromInt(LargeAmountThreshold)
	extremeAmount   = decimal.NewFromInt(ExtremeAmountThreshold)
	newMerchantAmt  = decimal.NewFromInt(NewMerchantAmountThreshold)
	duplicateTolAmt = decimal.NewFromFloat(DuplicateAmountTolerance)
)

// Input is what every rule sees. Now is the submission time; velocity and
// duplicate windows are measured from it, not from the candidate's own date.
type Input struct {
	Candidate domain.Transaction
	History   []domain.Transaction
	Now       time.Time
}

// Rule is a single heuristic. Detect reports whether the rule fires.
type Rule struct {
	Name   string
	Score  int
	Reason string
	Detect func(in Input) bool
}

// DefaultRules returns the rule table in evaluation order. Order matters only
// for tie-breaking: the first rule reaching the maximum score names the reason.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "large_amount",
			Score:  55,
			Reason: "unusually large transaction amount",
			Detect: func(in Input) bool {
				return in.Candidate.Amount.GreaterThan(largeAmount)
			},
		},
		{
			Name:   "extreme_amount",
			Score:  85,
			Reason: "extremely large transaction amount",
			Detect: func(in Input) bool {
				return in.Candidate.Amount.GreaterThan(extremeAmount)
			},
		},
		{
			Name:   "daily_velocity",
			Score:  70,
			Reason: "high transaction velocity",
			Detect: func(in Input) bool {
				return countSince(in.History, in.Now.Add(-dailyWindow)) >= DailyVelocityThreshold
			},
		},
		{
			Name:   "rapid_velocity",
			Score:  80,
			Reason: "multiple rapid transactions",
			Detect: func(in Input) bool {
				return countSince(in.History, in.Now.Add(-rapidWindow)) >= RapidVelocityThreshold
			},
		},
		{
			Name:   "new_merchant_large_amount",
			Score:  40,
			Reason: "first-time merchant with large amount",
			Detect: func(in Input) bool {
				if !in.Candidate.Amount.GreaterThan(newMerchantAmt) {
					return false
				}
				for _, tx := range in.History {
					if strings.EqualFold(tx.Merchant, in.Candidate.Merchant) {
						return false
					}
				}
				return true
			},
		},
		{
			Name:   "duplicate",
			Score:  90,
			Reason: "potential duplicate transaction",
			Detect: func(in Input) bool {
				since := in.Now.Add(-duplicateWindow)
				for _, tx := range in.History {
					if !strings.EqualFold(tx.Merchant, in.Candidate.Merchant) {
						continue
					}
					if !tx.Amount.Sub(in.Candidate.Amount).Abs().LessThan(duplicateTolAmt) {
						continue
					}
					if tx.Date.After(since) {
						return true
					}
				}
				return false
			},
		},
	}
}

// countSince counts transactions dated strictly after since. Future-dated
// entries are counted as well.
func countSince(txs []domain.Transaction, since time.Time) int {
	n := 0
	for _, tx := range txs {
		if tx.Date.After(since) {
			n++
		}
	}
	return n
}
