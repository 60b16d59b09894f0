package fraud

import (
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
)

// PatternSource yields the current dataset snapshot, or nil when none was
// loaded.
type PatternSource interface {
	Load() *domain.DatasetPatterns
}

// Engine evaluates the rule table. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	rules []Rule
}

// Option configures an Engine.
type Option func(*Engine)

// WithDatasetPatterns appends a rule that fires when the candidate merchant
// matches a high-risk merchant mined from the reference dataset. The rule
// scores below domain.FraudThreshold, so it never produces a fraudulent
// verdict on its own.
func WithDatasetPatterns(src PatternSource) Option {
	return func(e *Engine) {
		if src == nil {
			return
		}
		e.rules = append(e.rules, Rule{
			Name:   "dataset_high_risk_merchant",
			Score:  DatasetMerchantRuleScore,
			Reason: datasetMerchantRuleReason,
			Detect: func(in Input) bool {
				patterns := src.Load()
				if patterns == nil {
					return false
				}
				merchant := strings.ToLower(strings.TrimSpace(in.Candidate.Merchant))
				if merchant == "" {
					return false
				}
				for _, m := range patterns.HighRiskMerchants {
					if strings.EqualFold(m, merchant) {
						return true
					}
				}
				return false
			},
		})
	}
}

// withRules replaces the default rule table.
func withRules(rules []Rule) Option {
	return func(e *Engine) {
		e.rules = rules
	}
}

// NewEngine creates an engine with the default rules.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{rules: DefaultRules()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Check scores candidate against the user's existing transactions. The final
// score is the maximum of the triggered rules, not their sum.
func (e *Engine) Check(candidate domain.Transaction, history []domain.Transaction, now time.Time) domain.FraudCheckResult {
	in := Input{Candidate: candidate, History: history, Now: now}

	result := domain.FraudCheckResult{TriggeredRules: []string{}}
	for _, rule := range e.rules {
		if !rule.Detect(in) {
			continue
		}
		result.TriggeredRules = append(result.TriggeredRules, rule.Name)
		if rule.Score > result.RiskScore {
			result.RiskScore = rule.Score
			result.Reason = rule.Reason
		}
	}
	result.IsFraudulent = result.RiskScore >= domain.FraudThreshold
	return result
}
