// Package dataset mines per-feature fraud statistics from a labelled bulk
// transaction dataset. The resulting snapshot seeds the fraud heuristics and
// the rule-based analysis report.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"
)

const (
	// MaxRecords bounds the work done per dataset. Records past it are
	// ignored, not sampled.
	MaxRecords = 50_000

	topPatterns         = 15
	topInsightPatterns  = 10
	highRiskMerchantPct = 5.0
	indicatorMinScore   = 40
)

type counter struct {
	frequency int
	fraud     int
}

func (c *counter) rate() float64 {
	if c.frequency == 0 {
		return 0
	}
	return float64(c.fraud) / float64(c.frequency) * 100
}

type tally struct {
	total       int
	fraud       int
	amount      float64
	fraudAmount float64
	keys        map[string]*counter
	merchants   map[string]*counter
}

// Miner turns CSV records into pattern statistics.
type Miner struct {
	schema Schema
	limit  int
}

// NewMiner returns a miner for the given schema capped at MaxRecords.
func NewMiner(schema Schema) *Miner {
	return &Miner{schema: schema, limit: MaxRecords}
}

// ProcessDataset mines r with DefaultSchema.
func ProcessDataset(r io.Reader) (*domain.DatasetStats, error) {
	return NewMiner(DefaultSchema).Process(r)
}

// FullDatasetInsights mines r with DefaultSchema, ranking by raw fraud rate.
func FullDatasetInsights(r io.Reader) (*domain.DatasetInsights, error) {
	return NewMiner(DefaultSchema).Insights(r)
}

// Process returns the top patterns ranked by risk score
// (min(100, round(rate*2))).
func (m *Miner) Process(r io.Reader) (*domain.DatasetStats, error) {
	t, err := m.mine(r)
	if err != nil {
		return nil, err
	}

	patterns := t.patterns()
	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].RiskScore != patterns[j].RiskScore {
			return patterns[i].RiskScore > patterns[j].RiskScore
		}
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		return patterns[i].Pattern < patterns[j].Pattern
	})
	if len(patterns) > topPatterns {
		patterns = patterns[:topPatterns]
	}

	indicators := make([]string, 0)
	for _, p := range patterns {
		if p.RiskScore > indicatorMinScore {
			indicators = append(indicators, p.Pattern)
		}
	}

	stats := &domain.DatasetStats{
		TotalTransactions:     t.total,
		FraudCount:            t.fraud,
		FraudPercentage:       percent(t.fraud, t.total),
		Patterns:              patterns,
		HighRiskMerchants:     t.highRiskMerchants(),
		CommonFraudIndicators: indicators,
	}
	if t.total > 0 {
		stats.AvgAmount = round2(t.amount / float64(t.total))
	}
	if t.fraud > 0 {
		stats.AvgFraudAmount = round2(t.fraudAmount / float64(t.fraud))
	}
	return stats, nil
}

// Insights returns the top patterns ranked by raw fraud rate. It is kept
// separate from Process because its consumers compare rates across uploads,
// while the cached snapshot compares scaled scores.
func (m *Miner) Insights(r io.Reader) (*domain.DatasetInsights, error) {
	t, err := m.mine(r)
	if err != nil {
		return nil, err
	}

	type ranked struct {
		p    domain.DatasetPattern
		rate float64
	}
	var all []ranked
	for key, c := range t.keys {
		if c.fraud == 0 {
			continue
		}
		all = append(all, ranked{p: toPattern(key, c), rate: c.rate()})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].rate != all[j].rate {
			return all[i].rate > all[j].rate
		}
		return all[i].p.Pattern < all[j].p.Pattern
	})
	if len(all) > topInsightPatterns {
		all = all[:topInsightPatterns]
	}

	top := make([]domain.DatasetPattern, 0, len(all))
	for _, r := range all {
		top = append(top, r.p)
	}
	return &domain.DatasetInsights{
		TotalTransactions: t.total,
		FraudCount:        t.fraud,
		FraudPercentage:   percent(t.fraud, t.total),
		TopPatterns:       top,
		HighRiskMerchants: t.highRiskMerchants(),
	}, nil
}

func (m *Miner) mine(r io.Reader) (*tally, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset is empty")
		}
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	cols, err := m.schema.resolve(header)
	if err != nil {
		return nil, err
	}

	t := &tally{
		keys:      make(map[string]*counter),
		merchants: make(map[string]*counter),
	}
	for t.total < m.limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset record %d: %w", t.total+1, err)
		}
		t.add(record, cols)
	}
	return t, nil
}

func (t *tally) add(record []string, cols columns) {
	isFraud := parseLabel(field(record, cols.fraud))
	amount, _ := strconv.ParseFloat(field(record, cols.amount), 64)

	t.total++
	t.amount += amount
	if isFraud {
		t.fraud++
		t.fraudAmount += amount
	}

	for _, key := range patternKeys(record, cols, amount) {
		c, ok := t.keys[key]
		if !ok {
			c = &counter{}
			t.keys[key] = c
		}
		c.frequency++
		if isFraud {
			c.fraud++
		}
	}

	if merchant := strings.ToLower(field(record, cols.merchant)); merchant != "" {
		c, ok := t.merchants[merchant]
		if !ok {
			c = &counter{}
			t.merchants[merchant] = c
		}
		c.frequency++
		if isFraud {
			c.fraud++
		}
	}
}

func (t *tally) patterns() []domain.DatasetPattern {
	out := make([]domain.DatasetPattern, 0, len(t.keys))
	for key, c := range t.keys {
		if c.fraud == 0 {
			continue
		}
		out = append(out, toPattern(key, c))
	}
	return out
}

func (t *tally) highRiskMerchants() []string {
	out := make([]string, 0)
	for name, c := range t.merchants {
		if c.rate() > highRiskMerchantPct {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func toPattern(key string, c *counter) domain.DatasetPattern {
	rate := c.rate()
	return domain.DatasetPattern{
		Pattern:     key,
		Frequency:   c.frequency,
		FraudCount:  c.fraud,
		FraudRate:   round2(rate),
		RiskScore:   RiskScore(rate),
		Description: describe(key),
	}
}

// RiskScore scales a fraud rate percentage to a 0-100 score.
func RiskScore(ratePct float64) int {
	return int(math.Min(100, math.Round(ratePct*2)))
}

// patternKeys derives the categorical buckets of one record.
func patternKeys(record []string, cols columns, amount float64) []string {
	keys := make([]string, 0, 6)
	if v := field(record, cols.product); v != "" {
		keys = append(keys, "product:"+strings.ToLower(v))
	}
	if v := field(record, cols.device); v != "" {
		keys = append(keys, "device:"+strings.ToLower(v))
	}
	if b := amountBucket(amount); b != "" {
		keys = append(keys, "amount:"+b)
	}
	if hour, ok := parseHour(field(record, cols.time)); ok {
		if b := timeBucket(hour); b != "" {
			keys = append(keys, "time:"+b)
		}
	}
	if v := field(record, cols.browser); v != "" {
		keys = append(keys, "browser:"+strings.ToLower(v))
	}
	if v := field(record, cols.country); v != "" {
		keys = append(keys, "country:"+strings.ToLower(v))
	}
	return keys
}

func amountBucket(amount float64) string {
	switch {
	case amount > 100_000:
		return ">100k"
	case amount > 50_000:
		return "50k-100k"
	case amount > 10_000:
		return "10k-50k"
	case amount < 100:
		return "<100"
	}
	return ""
}

func timeBucket(hour int) string {
	switch {
	case hour >= 0 && hour < 6:
		return "early_morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	case hour >= 18 && hour < 24:
		return "evening"
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006 15:04",
}

// parseHour accepts either a timestamp or IEEE-style TransactionDT seconds.
func parseHour(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		return int(secs/3600) % 24, true
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.Hour(), true
		}
	}
	return 0, false
}

func parseLabel(v string) bool {
	switch strings.ToLower(v) {
	case "1", "1.0", "true", "yes", "y", "fraud":
		return true
	}
	return false
}

func describe(key string) string {
	prefix, value, _ := strings.Cut(key, ":")
	switch prefix {
	case "product":
		return fmt.Sprintf("Payment type / product code %s", strings.ToUpper(value))
	case "device":
		return fmt.Sprintf("Transactions from %s devices", value)
	case "amount":
		switch value {
		case ">100k":
			return "Transactions above 100,000"
		case "50k-100k":
			return "Transactions between 50,000 and 100,000"
		case "10k-50k":
			return "Transactions between 10,000 and 50,000"
		case "<100":
			return "Transactions below 100"
		}
	case "time":
		switch value {
		case "early_morning":
			return "Transactions between 00:00 and 06:00"
		case "afternoon":
			return "Transactions between 12:00 and 18:00"
		case "evening":
			return "Transactions between 18:00 and 24:00"
		}
	case "browser":
		return fmt.Sprintf("Transactions from browser %s", value)
	case "country":
		return fmt.Sprintf("Transactions from country/region %s", value)
	}
	return key
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
