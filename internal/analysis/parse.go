package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyReport is returned when the model answer carries neither a summary
// nor any pattern.
var ErrEmptyReport = errors.New("model report has no summary and no patterns")

// llmReport mirrors the JSON object requested from the model. Every field is
// optional.
type llmReport struct {
	Summary          *string      `json:"summary"`
	FraudPatterns    []llmPattern `json:"fraudPatterns"`
	RiskAssessment   *string      `json:"riskAssessment"`
	Recommendations  []string     `json:"recommendations"`
	OverallRiskScore *float64     `json:"overallRiskScore"`
}

type llmPattern struct {
	Name                 *string  `json:"name"`
	Description          *string  `json:"description"`
	RiskLevel            *string  `json:"riskLevel"`
	AffectedTransactions *float64 `json:"affectedTransactions"`
}

// ExtractJSON strips a markdown code fence and any prose around the outermost
// JSON object.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in model response")
	}
	return s[start : end+1], nil
}

// parseReport decodes the model answer.
func parseReport(text string) (*llmReport, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var rep llmReport
	if err := json.Unmarshal([]byte(raw), &rep); err != nil {
		return nil, fmt.Errorf("decode model report: %w", err)
	}

	hasSummary := rep.Summary != nil && strings.TrimSpace(*rep.Summary) != ""
	if !hasSummary && len(rep.FraudPatterns) == 0 {
		return nil, ErrEmptyReport
	}
	return &rep, nil
}
