package analysis

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/boddenberg/fintrack-go/internal/domain"

	"github.com/shopspring/decimal"
)

// MaxPromptTransactions bounds how many transactions are sent to the model.
const MaxPromptTransactions = 50

//go:embed templates/*.tmpl
var templateFS embed.FS

var promptTemplate = template.Must(
	template.New("fraud_prompt.tmpl").
		Funcs(template.FuncMap{
			"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
			"date":  func(t time.Time) string { return t.Format("2006-01-02 15:04") },
		}).
		ParseFS(templateFS, "templates/fraud_prompt.tmpl"),
)

type promptData struct {
	Summary      domain.DebitCreditAnalysis
	Transactions []domain.Transaction
	Total        int
}

// BuildPrompt renders the analysis prompt from the first
// MaxPromptTransactions transactions and the debit/credit summary.
func BuildPrompt(txs []domain.Transaction, dc domain.DebitCreditAnalysis) (string, error) {
	head := txs
	if len(head) > MaxPromptTransactions {
		head = head[:MaxPromptTransactions]
	}

	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, promptData{Summary: dc, Transactions: head, Total: len(txs)}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
