package main

import (
	"fmt"
	"os"
	"time"

	"github.com/boddenberg/fintrack-go/internal/categorize"
	"github.com/boddenberg/fintrack-go/internal/domain"
	"github.com/boddenberg/fintrack-go/internal/fraud"
	"github.com/boddenberg/fintrack-go/internal/infra/events"
	"github.com/boddenberg/fintrack-go/internal/infra/memstore"
	"github.com/boddenberg/fintrack-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-go/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const localUserID = "local"

func categorizeCmd(v *viper.Viper) *cobra.Command {
	var amount float64

	cmd := &cobra.Command{
		Use:   "categorize <merchant>",
		Short: "Print the category assigned to a merchant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := categorize.New()
			return printJSON(cmd.OutOrStdout(), v, domain.CategorizeResponse{
				Category: c.Categorize(args[0], decimal.NewFromFloat(amount)),
			})
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount")
	return cmd
}

// scoreReport is the output of the score command.
type scoreReport struct {
	Import       *domain.ImportResult    `json:"import"`
	Health       *domain.FinancialHealth `json:"health"`
	Transactions []domain.Transaction    `json:"transactions,omitempty"`
}

func scoreCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <transactions.csv>",
		Short: "Import a CSV export and print its fraud flags and health score",
		Long: `Run a CSV export through the same import pipeline as the server:
categorization, fraud scoring against the running history and the financial
health score. Nothing is persisted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(v)
			defer logger.Sync()

			income, err := decimal.NewFromString(v.GetString("score.income"))
			if err != nil || income.IsNegative() {
				return fmt.Errorf("invalid --income %q", v.GetString("score.income"))
			}

			now := time.Now().UTC()
			if s := v.GetString("score.as-of"); s != "" {
				if now, err = time.Parse("2006-01-02", s); err != nil {
					return fmt.Errorf("invalid --as-of %q: %w", s, err)
				}
				now = now.Add(24*time.Hour - time.Second)
			}
			clock := service.WithClock(func() time.Time { return now })

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			store := memstore.New()
			if err := store.CreateUser(ctx, &domain.User{
				ID:            localUserID,
				Email:         "local@fintrack.invalid",
				Name:          "local",
				MonthlyIncome: income,
				CreatedAt:     now,
			}); err != nil {
				return err
			}

			healthSvc := service.NewHealthService(store, logger, clock)
			txSvc := service.NewTransactionService(
				store, healthSvc, categorize.New(), fraud.NewEngine(),
				events.NopPublisher{}, observability.NewMetrics(), logger, clock,
			)

			res, err := txSvc.ImportCSV(ctx, localUserID, f)
			if err != nil {
				return err
			}
			h, err := healthSvc.Get(ctx, localUserID)
			if err != nil {
				return err
			}

			report := scoreReport{Import: res, Health: h}
			if v.GetBool("score.show-transactions") {
				if report.Transactions, err = txSvc.List(ctx, localUserID); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), v, report)
		},
	}

	cmd.Flags().String("income", "0", "monthly income used for the health score")
	cmd.Flags().String("as-of", "", "score as of this date (YYYY-MM-DD), default now")
	cmd.Flags().Bool("show-transactions", false, "include the scored transactions")
	_ = v.BindPFlag("score.income", cmd.Flags().Lookup("income"))
	_ = v.BindPFlag("score.as-of", cmd.Flags().Lookup("as-of"))
	_ = v.BindPFlag("score.show-transactions", cmd.Flags().Lookup("show-transactions"))

	return cmd
}
