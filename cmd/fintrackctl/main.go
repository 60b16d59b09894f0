// Command fintrackctl runs the fintrack scoring pipeline offline: mining a
// labelled dataset, categorizing merchants and scoring a CSV export without a
// server or database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/boddenberg/fintrack-go/internal/infra/observability"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(viper.New()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "fintrackctl",
		Short:         "Offline tools for the fintrack scoring pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initConfig(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fintrackctl.yaml)")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("pretty", false, "indent JSON output")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("output.pretty", root.PersistentFlags().Lookup("pretty"))

	root.AddCommand(datasetCmd(v))
	root.AddCommand(categorizeCmd(v))
	root.AddCommand(scoreCmd(v))

	return root
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("fintrackctl")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("FINTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func newLogger(v *viper.Viper) *zap.Logger {
	return observability.NewLogger(v.GetString("log.level"))
}

func printJSON(w io.Writer, v *viper.Viper, data any) error {
	enc := json.NewEncoder(w)
	if v.GetBool("output.pretty") {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}
