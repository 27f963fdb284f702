package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Zhima-Mochi/paygate-checkout/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// annotationStdoutLogs marks commands whose stdout belongs to the log stream.
const annotationStdoutLogs = "paygate/stdout-logs"

// annotationSkipRuntime marks commands that run without config or wiring.
const annotationSkipRuntime = "paygate/skip-runtime"

var (
	// buildVersion is reported by the version command.
	buildVersion = "dev"

	// app is built once per invocation by the root pre-run hook and torn
	// down by execute.
	app *runtime
)

// newRootCmd builds the whole command tree. Each execution gets a fresh
// tree so no flag values or contexts carry over between runs.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "paygate",
		Short: "Payment gateway checkout and merchant dashboard client",
		Long: `paygate drives checkouts against a payment gateway API and shows the
merchant dashboard: stats, credentials and transaction history.`,
		Version:           buildVersion,
		PersistentPreRunE: setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("checkout-url", "", "checkout API base URL")
	pf.String("dashboard-url", "", "dashboard API base URL")
	pf.Duration("timeout", 0, "per-request HTTP timeout")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "append JSON logs to this file")
	pf.String("session-file", "", "dashboard session file")
	pf.String("metrics-addr", "", "serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(newCheckoutCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// flagKeys maps config keys to the persistent flags that override them.
func flagKeys(fs *pflag.FlagSet) map[string]*pflag.Flag {
	return map[string]*pflag.Flag{
		"checkout.api_url":  fs.Lookup("checkout-url"),
		"dashboard.api_url": fs.Lookup("dashboard-url"),
		"http.timeout":      fs.Lookup("timeout"),
		"log.level":         fs.Lookup("log-level"),
		"log.file":          fs.Lookup("log-file"),
		"session.file":      fs.Lookup("session-file"),
		"metrics.addr":      fs.Lookup("metrics-addr"),
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationSkipRuntime] == "true" {
		return nil
	}
	pf := cmd.Root().PersistentFlags()
	cfgFile, _ := pf.GetString("config")
	cfg, err := config.Load(cfgFile, flagKeys(pf))
	if err != nil {
		return err
	}
	rt, err := newRuntime(cmd.Context(), cfg, cmd.Annotations[annotationStdoutLogs] == "true")
	if err != nil {
		return err
	}
	app = rt
	return nil
}

// Execute runs the root command
func Execute(version string) error {
	buildVersion = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	defer func() {
		if app == nil {
			return
		}
		err = errors.Join(err, app.Close(context.WithoutCancel(ctx)))
		app = nil
	}()
	return rootCmd.ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version",
		Annotations: map[string]string{annotationSkipRuntime: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "paygate %s\n", cmd.Root().Version)
		},
	}
}

func lookupEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
