package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/paygate-checkout/internal/application/dashboard"

	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, please log in with: paygate dashboard login")

func newDashboardCmd() *cobra.Command {
	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Merchant dashboard",
	}

	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a merchant id and API key",
		RunE:  runDashboardLogin,
	}
	loginCmd.Flags().String("merchant-id", "", "merchant id")
	loginCmd.Flags().String("api-key", "", "API key (or PAYGATE_API_KEY)")

	transactionsCmd := &cobra.Command{
		Use:   "transactions",
		Short: "List payments",
		RunE:  runDashboardTransactions,
	}
	transactionsCmd.Flags().String("tz", "Local", "time zone for the Created column")

	dashboardCmd.AddCommand(loginCmd)
	dashboardCmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE:  runDashboardLogout,
	})
	dashboardCmd.AddCommand(&cobra.Command{
		Use:   "overview",
		Short: "Show credentials and payment stats",
		RunE:  runDashboardOverview,
	})
	dashboardCmd.AddCommand(transactionsCmd)
	return dashboardCmd
}

func runDashboardLogin(cmd *cobra.Command, _ []string) error {
	merchantID, _ := cmd.Flags().GetString("merchant-id")
	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = lookupEnv("PAYGATE_API_KEY")
	}

	sess, err := app.dashboard().Login(cmd.Context(), app.session, merchantID, apiKey)
	if err != nil {
		var le *dashboard.LoginError
		if errors.As(err, &le) {
			return errors.New(le.Message)
		}
		return err
	}
	app.session = sess
	fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
	return nil
}

func runDashboardLogout(cmd *cobra.Command, _ []string) error {
	app.session = app.dashboard().Logout(app.session)
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func runDashboardOverview(cmd *cobra.Command, _ []string) error {
	o, err := app.dashboard().Overview(cmd.Context(), app.session)
	if errors.Is(err, dashboard.ErrUnauthenticated) {
		return errNotLoggedIn
	}
	if err != nil {
		return err
	}
	renderOverview(cmd.OutOrStdout(), o)
	return nil
}

func runDashboardTransactions(cmd *cobra.Command, _ []string) error {
	tz, _ := cmd.Flags().GetString("tz")
	loc, err := time.LoadLocation(strings.TrimSpace(tz))
	if err != nil {
		return fmt.Errorf("invalid --tz: %w", err)
	}

	txs, err := app.dashboard().Transactions(cmd.Context(), app.session)
	if errors.Is(err, dashboard.ErrUnauthenticated) {
		return errNotLoggedIn
	}
	if err != nil {
		return err
	}
	renderTransactions(cmd.OutOrStdout(), txs, loc)
	return nil
}
