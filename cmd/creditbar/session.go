package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/store"
)

var (
	statusFresh bool
	statusJSON  bool
	loginCookie string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the balance and burn rate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
			return runStatus(ctx, cmd.OutOrStdout(), st, statusFresh, statusJSON)
		})
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an Augment session cookie",
	Long: `login stores an Augment session cookie and reads the balance with it.
Without --cookie the value is read from standard input.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		secret := loginCookie
		if secret == "" {
			var err error
			if secret, err = readSecret(cmd.InOrStdin()); err != nil {
				return err
			}
		}
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
			res, err := st.SaveCredential(ctx, secret)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			who := res.Email
			if who == "" {
				who = "Augment"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s. Balance: %s credits\n", who, models.FormatBalance(res.Balance))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget every stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
			st.ClearSession(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		})
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusFresh, "fresh", false, "Read the balance from the provider instead of the stored value")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print JSON")
	loginCmd.Flags().StringVar(&loginCookie, "cookie", "", "Session cookie value")

	rootCmd.AddCommand(statusCmd, loginCmd, logoutCmd)
}

// withStore opens the backend, binds a store to it and runs fn.
func withStore(ctx context.Context, fn func(context.Context, *store.Store) error) error {
	b, err := openBackend(cfg, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := b.Close(); closeErr != nil {
			logger.Warn("error closing backend", "error", closeErr)
		}
	}()

	st := b.newStore(cfg)
	defer st.Teardown()

	ctx, cancel := context.WithTimeout(ctx, cfg.InitTimeout+cfg.HTTPTimeout)
	defer cancel()
	return fn(ctx, st)
}

func readSecret(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && f == os.Stdin {
		fmt.Fprint(os.Stderr, "Session cookie: ")
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read cookie: %w", err)
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		return "", errors.New("no session cookie given")
	}
	return secret, nil
}

// statusReport is the --json form of the status command.
type statusReport struct {
	Balance        models.Balance          `json:"balance"`
	Status         models.BalanceStatus    `json:"status"`
	Authenticated  bool                    `json:"authenticated"`
	AuthMethod     models.AuthMethod       `json:"auth_method,omitempty"`
	Email          string                  `json:"email,omitempty"`
	Connection     models.ConnectionStatus `json:"connection"`
	RatePerDay     float64                 `json:"rate_per_day"`
	HoursRemaining *float64                `json:"hours_remaining"`
	Trend          models.Trend            `json:"trend"`
}

func newStatusReport(snap store.State) statusReport {
	return statusReport{
		Balance:        snap.Balance,
		Status:         models.ClassifyBalance(snap.Balance, snap.Config.LowBalanceThreshold, snap.Config.CriticalBalanceThreshold),
		Authenticated:  snap.Auth.IsAuthenticated,
		AuthMethod:     snap.Auth.AuthMethod,
		Email:          snap.Auth.UserEmail,
		Connection:     snap.Connection,
		RatePerDay:     snap.Analytics.RatePerDay,
		HoursRemaining: snap.Analytics.HoursRemaining,
		Trend:          snap.Analytics.Trend,
	}
}

// runStatus loads auth, config, balance and analytics the way the
// dashboard does at startup, then prints the result.
func runStatus(ctx context.Context, w io.Writer, st *store.Store, fresh, asJSON bool) error {
	auth, err := st.LoadAuthStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	if _, err := st.LoadConfig(ctx); err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
	}

	if auth.IsAuthenticated {
		mode := store.FetchCached
		if fresh {
			mode = store.FetchFresh
		}
		if _, err := st.FetchBalance(ctx, mode); err != nil {
			logger.Warn("balance fetch failed", "mode", mode, "error", err)
		}
		if auth.IsAugmentConfigured {
			st.FetchAnalytics(ctx, 0)
		} else {
			st.FetchUsageAnalytics(ctx, 0)
		}
	}

	report := newStatusReport(st.Snapshot())
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printStatus(w, report, st.Snapshot().Config)
	return nil
}

func printStatus(w io.Writer, r statusReport, cfg models.AppConfig) {
	if !r.Authenticated {
		fmt.Fprintln(w, "Not signed in. Run `creditbar login` to add a session.")
		return
	}

	fmt.Fprintf(w, "Balance:    %s credits (%s)\n", models.FormatBalance(r.Balance), r.Status)
	fmt.Fprintf(w, "Thresholds: low %s, critical %s\n",
		humanize.Comma(cfg.LowBalanceThreshold), humanize.Comma(cfg.CriticalBalanceThreshold))
	if r.RatePerDay > 0 {
		fmt.Fprintf(w, "Usage:      %s/day, %s left (%s)\n",
			models.FormatUsageRate(r.RatePerDay), models.FormatHoursRemaining(r.HoursRemaining), r.Trend)
	}
	account := string(r.AuthMethod)
	if r.Email != "" {
		account += " · " + r.Email
	}
	fmt.Fprintf(w, "Account:    %s\n", account)
	fmt.Fprintf(w, "Backend:    %s\n", r.Connection)
}
