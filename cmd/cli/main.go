package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/app"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/infrastructure/auth"
	"github.com/iho/gobooks/internal/infrastructure/config"
	"github.com/iho/gobooks/internal/infrastructure/jobs"
	"github.com/iho/gobooks/internal/infrastructure/logger"
	"github.com/iho/gobooks/internal/infrastructure/postgres"
	"github.com/iho/gobooks/internal/infrastructure/redis"
)

// apiOptions are the flags shared by commands that call the HTTP API.
type apiOptions struct {
	baseURL string
	timeout time.Duration
	org     string
	token   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &apiOptions{}

	rootCmd := &cobra.Command{
		Use:           "gobooks-cli",
		Short:         "GoBooks CLI tool",
		Long:          `Operations and reporting for the GoBooks ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the GoBooks API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.org, "org", "", "Organization ID")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("GOBOOKS_TOKEN"), "Bearer token for the API")

	rootCmd.AddCommand(migrateCmd(), reconcileCmd(opts), reportsCmd(opts), tokenCmd(opts))
	return rootCmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	migrator := func() (*postgres.Migrator, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		return &postgres.Migrator{
			DatabaseURL: cfg.DatabaseURL,
			Path:        cfg.MigrationsPath,
			Logger:      logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Output: os.Stderr}),
		}, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}
				return m.Up()
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations, one step by default",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				m, err := migrator()
				if err != nil {
					return err
				}
				return m.Down(steps)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := migrator()
				if err != nil {
					return err
				}
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %v)\n", version, dirty)
				return nil
			},
		},
	)

	return cmd
}

func reconcileCmd(opts *apiOptions) *cobra.Command {
	var now bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check cached balances and unposted documents",
		Long: `Queues a reconciliation run for --org, or for every organization when
--org is empty. With --now the run happens in this process and the
reports are printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if now {
				return reconcileNow(cmd.Context(), cmd.OutOrStdout(), cfg, opts.org)
			}

			queueOpt, err := redis.QueueConnOpt(cfg.RedisURL)
			if err != nil {
				return err
			}
			queue := asynq.NewClient(queueOpt)
			defer queue.Close()

			id, err := jobs.NewClient(queue).EnqueueReconcile(cmd.Context(), opts.org)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued reconciliation task %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&now, "now", false, "Run in this process instead of queueing")
	return cmd
}

func reconcileNow(ctx context.Context, out io.Writer, cfg *config.Config, orgID string) error {
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Output: os.Stderr})

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, 2, 1)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := app.NewStore(pool)
	services := app.NewServices(store, nil, cfg, log, nil)
	h := &jobs.ReconcileHandler{Reconciler: services.Reconciliation, Organizations: store.Directory, Logger: log}

	orgIDs := []string{orgID}
	if orgID == "" {
		if orgIDs, err = store.Directory.OrganizationIDs(ctx); err != nil {
			return err
		}
	}

	reports, err := h.Run(ctx, orgIDs)
	for _, r := range reports {
		printJSON(out, dto.ReconciliationReportFromUseCase(r))
	}
	return err
}

func reportsCmd(opts *apiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Financial reports",
	}

	var start, end string
	trialBalance := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance of --org",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if start != "" {
				query.Set("start_date", start)
			}
			if end != "" {
				query.Set("end_date", end)
			}

			var tb dto.TrialBalanceResponse
			if err := opts.get(cmd.Context(), "/api/v1/reports/trial-balance", query, &tb); err != nil {
				return err
			}
			printTrialBalance(cmd.OutOrStdout(), &tb)
			return nil
		},
	}
	trialBalance.Flags().StringVar(&start, "start", "", "Window start date (YYYY-MM-DD)")
	trialBalance.Flags().StringVar(&end, "end", "", "Window end date (YYYY-MM-DD)")

	var kind, asOf string
	aging := &cobra.Command{
		Use:   "aging",
		Short: "Print the aging buckets of open bills or invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{"kind": {kind}}
			if asOf != "" {
				query.Set("as_of", asOf)
			}

			var report dto.AgingReportResponse
			if err := opts.get(cmd.Context(), "/api/v1/reports/aging", query, &report); err != nil {
				return err
			}
			printAging(cmd.OutOrStdout(), &report)
			return nil
		},
	}
	aging.Flags().StringVar(&kind, "kind", "invoice", "bill or invoice")
	aging.Flags().StringVar(&asOf, "as-of", "", "Aging date (YYYY-MM-DD), today by default")

	cmd.AddCommand(trialBalance, aging)
	return cmd
}

func tokenCmd(opts *apiOptions) *cobra.Command {
	var (
		user, role string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for --org signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.org == "" {
				return fmt.Errorf("--org is required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return config.ErrMissingJWTSecret
			}
			if ttl <= 0 {
				ttl = cfg.JWTExpiration
			}
			if !domain.Role(role).IsValid() {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := auth.NewJWTManager(cfg.JWTSecret, ttl).Generate(auth.Identity{
				UserID:         user,
				OrganizationID: opts.org,
				Role:           domain.Role(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User ID")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleViewer), "admin, approver, clerk or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime, JWT_EXPIRATION by default")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// get calls the API as the configured organization and decodes the body.
func (o *apiOptions) get(ctx context.Context, path string, query url.Values, out any) error {
	if o.org == "" && o.token == "" {
		return fmt.Errorf("--org or --token is required")
	}

	u := o.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	} else {
		req.Header.Set(middleware.OrganizationHeader, o.org)
		req.Header.Set(middleware.ActorHeader, "cli")
		req.Header.Set(middleware.RoleHeader, string(domain.RoleViewer))
	}

	resp, err := (&http.Client{Timeout: o.timeout}).Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return json.Unmarshal(body, out)
}

func printTrialBalance(out io.Writer, tb *dto.TrialBalanceResponse) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "CODE\tNAME\tDEBIT\tCREDIT\t")
	for _, l := range tb.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", l.Code, truncate(l.Name, 32), money(l.Debits), money(l.Credits))
	}
	fmt.Fprintf(w, "\tTOTAL\t%s\t%s\t\n", money(tb.TotalDebits), money(tb.TotalCredits))
	_ = w.Flush()

	if !tb.IsBalanced {
		fmt.Fprintln(out, "WARNING: trial balance is out of balance")
	}
}

func printAging(out io.Writer, r *dto.AgingReportResponse) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "BUCKET\tAMOUNT\t")
	for _, b := range domain.AgingBuckets {
		fmt.Fprintf(w, "%s\t%s\t\n", b, money(r.Buckets[string(b)]))
	}
	fmt.Fprintf(w, "total\t%s\t\n", money(r.Total))
	_ = w.Flush()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func printJSON(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
