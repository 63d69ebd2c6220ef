package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/auth"
	"github.com/iho/aptledger/internal/infrastructure/config"
	"github.com/iho/aptledger/internal/infrastructure/logger"
	"github.com/iho/aptledger/internal/infrastructure/postgres"
	"github.com/iho/aptledger/internal/infrastructure/sqlite"
)

var (
	baseURL string
	token   string
	timeout time.Duration
)

var bcryptGenerate = bcrypt.GenerateFromPassword

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "aptledger-cli",
		Short:         "AptLedger CLI tool",
		Long:          `A command line interface for the AptLedger apartment management API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", envOr("APTLEDGER_URL", "http://localhost:8080"), "Base URL of the AptLedger API")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("APTLEDGER_TOKEN"), "Bearer token sent with API requests")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(
		meCmd(),
		balancesCmd(),
		touristTaxCmd(),
		calendarCmd(),
		usersCmd(),
		tokenCmd(),
		hashPasswordCmd(),
		migrateCmd(),
	)

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var user dto.UserResponse
			if _, err := newAPIClient().doJSON(cmd.Context(), http.MethodGet, "/api/v1/me", nil, &user); err != nil {
				return err
			}
			printJSON(user)
			return nil
		},
	}
}

type balancesResponse struct {
	ApartmentID string                `json:"apartmentId"`
	Currency    string                `json:"currency"`
	Balances    []dto.BalanceResponse `json:"balances"`
}

func balancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances <apartment-id>",
		Short: "Show who owes whom in an apartment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp balancesResponse
			path := "/api/v1/apartments/" + url.PathEscape(args[0]) + "/balances"
			if _, err := newAPIClient().doJSON(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			renderBalances(cmd.OutOrStdout(), &resp)
			return nil
		},
	}
}

func renderBalances(w io.Writer, resp *balancesResponse) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARTICIPANT\tNAME\tNET")
	for _, b := range resp.Balances {
		fmt.Fprintf(tw, "%s\t%s\t%s %s\n", b.ParticipantID, truncate(b.DisplayName, 24), b.Net.StringFixed(2), resp.Currency)
	}
	_ = tw.Flush()
}

func touristTaxCmd() *cobra.Command {
	var (
		guests   int
		checkIn  string
		checkOut string
	)

	cmd := &cobra.Command{
		Use:   "tourist-tax",
		Short: "Quote the tourist tax for a stay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("guests", strconv.Itoa(guests))
			q.Set("check_in", checkIn)
			q.Set("check_out", checkOut)

			var quote dto.TouristTaxResponse
			if _, err := newAPIClient().doJSON(cmd.Context(), http.MethodGet, "/api/v1/tourist-tax?"+q.Encode(), nil, &quote); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d guests x %d billable nights (of %d) x %s = %s\n",
				quote.Guests, quote.BillableNights, quote.Nights, quote.Rate, quote.Amount.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().IntVar(&guests, "guests", 1, "Number of guests")
	cmd.Flags().StringVar(&checkIn, "check-in", "", "Check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&checkOut, "check-out", "", "Check-out date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("check-in")
	_ = cmd.MarkFlagRequired("check-out")
	return cmd
}

func calendarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Occupancy calendar operations",
	}
	cmd.AddCommand(calendarShowCmd(), calendarSetCmd(), calendarBulkCmd(), calendarExportCmd())
	return cmd
}

func calendarPath(apartmentID string, year, month int) string {
	return fmt.Sprintf("/api/v1/apartments/%s/calendar/%d/%d", url.PathEscape(apartmentID), year, month)
}

func calendarShowCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <apartment-id> <YYYY-MM>",
		Short: "Print a month grid with occupancy statistics",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseMonthArg(args[1])
			if err != nil {
				return err
			}

			var resp dto.MonthResponse
			if _, err := newAPIClient().doJSON(cmd.Context(), http.MethodGet, calendarPath(args[0], year, month), nil, &resp); err != nil {
				return err
			}
			if asJSON {
				printJSON(resp)
				return nil
			}
			renderMonth(cmd.OutOrStdout(), &resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON month view")
	return cmd
}

var statusSymbols = map[domain.DayStatus]string{
	domain.DayFree:        ".",
	domain.DayOccupied:    "O",
	domain.DayMaintenance: "M",
	domain.DayCleaning:    "C",
}

func renderMonth(w io.Writer, resp *dto.MonthResponse) {
	fmt.Fprintf(w, "%s  %s\n", resp.Label, resp.ApartmentID)
	fmt.Fprintln(w, " Su  Mo  Tu  We  Th  Fr  Sa")

	for _, week := range resp.Weeks {
		cells := make([]string, len(week))
		for i, cell := range week {
			if cell.Day == 0 {
				cells[i] = "   "
				continue
			}
			symbol := statusSymbols[domain.DayFree]
			if cell.Status != nil {
				symbol = statusSymbols[*cell.Status]
			}
			cells[i] = fmt.Sprintf("%2d%s", cell.Day, symbol)
		}
		fmt.Fprintln(w, strings.TrimRight(" "+strings.Join(cells, " "), " "))
	}

	s := resp.Stats
	fmt.Fprintf(w, "\nfree %d  occupied %d  maintenance %d  cleaning %d  (occupancy %.1f%%)\n",
		s.Free, s.Occupied, s.Maintenance, s.Cleaning, s.OccupancyRate)
	fmt.Fprintln(w, "legend: . free  O occupied  M maintenance  C cleaning")
}

func calendarSetCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "set <apartment-id> <YYYY-MM-DD> <status>",
		Short: "Set the status of a single day",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse(time.DateOnly, args[1])
			if err != nil {
				return fmt.Errorf("invalid date %q: want YYYY-MM-DD", args[1])
			}

			path := fmt.Sprintf("%s/%d", calendarPath(args[0], date.Year(), int(date.Month())-1), date.Day())
			var day dto.DayResponse
			if _, err := newAPIClient().doJSON(cmd.Context(), http.MethodPut, path, dto.SetDayRequest{Status: args[2], Notes: notes}, &day); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[1], day.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Free-text notes for the day")
	return cmd
}

func calendarBulkCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "bulk <apartment-id> <YYYY-MM> <start-day> <end-day> <status>",
		Short: "Set the status of an inclusive range of days",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseMonthArg(args[1])
			if err != nil {
				return err
			}
			start, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid start day %q", args[2])
			}
			end, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("invalid end day %q", args[3])
			}

			req := dto.BulkSetDaysRequest{StartDay: start, EndDay: end, Status: args[4], Notes: notes}
			var resp dto.BulkResponse
			status, err := newAPIClient().doJSON(cmd.Context(), http.MethodPut, calendarPath(args[0], year, month), req, &resp)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "updated %d days\n", len(resp.Days))
			if status == http.StatusMultiStatus || len(resp.Failures) > 0 {
				for _, f := range resp.Failures {
					fmt.Fprintf(out, "  day %d failed: %s\n", f.Day, f.Error)
				}
				return fmt.Errorf("%d of %d days failed", len(resp.Failures), end-start+1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Free-text notes applied to every day")
	return cmd
}

func calendarExportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <apartment-id> <YYYY-MM>",
		Short: "Download a month as CSV or JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, month, err := parseMonthArg(args[1])
			if err != nil {
				return err
			}

			path := calendarPath(args[0], year, month) + "/export?format=" + url.QueryEscape(format)
			_, data, err := newAPIClient().do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if format == "json" {
				// Refuse to save a body that would not load back.
				doc, records, err := domain.DecodeMonthJSON(data, args[0], year, month)
				if err != nil {
					return fmt.Errorf("export response: %w", err)
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d marked days) to %s\n", doc.Month, len(records), output)
				return nil
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(data), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

// parseMonthArg turns YYYY-MM into a year and a zero-based month.
func parseMonthArg(s string) (int, int, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return t.Year(), int(t.Month()) - 1, nil
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Provision and remove apartment users",
	}
	cmd.AddCommand(usersCreateCmd(), usersDeleteCmd())
	return cmd
}

func usersCreateCmd() *cobra.Command {
	var req dto.ProvisionUserRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with a temporary password and attach it to an apartment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var user dto.UserResponse
			if _, err := newAPIClient().doJSON(cmd.Context(), http.MethodPost, "/api/v1/admin/users", req, &user); err != nil {
				return err
			}
			printJSON(user)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Role, "role", string(domain.RoleViewer), "Role: superAdmin, manager or viewer")
	cmd.Flags().StringVar(&req.ApartmentID, "apartment", "", "Apartment the user is attached to")
	cmd.Flags().StringVar(&req.TempPassword, "temp-password", "", "Temporary password the user must change")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("apartment")
	_ = cmd.MarkFlagRequired("temp-password")
	return cmd
}

func usersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <apartment-id> <user-id>",
		Short: "Detach a user from an apartment and delete the account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/admin/apartments/%s/users/%s", url.PathEscape(args[0]), url.PathEscape(args[1]))
			if _, err := newAPIClient().doJSON(cmd.Context(), http.MethodDelete, path, nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s removed from %s\n", args[1], args[0])
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		secret string
		user   domain.User
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a JWT for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("a signing secret is required: pass --secret or set JWT_SECRET")
			}
			user.Role = domain.Role(role)

			signed, err := auth.NewJWTManager(secret, ttl).GenerateWithTTL(&user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret shared with the server")
	cmd.Flags().StringVar(&user.ID, "user-id", "dev", "Subject user ID")
	cmd.Flags().StringVar(&user.Email, "email", "", "Email claim")
	cmd.Flags().StringVar(&user.DisplayName, "name", "", "Display name claim")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleManager), "Role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the bcrypt hash of a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcryptGenerate([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Println(string(hash))
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations for the configured driver",
	}

	run := func(up bool) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console", Output: cmd.ErrOrStderr()})
			return runMigrations(cfg, up, log)
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", Args: cobra.NoArgs, RunE: run(true)},
		&cobra.Command{Use: "down", Short: "Roll back all migrations", Args: cobra.NoArgs, RunE: run(false)},
	)
	return cmd
}

func runMigrations(cfg *config.Config, up bool, log zerolog.Logger) error {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		if up {
			return sqlite.RunMigrations(cfg.SQLitePath, log)
		}
		return sqlite.RunMigrationsDown(cfg.SQLitePath, log)
	case config.DriverPostgres:
		if up {
			return postgres.RunMigrations(cfg.DatabaseURL, log)
		}
		return postgres.RunMigrationsDown(cfg.DatabaseURL, log)
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Failed to encode JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
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
