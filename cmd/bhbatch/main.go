package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/prajeetp/bhbatch/internal/config"
	"github.com/prajeetp/bhbatch/pkg/abort"
	"github.com/prajeetp/bhbatch/pkg/batch"
	"github.com/prajeetp/bhbatch/pkg/client"
	"github.com/prajeetp/bhbatch/pkg/htmltable"
	"github.com/prajeetp/bhbatch/pkg/logging"
	"github.com/prajeetp/bhbatch/pkg/portal"
	"github.com/prajeetp/bhbatch/pkg/session"
	"github.com/prajeetp/bhbatch/pkg/sessionlog"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bhbatch",
	Short: "Bulk blackhole request engine",
	Long: `bhbatch runs bulk lifecycle operations against the blackhole portal:
create routes for many IPs, search records, and update or close them in
batches over a pooled HTTP client.

Credentials come from the BH_HTTP_USER and BH_HTTP_PASS environment
variables. Press Ctrl-C to abort a running batch; operations already in
flight finish, everything queued resolves as aborted.

Examples:
  bhbatch create --ips "10.0.0.1, 10.0.0.2" --ticket INC0042
  bhbatch create --ips-file targets.txt --autoclose "24 hours"
  bhbatch search --ip 10.0.0.1
  bhbatch search --active
  bhbatch update close-now 101 102 103
  bhbatch update set-autoclose --time "48 hours" 101`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create blackhole routes for a list of IPs",
	Args:  cobra.NoArgs,
	RunE:  runCreate,
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search blackhole records",
	Args:  cobra.NoArgs,
	RunE:  runSearch,
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update existing blackhole records",
}

var setDescriptionCmd = &cobra.Command{
	Use:   "set-description <id>...",
	Short: "Replace the description on the listed records",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd, "set-description", args, func(a *app, ctx context.Context, ids []string) []batch.Result {
			return a.updater().SetDescription(ctx, ids, flagDescription, a.sig)
		})
	},
}

var setAutocloseCmd = &cobra.Command{
	Use:   "set-autoclose <id>...",
	Short: "Set the auto-close time on the listed records (empty --time clears it)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd, "set-autoclose", args, func(a *app, ctx context.Context, ids []string) []batch.Result {
			return a.updater().SetAutoclose(ctx, ids, flagAutoclose, a.sig)
		})
	},
}

var associateTicketCmd = &cobra.Command{
	Use:   "associate-ticket <id>...",
	Short: "Associate the listed records with a ticket",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagTicket == "" {
			return fmt.Errorf("--ticket is required")
		}
		return runUpdate(cmd, "associate-ticket", args, func(a *app, ctx context.Context, ids []string) []batch.Result {
			return a.updater().AssociateTicket(ctx, ids, flagTicketSystem, flagTicket, a.sig)
		})
	},
}

var closeNowCmd = &cobra.Command{
	Use:   "close-now <id>...",
	Short: "Close the listed records immediately",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpdate(cmd, "close-now", args, func(a *app, ctx context.Context, ids []string) []batch.Result {
			return a.updater().CloseNow(ctx, ids, a.sig)
		})
	},
}

var (
	flagConfig      string
	flagConcurrency int
	flagPretty      bool

	flagIPs          string
	flagIPsFile      string
	flagTicket       string
	flagTicketSystem string
	flagAutoclose    string
	flagDescription  string

	flagSearchID   string
	flagSearchUser string
	flagSearchIP   string
	flagSearchView string
	flagMonth      string
	flagYear       string
	flagActive     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().IntVar(&flagConcurrency, "concurrency", 0, "Override worker count for batches")
	rootCmd.PersistentFlags().BoolVar(&flagPretty, "pretty", false, "Human-readable log output")

	createCmd.Flags().StringVar(&flagIPs, "ips", "", "IPs/CIDRs, comma or whitespace separated")
	createCmd.Flags().StringVar(&flagIPsFile, "ips-file", "", "File with one IP/CIDR per line")
	createCmd.Flags().StringVar(&flagTicket, "ticket", "", "Ticket number to associate")
	createCmd.Flags().StringVar(&flagTicketSystem, "ticket-system", "NTM-Remedy", "Ticket system")
	createCmd.Flags().StringVar(&flagAutoclose, "autoclose", "", "Auto-close time, e.g. \"24 hours\"")
	createCmd.Flags().StringVar(&flagDescription, "description", "", "Record description")

	searchCmd.Flags().StringVar(&flagSearchID, "id", "", "Search by blackhole ID")
	searchCmd.Flags().StringVar(&flagTicket, "ticket", "", "Search by ticket number")
	searchCmd.Flags().StringVar(&flagTicketSystem, "ticket-system", "", "Ticket system for --ticket")
	searchCmd.Flags().StringVar(&flagSearchUser, "user", "", "Search by opening user")
	searchCmd.Flags().StringVar(&flagSearchIP, "ip", "", "Search by IP or CIDR; accepts a list for bulk retrieval")
	searchCmd.Flags().StringVar(&flagSearchView, "view", "Both", "View for IP search: Both, Active or Closed")
	searchCmd.Flags().StringVar(&flagMonth, "month", "", "Search by open month (name or number)")
	searchCmd.Flags().StringVar(&flagYear, "year", "", "Search by open year")
	searchCmd.Flags().BoolVar(&flagActive, "active", false, "List all active holes")

	setDescriptionCmd.Flags().StringVar(&flagDescription, "text", "", "New description")
	setAutocloseCmd.Flags().StringVar(&flagAutoclose, "time", "", "Auto-close time; empty clears it")
	associateTicketCmd.Flags().StringVar(&flagTicket, "ticket", "", "Ticket number")
	associateTicketCmd.Flags().StringVar(&flagTicketSystem, "ticket-system", "NTM-Remedy", "Ticket system")

	updateCmd.AddCommand(setDescriptionCmd)
	updateCmd.AddCommand(setAutocloseCmd)
	updateCmd.AddCommand(associateTicketCmd)
	updateCmd.AddCommand(closeNowCmd)

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(updateCmd)
}

// app wires the configured engine: pooled client, abort signal and the
// per-session audit log.
type app struct {
	cfg    *config.Config
	client *client.Client
	slog   *sessionlog.Logger
	sig    *abort.Signal
	stop   func()
}

func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagConcurrency > 0 {
		cfg.Concurrency = flagConcurrency
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: flagPretty,
		Output: os.Stderr,
	})

	sessUser := cfg.User
	if sessUser == "" {
		if u, err := user.Current(); err == nil {
			sessUser = u.Username
		}
	}

	sess, err := session.New(session.Config{
		BaseURL:   cfg.BaseURL,
		User:      sessUser,
		VerifyTLS: cfg.VerifyTLS,
		HTTPUser:  cfg.HTTPUser,
		HTTPPass:  cfg.HTTPPass,
	})
	if err != nil {
		return nil, err
	}

	c, err := client.New(sess, client.DefaultConfig())
	if err != nil {
		return nil, err
	}

	slog, err := sessionlog.New(cfg.LogDir, sess.User())
	if err != nil {
		c.Dispose()
		return nil, err
	}

	sig := abort.NewSignal()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			fmt.Fprintln(os.Stderr, "Abort requested, draining batch...")
			slog.Append("abort requested by user")
			sig.Set()
		}
	}()

	return &app{
		cfg:    cfg,
		client: c,
		slog:   slog,
		sig:    sig,
		stop: func() {
			signal.Stop(sigCh)
			close(sigCh)
		},
	}, nil
}

func (a *app) close() {
	a.stop()
	a.client.Dispose()
	a.slog.Close(5 * time.Second)
}

func (a *app) batchConfig() batch.Config {
	return batch.Config{
		Concurrency: a.cfg.Concurrency,
		Retry: client.RetryConfig{
			MaxAttempts:    a.cfg.Retry.MaxAttempts,
			Delay:          a.cfg.Retry.Delay(),
			AttemptTimeout: a.cfg.Retry.AttemptTimeout(),
		},
		OnProgress: func(done, total int) {
			fmt.Fprintf(os.Stderr, "\rProgress: %d/%d", done, total)
			if done == total {
				fmt.Fprintln(os.Stderr)
			}
		},
	}
}

func (a *app) updater() *portal.Updater {
	return portal.NewUpdater(a.client, a.batchConfig())
}

func runCreate(cmd *cobra.Command, args []string) error {
	text := flagIPs
	if flagIPsFile != "" {
		data, err := os.ReadFile(flagIPsFile)
		if err != nil {
			return fmt.Errorf("read IP file: %w", err)
		}
		text = text + "\n" + string(data)
	}
	ips, invalid := portal.ParseIPList(text, true)
	if len(invalid) > 0 {
		return fmt.Errorf("invalid IPv4 format: %s", strings.Join(invalid, ", "))
	}
	if len(ips) == 0 {
		return fmt.Errorf("no IPs provided (--ips or --ips-file)")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	req := portal.CreateRequest{
		IPs:           ips,
		TicketSystem:  flagTicketSystem,
		TicketNumber:  flagTicket,
		AutocloseTime: flagAutoclose,
		Description:   flagDescription,
	}
	a.slog.Append(fmt.Sprintf("create start ips=%d ticket=%s autoclose=%q", len(ips), flagTicket, flagAutoclose))

	results, err := portal.NewCreator(a.client, a.batchConfig()).Submit(cmd.Context(), req, a.sig)
	if err != nil {
		a.slog.Append(fmt.Sprintf("create rejected: %v", err))
		return err
	}
	a.slog.AppendJSON("create results", results)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IP\tSTATUS\tATTEMPTS\tMESSAGE")
	failed := 0
	for _, res := range results {
		status := "ok"
		if !res.Succeeded {
			status = "failed"
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", res.IP, status, res.Attempts, res.Message)
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d creates failed", failed, len(results))
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	retriever := portal.NewRetriever(a.client, a.batchConfig())

	// A multi-valued --ip fans out through the batch executor.
	if flagSearchIP != "" {
		if ips, invalid := portal.ParseIPList(flagSearchIP, false); len(invalid) == 0 && len(ips) > 1 {
			return runBulkIPSearch(cmd.Context(), a, retriever, ips)
		}
	}

	filters := portal.SearchFilters{
		BlackholeID:  flagSearchID,
		TicketSystem: flagTicketSystem,
		TicketNumber: flagTicket,
		OpenedBy:     flagSearchUser,
		IPAddress:    portal.SanitizeIPForSearch(flagSearchIP),
		View:         flagSearchView,
		Month:        flagMonth,
		Year:         flagYear,
	}
	if portal.IsCIDR(flagSearchIP) {
		filters.IPAddress = flagSearchIP
	}

	a.slog.AppendJSON("search filters", filters)
	rows, err := retriever.Search(cmd.Context(), filters, a.sig)
	if err != nil {
		a.slog.Append(fmt.Sprintf("search failed: %v", err))
		return err
	}
	a.slog.Append(fmt.Sprintf("search returned %d rows", len(rows)))

	printRows(rows)
	return nil
}

func runBulkIPSearch(ctx context.Context, a *app, retriever *portal.Retriever, ips []string) error {
	a.slog.Append(fmt.Sprintf("bulk search start ips=%d view=%s", len(ips), flagSearchView))
	results := retriever.SearchIPs(ctx, ips, flagSearchView, a.sig)

	for _, res := range results {
		fmt.Printf("== %s ==\n", res.IP)
		if !res.Succeeded {
			fmt.Printf("  failed: %s\n", res.Err)
			continue
		}
		printRows(res.Rows)
	}
	a.slog.AppendJSON("bulk search results", results)
	return nil
}

func runUpdate(cmd *cobra.Command, action string, ids []string, run func(a *app, ctx context.Context, ids []string) []batch.Result) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.slog.Append(fmt.Sprintf("%s start records=%d", action, len(ids)))
	results := run(a, cmd.Context(), ids)
	a.slog.AppendJSON(action+" results", results)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tATTEMPTS")
	failed := 0
	for _, res := range results {
		status := "ok"
		switch {
		case res.Aborted:
			status = "aborted"
			failed++
		case !res.Succeeded:
			status = "failed"
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%d\n", res.TargetID, status, res.Attempts)
	}
	w.Flush()

	if failed > 0 {
		return fmt.Errorf("%d of %d updates failed", failed, len(results))
	}
	return nil
}

func printRows(rows []htmltable.Row) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = strings.ReplaceAll(c, "\n", " | ")
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}
