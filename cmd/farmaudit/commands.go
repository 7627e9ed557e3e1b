package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/farmaudit/farmaudit/internal/batch"
	"github.com/farmaudit/farmaudit/internal/resultstore"
	"github.com/spf13/cobra"
)

var (
	accountsDir string
	proxyFile   string
	serviceURL  string
	dbPath      string

	watchSchedule string

	historyLimit int
)

func init() {
	// run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one batch over the accounts directory",
		RunE:  runRun,
	}
	addBatchFlags(runCmd)
	rootCmd.AddCommand(runCmd)

	// watch command
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run batches on a schedule and on account file changes",
		RunE:  runWatch,
	}
	addBatchFlags(watchCmd)
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "0 */6 * * *", "cron schedule for periodic runs")
	rootCmd.AddCommand(watchCmd)

	// history command
	historyCmd := &cobra.Command{
		Use:   "history [RUN]",
		Short: "Show past runs, or one run's per-account outcomes",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().StringVar(&dbPath, "db", "farmaudit.db", "run history database path")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to list")
	rootCmd.AddCommand(historyCmd)
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&accountsDir, "accounts", "accounts", "directory of account files")
	cmd.Flags().StringVar(&proxyFile, "proxies", "proxies.txt", "proxy list, one per line")
	cmd.Flags().StringVar(&serviceURL, "service-url", "", "base URL of the account service")
	cmd.Flags().StringVar(&dbPath, "db", "farmaudit.db", "run history database path (empty to disable)")
}

func buildRunner() (*batch.Runner, *resultstore.Store, error) {
	var store *resultstore.Store
	if dbPath != "" {
		var err error
		store, err = resultstore.New(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening history database: %w", err)
		}
	}

	runner := batch.NewRunner(batch.Options{
		AccountsDir: accountsDir,
		ProxyFile:   proxyFile,
		ConfigPath:  configPath,
		ServiceURL:  serviceURL,
		Store:       store,
	})
	return runner, store, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	runner, store, err := buildRunner()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	summary, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %d accounts over %d proxies in %s\n",
		summary.RunID, summary.Accounts, summary.Proxies, summary.Elapsed.Round(time.Millisecond))
	for status, n := range summary.Counts {
		fmt.Printf("  %s: %d\n", status, n)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	runner, store, err := buildRunner()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	fmt.Printf("Watching %s (schedule %q)\n", accountsDir, watchSchedule)
	return runner.Watch(cmd.Context(), watchSchedule)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := resultstore.New(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if len(args) > 0 {
		outcomes, err := store.Outcomes(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "ACCOUNT\tSTATUS\tERROR\tFINISHED")
		for _, o := range outcomes {
			errMsg := o.Error
			if errMsg == "" {
				errMsg = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				o.AccountID, o.Status, errMsg, o.FinishedAt.Format(time.RFC3339))
		}
		return w.Flush()
	}

	runs, err := store.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "RUN\tSTARTED\tACCOUNTS\tPROXIES\tCONCURRENCY\tFINISHED")
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Accounts, r.Proxies, r.Concurrency, finished)
	}
	return w.Flush()
}
