package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/farmaudit/farmaudit/internal/archive"
	"github.com/farmaudit/farmaudit/internal/config"
	"github.com/farmaudit/farmaudit/internal/domain"
	"github.com/farmaudit/farmaudit/internal/logger"
	"github.com/farmaudit/farmaudit/internal/queue"
	"github.com/farmaudit/farmaudit/internal/resultstore"
	"github.com/farmaudit/farmaudit/internal/retry"
	"github.com/farmaudit/farmaudit/internal/session"
	"github.com/farmaudit/farmaudit/internal/signals"
	"github.com/farmaudit/farmaudit/internal/source"
	"github.com/farmaudit/farmaudit/internal/task"
)

const (
	defaultWindow        = 30 * time.Second
	defaultRetryAttempts = 4
	defaultRetryDelay    = 30 * time.Second
)

// Check is one account's end-to-end action as the runner drives it.
// Implemented by task.Check; faked in tests.
type Check interface {
	Run(ctx context.Context) error
	Stop()
	Bans() []string
	Level() int
}

// CheckFactory builds the check for one account and its assigned proxy.
type CheckFactory func(acct *domain.Account, proxy string) Check

// Archiver moves a classified account's files into a status directory.
type Archiver interface {
	Archive(id string, status domain.Status) error
}

// Options wires a batch run. Zero values fall back to production defaults;
// tests shrink the timing knobs and inject fakes.
type Options struct {
	AccountsDir string
	ProxyFile   string
	ConfigPath  string
	ServiceURL  string

	Window      time.Duration
	RetryPolicy retry.Policy

	NewCheck CheckFactory
	Archiver Archiver
	Store    *resultstore.Store // optional run history
}

// Summary reports one finished batch run.
type Summary struct {
	RunID       string
	Accounts    int
	Proxies     int
	Concurrency int
	Counts      map[domain.Status]int
	Elapsed     time.Duration
}

// Runner drives one batch of accounts through the queue to terminal
// classification and post-processing.
type Runner struct {
	opts Options
}

// NewRunner fills in defaults and returns a runner.
func NewRunner(opts Options) *Runner {
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.RetryPolicy.MaxAttempts == 0 {
		opts.RetryPolicy = retry.Policy{MaxAttempts: defaultRetryAttempts, Delay: defaultRetryDelay}
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = filepath.Join(opts.AccountsDir, "farmaudit.toml")
	}
	if opts.NewCheck == nil {
		opts.NewCheck = serviceCheckFactory(opts.ServiceURL)
	}
	if opts.Archiver == nil {
		opts.Archiver = &archive.Archiver{Root: opts.AccountsDir}
	}
	return &Runner{opts: opts}
}

// serviceCheckFactory builds real checks against the remote service, one
// exclusive session transport per account.
func serviceCheckFactory(serviceURL string) CheckFactory {
	return func(acct *domain.Account, proxy string) Check {
		sess := session.New(session.Options{
			Username:     acct.Username,
			Password:     acct.Password,
			SharedSecret: acct.SharedSecret,
			Proxy:        proxy,
			BaseURL:      serviceURL,
		})
		sig := signals.NewFetcher(sess.HTTPClient(), serviceURL)
		return task.New(acct, proxy, sess, sig)
	}
}

// Run executes the whole batch: load inputs, submit one check per account
// round-robined across proxies, await full drain, report a summary. Every
// account that enters the queue leaves with exactly one terminal status.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.New().String()
	log := logger.WithRun(runID)
	started := time.Now()

	var (
		accounts []*domain.Account
		proxies  []string
		cfg      *config.Config
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		accounts, err = source.LoadAccounts(r.opts.AccountsDir)
		return err
	})
	g.Go(func() error {
		proxies = source.LoadProxies(r.opts.ProxyFile)
		return nil
	})
	g.Go(func() error {
		cfg = config.Load(r.opts.ConfigPath)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}

	n := len(proxies)
	if n == 0 {
		n = 1
	}

	log.Info().
		Int("accounts", len(accounts)).
		Int("proxies", len(proxies)).
		Int("concurrency", n).
		Msg("batch starting")

	if r.opts.Store != nil {
		if err := r.opts.Store.StartRun(runID, len(accounts), len(proxies), n, started); err != nil {
			log.Warn().Err(err).Msg("history write failed")
		}
	}

	q := queue.New(queue.Config{
		MaxConcurrent: n,
		Window:        r.opts.Window,
		MaxStarts:     n,
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := make(map[domain.Status]int)

	for i, acct := range accounts {
		proxy := ""
		if len(proxies) > 0 {
			proxy = proxies[i%len(proxies)]
		}
		chk := r.opts.NewCheck(acct, proxy)

		done := q.Submit(func() error {
			// The transport is released before the settle signal fires, on
			// every exit path including a panicking attempt.
			defer chk.Stop()
			return retry.Do(ctx, r.opts.RetryPolicy, func() error {
				return chk.Run(ctx)
			})
		})

		wg.Add(1)
		go func(acct *domain.Account, chk Check) {
			defer wg.Done()

			err := <-done
			status := domain.Classify(err, chk.Bans(), chk.Level())
			acct.Status = status // sole writer for this account

			alog := log.With().Str("account", acct.ID).Logger()
			if err != nil {
				alog.Warn().Err(err).Str("status", string(status)).Msg("check failed")
			} else {
				alog.Info().Str("status", string(status)).Int("level", chk.Level()).Msg("check settled")
			}

			if archive.ShouldArchive(status, cfg) {
				if aerr := r.opts.Archiver.Archive(acct.ID, status); aerr != nil {
					alog.Error().Err(aerr).Msg("archive failed")
				}
			}

			if r.opts.Store != nil {
				msg := ""
				if err != nil {
					msg = err.Error()
				}
				if serr := r.opts.Store.RecordOutcome(runID, acct.ID, status, msg); serr != nil {
					alog.Warn().Err(serr).Msg("history write failed")
				}
			}

			mu.Lock()
			counts[status]++
			mu.Unlock()
		}(acct, chk)
	}

	q.Drain()
	wg.Wait()

	summary := &Summary{
		RunID:       runID,
		Accounts:    len(accounts),
		Proxies:     len(proxies),
		Concurrency: n,
		Counts:      counts,
		Elapsed:     time.Since(started),
	}

	if r.opts.Store != nil {
		if err := r.opts.Store.FinishRun(runID, time.Now()); err != nil {
			log.Warn().Err(err).Msg("history write failed")
		}
	}

	log.Info().
		Int("accounts", summary.Accounts).
		Int("active", counts[domain.StatusActive]).
		Int("banned", counts[domain.StatusBanned]).
		Int("limited", counts[domain.StatusLimited]).
		Int("unknown", counts[domain.StatusUnknown]).
		Dur("elapsed", summary.Elapsed).
		Msg("batch finished")

	return summary, nil
}
