package batch

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/farmaudit/farmaudit/internal/logger"
)

// ParseSchedule parses a five-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Watch reruns the batch on the given cron schedule and whenever account
// files under the batch root are created or rewritten. Runs execute
// sequentially, so a trigger firing mid-run simply queues the next run.
func (r *Runner) Watch(ctx context.Context, scheduleExpr string) error {
	sched, err := ParseSchedule(scheduleExpr)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the root and all existing subdirectories; directories created
	// later are picked up from their create events.
	err = filepath.WalkDir(r.opts.AccountsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	var mu sync.Mutex
	var debounce *time.Timer

	fire := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Create != 0 {
					// New directories need their own watch.
					_ = watcher.Add(event.Name)
				}
				if !strings.HasSuffix(event.Name, ".json") {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				mu.Lock()
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, fire)
				mu.Unlock()
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	for {
		timer := time.NewTimer(time.Until(sched.Next(time.Now())))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		case <-trigger:
			timer.Stop()
		}

		if _, err := r.Run(ctx); err != nil {
			logger.L.Error().Err(err).Msg("scheduled run failed")
		}
	}
}
