// Package backup writes scheduled, timestamped copies of the committed
// schedule document. Copies are taken from the store's canonical encoding,
// never by re-reading the live backing file, so a backup can never observe a
// half-written document.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"teamcal/internal/log"
	"teamcal/internal/store"
)

// stampLayout names backup files sortably: schedule-20260131T154500.json.
const stampLayout = "20060102T150405"

// Runner owns the cron schedule and the backup directory.
type Runner struct {
	store *store.Store
	dir   string
	keep  int
	cron  *cron.Cron
	nowFn func() time.Time
}

// New constructs a runner. keep bounds how many copies are retained; values
// below 1 are clamped to 1.
func New(st *store.Store, dir string, keep int) *Runner {
	if keep < 1 {
		keep = 1
	}
	return &Runner{
		store: st,
		dir:   dir,
		keep:  keep,
		nowFn: time.Now,
	}
}

// Start registers the cron spec and begins running backups in the background
// until ctx is canceled. An empty spec disables scheduling; RunOnce can still
// be called manually.
func (r *Runner) Start(ctx context.Context, spec string) error {
	if spec == "" {
		log.Info("scheduled backups disabled")
		return nil
	}

	r.cron = cron.New()
	_, err := r.cron.AddFunc(spec, func() {
		if err := r.RunOnce(context.Background()); err != nil {
			log.Error("scheduled backup failed", err, "dir", r.dir)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid backup cron spec %q: %w", spec, err)
	}

	r.cron.Start()
	log.Info("scheduled backups started", "cron", spec, "dir", r.dir, "keep", r.keep)

	go func() {
		<-ctx.Done()
		stopCtx := r.cron.Stop()
		<-stopCtx.Done()
	}()
	return nil
}

// RunOnce writes one backup copy and prunes old ones.
func (r *Runner) RunOnce(_ context.Context) error {
	data, err := r.store.EncodedSnapshot()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	name := "schedule-" + r.nowFn().UTC().Format(stampLayout) + ".json"
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	log.Info("backup written", "path", path, "bytes", len(data))

	return r.prune()
}

// prune removes the oldest backups beyond the retention count. The timestamp
// in the filename sorts lexicographically in time order.
func (r *Runner) prune() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if filepath.Ext(n) == ".json" && len(n) > len("schedule-") && n[:len("schedule-")] == "schedule-" {
			names = append(names, n)
		}
	}
	if len(names) <= r.keep {
		return nil
	}

	sort.Strings(names)
	for _, n := range names[:len(names)-r.keep] {
		if err := os.Remove(filepath.Join(r.dir, n)); err != nil {
			return err
		}
		log.Debug("backup pruned", "name", n)
	}
	return nil
}
