package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/importer"
	"github.com/emrgen/mediahub/internal/progress"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/source"
)

// StaleLister finds linked resources that have not been written recently.
type StaleLister interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]*resource.Resource, error)
}

type Refresher interface {
	Refresh(ctx context.Context, id uuid.UUID, src source.Type, user string, fn progress.Func) (*importer.Result, error)
}

// RefreshTask re-imports linked resources older than MaxAge, a batch per run.
type RefreshTask struct {
	store     StaleLister
	refresher Refresher
	cron      string
	maxAge    time.Duration
	batch     int
	timeout   time.Duration
}

func NewRefreshTask(schedule string, maxAge time.Duration, batch int, store StaleLister, refresher Refresher) *RefreshTask {
	if batch <= 0 {
		batch = 20
	}
	return &RefreshTask{
		store:     store,
		refresher: refresher,
		cron:      schedule,
		maxAge:    maxAge,
		batch:     batch,
		timeout:   10 * time.Minute,
	}
}

func (r *RefreshTask) Name() string {
	return "refresh"
}

func (r *RefreshTask) Schedule() string {
	return r.cron
}

func (r *RefreshTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	stale, err := r.store.ListStale(ctx, time.Now().Add(-r.maxAge), r.batch)
	if err != nil {
		logrus.Errorf("refresh: list stale resources: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	var failed int
	for _, res := range stale {
		log := logrus.WithFields(logrus.Fields{"id": res.ID, "type": res.Kind, "title": res.Title})
		out, err := r.refresher.Refresh(ctx, res.ID, "", "", nil)
		if err != nil {
			if ctx.Err() != nil {
				log.Warn("refresh: stopped, run timed out")
				return
			}
			failed++
			log.Warnf("refresh failed: %v", err)
			continue
		}
		if len(out.Diagnostics) > 0 {
			log.Infof("refreshed with %d diagnostics", len(out.Diagnostics))
		}
	}
	logrus.Infof("refresh: %d resources refreshed, %d failed", len(stale)-failed, failed)
}
