package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/mediahub/internal/store"
)

type Pruner interface {
	PruneDanglingReferences(ctx context.Context) (*store.Pruned, error)
}

// PruneTask removes references whose target no longer exists.
type PruneTask struct {
	store Pruner
	cron  string
}

func NewPruneTask(schedule string, store Pruner) *PruneTask {
	return &PruneTask{store: store, cron: schedule}
}

func (p *PruneTask) Name() string {
	return "prune"
}

func (p *PruneTask) Schedule() string {
	return p.cron
}

func (p *PruneTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := p.store.PruneDanglingReferences(ctx)
	if err != nil {
		logrus.Errorf("prune: %v", err)
		return
	}
	if pruned.Rows > 0 {
		logrus.Infof("prune: removed %d dangling references from %d resources", pruned.Rows, len(pruned.Parents))
	}
}
