package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrgen/mediahub/internal/importer"
	"github.com/emrgen/mediahub/internal/progress"
	"github.com/emrgen/mediahub/internal/resource"
	"github.com/emrgen/mediahub/internal/schema"
	"github.com/emrgen/mediahub/internal/source"
	"github.com/emrgen/mediahub/internal/store"
	"github.com/emrgen/mediahub/internal/tester"
	"github.com/emrgen/mediahub/internal/value"
)

type blockingJob struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	runs    int
}

func (b *blockingJob) Name() string { return "blocking" }

func (b *blockingJob) Run() {
	b.mu.Lock()
	b.runs++
	b.mu.Unlock()
	b.started <- struct{}{}
	<-b.release
}

func TestTaskExecutorSkipsOverlappingRuns(t *testing.T) {
	job := &blockingJob{started: make(chan struct{}, 1), release: make(chan struct{})}
	exec := NewTaskExecutor()
	run := exec.guard(job)

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	<-job.started

	run() // returns at once, the first run still holds the slot
	close(job.release)
	<-done

	job.mu.Lock()
	assert.Equal(t, 1, job.runs)
	job.mu.Unlock()

	job.release = make(chan struct{})
	close(job.release)
	run()
	<-job.started
	assert.Equal(t, 2, job.runs)
}

func TestTaskExecutorRejectsBadSchedule(t *testing.T) {
	exec := NewTaskExecutor(NewPruneTask("not a schedule", nil))
	assert.Error(t, exec.Run())
}

type fakeRefresher struct {
	ids  []uuid.UUID
	fail map[uuid.UUID]bool
}

func (f *fakeRefresher) Refresh(_ context.Context, id uuid.UUID, _ source.Type, _ string, _ progress.Func) (*importer.Result, error) {
	f.ids = append(f.ids, id)
	if f.fail[id] {
		return nil, errors.New("gone")
	}
	return &importer.Result{Diagnostics: []importer.Diagnostic{}}, nil
}

func TestRefreshTaskRefreshesStaleResources(t *testing.T) {
	ctx := context.Background()
	s := store.NewGormStore(tester.TestDB(t))

	var linked []uuid.UUID
	for _, uri := range []string{"spotify:artist:1", "spotify:artist:2"} {
		r := resource.New(resource.KindArtist, uri)
		r.Set(schema.KeyName, value.NewText(uri))
		saved, _, err := s.UpsertByRemote(ctx, source.Spotify, uri, r)
		require.NoError(t, err)
		linked = append(linked, saved.ID)
	}
	local := resource.New(resource.KindCollection, "mine")
	local.Set(schema.KeyName, value.NewText("mine"))
	_, err := s.Create(ctx, local)
	require.NoError(t, err)

	refresher := &fakeRefresher{fail: map[uuid.UUID]bool{linked[0]: true}}
	NewRefreshTask("@hourly", -time.Hour, 10, s, refresher).Run()
	assert.ElementsMatch(t, linked, refresher.ids)

	refresher.ids = nil
	NewRefreshTask("@hourly", time.Hour, 10, s, refresher).Run()
	assert.Empty(t, refresher.ids)
}

type countingPruner struct {
	calls int
	err   error
}

func (c *countingPruner) PruneDanglingReferences(context.Context) (*store.Pruned, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &store.Pruned{Rows: 3}, nil
}

func TestPruneTask(t *testing.T) {
	p := &countingPruner{}
	task := NewPruneTask("@daily", p)
	assert.Equal(t, "prune", task.Name())
	assert.Equal(t, "@daily", task.Schedule())

	task.Run()
	p.err = errors.New("locked")
	task.Run()
	assert.Equal(t, 2, p.calls)
}
