/*
runqueue.go - Background simulation runs

PURPOSE:
  POST /api/runs returns immediately; the simulation executes on a small
  pool of workers and the client polls GET /api/runs/{id}.

DESIGN:
  - Bounded channel of jobs; Submit fails fast with ErrQueueFull
  - Each run is recorded as queued, then running, then completed/failed
  - The rendered report is stored as the run's result JSON
  - Stop cancels running simulations and waits for the workers
  - Recover marks runs left queued or running by a previous process as
    failed, since their in-memory jobs are gone

LIFECYCLE:
  q := NewRunQueue(repo, RunQueueOptions{Workers: 2, QueueSize: 64})
  q.Start()
  defer q.Stop()

SEE ALSO:
  - handlers.go: SubmitRun, GetRun
  - report/report.go: Simulate
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/production-engine/engine"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
	"github.com/warp/production-engine/report"
)

var (
	ErrQueueFull   = errors.New("run queue is full")
	ErrQueueClosed = errors.New("run queue is not running")
)

type RunQueueOptions struct {
	Workers   int
	QueueSize int
	Logger    *zap.Logger
	Metrics   *Metrics

	// Journal, when set, backs each run's cash ledger (for example the
	// sqlite entries table). Nil keeps journals in memory.
	Journal func(runID string) generic.Store
}

type job struct {
	run production.Run
	sc  *production.Scenario
}

// RunQueue executes submitted simulations in the background.
type RunQueue struct {
	repo Repository
	opts RunQueueOptions

	jobs   chan job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	open   bool
}

func NewRunQueue(repo Repository, opts RunQueueOptions) *RunQueue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &RunQueue{
		repo: repo,
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
}

// Start launches the workers.
func (q *RunQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.open {
		return
	}

	q.ctx, q.cancel = context.WithCancel(context.Background())
	q.open = true
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.opts.Logger.Info("run queue started",
		zap.Int("workers", q.opts.Workers), zap.Int("queue_size", q.opts.QueueSize))
}

// Stop cancels running simulations and waits for the workers to exit.
// Jobs still waiting in the channel stay queued in the repository.
func (q *RunQueue) Stop() {
	q.mu.Lock()
	if !q.open {
		q.mu.Unlock()
		return
	}
	q.open = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.opts.Logger.Info("run queue stopped")
}

// Recover fails runs that a previous process left queued or running.
func (q *RunQueue) Recover(ctx context.Context) (int, error) {
	count := 0
	for _, status := range []production.RunStatus{production.RunQueued, production.RunRunning} {
		runs, err := q.repo.ListRuns(ctx, status, 1000)
		if err != nil {
			return count, err
		}
		for _, r := range runs {
			full, err := q.repo.GetRun(ctx, r.ID)
			if err != nil {
				return count, err
			}
			now := time.Now().UTC()
			full.Status = production.RunFailed
			full.Error = "interrupted before completion"
			full.CompletedAt = &now
			if err := q.repo.SaveRun(ctx, *full); err != nil {
				return count, err
			}
			count++
		}
	}
	if count > 0 {
		q.opts.Logger.Warn("recovered interrupted runs", zap.Int("count", count))
	}
	return count, nil
}

// Submit records a queued run and hands it to a worker.
func (q *RunQueue) Submit(ctx context.Context, sc *production.Scenario, requestJSON string) (production.Run, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.open {
		return production.Run{}, ErrQueueClosed
	}

	run := production.Run{
		ID:          uuid.NewString(),
		Name:        sc.Name,
		OrderID:     sc.Order.ID,
		Status:      production.RunQueued,
		RequestJSON: requestJSON,
		CreatedAt:   time.Now().UTC(),
	}
	if len(q.jobs) == cap(q.jobs) && cap(q.jobs) > 0 {
		return production.Run{}, ErrQueueFull
	}
	if err := q.repo.SaveRun(ctx, run); err != nil {
		return production.Run{}, fmt.Errorf("failed to save run: %w", err)
	}

	select {
	case q.jobs <- job{run: run, sc: sc}:
	default:
		run.Status = production.RunFailed
		run.Error = ErrQueueFull.Error()
		_ = q.repo.SaveRun(ctx, run)
		return production.Run{}, ErrQueueFull
	}
	q.opts.Metrics.setQueueDepth(len(q.jobs))
	q.opts.Logger.Info("run queued", zap.String("run_id", run.ID), zap.String("scenario", run.Name))
	return run, nil
}

func (q *RunQueue) worker(id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case j := <-q.jobs:
			q.opts.Metrics.setQueueDepth(len(q.jobs))
			q.process(j)
		}
	}
}

func (q *RunQueue) process(j job) {
	run := j.run
	logger := q.opts.Logger.With(zap.String("run_id", run.ID))
	// Repository writes must survive a canceled simulation.
	store := context.WithoutCancel(q.ctx)

	started := time.Now().UTC()
	run.Status = production.RunRunning
	run.StartedAt = &started
	if err := q.repo.SaveRun(store, run); err != nil {
		logger.Error("failed to mark run as running", zap.Error(err))
	}

	opts := engine.Options{Logger: logger}
	if q.opts.Journal != nil {
		opts.Store = q.opts.Journal(run.ID)
	}

	rep, res, err := report.Simulate(q.ctx, j.sc, opts)
	elapsed := time.Since(started)
	done := time.Now().UTC()
	run.CompletedAt = &done

	if rep == nil {
		run.Status = production.RunFailed
		run.Error = err.Error()
		q.opts.Metrics.ObserveFailure(ModeQueued)
		logger.Error("run failed", zap.Error(err))
	} else {
		body, merr := json.Marshal(rep)
		if merr != nil {
			run.Status = production.RunFailed
			run.Error = merr.Error()
		} else {
			run.Status = production.RunCompleted
			run.ResultJSON = string(body)
		}
		run.Outcome = string(res.Status)
		run.TotalHours = res.TotalHours
		if err != nil {
			run.Error = err.Error()
		}
		q.opts.Metrics.ObserveRun(ModeQueued, res.Status, res.TotalHours, elapsed)
		logger.Info("run finished",
			zap.String("outcome", run.Outcome),
			zap.Int("total_hours", run.TotalHours),
			zap.Duration("elapsed", elapsed))
	}

	if err := q.repo.SaveRun(store, run); err != nil {
		logger.Error("failed to save run result", zap.Error(err))
	}
}
