/*
Package engine is the time-stepped production scheduler.

PURPOSE:
  Given a validated scenario, advance the clock one working hour at a time,
  decide which operations run, how much they produce, what they consume,
  and let the ledger book what it costs. Nothing here is optimized: chains
  and operations are attempted in their authored order, and contention is
  reproduced, not solved.

HOUR LOOP (order matters):
  1. Release staged output from the previous hour (one-hour hand-off)
  2. Release holds whose busy-until hour has passed
  3. Finish cycles that end this hour: produce, consume, complete or roll
  4. Stop if every chain of every item is complete
  5. At a day boundary: close the previous day, open the new one
  6. Reset per-hour minute budgets
  7. Book this hour's cost of continuous holds
  8. Admit waiting operations in chain order, then operation order
  9. Emit waiting diagnostics when the reason changed

TERMINATION:
  completed          everything done; TotalHours is the hour it was seen
  did_not_converge   MaxHours reached with work left
  deadlocked         a whole working day with nothing active and no batch
                     in flight
  canceled           ctx canceled; checked once per hour

  Non-convergence and deadlock are results, not errors. Configuration
  problems are returned as *production.ConfigError before hour 0.

AFTER THE LOOP:
  The last production day is closed and end-of-run settlements are booked
  on it. Tail days then process in-flight batches and remaining client
  payments; nothing is produced or accrued on them.

SEE ALSO:
  - admission.go: step 8
  - cycle.go: step 3 and productivity
  - ownership.go: multi-hour holds
  - ledger/: stock, minutes and cash
*/
package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/ledger"
	"github.com/warp/production-engine/production"
	"github.com/warp/production-engine/variance"
)

// =============================================================================
// OPTIONS AND RESULT
// =============================================================================

type Options struct {
	Logger *zap.Logger

	// Store backs the run's cash log. Defaults to memory.
	Store generic.Store

	// OnHour is called once per simulated hour after admission.
	OnHour func(HourSnapshot)
}

type Status string

const (
	StatusCompleted      Status = "completed"
	StatusDidNotConverge Status = "did_not_converge"
	StatusDeadlocked     Status = "deadlocked"
	StatusCanceled       Status = "canceled"
)

type OperationStatus string

const (
	OpNotStarted OperationStatus = "not_started"
	OpActive     OperationStatus = "active"
	OpCompleted  OperationStatus = "completed"
)

// OperationResult is the final state of one runtime operation.
type OperationResult struct {
	Key           string               `json:"key"`
	ItemID        string               `json:"item_id"`
	ChainID       string               `json:"chain_id"`
	OperationID   string               `json:"operation_id"`
	Name          string               `json:"name"`
	Type          production.ChainType `json:"type"`
	Status        OperationStatus      `json:"status"`
	Target        decimal.Decimal      `json:"target"`
	Produced      decimal.Decimal      `json:"produced"`
	Transferred   decimal.Decimal      `json:"transferred"`
	Pulled        decimal.Decimal      `json:"pulled"`
	StartedHour   *generic.Hour        `json:"started_hour,omitempty"`
	CompletedHour *generic.Hour        `json:"completed_hour,omitempty"`
	Cycles        int                  `json:"cycles"`
	Labor         decimal.Decimal      `json:"labor"`
	Depreciation  decimal.Decimal      `json:"depreciation"`
	MaterialNet   decimal.Decimal      `json:"material_net"`
	MaterialVAT   decimal.Decimal      `json:"material_vat"`
}

// ChainResult is what a chain delivered.
type ChainResult struct {
	ItemID   string               `json:"item_id"`
	ChainID  string               `json:"chain_id"`
	Type     production.ChainType `json:"type"`
	Finished decimal.Decimal      `json:"finished"`
	Complete bool                 `json:"complete"`
}

type Result struct {
	Status     Status      `json:"status"`
	TotalHours int         `json:"total_hours"`
	LastDay    generic.Day `json:"last_production_day"`
	FinalDay   generic.Day `json:"final_day"`

	Operations []OperationResult `json:"operations"`
	Chains     []ChainResult     `json:"chains"`
	Logs       []ProductionLog   `json:"logs"`
	Events     []Event           `json:"events"`

	Scenario *production.Scenario   `json:"-"`
	Ledger   *ledger.ResourceLedger `json:"-"`
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	sc       *production.Scenario
	settings production.Settings
	clock    generic.Clock
	variance *variance.Policy
	ledger   *ledger.ResourceLedger
	own      *Ownership
	logger   *zap.Logger
	onHour   func(HourSnapshot)

	items  []*production.Item
	states []*opState

	events []Event
	logs   []ProductionLog
}

// New validates the scenario and prepares a run. It does not advance time.
func New(ctx context.Context, sc *production.Scenario, opts Options) (*Engine, error) {
	run := *sc
	run.Settings = sc.Settings.WithDefaults()
	if err := run.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("scenario", run.Name), zap.String("order", run.Order.ID))

	l, err := ledger.New(ctx, &run, ledger.Options{Store: opts.Store, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	e := &Engine{
		sc:       &run,
		settings: run.Settings,
		clock:    run.Settings.Clock(),
		variance: variance.NewPolicy(run.Settings.VarianceMode, run.Settings.VariancePercent, run.Settings.Seed),
		ledger:   l,
		own:      NewOwnership(),
		logger:   logger,
		onHour:   opts.OnHour,
		items:    production.BuildItems(&run),
	}
	for _, item := range e.items {
		for ci, ch := range item.Chains {
			for _, op := range ch.Ops {
				e.states = append(e.states, newOpState(op, ch, item, ci))
			}
		}
	}
	return e, nil
}

// Run is New followed by Engine.Run.
func Run(ctx context.Context, sc *production.Scenario, opts Options) (*Result, error) {
	e, err := New(ctx, sc, opts)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx)
}

// Run advances the clock until a terminal state. A canceled context
// returns the partial result together with ctx.Err().
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	var (
		status    Status
		h         generic.Hour
		openDay   generic.Day
		idleHours int
	)

	e.logger.Info("simulation started",
		zap.Int("operations", len(e.states)),
		zap.Int("max_hours", e.settings.MaxHours),
	)

	for h = 0; ; h++ {
		if err := ctx.Err(); err != nil {
			status = StatusCanceled
			e.emit(Event{Hour: h, Day: openDay, Kind: EventTerminated, Level: LevelWarn, Reason: string(status), Message: "simulation canceled"})
			return e.result(status, h, openDay, openDay), err
		}

		e.releaseStaged()
		e.own.ReleaseExpired(h)
		e.finishCycles(h)

		if e.allComplete() {
			status = StatusCompleted
			e.releaseStaged()
			break
		}
		if int(h) >= e.settings.MaxHours {
			status = StatusDidNotConverge
			e.emit(Event{Hour: h, Day: openDay, Kind: EventTerminated, Level: LevelWarn, Reason: string(status),
				Message: fmt.Sprintf("no completion within %d hours", e.settings.MaxHours)})
			break
		}

		if e.clock.IsDayStart(h) {
			if openDay > 0 {
				if err := e.ledger.CloseDay(ctx, openDay); err != nil {
					return nil, err
				}
			}
			openDay = e.clock.DayOf(h)
			if err := e.openDay(ctx, h, openDay); err != nil {
				return nil, err
			}
		}

		e.ledger.ResetHourAllocations()
		e.commitHolds(openDay)
		e.admit(h, openDay)
		e.diagnose(h, openDay)

		if e.onHour != nil {
			e.onHour(e.snapshot(h, openDay))
		}

		if e.activeCount() == 0 && !e.ledger.AnyInFlight() {
			idleHours++
		} else {
			idleHours = 0
		}
		if idleHours >= e.clock.HoursPerDay {
			status = StatusDeadlocked
			e.emit(Event{Hour: h, Day: openDay, Kind: EventTerminated, Level: LevelWarn, Reason: string(status),
				Message: "no operation can start and nothing is on order"})
			h++
			break
		}
	}

	if openDay > 0 {
		if err := e.ledger.CloseDay(ctx, openDay); err != nil {
			return nil, err
		}
		if err := e.ledger.FinalSettlement(ctx, openDay); err != nil {
			return nil, err
		}
	}

	finalDay := openDay
	for d := openDay + 1; d <= e.ledger.LastScheduledDay(); d++ {
		if err := ctx.Err(); err != nil {
			return e.result(StatusCanceled, h, openDay, finalDay), err
		}
		open, err := e.ledger.OpenTailDay(ctx, d)
		if err != nil {
			return nil, err
		}
		e.dayEvents(e.clock.FirstHour(d), open)
		finalDay = d
	}

	e.logger.Info("simulation finished",
		zap.String("status", string(status)),
		zap.Int("total_hours", int(h)),
		zap.Int("final_day", int(finalDay)),
	)
	return e.result(status, h, openDay, finalDay), nil
}

// Ledger exposes the run's ledger, mainly for tests and reporting.
func (e *Engine) Ledger() *ledger.ResourceLedger { return e.ledger }

// Scenario is the scenario with defaults applied.
func (e *Engine) Scenario() *production.Scenario { return e.sc }

// =============================================================================
// HOUR STEPS
// =============================================================================

func (e *Engine) releaseStaged() {
	for _, item := range e.items {
		for _, ch := range item.Chains {
			ch.ReleaseStaged()
		}
	}
}

func (e *Engine) allComplete() bool {
	for _, item := range e.items {
		if !item.IsComplete() {
			return false
		}
	}
	return true
}

func (e *Engine) activeCount() int {
	n := 0
	for _, s := range e.states {
		if s.status == OpActive {
			n++
		}
	}
	return n
}

func (e *Engine) openDay(ctx context.Context, h generic.Hour, day generic.Day) error {
	open, err := e.ledger.OpenDay(ctx, day)
	if err != nil {
		return err
	}
	e.dayEvents(h, open)
	return nil
}

func (e *Engine) dayEvents(h generic.Hour, open ledger.DayOpening) {
	for _, b := range open.Arrived {
		e.emit(Event{Hour: h, Day: open.Day, Kind: EventBatchArrived, Material: b.MaterialID,
			Message: fmt.Sprintf("batch %s arrived: %s units", b.ID, b.Quantity)})
	}
	for _, b := range open.Postpaid {
		e.emit(Event{Hour: h, Day: open.Day, Kind: EventBatchPostpaid, Material: b.MaterialID,
			Message: fmt.Sprintf("batch %s postpaid", b.ID)})
	}
	for _, b := range open.Ordered {
		e.emit(Event{Hour: h, Day: open.Day, Kind: EventBatchOrdered, Material: b.MaterialID,
			Message: fmt.Sprintf("batch %s ordered: %s units, arrives day %d", b.ID, b.Quantity, b.ArrivalDay)})
	}
	if open.Inflow.IsPositive() {
		e.emit(Event{Hour: h, Day: open.Day, Kind: EventClientPayment,
			Message: fmt.Sprintf("client payment %s", open.Inflow.StringFixed(2))})
	}
}

// commitHolds books one hour of every continuous hold.
func (e *Engine) commitHolds(day generic.Day) {
	for _, s := range e.states {
		if s.status != OpActive || (len(s.heldStaff) == 0 && len(s.heldEquipment) == 0) {
			continue
		}
		cost := e.ledger.Commit(ledger.Allocation{
			Capacity:  1,
			Employees: s.heldStaff,
			Equipment: s.heldEquipment,
			Minutes:   ledger.HourMinutes,
		}, day, e.variance.CostMultiplier(), e.variance.CostMultiplier())
		s.addCost(cost)
	}
}

func (e *Engine) snapshot(h generic.Hour, day generic.Day) HourSnapshot {
	snap := HourSnapshot{
		Hour:          h,
		Day:           day,
		BusyEquipment: e.own.Busy(generic.ResourceEquipment, h),
		BusyEmployees: e.own.Busy(generic.ResourceEmployee, h),
	}
	for _, s := range e.states {
		if s.status == OpActive {
			snap.Active = append(snap.Active, s.op.Key())
		}
	}
	return snap
}

func (e *Engine) result(status Status, h generic.Hour, lastDay, finalDay generic.Day) *Result {
	res := &Result{
		Status:     status,
		TotalHours: int(h),
		LastDay:    lastDay,
		FinalDay:   finalDay,
		Logs:       e.logs,
		Events:     e.events,
		Scenario:   e.sc,
		Ledger:     e.ledger,
	}
	for _, s := range e.states {
		res.Operations = append(res.Operations, s.result())
	}
	for _, item := range e.items {
		for _, ch := range item.Chains {
			res.Chains = append(res.Chains, ChainResult{
				ItemID:   item.Spec.ID,
				ChainID:  ch.Spec.ID,
				Type:     ch.Type(),
				Finished: ch.Finished(),
				Complete: ch.IsComplete(),
			})
		}
	}
	return res
}
