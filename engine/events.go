package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/ledger"
)

// =============================================================================
// EVENTS - Observable trace of a run
// =============================================================================

type EventKind string

const (
	EventStarted       EventKind = "started"
	EventWaiting       EventKind = "waiting"
	EventCycleComplete EventKind = "cycle_complete"
	EventCompleted     EventKind = "completed"
	EventShortage      EventKind = "shortage"
	EventBatchOrdered  EventKind = "batch_ordered"
	EventBatchPostpaid EventKind = "batch_postpaid"
	EventBatchArrived  EventKind = "batch_arrived"
	EventClientPayment EventKind = "client_payment"
	EventTerminated    EventKind = "terminated"
)

type Level string

const (
	LevelInfo Level = "info"
	LevelWarn Level = "warn"
)

// Waiting reasons. A waiting operation retries every hour.
const (
	WaitOneTimePending  = "one_time_chain_pending"
	WaitPrevious        = "previous_operation_incomplete"
	WaitUpstream        = "upstream_not_ready"
	WaitWorkers         = ledger.ReasonNoWorker
	WaitEquipmentBusy   = ledger.ReasonEquipmentBusy
	WaitUnknownResource = ledger.ReasonUnknownRequest
)

type Event struct {
	Hour      generic.Hour `json:"hour"`
	Day       generic.Day  `json:"day"`
	Kind      EventKind    `json:"kind"`
	Level     Level        `json:"level"`
	Operation string       `json:"operation,omitempty"`
	Material  string       `json:"material,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Message   string       `json:"message"`
}

// ProductionLog is one finished cycle of one operation.
type ProductionLog struct {
	Hour         generic.Hour              `json:"hour"`
	Day          generic.Day               `json:"day"`
	ItemID       string                    `json:"item_id"`
	ChainID      string                    `json:"chain_id"`
	OperationID  string                    `json:"operation_id"`
	Produced     decimal.Decimal           `json:"produced"`
	Pulled       decimal.Decimal           `json:"pulled"`
	Materials    []ledger.ConsumedMaterial `json:"materials,omitempty"`
	Labor        decimal.Decimal           `json:"labor"`
	Depreciation decimal.Decimal           `json:"depreciation"`
}

// HourSnapshot is passed to Options.OnHour after admission.
type HourSnapshot struct {
	Hour          generic.Hour
	Day           generic.Day
	Active        []string
	BusyEquipment []string
	BusyEmployees []string
}

func (e *Engine) emit(ev Event) {
	if ev.Level == "" {
		ev.Level = LevelInfo
	}
	e.events = append(e.events, ev)

	fields := []zap.Field{
		zap.Int("hour", int(ev.Hour)),
		zap.Int("day", int(ev.Day)),
		zap.String("kind", string(ev.Kind)),
	}
	if ev.Operation != "" {
		fields = append(fields, zap.String("operation", ev.Operation))
	}
	if ev.Material != "" {
		fields = append(fields, zap.String("material", ev.Material))
	}
	if ev.Reason != "" {
		fields = append(fields, zap.String("reason", ev.Reason))
	}
	if ev.Level == LevelWarn {
		e.logger.Warn(ev.Message, fields...)
		return
	}
	e.logger.Debug(ev.Message, fields...)
}
