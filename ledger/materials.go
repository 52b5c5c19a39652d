package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/production-engine/generic"
)

// =============================================================================
// MATERIAL BATCH - A placed purchase order
// =============================================================================

// MaterialBatch is born at replenishment and dies at arrival. Prepay is
// booked on OrderDay, postpay on ReadyDay, stock credited on ArrivalDay;
// each exactly once.
type MaterialBatch struct {
	ID         string
	MaterialID string
	Quantity   decimal.Decimal

	// snapshot at order time
	UnitCost decimal.Decimal
	VATRate  decimal.Decimal

	OrderDay   generic.Day
	ReadyDay   generic.Day
	ArrivalDay generic.Day

	PrepayNet  decimal.Decimal
	PrepayVAT  decimal.Decimal
	PostpayNet decimal.Decimal
	PostpayVAT decimal.Decimal

	PrepayBooked  bool
	PostpayBooked bool
	Arrived       bool
}

func (b *MaterialBatch) Net() decimal.Decimal { return b.PrepayNet.Add(b.PostpayNet) }
func (b *MaterialBatch) VAT() decimal.Decimal { return b.PrepayVAT.Add(b.PostpayVAT) }

// Stock returns the quantity on hand.
func (l *ResourceLedger) Stock(materialID string) decimal.Decimal {
	if q, ok := l.stock[materialID]; ok {
		return q
	}
	return decimal.Zero
}

// Consumed returns the cumulative quantity consumed by operations.
func (l *ResourceLedger) Consumed(materialID string) decimal.Decimal {
	if q, ok := l.consumed[materialID]; ok {
		return q
	}
	return decimal.Zero
}

// Batches returns every batch placed so far, in order.
func (l *ResourceLedger) Batches() []*MaterialBatch { return l.batches }

// InFlight reports whether a batch for the material has not arrived yet.
func (l *ResourceLedger) InFlight(materialID string) bool {
	for _, b := range l.batches {
		if b.MaterialID == materialID && !b.Arrived {
			return true
		}
	}
	return false
}

// AnyInFlight reports whether any batch has not arrived yet.
func (l *ResourceLedger) AnyInFlight() bool {
	for _, b := range l.batches {
		if !b.Arrived {
			return true
		}
	}
	return false
}

// IsShort reports whether a consumption failed on the material since its
// last replenishment.
func (l *ResourceLedger) IsShort(materialID string) bool {
	_, ok := l.short[materialID]
	return ok
}

// =============================================================================
// REPLENISHMENT
// =============================================================================

// DailyReplenishment orders a batch for every material the order uses when
// stock <= threshold * MinStock, or when a consumption came up short, and no
// batch for it is in flight. Prepay is booked on the order day. Batches with
// zero lead times are paid and received the same day.
func (l *ResourceLedger) DailyReplenishment(ctx context.Context, day generic.Day) ([]*MaterialBatch, error) {
	var placed []*MaterialBatch
	for _, id := range l.referenced {
		if l.InFlight(id) {
			continue
		}
		m := l.materials[id]
		shortfall, isShort := l.short[id]
		stock := l.Stock(id)
		threshold := l.settings.ReplenishmentThreshold.Mul(m.MinStock)
		if !isShort && !(m.MinStock.IsPositive() && stock.LessThanOrEqual(threshold)) {
			continue
		}

		terms, _ := l.sc.Terms(id)
		qty := terms.MinOrderQty
		if !qty.IsPositive() {
			qty = m.MinStock
		}
		if isShort && shortfall.GreaterThan(qty) {
			qty = shortfall
		}
		if !qty.IsPositive() {
			qty = decimal.NewFromInt(1)
		}

		prodLead, shipLead := terms.ProductionLeadDays, terms.ShippingLeadDays
		if !l.settings.WaitForDelivery {
			prodLead, shipLead = 0, 0
		}

		l.batchSeq++
		net := qty.Mul(m.UnitCost)
		vat := net.Mul(m.VATRate).Div(hundred)
		share := terms.PrepayPercent.Div(hundred)
		b := &MaterialBatch{
			ID:         fmt.Sprintf("%s-%d", id, l.batchSeq),
			MaterialID: id,
			Quantity:   qty,
			UnitCost:   m.UnitCost,
			VATRate:    m.VATRate,
			OrderDay:   day,
			ReadyDay:   day + generic.Day(prodLead),
			ArrivalDay: day + generic.Day(prodLead+shipLead),
			PrepayNet:  net.Mul(share),
			PrepayVAT:  vat.Mul(share),
		}
		b.PostpayNet = net.Sub(b.PrepayNet)
		b.PostpayVAT = vat.Sub(b.PrepayVAT)

		l.batches = append(l.batches, b)
		delete(l.short, id)
		l.totals.PurchasedNet = l.totals.PurchasedNet.Add(net)
		l.totals.PurchasedVAT = l.totals.PurchasedVAT.Add(vat)

		if _, err := l.book(ctx,
			cashOut(day, generic.CategoryMaterials, b.PrepayNet, b.ID, "batch prepay", "batch:"+b.ID+":prepay:net"),
			cashOut(day, generic.CategoryMaterialsVAT, b.PrepayVAT, b.ID, "batch prepay VAT", "batch:"+b.ID+":prepay:vat"),
		); err != nil {
			return placed, err
		}
		b.PrepayBooked = true
		placed = append(placed, b)

		l.logger.Debug("batch ordered",
			zap.String("batch", b.ID),
			zap.String("quantity", qty.String()),
			zap.Int("ready_day", int(b.ReadyDay)),
			zap.Int("arrival_day", int(b.ArrivalDay)),
		)

		if b.ReadyDay <= day {
			if err := l.bookPostpay(ctx, b, day); err != nil {
				return placed, err
			}
		}
		if b.ArrivalDay <= day {
			l.receive(b)
		}
	}
	return placed, nil
}

var hundred = decimal.NewFromInt(100)

// ProcessPostpay books the remaining net and VAT of every batch whose ready
// day has come.
func (l *ResourceLedger) ProcessPostpay(ctx context.Context, day generic.Day) ([]*MaterialBatch, error) {
	var paid []*MaterialBatch
	for _, b := range l.batches {
		if b.PostpayBooked || b.ReadyDay > day {
			continue
		}
		if err := l.bookPostpay(ctx, b, day); err != nil {
			return paid, err
		}
		paid = append(paid, b)
	}
	return paid, nil
}

func (l *ResourceLedger) bookPostpay(ctx context.Context, b *MaterialBatch, day generic.Day) error {
	if _, err := l.book(ctx,
		cashOut(day, generic.CategoryMaterials, b.PostpayNet, b.ID, "batch postpay", "batch:"+b.ID+":postpay:net"),
		cashOut(day, generic.CategoryMaterialsVAT, b.PostpayVAT, b.ID, "batch postpay VAT", "batch:"+b.ID+":postpay:vat"),
	); err != nil {
		return err
	}
	b.PostpayBooked = true
	return nil
}

// ProcessArrivals credits stock for every batch whose arrival day has come
// and takes it out of flight.
func (l *ResourceLedger) ProcessArrivals(day generic.Day) []*MaterialBatch {
	var arrived []*MaterialBatch
	for _, b := range l.batches {
		if b.Arrived || b.ArrivalDay > day {
			continue
		}
		l.receive(b)
		arrived = append(arrived, b)
	}
	return arrived
}

func (l *ResourceLedger) receive(b *MaterialBatch) {
	l.stock[b.MaterialID] = l.Stock(b.MaterialID).Add(b.Quantity)
	b.Arrived = true
}

// =============================================================================
// CONSUMPTION
// =============================================================================

// Consumption is one line of a consumption request.
type Consumption struct {
	MaterialID string
	Quantity   decimal.Decimal
}

// ConsumedMaterial is the per-material breakdown of a successful consumption.
type ConsumedMaterial struct {
	MaterialID string          `json:"material_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Net        decimal.Decimal `json:"net"`
	VAT        decimal.Decimal `json:"vat"`
}

// Shortage describes a material that could not cover its line.
type Shortage struct {
	MaterialID string          `json:"material_id"`
	Needed     decimal.Decimal `json:"needed"`
	InStock    decimal.Decimal `json:"in_stock"`
}

type ConsumptionResult struct {
	OK       bool
	Details  []ConsumedMaterial
	Shortage []Shortage
}

// ReserveAndConsume deducts every line or none. When any material is short
// nothing changes except that the material is flagged for replenishment.
func (l *ResourceLedger) ReserveAndConsume(lines []Consumption) ConsumptionResult {
	need := make(map[string]decimal.Decimal)
	var order []string
	for _, c := range lines {
		if !c.Quantity.IsPositive() {
			continue
		}
		if _, ok := need[c.MaterialID]; !ok {
			order = append(order, c.MaterialID)
			need[c.MaterialID] = decimal.Zero
		}
		need[c.MaterialID] = need[c.MaterialID].Add(c.Quantity)
	}

	var res ConsumptionResult
	for _, id := range order {
		stock := l.Stock(id)
		if need[id].GreaterThan(stock) {
			res.Shortage = append(res.Shortage, Shortage{MaterialID: id, Needed: need[id], InStock: stock})
		}
	}
	if len(res.Shortage) > 0 {
		for _, s := range res.Shortage {
			gap := s.Needed.Sub(s.InStock)
			if cur, ok := l.short[s.MaterialID]; !ok || gap.GreaterThan(cur) {
				l.short[s.MaterialID] = gap
			}
		}
		return res
	}

	for _, id := range order {
		q := need[id]
		left := l.Stock(id).Sub(q)
		if left.IsNegative() {
			panic(&generic.InvariantError{
				Invariant: "non_negative_stock",
				Subject:   id,
				Detail:    fmt.Sprintf("consuming %s leaves %s", q, left),
			})
		}
		l.stock[id] = left
		l.consumed[id] = l.Consumed(id).Add(q)

		m := l.materials[id]
		net := q.Mul(m.UnitCost)
		vat := net.Mul(m.VATRate).Div(hundred)
		l.totals.MaterialNet = l.totals.MaterialNet.Add(net)
		l.totals.MaterialVAT = l.totals.MaterialVAT.Add(vat)
		res.Details = append(res.Details, ConsumedMaterial{MaterialID: id, Quantity: q, Net: net, VAT: vat})
	}
	res.OK = true
	return res
}
