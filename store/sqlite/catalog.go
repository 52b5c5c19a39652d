package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// CATALOG (production.Loader)
// =============================================================================

// SaveCatalog replaces the whole catalog in one transaction.
func (s *Store) SaveCatalog(ctx context.Context, c *production.Catalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"employee_roles", "employees", "roles", "equipment", "materials", "processes", "periodic_expenses"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for _, m := range c.Materials {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO materials (id, name, unit, unit_cost, vat_rate, min_stock, min_order_qty,
				production_lead_days, shipping_lead_days, initial_stock)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.Unit, m.UnitCost.String(), m.VATRate.String(), m.MinStock.String(),
			m.MinOrderQty.String(), m.ProductionLeadDays, m.ShippingLeadDays, m.InitialStock.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save material %s: %w", m.ID, err)
		}
	}
	for _, e := range c.Equipment {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equipment (id, name, hourly_depreciation, productivity, counts_toward_utilization)
			VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.Name, e.HourlyDepreciation.String(), e.Productivity, e.CountsTowardUtilization,
		)
		if err != nil {
			return fmt.Errorf("failed to save equipment %s: %w", e.ID, err)
		}
	}
	for _, r := range c.Roles {
		if _, err := tx.ExecContext(ctx, `INSERT INTO roles (id, name, productivity) VALUES (?, ?, ?)`,
			r.ID, r.Name, r.Productivity); err != nil {
			return fmt.Errorf("failed to save role %s: %w", r.ID, err)
		}
	}
	for _, e := range c.Employees {
		if _, err := tx.ExecContext(ctx, `INSERT INTO employees (id, name, hourly_wage) VALUES (?, ?, ?)`,
			e.ID, e.Name, e.HourlyWage.String()); err != nil {
			return fmt.Errorf("failed to save employee %s: %w", e.ID, err)
		}
		for _, role := range e.RoleIDs {
			if _, err := tx.ExecContext(ctx, `INSERT INTO employee_roles (employee_id, role_id) VALUES (?, ?)`,
				e.ID, role); err != nil {
				return fmt.Errorf("failed to link employee %s to role %s: %w", e.ID, role, err)
			}
		}
	}
	for _, p := range c.Processes {
		chains, err := json.Marshal(p.Chains)
		if err != nil {
			return fmt.Errorf("failed to encode process %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO processes (id, name, chains_json) VALUES (?, ?, ?)`,
			p.ID, p.Name, string(chains)); err != nil {
			return fmt.Errorf("failed to save process %s: %w", p.ID, err)
		}
	}
	for _, x := range c.Expenses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO periodic_expenses (id, name, amount, period, vat_rate) VALUES (?, ?, ?, ?, ?)`,
			x.ID, x.Name, x.Amount.String(), string(x.Period), x.VATRate.String()); err != nil {
			return fmt.Errorf("failed to save expense %s: %w", x.ID, err)
		}
	}

	return tx.Commit()
}

// LoadCatalog reads the whole catalog, every list ordered by ID.
func (s *Store) LoadCatalog(ctx context.Context) (*production.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &production.Catalog{}

	err := s.each(ctx, `
		SELECT id, name, unit, unit_cost, vat_rate, min_stock, min_order_qty,
			production_lead_days, shipping_lead_days, initial_stock
		FROM materials ORDER BY id`, func(rows *sql.Rows) error {
		var m production.MaterialSpec
		var cost, vat, minStock, minOrder, initial string
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &cost, &vat, &minStock, &minOrder,
			&m.ProductionLeadDays, &m.ShippingLeadDays, &initial); err != nil {
			return err
		}
		m.UnitCost, m.VATRate = parseDecimal(cost), parseDecimal(vat)
		m.MinStock, m.MinOrderQty = parseDecimal(minStock), parseDecimal(minOrder)
		m.InitialStock = parseDecimal(initial)
		c.Materials = append(c.Materials, m)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}

	err = s.each(ctx, `
		SELECT id, name, hourly_depreciation, productivity, counts_toward_utilization
		FROM equipment ORDER BY id`, func(rows *sql.Rows) error {
		var e production.EquipmentSpec
		var dep string
		if err := rows.Scan(&e.ID, &e.Name, &dep, &e.Productivity, &e.CountsTowardUtilization); err != nil {
			return err
		}
		e.HourlyDepreciation = parseDecimal(dep)
		c.Equipment = append(c.Equipment, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment: %w", err)
	}

	err = s.each(ctx, `SELECT id, name, productivity FROM roles ORDER BY id`, func(rows *sql.Rows) error {
		var r production.RoleSpec
		if err := rows.Scan(&r.ID, &r.Name, &r.Productivity); err != nil {
			return err
		}
		c.Roles = append(c.Roles, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	roles := make(map[string][]string)
	err = s.each(ctx, `SELECT employee_id, role_id FROM employee_roles ORDER BY employee_id, role_id`, func(rows *sql.Rows) error {
		var emp, role string
		if err := rows.Scan(&emp, &role); err != nil {
			return err
		}
		roles[emp] = append(roles[emp], role)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load employee roles: %w", err)
	}

	err = s.each(ctx, `SELECT id, name, hourly_wage FROM employees ORDER BY id`, func(rows *sql.Rows) error {
		var e production.EmployeeSpec
		var wage string
		if err := rows.Scan(&e.ID, &e.Name, &wage); err != nil {
			return err
		}
		e.HourlyWage = parseDecimal(wage)
		e.RoleIDs = roles[e.ID]
		c.Employees = append(c.Employees, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}

	err = s.each(ctx, `SELECT id, name, chains_json FROM processes ORDER BY id`, func(rows *sql.Rows) error {
		var p production.ProcessSpec
		var chains string
		if err := rows.Scan(&p.ID, &p.Name, &chains); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(chains), &p.Chains); err != nil {
			return fmt.Errorf("process %s: %w", p.ID, err)
		}
		c.Processes = append(c.Processes, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load processes: %w", err)
	}

	err = s.each(ctx, `SELECT id, name, amount, period, vat_rate FROM periodic_expenses ORDER BY id`, func(rows *sql.Rows) error {
		var x production.PeriodicExpense
		var amount, period, vat string
		if err := rows.Scan(&x.ID, &x.Name, &amount, &period, &vat); err != nil {
			return err
		}
		x.Amount, x.Period, x.VATRate = parseDecimal(amount), generic.Period(period), parseDecimal(vat)
		c.Expenses = append(c.Expenses, x)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	return c, nil
}

// =============================================================================
// ORDERS
// =============================================================================

// SaveOrder inserts or replaces an order and its items.
func (s *Store) SaveOrder(ctx context.Context, o *production.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := json.Marshal(o.BatchParams)
	if err != nil {
		return fmt.Errorf("failed to encode batch params: %w", err)
	}
	payments, err := json.Marshal(o.PaymentSchedule)
	if err != nil {
		return fmt.Errorf("failed to encode payments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, name, batch_params_json, payments_json, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			batch_params_json = excluded.batch_params_json,
			payments_json = excluded.payments_json`,
		o.ID, o.Name, string(batch), string(payments), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, o.ID); err != nil {
		return fmt.Errorf("failed to clear order items: %w", err)
	}
	for i, it := range o.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, id, position, name, process_id, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ID, it.ID, i, it.Name, it.ProcessID, it.Quantity.String(), it.UnitPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to save order item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// LoadOrder returns generic.ErrEntityNotFound when the order does not exist.
func (s *Store) LoadOrder(ctx context.Context, orderID string) (*production.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o := &production.Order{ID: orderID}
	var batch, payments string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, batch_params_json, payments_json FROM orders WHERE id = ?`, orderID,
	).Scan(&o.Name, &batch, &payments)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, generic.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if err := json.Unmarshal([]byte(batch), &o.BatchParams); err != nil {
		return nil, fmt.Errorf("order %s batch params: %w", orderID, err)
	}
	if err := json.Unmarshal([]byte(payments), &o.PaymentSchedule); err != nil {
		return nil, fmt.Errorf("order %s payments: %w", orderID, err)
	}

	err = s.each(ctx, `
		SELECT id, name, process_id, quantity, unit_price
		FROM order_items WHERE order_id = ? ORDER BY position`, func(rows *sql.Rows) error {
		var it production.OrderItem
		var qty, price string
		if err := rows.Scan(&it.ID, &it.Name, &it.ProcessID, &qty, &price); err != nil {
			return err
		}
		it.Quantity, it.UnitPrice = parseDecimal(qty), parseDecimal(price)
		o.Items = append(o.Items, it)
		return nil
	}, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	return o, nil
}

// OrderSummary is a row of ListOrders.
type OrderSummary struct {
	ID    string
	Name  string
	Items int
}

func (s *Store) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []OrderSummary
	err := s.each(ctx, `
		SELECT o.id, o.name, COUNT(i.id)
		FROM orders o LEFT JOIN order_items i ON i.order_id = o.id
		GROUP BY o.id, o.name ORDER BY o.id`, func(rows *sql.Rows) error {
		var o OrderSummary
		if err := rows.Scan(&o.ID, &o.Name, &o.Items); err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

// each runs a query and calls fn per row. Callers hold the lock.
func (s *Store) each(ctx context.Context, query string, fn func(*sql.Rows) error, args ...any) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
