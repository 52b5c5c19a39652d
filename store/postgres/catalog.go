package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/production"
)

// =============================================================================
// CATALOG (production.Loader)
// =============================================================================

// SaveCatalog replaces the whole catalog in one transaction.
func (s *Store) SaveCatalog(ctx context.Context, c *production.Catalog) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			TRUNCATE employee_roles, employees, roles, equipment, materials,
				processes, periodic_expenses`); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}

		batch := &pgx.Batch{}
		for _, m := range c.Materials {
			batch.Queue(`
				INSERT INTO materials (id, name, unit, unit_cost, vat_rate, min_stock, min_order_qty,
					production_lead_days, shipping_lead_days, initial_stock)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				m.ID, m.Name, m.Unit, m.UnitCost.String(), m.VATRate.String(), m.MinStock.String(),
				m.MinOrderQty.String(), m.ProductionLeadDays, m.ShippingLeadDays, m.InitialStock.String())
		}
		for _, e := range c.Equipment {
			batch.Queue(`
				INSERT INTO equipment (id, name, hourly_depreciation, productivity, counts_toward_utilization)
				VALUES ($1, $2, $3, $4, $5)`,
				e.ID, e.Name, e.HourlyDepreciation.String(), e.Productivity, e.CountsTowardUtilization)
		}
		for _, r := range c.Roles {
			batch.Queue(`INSERT INTO roles (id, name, productivity) VALUES ($1, $2, $3)`,
				r.ID, r.Name, r.Productivity)
		}
		for _, e := range c.Employees {
			batch.Queue(`INSERT INTO employees (id, name, hourly_wage) VALUES ($1, $2, $3)`,
				e.ID, e.Name, e.HourlyWage.String())
			for _, role := range e.RoleIDs {
				batch.Queue(`INSERT INTO employee_roles (employee_id, role_id) VALUES ($1, $2)`, e.ID, role)
			}
		}
		for _, p := range c.Processes {
			chains, err := json.Marshal(p.Chains)
			if err != nil {
				return fmt.Errorf("failed to encode process %s: %w", p.ID, err)
			}
			batch.Queue(`INSERT INTO processes (id, name, chains) VALUES ($1, $2, $3)`,
				p.ID, p.Name, string(chains))
		}
		for _, x := range c.Expenses {
			batch.Queue(`
				INSERT INTO periodic_expenses (id, name, amount, period, vat_rate)
				VALUES ($1, $2, $3, $4, $5)`,
				x.ID, x.Name, x.Amount.String(), string(x.Period), x.VATRate.String())
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to save catalog: %w", err)
		}
		return nil
	})
}

// LoadCatalog reads the whole catalog, every list ordered by ID.
func (s *Store) LoadCatalog(ctx context.Context) (*production.Catalog, error) {
	c := &production.Catalog{}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, unit, unit_cost::text, vat_rate::text, min_stock::text, min_order_qty::text,
			production_lead_days, shipping_lead_days, initial_stock::text
		FROM materials ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load materials: %w", err)
	}
	err = collect(rows, func(rows pgx.Rows) error {
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

	rows, err = s.pool.Query(ctx, `
		SELECT id, name, hourly_depreciation::text, productivity, counts_toward_utilization
		FROM equipment ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load equipment: %w", err)
	}
	err = collect(rows, func(rows pgx.Rows) error {
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

	rows, err = s.pool.Query(ctx, `SELECT id, name, productivity FROM roles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	err = collect(rows, func(rows pgx.Rows) error {
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

	rows, err = s.pool.Query(ctx, `
		SELECT e.id, e.name, e.hourly_wage::text,
			COALESCE(array_agg(r.role_id ORDER BY r.role_id) FILTER (WHERE r.role_id IS NOT NULL), '{}')
		FROM employees e LEFT JOIN employee_roles r ON r.employee_id = e.id
		GROUP BY e.id, e.name, e.hourly_wage ORDER BY e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}
	err = collect(rows, func(rows pgx.Rows) error {
		var e production.EmployeeSpec
		var wage string
		if err := rows.Scan(&e.ID, &e.Name, &wage, &e.RoleIDs); err != nil {
			return err
		}
		e.HourlyWage = parseDecimal(wage)
		if len(e.RoleIDs) == 0 {
			e.RoleIDs = nil
		}
		c.Employees = append(c.Employees, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load employees: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT id, name, chains::text FROM processes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load processes: %w", err)
	}
	err = collect(rows, func(rows pgx.Rows) error {
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

	rows, err = s.pool.Query(ctx, `
		SELECT id, name, amount::text, period, vat_rate::text
		FROM periodic_expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	err = collect(rows, func(rows pgx.Rows) error {
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
	params, err := json.Marshal(o.BatchParams)
	if err != nil {
		return fmt.Errorf("failed to encode batch params: %w", err)
	}
	payments, err := json.Marshal(o.PaymentSchedule)
	if err != nil {
		return fmt.Errorf("failed to encode payments: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, name, batch_params, payments)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				batch_params = EXCLUDED.batch_params,
				payments = EXCLUDED.payments`,
			o.ID, o.Name, string(params), string(payments))
		if err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("failed to clear order items: %w", err)
		}
		for i, it := range o.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_items (order_id, id, position, name, process_id, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				o.ID, it.ID, i, it.Name, it.ProcessID, it.Quantity.String(), it.UnitPrice.String())
			if err != nil {
				return fmt.Errorf("failed to save order item %s: %w", it.ID, err)
			}
		}
		return nil
	})
}

// LoadOrder returns generic.ErrEntityNotFound when the order does not exist.
func (s *Store) LoadOrder(ctx context.Context, orderID string) (*production.Order, error) {
	o := &production.Order{ID: orderID}
	var params, payments string
	err := s.pool.QueryRow(ctx,
		`SELECT name, batch_params::text, payments::text FROM orders WHERE id = $1`, orderID,
	).Scan(&o.Name, &params, &payments)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", orderID, generic.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &o.BatchParams); err != nil {
		return nil, fmt.Errorf("order %s batch params: %w", orderID, err)
	}
	if err := json.Unmarshal([]byte(payments), &o.PaymentSchedule); err != nil {
		return nil, fmt.Errorf("order %s payments: %w", orderID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, process_id, quantity::text, unit_price::text
		FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	err = collect(rows, func(rows pgx.Rows) error {
		var it production.OrderItem
		var qty, price string
		if err := rows.Scan(&it.ID, &it.Name, &it.ProcessID, &qty, &price); err != nil {
			return err
		}
		it.Quantity, it.UnitPrice = parseDecimal(qty), parseDecimal(price)
		o.Items = append(o.Items, it)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	return o, nil
}
