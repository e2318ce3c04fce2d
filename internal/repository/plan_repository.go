package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/segyhp/layaway-engine/internal/domain"
)

const planColumns = `id, customer_id, total_amount, cadence, installment_count, installment_amount,
		start_date, next_payment_due_date, paid_amount, remaining_amount, paid_installment_count,
		status, notes, cancel_reason, cancelled_at, created_by, version, created_at, updated_at`

const paymentColumns = `id, plan_id, payment_number, amount, payment_date, payment_method, notes, created_by, created_at`

type planRepository struct {
	db  *sqlx.DB // nil when bound to a transaction
	ext sqlx.ExtContext
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepository{db: db, ext: db}
}

func (r *planRepository) WithTx(ctx context.Context, fn func(PlanRepository) error) error {
	if r.db == nil {
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&planRepository{ext: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *planRepository) InsertPlan(ctx context.Context, plan *domain.InstallmentPlan) error {
	return r.WithTx(ctx, func(txRepo PlanRepository) error {
		ext := txRepo.(*planRepository).ext

		query := ext.Rebind(`
			INSERT INTO installment_plans (` + planColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		_, err := ext.ExecContext(ctx, query,
			plan.ID,
			plan.CustomerID,
			plan.TotalAmount,
			plan.Cadence,
			plan.InstallmentCount,
			plan.InstallmentAmount,
			plan.StartDate,
			plan.NextPaymentDueDate,
			plan.PaidAmount,
			plan.RemainingAmount,
			plan.PaidInstallmentCount,
			plan.Status,
			plan.Notes,
			plan.CancelReason,
			plan.CancelledAt,
			plan.CreatedBy,
			plan.Version,
			plan.CreatedAt,
			plan.UpdatedAt,
		)
		if err != nil {
			return mapWriteError(err)
		}

		itemQuery := ext.Rebind(`
			INSERT INTO installment_plan_items (id, plan_id, line_number, product_ref, product_name, quantity, unit_price, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		for _, item := range plan.LineItems {
			_, err := ext.ExecContext(ctx, itemQuery,
				item.ID,
				item.PlanID,
				item.LineNumber,
				item.ProductRef,
				item.ProductName,
				item.Quantity,
				item.UnitPrice,
				item.Subtotal,
			)
			if err != nil {
				return mapWriteError(err)
			}
		}

		return nil
	})
}

func (r *planRepository) GetPlan(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	query := r.ext.Rebind(`SELECT ` + planColumns + ` FROM installment_plans WHERE id = ?`)

	var plan domain.InstallmentPlan
	if err := sqlx.GetContext(ctx, r.ext, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	itemQuery := r.ext.Rebind(`
		SELECT id, plan_id, line_number, product_ref, product_name, quantity, unit_price, subtotal
		FROM installment_plan_items
		WHERE plan_id = ?
		ORDER BY line_number
	`)
	if err := sqlx.SelectContext(ctx, r.ext, &plan.LineItems, itemQuery, id); err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepository) UpdatePlanState(ctx context.Context, id uuid.UUID, state domain.PlanState, expectedVersion int) error {
	query := r.ext.Rebind(`
		UPDATE installment_plans
		SET paid_amount = ?, remaining_amount = ?, paid_installment_count = ?, status = ?,
			next_payment_due_date = ?, cancel_reason = ?, cancelled_at = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`)

	result, err := r.ext.ExecContext(ctx, query,
		state.PaidAmount,
		state.RemainingAmount,
		state.PaidInstallmentCount,
		state.Status,
		state.NextPaymentDueDate,
		state.CancelReason,
		state.CancelledAt,
		state.UpdatedAt,
		id,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	return nil
}

func (r *planRepository) InsertPayment(ctx context.Context, payment *domain.InstallmentPayment) error {
	query := r.ext.Rebind(`
		INSERT INTO installment_payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.ext.ExecContext(ctx, query,
		payment.ID,
		payment.PlanID,
		payment.PaymentNumber,
		payment.Amount,
		payment.PaymentDate,
		payment.PaymentMethod,
		payment.Notes,
		payment.CreatedBy,
		payment.CreatedAt,
	)

	return mapWriteError(err)
}

func (r *planRepository) CountPayments(ctx context.Context, planID uuid.UUID) (int, error) {
	query := r.ext.Rebind(`SELECT COUNT(*) FROM installment_payments WHERE plan_id = ?`)

	var count int
	if err := sqlx.GetContext(ctx, r.ext, &count, query, planID); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *planRepository) ListPlans(ctx context.Context, filter domain.PlanFilter) ([]*domain.InstallmentPlan, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status IN (?)")
		args = append(args, filter.Statuses)
	}
	if filter.CustomerID != "" {
		conditions = append(conditions, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.DueBefore != nil {
		conditions = append(conditions, "next_payment_due_date < ?")
		args = append(args, *filter.DueBefore)
	}
	if filter.DueOn != nil {
		conditions = append(conditions, "next_payment_due_date = ?")
		args = append(args, *filter.DueOn)
	}

	query := `SELECT ` + planColumns + ` FROM installment_plans`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	if filter.DueBefore != nil || filter.DueOn != nil {
		query += ` ORDER BY next_payment_due_date, created_at`
	} else {
		query += ` ORDER BY created_at DESC`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	plans := []*domain.InstallmentPlan{}
	if err := sqlx.SelectContext(ctx, r.ext, &plans, r.ext.Rebind(query), args...); err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *planRepository) ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	query := r.ext.Rebind(`
		SELECT ` + paymentColumns + `
		FROM installment_payments
		WHERE plan_id = ?
		ORDER BY payment_number
	`)

	payments := []*domain.InstallmentPayment{}
	if err := sqlx.SelectContext(ctx, r.ext, &payments, query, planID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *planRepository) ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentPayment, error) {
	query := r.ext.Rebind(`
		SELECT ` + paymentColumns + `
		FROM installment_payments
		WHERE payment_date >= ? AND payment_date < ?
		ORDER BY payment_date, plan_id, payment_number
	`)

	payments := []*domain.InstallmentPayment{}
	if err := sqlx.SelectContext(ctx, r.ext, &payments, query, from, to); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *planRepository) DeletePlanCascade(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(txRepo PlanRepository) error {
		ext := txRepo.(*planRepository).ext

		for _, stmt := range []string{
			`DELETE FROM installment_payments WHERE plan_id = ?`,
			`DELETE FROM installment_plan_items WHERE plan_id = ?`,
		} {
			if _, err := ext.ExecContext(ctx, ext.Rebind(stmt), id); err != nil {
				return err
			}
		}

		result, err := ext.ExecContext(ctx, ext.Rebind(`DELETE FROM installment_plans WHERE id = ?`), id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// mapWriteError turns unique-constraint violations from any supported driver
// into ErrVersionConflict.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return ErrVersionConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
