package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/layaway-engine/internal/cache"
	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/logger"
	"github.com/segyhp/layaway-engine/internal/repository"
	customError "github.com/segyhp/layaway-engine/pkg/errors"
)

func newSQLTestService(t *testing.T) (*InstallmentService, repository.PlanRepository) {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db))

	_, err = db.Exec(`INSERT INTO customers (id, name, phone, active) VALUES ('C-1', 'Ana Gomez', '', 1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO products (ref, name, price, active) VALUES ('HDMI', 'HDMI cable', '25000', 1)`)
	require.NoError(t, err)

	plans := repository.NewPlanRepository(db)
	svc := &InstallmentService{
		PlanRepo: plans,
		Catalog:  repository.NewCatalogRepository(db),
		Cache:    cache.NoopSummaryCache{},
		Logger:   logger.Discard(),
		Clock:    func() time.Time { return testNow },
		Policy:   DefaultPolicy(),
	}
	return svc, plans
}

// staleReads hands a previously loaded plan to the next GetPlan issued
// inside a transaction, as if a concurrent writer committed after that read.
type staleReads struct {
	repository.PlanRepository
	pending *domain.InstallmentPlan
}

func (r *staleReads) WithTx(ctx context.Context, fn func(repository.PlanRepository) error) error {
	return r.PlanRepository.WithTx(ctx, func(tx repository.PlanRepository) error {
		return fn(&staleTx{PlanRepository: tx, reads: r})
	})
}

type staleTx struct {
	repository.PlanRepository
	reads *staleReads
}

func (t *staleTx) GetPlan(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	if plan := t.reads.pending; plan != nil {
		t.reads.pending = nil
		return plan, nil
	}
	return t.PlanRepository.GetPlan(ctx, id)
}

func withStaleRead(svc *InstallmentService, plans repository.PlanRepository, stale *domain.InstallmentPlan) *InstallmentService {
	racer := *svc
	racer.PlanRepo = &staleReads{PlanRepository: plans, pending: stale}
	return &racer
}

func TestRecordPayment_SQLStaleVersionRetries(t *testing.T) {
	svc, plans := newSQLTestService(t)
	ctx := context.Background()
	plan := createPlan(t, svc, "HDMI", 4, 2, domain.CadenceMonthly, time.Time{})

	stale, err := plans.GetPlan(ctx, plan.ID)
	require.NoError(t, err)

	_, err = pay(svc, plan.ID, 30000)
	require.NoError(t, err)

	resp, err := pay(withStaleRead(svc, plans, stale), plan.ID, 20000)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Payment.PaymentNumber)
	assert.Equal(t, 3, resp.Plan.Version)
	assert.True(t, resp.Plan.RemainingAmount.Equal(decimal.NewFromInt(50000)))

	stored, err := plans.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Version)
	assert.True(t, stored.PaidAmount.Equal(decimal.NewFromInt(50000)))
	assert.True(t, stored.IsBalanced())

	payments, err := plans.ListPayments(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, 1, payments[0].PaymentNumber)
	assert.Equal(t, 2, payments[1].PaymentNumber)
}

func TestRecordPayment_SQLStaleVersionSeesCompletion(t *testing.T) {
	svc, plans := newSQLTestService(t)
	ctx := context.Background()
	plan := createPlan(t, svc, "HDMI", 4, 2, domain.CadenceMonthly, time.Time{})
	_, err := pay(svc, plan.ID, 99900)
	require.NoError(t, err)

	stale, err := plans.GetPlan(ctx, plan.ID)
	require.NoError(t, err)

	// Both clerks see 100 outstanding; the first one to commit wins
	_, err = pay(svc, plan.ID, 100)
	require.NoError(t, err)

	resp, err := pay(withStaleRead(svc, plans, stale), plan.ID, 100)

	assert.Nil(t, resp)
	assertBusinessError(t, err, customError.ErrInvalidState, customError.ErrCodePlanClosed)

	stored, err := plans.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusCompleted, stored.Status)
	assert.True(t, stored.RemainingAmount.IsZero())

	payments, err := plans.ListPayments(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestRecordPayment_SQLConcurrentFullPayments(t *testing.T) {
	svc, plans := newSQLTestService(t)
	ctx := context.Background()
	plan := createPlan(t, svc, "HDMI", 4, 2, domain.CadenceMonthly, time.Time{})
	_, err := pay(svc, plan.ID, 99900)
	require.NoError(t, err)

	errs := runConcurrentPayments(svc, plan.ID, 100, 100)

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := customError.KindOf(err)
		assert.Contains(t, []customError.Kind{customError.KindConflict, customError.KindValidation, customError.KindInvalidState}, kind)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := plans.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.Version)
	assert.True(t, stored.IsBalanced())

	payments, err := plans.ListPayments(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}
