package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/layaway-engine/internal/domain"
	"github.com/segyhp/layaway-engine/internal/repository"
)

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) InsertPlan(ctx context.Context, plan *domain.InstallmentPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetPlan(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) UpdatePlanState(ctx context.Context, id uuid.UUID, state domain.PlanState, expectedVersion int) error {
	args := m.Called(ctx, id, state, expectedVersion)
	return args.Error(0)
}

func (m *MockPlanRepository) InsertPayment(ctx context.Context, payment *domain.InstallmentPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPlanRepository) CountPayments(ctx context.Context, planID uuid.UUID) (int, error) {
	args := m.Called(ctx, planID)
	return args.Int(0), args.Error(1)
}

func (m *MockPlanRepository) ListPlans(ctx context.Context, filter domain.PlanFilter) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPayment), args.Error(1)
}

func (m *MockPlanRepository) ListPaymentsBetween(ctx context.Context, from, to time.Time) ([]*domain.InstallmentPayment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPayment), args.Error(1)
}

func (m *MockPlanRepository) DeletePlanCascade(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// WithTx runs fn against the mock itself, so expectations set on the mock
// cover calls made inside the transaction.
func (m *MockPlanRepository) WithTx(ctx context.Context, fn func(repository.PlanRepository) error) error {
	return fn(m)
}

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockCatalogRepository) GetProduct(ctx context.Context, ref string) (*domain.Product, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

type MockSummaryCache struct {
	mock.Mock
}

func (m *MockSummaryCache) Get(ctx context.Context, key string) (*domain.Stats, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Stats), args.Bool(1), args.Error(2)
}

func (m *MockSummaryCache) Set(ctx context.Context, key string, value *domain.Stats, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockSummaryCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
