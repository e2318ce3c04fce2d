package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/layaway-engine/internal/domain"
)

type MockInstallmentService struct {
	mock.Mock
}

func (m *MockInstallmentService) CreatePlan(ctx context.Context, actor domain.Actor, request *domain.CreatePlanRequest) (*domain.CreatePlanResponse, error) {
	args := m.Called(ctx, actor, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreatePlanResponse), args.Error(1)
}

func (m *MockInstallmentService) RecordPayment(ctx context.Context, actor domain.Actor, planID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error) {
	args := m.Called(ctx, actor, planID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecordPaymentResponse), args.Error(1)
}

func (m *MockInstallmentService) CancelPlan(ctx context.Context, actor domain.Actor, planID uuid.UUID, reason string) (*domain.InstallmentPlan, error) {
	args := m.Called(ctx, actor, planID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentPlan), args.Error(1)
}

func (m *MockInstallmentService) DeletePlan(ctx context.Context, actor domain.Actor, planID uuid.UUID) error {
	args := m.Called(ctx, actor, planID)
	return args.Error(0)
}

func (m *MockInstallmentService) GetPlanDetail(ctx context.Context, planID uuid.UUID) (*domain.PlanDetailResponse, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlanDetailResponse), args.Error(1)
}

func (m *MockInstallmentService) ListPlans(ctx context.Context, filter domain.PlanFilter) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockInstallmentService) ListPayments(ctx context.Context, planID uuid.UUID) ([]*domain.InstallmentPayment, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPayment), args.Error(1)
}

func (m *MockInstallmentService) ListOverdue(ctx context.Context, asOf time.Time) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockInstallmentService) ListDueToday(ctx context.Context) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockInstallmentService) GetSchedule(ctx context.Context, planID uuid.UUID) (*domain.ScheduleResponse, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduleResponse), args.Error(1)
}

func (m *MockInstallmentService) SweepOverdue(ctx context.Context, asOf time.Time) (int, error) {
	args := m.Called(ctx, asOf)
	return args.Int(0), args.Error(1)
}

func (m *MockInstallmentService) Today() time.Time {
	args := m.Called()
	return args.Get(0).(time.Time)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) GetSummary(ctx context.Context) (*domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}
